package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ZaparooProject/go-discsector"
	"github.com/ZaparooProject/go-discsector/chd"
	"github.com/ZaparooProject/go-discsector/disc"
)

func newCHDCmd(a *app) *cobra.Command {
	chdCmd := &cobra.Command{
		Use:   "chd",
		Short: "Read CHD disc images",
		Long: `Read MAME CHD (v3-v5) CD images.

Commands:
  extract  Write every stored frame as raw sectors, with optional
           subchannel and cue sheet`,
	}

	var subPath, cuePath string
	extractCmd := &cobra.Command{
		Use:   "extract [image.chd] [output.bin]",
		Short: "Extract a CHD to raw sectors",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := chd.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer func() { _ = image.Close() }()

			bin, err := createOutput(args[1], args[0])
			if err != nil {
				return err
			}
			var sub *os.File
			if subPath != "" {
				if sub, err = createOutput(subPath, args[0]); err != nil {
					_ = bin.Close()
					return err
				}
			}

			var report *discsector.Report
			if sub != nil {
				report, err = discsector.ExtractCHD(cmd.Context(), image, bin, sub, a.options())
				err = errors.Join(err, sub.Close())
			} else {
				report, err = discsector.ExtractCHD(cmd.Context(), image, bin, nil, a.options())
			}
			if err := errors.Join(err, bin.Close()); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			if cuePath != "" {
				if err := writeCue(cuePath, filepath.Base(args[1]), disc.LayoutFromCHD(image)); err != nil {
					return err
				}
			}
			return a.printReport(cmd.OutOrStdout(), args[0], report)
		},
	}
	extractCmd.Flags().StringVar(&subPath, "sub", "", "also write the raw interleaved subchannel to this file")
	extractCmd.Flags().StringVar(&cuePath, "cue", "", "also write a cue sheet describing the output to this file")

	chdCmd.AddCommand(extractCmd)
	return chdCmd
}

func writeCue(path, binName string, layout *disc.Layout) error {
	f, err := os.Create(path) //nolint:gosec // Path from user input is expected
	if err != nil {
		return fmt.Errorf("create cue sheet: %w", err)
	}
	if err := errors.Join(disc.WriteCue(f, binName, layout), f.Close()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
