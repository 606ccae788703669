package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ZaparooProject/go-discsector"
	"github.com/ZaparooProject/go-discsector/disc"
	"github.com/ZaparooProject/go-discsector/dvd"
)

func newDVDCmd(a *app) *cobra.Command {
	dvdCmd := &cobra.Command{
		Use:   "dvd",
		Short: "Convert raw DVD sector dumps",
		Long: `Convert raw DVD sector dumps of 2064-byte sectors.

Commands:
  descramble  Recover each sector's scrambling seed and descramble it

Recovered seeds can be kept in a seed cache (--seeds) so later runs on
discs of the same family find them first.`,
	}

	var userData bool
	descrambleCmd := &cobra.Command{
		Use:   "descramble [input] [output]",
		Short: "Descramble a raw DVD dump",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := disc.Open(args[0], disc.Options{})
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer func() { _ = img.Close() }()
			src := img.Sources[0]
			if src.Format != disc.FormatDVDRaw && src.Format != disc.FormatUnknown {
				return disc.UnsupportedImageError{Path: args[0], Reason: src.Format.String() + " is not a raw DVD dump"}
			}

			d := dvd.NewDescrambler()
			if a.cfg.SeedCache != "" {
				if err := d.LoadSeedFile(a.cfg.SeedCache); err != nil {
					return fmt.Errorf("load seed cache: %w", err)
				}
			}

			out, err := createOutput(args[1], src.Name)
			if err != nil {
				return err
			}
			opts := a.options()
			opts.UserData = userData
			report, runErr := discsector.DescrambleDVD(cmd.Context(), io.NewSectionReader(src, 0, src.Size), out, d, opts)
			if err := errors.Join(runErr, out.Close()); err != nil {
				return fmt.Errorf("%s: %w", src.Name, err)
			}

			if a.cfg.SeedCache != "" {
				if err := d.SaveSeedFile(a.cfg.SeedCache); err != nil {
					return fmt.Errorf("save seed cache: %w", err)
				}
			}
			return a.printReport(cmd.OutOrStdout(), src.Name, report)
		},
	}
	descrambleCmd.Flags().BoolVar(&userData, "user-data", false, "write only the 2048 main data bytes of each sector")
	descrambleCmd.Flags().String("seeds", "", "seed cache file to load before and save after the run")

	dvdCmd.AddCommand(descrambleCmd)
	return dvdCmd
}
