package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ZaparooProject/go-discsector"
	"github.com/ZaparooProject/go-discsector/disc"
)

type cdFunc func(ctx context.Context, src *disc.Source, out *os.File, opts discsector.Options) (*discsector.Report, error)

func newCDCmd(a *app) *cobra.Command {
	var startLBA int32

	cdCmd := &cobra.Command{
		Use:   "cd",
		Short: "Check and convert CD images",
		Long: `Check and convert raw CD images.

Commands:
  verify      Check sync, header, EDC and ECC of every data sector
  repair      Regenerate EDC/ECC of failing data sectors
  scramble    Apply the ECMA-130 scrambler to data sectors
  descramble  Same transform as scramble, for .scram dumps

Images are .bin, .scram, .chd or .cue files, optionally inside a .zip, .7z
or .rar archive. A cue sheet with several FILE entries writes one output
file per entry into the output directory.`,
	}
	cdCmd.PersistentFlags().Int32Var(&startLBA, "start-lba", 0, "LBA of the first sector of an image without a cue sheet")

	verify := func(ctx context.Context, src *disc.Source, _ *os.File, opts discsector.Options) (*discsector.Report, error) {
		return discsector.VerifyCD(ctx, src, src.Size, opts)
	}
	repair := func(ctx context.Context, src *disc.Source, out *os.File, opts discsector.Options) (*discsector.Report, error) {
		return discsector.RepairCD(ctx, src, src.Size, out, opts)
	}
	scramble := func(ctx context.Context, src *disc.Source, out *os.File, opts discsector.Options) (*discsector.Report, error) {
		return discsector.ScrambleCD(ctx, src, src.Size, out, opts)
	}

	verifyCmd := &cobra.Command{
		Use:   "verify [image]",
		Short: "Check every data sector of a CD image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCD(cmd, args[0], "", startLBA, verify)
		},
	}

	repairCmd := &cobra.Command{
		Use:   "repair [image] [output]",
		Short: "Regenerate EDC/ECC of failing data sectors",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCD(cmd, args[0], args[1], startLBA, repair)
		},
	}
	repairCmd.Flags().Bool("regenerate-header", false, "also rebuild sync mark and header from the sector address")

	scrambleCmd := &cobra.Command{
		Use:   "scramble [image] [output]",
		Short: "Scramble the data sectors of a CD image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCD(cmd, args[0], args[1], startLBA, scramble)
		},
	}

	descrambleCmd := &cobra.Command{
		Use:   "descramble [image] [output]",
		Short: "Descramble the data sectors of a scrambled CD dump",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCD(cmd, args[0], args[1], startLBA, scramble)
		},
	}

	cdCmd.AddCommand(verifyCmd, repairCmd, scrambleCmd, descrambleCmd)
	return cdCmd
}

// runCD applies fn to every CD source of the image at path. With output
// empty nothing is written.
func (a *app) runCD(cmd *cobra.Command, path, output string, startLBA int32, fn cdFunc) error {
	img, err := disc.Open(path, disc.Options{StartLBA: startLBA})
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = img.Close() }()

	if !img.Format.IsCD() {
		return disc.UnsupportedImageError{Path: path, Reason: img.Format.String() + " is not a CD image"}
	}

	for _, src := range img.Sources {
		var out *os.File
		if output != "" {
			outPath := output
			if len(img.Sources) > 1 {
				outPath = filepath.Join(output, filepath.Base(src.Name))
			}
			if out, err = createOutput(outPath, src.Name); err != nil {
				return err
			}
		}

		opts := a.options()
		opts.Layout = src.Layout
		report, runErr := fn(cmd.Context(), src, out, opts)
		if out != nil {
			runErr = errors.Join(runErr, out.Close())
		}
		if runErr != nil {
			return fmt.Errorf("%s: %w", src.Name, runErr)
		}
		if err := a.printReport(cmd.OutOrStdout(), src.Name, report); err != nil {
			return err
		}
	}
	return nil
}

// createOutput creates path for writing, refusing to overwrite the input.
func createOutput(path, input string) (*os.File, error) {
	if abs, err := filepath.Abs(path); err == nil {
		if in, err := filepath.Abs(input); err == nil && abs == in {
			return nil, fmt.Errorf("output %s would overwrite the input", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path) //nolint:gosec // Path from user input is expected
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return f, nil
}
