package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ZaparooProject/go-discsector"
	"github.com/ZaparooProject/go-discsector/disc"
)

func newSubCmd(a *app) *cobra.Command {
	subCmd := &cobra.Command{
		Use:   "sub",
		Short: "Convert and list subchannel data",
		Long: `Convert and list CD subchannel data.

Commands:
  interleave    P..W channel blocks to raw interleaved frames
  deinterleave  Raw interleaved frames to P..W channel blocks
  q2raw         16-byte Q records (.subq) to raw interleaved frames
  qlist         Print the decoded Q channel of every frame`,
	}

	for _, mode := range []discsector.SubchannelMode{
		discsector.SubchannelInterleave,
		discsector.SubchannelDeinterleave,
		discsector.SubchannelQToRaw,
	} {
		subCmd.AddCommand(&cobra.Command{
			Use:   mode.String() + " [input] [output]",
			Short: "Convert subchannel data (" + mode.String() + ")",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runSubchannel(cmd, args[0], args[1], mode)
			},
		})
	}

	var startLBA int32
	qlistCmd := &cobra.Command{
		Use:   "qlist [input]",
		Short: "Print the decoded Q channel of every frame",
		Long: `Print one line per frame with its LBA, P flag, decoded Q block and CRC
status. Input is raw interleaved 96-byte frames, or 16-byte Q records for
.subq files.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := disc.Open(args[0], disc.Options{})
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer func() { _ = img.Close() }()
			src := img.Sources[0]

			opts := a.options()
			opts.StartLBA = startLBA
			records := src.Format == disc.FormatQRecords
			report, err := discsector.ListQ(cmd.Context(), io.NewSectionReader(src, 0, src.Size), cmd.OutOrStdout(), records, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", src.Name, err)
			}
			return a.printReport(cmd.ErrOrStderr(), src.Name, report)
		},
	}
	qlistCmd.Flags().Int32Var(&startLBA, "start-lba", -150, "LBA of the first frame")

	subCmd.AddCommand(qlistCmd)
	return subCmd
}

func (a *app) runSubchannel(cmd *cobra.Command, input, output string, mode discsector.SubchannelMode) error {
	img, err := disc.Open(input, disc.Options{})
	if err != nil {
		return fmt.Errorf("open %s: %w", input, err)
	}
	defer func() { _ = img.Close() }()
	src := img.Sources[0]

	out, err := createOutput(output, src.Name)
	if err != nil {
		return err
	}
	report, runErr := discsector.ConvertSubchannel(cmd.Context(), io.NewSectionReader(src, 0, src.Size), out, mode)
	if err := errors.Join(runErr, out.Close()); err != nil {
		return fmt.Errorf("%s: %w", src.Name, err)
	}
	return a.printReport(cmd.OutOrStdout(), src.Name, report)
}
