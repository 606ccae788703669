package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/ZaparooProject/go-discsector"
)

// app carries the settings shared by every command once flags and the
// config file are resolved.
type app struct {
	logger    *log.Logger
	logCloser io.Closer
	cfg       config
}

func (a *app) options() discsector.Options {
	return discsector.Options{
		Logger:           a.logger,
		Workers:          a.cfg.Workers,
		MaxIssues:        a.cfg.MaxIssues,
		RegenerateHeader: a.cfg.RegenerateHeader,
	}
}

// printReport writes report as indented JSON or as a summary line followed
// by one line per kept issue.
func (a *app) printReport(w io.Writer, name string, report *discsector.Report) error {
	if a.cfg.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			*discsector.Report
			Source string `json:"source"`
		}{report, name}); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return nil
	}

	if _, err := fmt.Fprintf(w, "%s\n  %s\n", name, report.Summary()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	for _, issue := range report.Issues {
		if _, err := fmt.Fprintf(w, "  sector %d (LBA %d): %s\n", issue.Index, issue.LBA, issue.Problem); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if hidden := report.IssueCount - len(report.Issues); hidden > 0 {
		if _, err := fmt.Fprintf(w, "  ... and %d more\n", hidden); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "discsector",
		Short: "Sector-level tools for CD and DVD dumps",
		Long: `discsector checks and converts optical disc dumps at the sector level.

Currently supports:
  - CD images (.bin/.cue, .scram, .chd, archived in .zip/.7z/.rar):
    verify and repair EDC/ECC, scramble and descramble
  - DVD raw sectors (.raw, .sdram): descramble with seed recovery
  - Subchannel (.sub, .subq): interleave, deinterleave, Q listing
  - CHD: extract to BIN/CUE with subchannel

Examples:
  discsector cd verify game.cue
  discsector cd repair game.bin fixed.bin --regenerate-header
  discsector cd descramble game.scram game.bin
  discsector dvd descramble disc.sdram disc.iso --user-data
  discsector sub qlist game.sub --start-lba -150
  discsector chd extract game.chd game.bin --cue game.cue`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			if err := applyFlags(&cfg, cmd.Flags()); err != nil {
				return err
			}
			a.cfg = cfg
			a.logger, a.logCloser = newLogger(cmd.ErrOrStderr(), cfg.Logs)
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if a.logCloser == nil {
				return nil
			}
			if err := a.logCloser.Close(); err != nil {
				return fmt.Errorf("close log file: %w", err)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "discsector.yaml", "path to YAML configuration file")
	flags.Bool("json", false, "print reports as JSON")
	flags.Int("workers", 0, "concurrent CD workers (0 = number of CPUs)")
	flags.Int("max-issues", 0, "sector issues kept per report (0 = default, -1 = none)")
	flags.String("log-file", "", "also log to this size-rotated file")

	rootCmd.AddCommand(
		newCDCmd(a),
		newDVDCmd(a),
		newSubCmd(a),
		newCHDCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "discsector %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
			return err //nolint:wrapcheck // terminal output
		},
	}
}
