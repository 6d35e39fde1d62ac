package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/review-loader/audit"
	"github.com/warp/review-loader/config"
	"github.com/warp/review-loader/review"
	"go.uber.org/zap"
)

// cli carries the streams and flag values shared by every subcommand.
type cli struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	configPath string
	logLevel   string
	dateColumn string
	delimiter  string
	dateLayout string

	clock audit.Clock
}

// NewRootCommand builds the reviewload command tree.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr, clock: time.Now}

	rc := &cobra.Command{
		Use:   "reviewload",
		Short: "Load app-store review exports into a relational store.",
		Long: `reviewload reads delimited review exports and loads them into a SQLite
star schema: one row per review, with app versions and users stored once
and referenced by id.

Malformed rows are logged, counted and skipped; the rest of the file is
committed in a single transaction. Every completed run appends a summary
block to a plain-text audit log.`,
	}

	flags := rc.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&c.logLevel, "log-level", "", "diagnostics level: debug, info, warn, error")
	flags.StringVar(&c.dateColumn, "date-column", "", "header name of the timestamp column (e.g. date, at)")
	flags.StringVar(&c.delimiter, "delimiter", "", "field delimiter of the input file")
	flags.StringVar(&c.dateLayout, "date-layout", "", "Go time layout of the timestamp column")

	rc.AddCommand(c.newLoadCommand())
	rc.AddCommand(c.newCleanCommand())
	rc.AddCommand(c.newServeCommand())

	rc.SetIn(stdin)
	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// loadConfig reads the configuration and applies flags that were set.
func (c *cli) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if flags.Changed("date-column") {
		cfg.Input.Columns.CreatedAt = c.dateColumn
	}
	if flags.Changed("delimiter") {
		cfg.Input.Delimiter = c.delimiter
	}
	if flags.Changed("date-layout") {
		cfg.Input.DateLayout = c.dateLayout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads configuration and builds the logger.
func (c *cli) setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.NewLogger(c.stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// report writes the one-line result of a run to stdout.
func (c *cli) report(s audit.RunSummary) {
	fmt.Fprintf(c.stdout, "%s %s: %d rows processed, %d rows with errors",
		s.Operation, s.Status(), s.Succeeded, s.Failed)
	if s.Skipped > 0 {
		fmt.Fprintf(c.stdout, ", %d rows skipped", s.Skipped)
	}
	fmt.Fprintf(c.stdout, " (run %s, %s)\n", s.RunID, s.Elapsed())
}

func logPathArg(cfg *config.Config, args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return cfg.LogPath
}

func kindsOf(t review.Tally) map[string]int {
	if len(t.ByKind) == 0 {
		return nil
	}
	return t.Kinds()
}
