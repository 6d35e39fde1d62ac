package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/warp/review-loader/audit"
	"github.com/warp/review-loader/review"
	"go.uber.org/zap"
)

func (c *cli) newCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean <input-file> <output-file> [log-path]",
		Short: "Drop invalid rows and older duplicates from a review export.",
		Long: `Clean writes a copy of <input-file> to <output-file> keeping, for every
reviewId, the record with the most recent timestamp. Records that load
would reject are dropped and counted. A summary block is appended to
[log-path] afterwards.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cmd.SilenceUsage = true

			cfg, logger, err := c.setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			opts, err := cfg.Input.CSVOptions()
			if err != nil {
				return err
			}

			input, output := args[0], args[1]
			logPath := logPathArg(cfg, args, 2)

			if same, _ := samePath(input, output); same {
				return fmt.Errorf("output file must differ from input file")
			}

			// Fail before creating the output when the input is missing.
			probe, err := review.OpenCSV(input, opts)
			if err != nil {
				logger.Error("Cannot open input", zap.String("path", input), zap.Error(err))
				return err
			}
			probe.Close()
			open := func() (review.Source, error) {
				return review.OpenCSV(input, opts)
			}

			out, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}
			defer func() {
				if cerr := out.Close(); cerr != nil && err == nil {
					err = fmt.Errorf("failed to close output: %w", cerr)
				}
			}()

			run := audit.Begin(c.clock, uuid.NewString(), "clean", input)

			cleaner := review.NewCleaner(logger)
			cleaner.Columns = cfg.Input.Columns.Columns()
			cleaner.DateLayout = cfg.Input.DateLayout
			cleaner.Delimiter = opts.Delimiter

			tally, err := cleaner.Clean(cmd.Context(), open, out)
			if err != nil {
				return fmt.Errorf("clean aborted: %w", err)
			}

			summary := run.Finish(tally.Succeeded, tally.Failed, tally.Skipped, kindsOf(tally))
			if err := audit.NewFileSink(logPath).Append(summary); err != nil {
				return err
			}

			c.report(summary)
			return nil
		},
	}
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}
