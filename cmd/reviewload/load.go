package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/warp/review-loader/audit"
	"github.com/warp/review-loader/review"
	"github.com/warp/review-loader/store/sqlite"
	"go.uber.org/zap"
)

func (c *cli) newLoadCommand() *cobra.Command {
	var rejectDuplicates bool

	cmd := &cobra.Command{
		Use:   "load <input-file> <store-path> [log-path]",
		Short: "Load a review export into the store.",
		Long: `Load reads every record of <input-file> once, resolves its app version
and user to surrogate ids (creating them on first sight), and inserts one
review row per well-formed record. The store at <store-path> is created
if it does not exist.

Malformed records are logged and counted; they never abort the run. All
inserts commit together at the end. After the commit a summary block is
appended to [log-path] (default from config: load_to_db_data.txt).`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, logger, err := c.setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cmd.Flags().Changed("reject-duplicate-reviews") {
				cfg.Store.RejectDuplicateReviews = rejectDuplicates
			}

			opts, err := cfg.Input.CSVOptions()
			if err != nil {
				return err
			}

			input, storePath := args[0], args[1]
			logPath := logPathArg(cfg, args, 2)

			// Input first: a missing file must not create an empty store.
			src, err := review.OpenCSV(input, opts)
			if err != nil {
				logger.Error("Cannot open input", zap.String("path", input), zap.Error(err))
				return err
			}
			defer src.Close()

			store, err := sqlite.New(storePath)
			if err != nil {
				logger.Error("Cannot open store", zap.String("path", storePath), zap.Error(err))
				return err
			}
			defer store.Close()

			runID := uuid.NewString()
			run := audit.Begin(c.clock, runID, "load", input)

			loader := review.NewLoader(store, logger)
			loader.Columns = cfg.Input.Columns.Columns()
			loader.DateLayout = cfg.Input.DateLayout
			loader.RejectDuplicateReviews = cfg.Store.RejectDuplicateReviews
			loader.Now = c.clock

			tally, err := loader.Load(cmd.Context(), src, review.RunInfo{
				ID:        runID,
				Input:     input,
				StartedAt: run.Start(),
			})
			if err != nil {
				logger.Error("Load aborted, nothing committed", zap.String("run_id", runID), zap.Error(err))
				return fmt.Errorf("load aborted: %w", err)
			}

			summary := run.Finish(tally.Succeeded, tally.Failed, tally.Skipped, kindsOf(tally))
			if err := audit.NewFileSink(logPath).Append(summary); err != nil {
				logger.Error("Failed to append audit block", zap.String("path", logPath), zap.Error(err))
				return err
			}

			c.report(summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&rejectDuplicates, "reject-duplicate-reviews", false,
		"fail rows whose reviewId is already stored instead of inserting a second copy")
	return cmd
}
