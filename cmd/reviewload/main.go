/*
main.go - Application entry point

PURPOSE:
  Runs the reviewload command tree: load, clean and serve.

COMMANDS:
  reviewload load  <input-file> <store-path> [log-path]
  reviewload clean <input-file> <output-file> [log-path]
  reviewload serve <store-path>

EXIT STATUS:
  0 when the run completed (row errors included, see the audit log)
  1 on wrong usage or a fatal error (missing input, unusable store,
    aborted transaction); nothing is committed and no audit block written

CONFIGURATION:
  --config <file.yaml> and REVIEWLOAD_* environment variables, overridden
  by flags. See config/config.go.

EXAMPLES:
  ./reviewload load reviews.csv reviews.db
  ./reviewload load --date-column at old_export.csv reviews.db audit/runs.txt
  ./reviewload serve reviews.db --addr :3000

SEE ALSO:
  - review/ingest.go: Row ingestion loop
  - audit/audit.go: Audit block format
  - api/server.go: Read-only API
*/
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
