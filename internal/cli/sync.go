package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/jodok/bees/internal/server"
	"github.com/jodok/bees/internal/syncservice"
	"github.com/spf13/cobra"
)

var (
	syncDryRun bool
	syncJSON   bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize BeehiveMonitoring history into the database",
	Long: `Upsert the configured apiaries, then fetch the history of every hive
(or sensor) and merge it into the history table.

Per-entity failures are logged and reported; the command still exits 0.
Listing or configuration failures abort the run with exit code 1.

With --dry-run the run writes to an in-memory store and nothing is persisted.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "fetch and transform without writing to the database")
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "print the run report as JSON")
}

func runSync(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateSync(); err != nil {
		return err
	}
	ctx := cmd.Context()
	st, err := openStack(ctx, cfg, server.StackOptions{InMemory: syncDryRun})
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := server.NewJobs(st, nil).Sync(ctx, syncDryRun)
	if stderrors.Is(err, server.ErrSkipped) {
		return nil
	}
	if report != nil {
		if syncJSON {
			if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
				return perr
			}
		} else {
			printReport(cmd.OutOrStdout(), report, verbose)
		}
	}
	return err
}

func printReport(w io.Writer, r *syncservice.Report, all bool) {
	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "run %s%s: %d entities, %d rows, %d failures in %s\n",
		r.RunID, mode, r.Entities, r.Rows(), len(r.Failures()), r.Duration().Round(time.Millisecond))
	if r.Fatal != "" {
		fmt.Fprintf(w, "aborted: %s\n", r.Fatal)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, res := range r.Results {
		if !all && !res.Failed() {
			continue
		}
		fmt.Fprintf(tw, "  %s\t%d\t%s\t%s\tlimit=%d\tfetched=%d\tupserted=%d\t%s\n",
			res.Kind, res.EntityID, res.Name, res.Status, res.Limit, res.Fetched, res.Upserted, res.Error)
	}
	tw.Flush()
}
