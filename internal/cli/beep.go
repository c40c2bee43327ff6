package cli

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jodok/bees/internal/server"
	"github.com/spf13/cobra"
)

var beepJSON bool

var beepCmd = &cobra.Command{
	Use:   "beep",
	Short: "Republish stored readings to BEEP",
}

var beepSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the schema and check every BEEP mapping",
	Long: `Ensure the database schema exists, then ask BEEP for the last stored
measurement of every mapped hive and print it. Exits 1 if any destination
is unreachable.`,
	Args: cobra.NoArgs,
	RunE: runBeepSetup,
}

var beepSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Post readings newer than the BEEP watermark",
	Args:  cobra.NoArgs,
	RunE:  runBeepSync,
}

func init() {
	rootCmd.AddCommand(beepCmd)
	beepCmd.AddCommand(beepSetupCmd)
	beepCmd.AddCommand(beepSyncCmd)
	beepSyncCmd.Flags().BoolVar(&beepJSON, "json", false, "print the run summary as JSON")
}

func runBeepSetup(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateBeep(); err != nil {
		return err
	}
	ctx := cmd.Context()
	st, err := openStack(ctx, cfg, server.StackOptions{})
	if err != nil {
		return err
	}
	defer st.Close()
	return st.NewRepublisher().Setup(ctx, cmd.OutOrStdout())
}

func runBeepSync(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateBeep(); err != nil {
		return err
	}
	ctx := cmd.Context()
	st, err := openStack(ctx, cfg, server.StackOptions{})
	if err != nil {
		return err
	}
	defer st.Close()

	summary, err := server.NewJobs(st, nil).Republish(ctx)
	if stderrors.Is(err, server.ErrSkipped) {
		return nil
	}
	if summary != nil {
		out := cmd.OutOrStdout()
		if beepJSON {
			if perr := printJSON(out, summary); perr != nil {
				return perr
			}
		} else {
			for _, c := range summary.Cycles {
				if !verbose && c.Error == "" && c.Rejected == 0 && c.Failed == 0 {
					continue
				}
				fmt.Fprintf(out, "  entity %d -> %s: since %s (%s), %d rows, %d posted, %d rejected, %d failed %s\n",
					c.EntityID, c.HiveID, c.Watermark.Format(time.RFC3339), c.WatermarkSource,
					c.Rows, c.Posted, c.Rejected, c.Failed, c.Error)
			}
			fmt.Fprintf(out, "%d mappings, %d measurements posted\n", len(summary.Cycles), summary.Posted())
		}
	}
	return err
}
