package cli

import (
	"github.com/jodok/bees/internal/server"
	"github.com/spf13/cobra"
	nuts "github.com/vaudience/go-nuts"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled jobs and the status API",
	Long: `Keep running, execute sync and republish on their cron schedules and
serve /v1/health, /v1/status, /v1/entities, /v1/events and /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if Banner != nil {
		Banner()
	}
	nuts.L.Infof("[Main] Starting bees server v%s", nuts.GetVersion())

	st, err := openStack(cmd.Context(), cfg, server.StackOptions{})
	if err != nil {
		return err
	}
	defer st.Close()

	return server.New(cfg, st).Start()
}
