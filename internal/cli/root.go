package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jodok/bees/internal/config"
	"github.com/jodok/bees/internal/server"
	"github.com/spf13/cobra"
	nuts "github.com/vaudience/go-nuts"
)

var (
	configPath string
	verbose    bool
	cfg        *config.Config

	// Banner is drawn before serve starts when set.
	Banner func()

	// openStack is replaced in tests.
	openStack = server.OpenStack
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bees",
	Short: "Hive telemetry sync and BEEP republisher",
	Long: `bees mirrors hive and sensor history from BeehiveMonitoring into
PostgreSQL and forwards stored readings to the BEEP platform.

Run it from cron with "bees sync" and "bees beep sync", or keep it running
with "bees serve" to get scheduled jobs and a status API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if verbose {
			nuts.L.Infof("[CLI] bees %s, config %q, source %s", nuts.GetVersion(), configPath, cfg.Source.Entity)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print per-entity results")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
