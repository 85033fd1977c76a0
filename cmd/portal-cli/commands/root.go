package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"medauth-backend/cmd/portal-cli/globals"
	"medauth-backend/internal/components/chrono"
	"medauth-backend/internal/components/telemetry"
	"medauth-backend/pkg/configutil"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

var configPath *string
var verbose *bool

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The config file, a sibling .local file overrides it.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output.")
}

var rootCmd = &cobra.Command{
	Use:   "portal-cli",
	Short: "portal-cli looks up pending medication authorizations on the provider portal.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(*verbose)

		cfg, err := configutil.ReadConfig[globals.Config](*configPath)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("read config: %w", err)
		}
		clock, err := chrono.NewStandardTime(cfg.TimeZone)
		if err != nil {
			return fmt.Errorf("load time zone: %w", err)
		}

		value := &globals.Value{
			Config: cfg,
			Tel:    telemetry.NewSlogAPI(nil),
			Clock:  clock,
		}

		otelSetup, err := telemetry.SetupFromEnv(cmd.Context(), "portal-cli")
		switch {
		case err == nil:
			metered, err := telemetry.NewMeteredAPI(value.Tel, otel.Meter("medauth.portal-cli"))
			if err != nil {
				return fmt.Errorf("create meter: %w", err)
			}
			value.Tel = metered
			value.Shutdown = otelSetup.Shutdown
			telemetry.InstrumentPerfStats(cmd.Context(), 30*time.Second)
		case !os.IsNotExist(err):
			slog.Warn("telemetry disabled", "err", err)
		}

		cmd.SetContext(globals.Set(cmd.Context(), value))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		value := globals.Get(cmd.Context())
		if value.Shutdown == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := value.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
