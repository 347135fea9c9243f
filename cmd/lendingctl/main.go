// Command lendingctl runs operator tasks against the lending store: schema
// migration, catalog seeding, manual sweeps, outbox relaying and token
// minting for smoke tests.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"doccenter/internal/platform/config"
	"doccenter/internal/platform/logger"
	"doccenter/internal/store"
	"doccenter/internal/store/sqlstore"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(os.Getenv).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand shares once the root has loaded the
// configuration.
type app struct {
	getenv func(string) string
	cfg    config.Config
	log    *slog.Logger
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	a := &app{getenv: getenv}
	root := &cobra.Command{
		Use:          "lendingctl",
		Short:        "Operate the documentation center lending engine",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.getenv)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			a.cfg = cfg
			a.log = logger.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel)
			return nil
		},
	}
	root.AddCommand(
		newMigrateCmd(a),
		newSeedCmd(a),
		newSweepCmd(a),
		newRelayCmd(a),
		newTokenCmd(a),
	)
	return root
}

// openSQL opens the configured SQL store. The in-memory store lives inside
// the server process, so there is nothing for the CLI to operate on.
func (a *app) openSQL(ctx context.Context, migrate bool) (*sqlstore.DB, error) {
	if a.cfg.Database.Driver == store.DriverMemory {
		return nil, fmt.Errorf("driver %q has no state outside the server; set DOCCENTER_DB_DRIVER", store.DriverMemory)
	}
	backend, err := store.Open(ctx, a.cfg.Database, a.log, migrate)
	if err != nil {
		return nil, err
	}
	return backend.(*sqlstore.DB), nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
