package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"multifluid/fluid"
	"multifluid/internal/app"
	"multifluid/internal/config"
	"multifluid/ledger"
)

type cli struct {
	verbose   bool
	storePath string
	logger    *zap.Logger
}

func newCLI() *cli {
	return &cli{}
}

func (c *cli) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "tankctl",
		Short: "Inspect and edit multi-fluid tanks",
		Long: `tankctl manages tanks stored in a SQLite database.

A tank holds up to 25 fluids, one per slot, each bounded by the tank's
per-slot capacity. New tanks start locked; unlock a tank before pushing
or pulling fluid. Settings come from TANK_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.logger != nil {
				return nil
			}
			zcfg := zap.NewProductionConfig()
			if c.verbose {
				zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := zcfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&c.storePath, "store", "", "tank database path (overrides TANK_STORE_PATH)")

	root.AddCommand(
		c.createCmd(),
		c.describeCmd(),
		c.pushCmd(),
		c.pullCmd(),
		c.lockCmd("lock", true),
		c.lockCmd("unlock", false),
		c.voidCmd(),
		c.selectCmd(),
		c.moveCmd(),
		c.exportCmd(),
		c.importCmd(),
		c.listCmd(),
		c.deleteCmd(),
	)
	return root
}

// withApp opens the app for one command and closes it afterwards, also when
// the command fails.
func (c *cli) withApp(fn func(ctx context.Context, cmd *cobra.Command, args []string, a *app.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if c.storePath != "" {
			cfg.StorePath = c.storePath
		}
		logger := c.logger
		if logger == nil {
			logger = zap.NewNop()
		}
		a, err := app.Open(ctx, cfg, app.Options{Logger: logger, Console: cmd.ErrOrStderr()})
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, a.Close(context.WithoutCancel(ctx)))
		}()
		return fn(ctx, cmd, args, a)
	}
}

func modeFor(simulate bool) ledger.Mode {
	if simulate {
		return ledger.Simulate
	}
	return ledger.Commit
}

func parseAmount(raw string) (int, error) {
	amount, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return amount, nil
}

func parseFluid(raw string) (fluid.ID, error) {
	id, err := fluid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid fluid %q: %w", raw, err)
	}
	return id, nil
}
