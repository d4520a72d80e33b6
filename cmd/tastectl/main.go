// Command tastectl operates a TasteID store from the shell: it seeds review
// fixtures, computes and inspects TasteIDs, and runs batch recomputes.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	service "github.com/okian/tasteid/internal/app"
	"github.com/okian/tasteid/internal/config"
	"github.com/okian/tasteid/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// cli carries the persistent flags shared by every subcommand.
type cli struct {
	dbPath   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "tastectl",
		Short: "Seed, compute and inspect TasteIDs",
		Long: `tastectl works directly against a TasteID store. Point it at a SQLite
database with --db, or configure the store through TASTEID_* variables and
the file named by TASTEID_CONFIG.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return err
			}
			return logger.SetLevelString(c.logLevel)
		},
	}
	root.PersistentFlags().StringVar(&c.dbPath, "db", "", "SQLite database file (overrides the configured store)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(
		c.generateCmd(),
		c.seedCmd(),
		c.computeCmd(),
		c.getCmd(),
		c.historyCmd(),
		c.compareCmd(),
		c.similarCmd(),
		c.recomputeCmd(),
		c.verifyCmd(),
		c.statsCmd(),
	)
	return root
}

func (c *cli) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if c.dbPath != "" {
		cfg.Store = "sqlite"
		cfg.SQLitePath = c.dbPath
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// withService opens the configured store, starts a service over it and
// stops it once fn returns.
func (c *cli) withService(ctx context.Context, fn func(*service.Service) error) error {
	cfg, err := c.loadConfig(ctx)
	if err != nil {
		return err
	}
	store, name, err := service.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	if name == "memory" {
		logger.Get().Warn(ctx, "using an in-memory store; nothing will persist after this command")
	}

	opts := append(service.FromConfig(cfg),
		service.WithStore(store, name),
		service.WithLogger(logger.Named("tastectl")),
	)
	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return err
	}
	defer svc.Stop()
	return fn(svc)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
