package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/config"
	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/store"
)

var errCheckFailed = errors.New("connection check failed")

// checkTarget is the part of store.Manager the check command reports on.
type checkTarget interface {
	Connected() bool
	Err() error
	Ping(ctx context.Context) error
	ListCollections(ctx context.Context) ([]string, error)
	EstimatedCount(ctx context.Context, name string) (int64, error)
	Close(ctx context.Context) error
}

var connectForCheck = func(ctx context.Context, cfg *config.MongoConfig, logger *slog.Logger) checkTarget {
	return store.Connect(ctx, cfg, logger)
}

func newCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the MongoDB connection and report collection sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			log, err := config.SetupLogger(&cfg.Log)
			if err != nil {
				return fmt.Errorf("setup logger: %w", err)
			}
			defer log.Close()

			return runCheck(cmd.Context(), cmd.OutOrStdout(), cfg, log.Logger)
		},
	}
}

// runCheck connects, pings, lists the database's collections and counts the
// configured ones. It fails when the connection or the ping fails, or when a
// configured collection does not exist.
func runCheck(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger) error {
	fmt.Fprintf(out, "uri:      %s\n", cfg.Mongo.RedactedURI())
	fmt.Fprintf(out, "database: %s\n", cfg.Mongo.Database)

	t := connectForCheck(ctx, &cfg.Mongo, logger)
	defer t.Close(context.WithoutCancel(ctx))

	if !t.Connected() {
		fmt.Fprintf(out, "connect:  FAILED (%v)\n", t.Err())
		return errCheckFailed
	}
	if err := t.Ping(ctx); err != nil {
		fmt.Fprintf(out, "ping:     FAILED (%v)\n", err)
		return errCheckFailed
	}
	fmt.Fprintln(out, "ping:     ok")

	names, err := t.ListCollections(ctx)
	if err != nil {
		fmt.Fprintf(out, "list:     FAILED (%v)\n", err)
		return errCheckFailed
	}
	slices.Sort(names)
	fmt.Fprintf(out, "collections in database: %d\n", len(names))
	for _, n := range names {
		fmt.Fprintf(out, "  - %s\n", n)
	}

	c := cfg.Mongo.Collections
	missing := 0
	for _, name := range []string{c.SalesOrders, c.PurchaseOrders, c.StockTransfers, c.TargetOrders} {
		if !slices.Contains(names, name) {
			fmt.Fprintf(out, "%-20s MISSING\n", name)
			missing++
			continue
		}
		n, err := t.EstimatedCount(ctx, name)
		if err != nil {
			fmt.Fprintf(out, "%-20s count failed (%v)\n", name, err)
			continue
		}
		fmt.Fprintf(out, "%-20s %d documents\n", name, n)
	}

	if missing > 0 {
		return fmt.Errorf("%w: %d configured collection(s) missing", errCheckFailed, missing)
	}
	fmt.Fprintln(out, "connection check passed")
	return nil
}
