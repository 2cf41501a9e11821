package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	serve := newServeCmd(&configPath)
	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Katana-DCL dashboard API",
		Long:         "Read-only HTTP API over the MongoDB collections written by the Katana to DCL integration.",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to configuration file (optional)")
	cmd.AddCommand(serve, newCheckCmd(&configPath))
	return cmd
}
