package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/app"
	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/config"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			a, err := app.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to create app: %w", err)
			}
			return a.Run()
		},
	}
}
