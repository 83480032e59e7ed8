package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"go-shop-api/internal/app"
	"go-shop-api/internal/config"
	"go-shop-api/internal/logger"
)

type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:           "shop-api",
		Short:         "User accounts, product catalog and order placement API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			rt.cfg = cfg
			rt.logger = logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(rt.logger)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.serve(cmd)
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "server",
			Short: "Start the HTTP server (default)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return rt.serve(cmd)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply the embedded database schema",
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.Migrate(cmd.Context(), rt.cfg)
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Load the sample product catalog into an empty database",
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.Seed(cmd.Context(), rt.cfg)
			},
		},
	)

	return root
}

func (rt *runtime) serve(cmd *cobra.Command) error {
	application, err := app.New(cmd.Context(), rt.cfg, rt.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return application.Run(cmd.Context())
}
