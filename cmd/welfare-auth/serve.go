package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-welfare-auth"
	"github.com/goliatone/go-welfare-auth/activitymap"
	"github.com/goliatone/go-welfare-auth/gateway"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		adminUsername string
		adminPassword string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the authentication gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}

			logger := root.logger()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := gateway.OpenDB(cfg.Database.DSN)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			gw, err := gateway.New(ctx, cfg, db, gateway.Options{
				Logger:           logger,
				Debug:            cfg.Server.Debug,
				MaxLoginAttempts: cfg.Login.MaxAttempts,
				CoolDownPeriod:   cfg.Login.CoolDownPeriod,
				ActivitySink:     activitymap.LogSink(logger),
			})
			if err != nil {
				return err
			}

			if adminPassword == "" {
				adminPassword = os.Getenv("WELFARE_AUTH_ADMIN_PASSWORD")
			}
			if adminUsername != "" && adminPassword != "" {
				if err := gw.Bootstrap(ctx, auth.RegisterUserMessage{
					Username:  adminUsername,
					Password:  adminPassword,
					FirstName: "Welfare",
					LastName:  "Admin",
					Role:      auth.RoleAdmin,
				}); err != nil {
					return fmt.Errorf("bootstrap admin: %w", err)
				}
			}

			errCh := make(chan error, 1)
			go func() {
				fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", cfg.Server.Address)
				errCh <- gw.App.Listen(cfg.Server.Address)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			if err := gw.App.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&adminUsername, "admin-username", "", "create this admin account on startup")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "password of the bootstrap admin (or WELFARE_AUTH_ADMIN_PASSWORD)")

	return cmd
}
