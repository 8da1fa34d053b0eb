package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ledger-auth/internal/app"
	"ledger-auth/internal/config"
	"ledger-auth/internal/lib/logger"
	"ledger-auth/internal/lib/migrator"
	"ledger-auth/internal/repo"
	"ledger-auth/internal/service"
	"ledger-auth/internal/storage/postgresql"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ledger-auth",
		Short:         "User, team and invite authentication service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newSweepInvitesCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Env)

			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}

			runErr := application.Run(ctx)
			if err := application.GracefulShutdown(); err != nil && runErr == nil {
				return err
			}
			return runErr
		},
	}
}

func newMigrateCommand() *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Env)

			storage, err := postgresql.New(commandContext(cmd), cfg.Postgres, log)
			if err != nil {
				return err
			}
			defer storage.Close()

			dir := migrator.Up
			if down {
				dir = migrator.Down
			}
			return migrator.Run(storage.GetDB(), dir, log)
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "Roll back every migration instead of applying them")
	return cmd
}

func newSweepInvitesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-invites",
		Short: "Delete pending invites that have expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Env)
			ctx := commandContext(cmd)

			storage, err := postgresql.New(ctx, cfg.Postgres, log)
			if err != nil {
				return err
			}
			defer storage.Close()

			db, timeout := storage.GetDB(), storage.QueryTimeout()
			teamRepo := repo.NewTeamRepo(db, timeout)
			invites := service.NewInviteService(log,
				repo.NewInviteRepo(db, timeout), teamRepo, repo.NewUserRepo(db, timeout),
				nil, cfg.Auth.InviteTTL, nil)

			n, err := invites.ExpireSweep(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired invites\n", n)
			return nil
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
