package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	commonlogger "societysync/common/logger"

	"societysync/common/database"
	httpapi "societysync/internal/http"
	"societysync/internal/config"
	"societysync/internal/repository"
	"societysync/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the overdue-bill scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	logger := a.logger

	if created, err := a.userSvc.EnsureAdmin(ctx, a.cfg.Auth.AdminPassword, a.cfg.Auth.AdminEmail); err != nil {
		return err
	} else if created {
		logger.Warn("Seeded default admin account, change its password after first login")
	}

	scheduler, err := service.NewScheduler(a.billing, a.cfg.Society.SweepCron, a.cfg.Location(), logger)
	if err != nil {
		return err
	}
	scheduler.Start()

	authn := httpapi.NewAuthenticator(a.tokens, logger).WithUserLookup(func(ctx context.Context, userID int64) error {
		_, err := a.users.GetUser(ctx, userID)
		return err
	})
	router := httpapi.NewRouter(authn, logger)
	router.RegisterAuthRoutes(httpapi.NewAuthHandler(a.authSvc, a.userSvc, logger))
	router.RegisterUserRoutes(httpapi.NewUserHandler(a.userSvc, a.occupancy, a.cfg.Location(), logger))
	router.RegisterBillRoutes(httpapi.NewBillHandler(a.billing, logger))
	router.RegisterComplaintRoutes(httpapi.NewComplaintHandler(a.complaints, logger))
	router.RegisterVisitorRoutes(httpapi.NewVisitorHandler(a.visitors, a.cfg.HTTP.MaxBodySize, logger))
	router.RegisterNotificationRoutes(httpapi.NewNotificationHandler(a.notifications, logger))
	router.RegisterPollRoutes(httpapi.NewPollHandler(a.polls, logger))
	router.RegisterDashboardRoutes(httpapi.NewDashboardHandler(a.dashboard, logger))

	handler := httpapi.WithCORS(a.cfg.HTTP.CORSOrigins, httpapi.RequestLogger(logger, router))
	srv := service.NewServer(a.cfg.HTTP.Addr, handler, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		logger.Error("HTTP server failed", zap.Error(runErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("Failed to stop HTTP server", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)

	logger.Info("societysync stopped")
	return runErr
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := commonlogger.NewLogger(cfg.Log.Level, cfg.Log.Format, "societysync")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			db, err := database.NewPostgresDB(&cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close(db)

			applied, err := repository.Migrate(cmd.Context(), db, logger)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending migrations.")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", v)
			}
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-overdue",
		Short: "Mark pending bills past their due date as overdue",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.billing.SweepOverdue(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d bill(s) overdue\n", n)
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the admin account if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if password == "" {
				password = a.cfg.Auth.AdminPassword
			}
			created, err := a.userSvc.EnsureAdmin(cmd.Context(), password, a.cfg.Auth.AdminEmail)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintln(cmd.OutOrStdout(), "Admin account created")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Admin account already exists")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "initial admin password (default ADMIN_PASSWORD)")
	return cmd
}
