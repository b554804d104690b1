package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-client/internal/devserver"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newDevServerCmd(a *app) *cobra.Command {
	var (
		addr, secret              string
		adminEmail, adminPassword string
		accessTTL, refreshTTL     time.Duration
		rotateRefresh             bool
	)

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-process backend for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.GetDevServerAddr()
			}
			if secret == "" {
				secret = a.cfg.GetDevServerSecret()
			}

			a.registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			options := []devserver.Option{
				devserver.WithEnv(a.cfg.GetEnv()),
				devserver.WithLogger(a.logger),
				devserver.WithTokenExpiry(accessTTL, refreshTTL),
				devserver.WithMetricsHandler(metrics.Handler(a.registry)),
			}
			if adminEmail != "" {
				options = append(options, devserver.WithAccount(adminEmail, adminPassword, true))
			}
			if rotateRefresh {
				options = append(options, devserver.WithRefreshRotation())
			}

			srv, err := devserver.New(secret, options...)
			if err != nil {
				return err
			}

			displayAppname(a.cfg.GetAppName())
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides AUTH_DEVSERVER_ADDR)")
	cmd.Flags().StringVar(&secret, "secret", "", "HS256 signing secret (overrides AUTH_DEVSERVER_SECRET)")
	cmd.Flags().StringVar(&adminEmail, "admin-email", "admin@example.com", "seeded staff account; empty disables seeding")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "Adm1nPassword", "password of the seeded staff account")
	cmd.Flags().DurationVar(&accessTTL, "access-ttl", devserver.DefaultAccessTokenExpiry, "access token lifetime")
	cmd.Flags().DurationVar(&refreshTTL, "refresh-ttl", devserver.DefaultRefreshTokenExpiry, "refresh token lifetime")
	cmd.Flags().BoolVar(&rotateRefresh, "rotate-refresh", false, "issue a new refresh token on every refresh")
	return cmd
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
