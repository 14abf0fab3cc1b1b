// Package main is the entry point for the conbadge binary: the registration
// service plus a small admin CLI over the same stores.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"conbadge/internal/api"
	"conbadge/internal/auth"
	"conbadge/internal/config"
	"conbadge/internal/metrics"
	"conbadge/internal/notify"
	"conbadge/internal/registration"
	"conbadge/internal/store"
	"conbadge/internal/store/objectstore"
	"conbadge/internal/store/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "conbadge: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "conbadge",
		Short:        "Convention badge registration service",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newServeCmd(),
		newBadgesCmd(),
	)
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the registration HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := newLogger(cfg)

			badges, images, err := buildStores(ctx, cfg, logger)
			if err != nil {
				return err
			}
			service := registration.NewService(
				badges,
				images,
				metrics.New(prometheus.DefaultRegisterer),
				notify.New(cfg.NotifyEndpoint, logger),
				logger,
			)
			server := api.New(cfg, service, auth.NewVerifier(cfg.JWTSecret), logger)
			return server.Run(ctx)
		},
	}
}

func newBadgesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "badges",
		Short: "Admin commands over the badge store",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all registered badges",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			badges, _, err := buildStores(ctx, cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			all, err := badges.List(ctx)
			if err != nil {
				return fmt.Errorf("list badges: %w", err)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BADGE\tNAME\tSPECIES\tPUBLIC\tUPDATED")
			for _, b := range all {
				fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\n",
					b.BadgeNo, b.Name, b.Species, b.Public, b.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	})
	return cmd
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

// buildStores selects the persistence backends from configuration: Postgres
// when a DSN is set, otherwise in-memory; MinIO for image payloads when an S3
// endpoint is set.
func buildStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.BadgeStore, store.ImageStore, error) {
	var (
		badges store.BadgeStore
		images store.ImageStore
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return nil, nil, err
		}
		badges = postgres.NewBadgeStore(pool)
		images = postgres.NewImageStore(pool)
	} else {
		logger.Warn("no database configured, using in-memory stores")
		badges = store.NewMemoryBadgeStore()
		images = store.NewMemoryImageStore()
	}
	if cfg.S3Endpoint != "" {
		objStore, err := objectstore.New(objectstore.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init object store: %w", err)
		}
		if err := objStore.EnsureBucket(ctx); err != nil {
			return nil, nil, err
		}
		images = objStore
	}
	return badges, images, nil
}
