package etlm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/edgeflare/etlm/pkg/api"
	"github.com/edgeflare/etlm/pkg/config"
	"github.com/edgeflare/etlm/pkg/httputil"
	mw "github.com/edgeflare/etlm/pkg/httputil/middleware"
	"github.com/edgeflare/etlm/pkg/kafka"
	"github.com/edgeflare/etlm/pkg/metrics"
	pg "github.com/edgeflare/etlm/pkg/pgx"
	"github.com/edgeflare/etlm/pkg/sequin"
	"github.com/edgeflare/etlm/pkg/settings"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the HTTP API server",
	Long:    `Starts the API server that manages system settings and proxies requests to the Sequin management API`,
	RunE:    runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringP("server.listenAddr", "l", ":8000", "API server listen address")
	f.String("server.apiPrefix", "/api/v1", "Path prefix for API routes")
	f.StringSlice("server.corsOrigins", []string{"http://localhost:5173", "http://localhost:3000"}, "Allowed CORS origins")
	f.String("store.driver", config.StoreDriverPostgres, "Settings store (postgres or memory)")
	f.Bool("postgres.migrate", true, "Create tables on startup")
	f.Bool("metrics.enabled", true, "Serve Prometheus metrics")
	f.String("metrics.addr", ":9100", "Prometheus metrics listen address")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if cfg == nil {
		return errors.New("configuration not loaded")
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var wg sync.WaitGroup
	if cfg.Metrics.Enabled {
		metrics.StartPrometheusServer(ctx, &wg, &metrics.PromServerOpts{Addr: cfg.Metrics.Addr, Logger: logger})
	}

	sequinClient := sequin.NewClient(store, sequin.Options{
		HTTPClient:  &http.Client{},
		Logger:      logger.Named("sequin"),
		Timeout:     cfg.Upstream.Timeout,
		PingTimeout: cfg.Upstream.PingTimeout,
	})
	kafkaClient := kafka.NewClient(cfg.Kafka, logger.Named("kafka"))

	server := api.NewServer(store, sequinClient, kafkaClient, api.Options{
		Logger:       logger,
		EnsureTopics: cfg.Kafka.EnsureTopics,
	})

	r := httputil.NewRouter(
		httputil.WithLogger(logger),
		httputil.WithTLS(cfg.Server.TLSCert, cfg.Server.TLSKey),
		httputil.WithServerOptions(func(s *http.Server) {
			s.ReadHeaderTimeout = 10 * time.Second
		}),
	)
	r.Use(mw.RequestID)
	if cfg.Log.Level != "none" {
		r.Use(mw.LoggerWithOptions(&mw.LoggerOptions{Logger: logger}))
	}
	r.Use(mw.CORSWithOptions(mw.CORSWithOrigins(cfg.Server.CORSOrigins)))
	server.Register(r, cfg.Server.APIPrefix)

	errChan := make(chan error, 1)
	go func() {
		if err := r.ListenAndServe(cfg.Server.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received termination signal, shutting down")
	case err = <-errChan:
		logger.Error("server error", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := r.Shutdown(shutdownCtx); serr != nil {
		logger.Error("server shutdown error", zap.Error(serr))
	}
	wg.Wait()

	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("server gracefully stopped")
	return nil
}

// openStore returns the configured settings store and a cleanup func.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (settings.Store, func(), error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		logger.Warn("using in-memory settings store; settings are lost on restart")
		return settings.NewMemoryStore(), func() {}, nil
	}

	pool, err := pg.Connect(ctx, pg.Pool{
		ConnString:     cfg.Postgres.ConnectionString(),
		ConnectTimeout: cfg.Postgres.ConnectTimeout,
		Logger:         logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if cfg.Postgres.Migrate {
		if err := settings.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	return settings.NewPostgresStore(pool, logger.Named("settings")), pool.Close, nil
}
