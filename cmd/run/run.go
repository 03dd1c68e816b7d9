// Package run contains the command to run the gallery server.
package run

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/galleria-app/galleria/internal/build"
	"github.com/galleria-app/galleria/pkg/logger"
	"github.com/galleria-app/galleria/pkg/server"
	"github.com/galleria-app/galleria/pkg/storage"
	"github.com/galleria-app/galleria/pkg/storage/postgres"
	"github.com/galleria-app/galleria/pkg/storage/sqlcommon"
	"github.com/galleria-app/galleria/pkg/storage/sqlite"
)

func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the Galleria server",
		Long:  "Run the Galleria server.",
		Run:   run,
		Args:  cobra.NoArgs,
	}

	bindRunFlags(cmd)

	return cmd
}

func run(_ *cobra.Command, _ []string) {
	config := ReadConfig()

	if err := config.Verify(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.MustNewLogger(config.Log.Format, config.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RunServer(ctx, config, log); err != nil {
		log.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

// ReadConfig assembles the run configuration from viper, which has
// already merged flags, environment variables and config.yaml.
func ReadConfig() *Config {
	config := DefaultConfig()

	config.HTTP.Addr = viper.GetString("http.addr")
	config.HTTP.CORSAllowedOrigins = viper.GetStringSlice("http.corsAllowedOrigins")
	config.Authn.JWTSecret = viper.GetString("authn.jwtSecret")
	config.Datastore.Engine = viper.GetString("datastore.engine")
	config.Datastore.URI = viper.GetString("datastore.uri")
	config.Datastore.MaxOpenConns = viper.GetInt("datastore.maxOpenConns")
	config.Datastore.MaxIdleConns = viper.GetInt("datastore.maxIdleConns")
	config.Datastore.ConnMaxIdleTime = viper.GetDuration("datastore.connMaxIdleTime")
	config.Datastore.ConnMaxLifetime = viper.GetDuration("datastore.connMaxLifetime")
	config.Log.Format = viper.GetString("log.format")
	config.Log.Level = viper.GetString("log.level")
	config.Metrics.Enabled = viper.GetBool("metrics.enabled")
	config.Metrics.Addr = viper.GetString("metrics.addr")

	return config
}

// RunServer runs the server until ctx is cancelled, then shuts it
// down gracefully.
func RunServer(ctx context.Context, config *Config, log logger.Logger) error {
	datastore, err := buildDatastore(config, log)
	if err != nil {
		return fmt.Errorf("initialize datastore: %w", err)
	}
	defer datastore.Close()

	srv := server.New(datastore, log, server.Config{
		JWTSecret:          config.Authn.JWTSecret,
		CORSAllowedOrigins: config.HTTP.CORSAllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:    config.HTTP.Addr,
		Handler: srv.Router(),
	}

	var metricsServer *http.Server
	if config.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: config.Metrics.Addr, Handler: mux}

		go func() {
			log.Info("starting metrics server", zap.String("addr", config.Metrics.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting galleria service",
			zap.String("version", build.Version),
			zap.String("addr", config.HTTP.Addr),
			zap.String("datastore", config.Datastore.Engine),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
	}

	return nil
}

func buildDatastore(config *Config, log logger.Logger) (storage.GalleryDatastore, error) {
	dsCfg := sqlcommon.NewConfig(
		sqlcommon.WithLogger(log),
		sqlcommon.WithMaxOpenConns(config.Datastore.MaxOpenConns),
		sqlcommon.WithMaxIdleConns(config.Datastore.MaxIdleConns),
		sqlcommon.WithConnMaxIdleTime(config.Datastore.ConnMaxIdleTime),
		sqlcommon.WithConnMaxLifetime(config.Datastore.ConnMaxLifetime),
		sqlcommon.WithMetrics(),
	)

	switch config.Datastore.Engine {
	case "sqlite":
		return sqlite.New(config.Datastore.URI, dsCfg)
	case "postgres":
		return postgres.New(config.Datastore.URI, dsCfg)
	default:
		return nil, fmt.Errorf("storage engine '%s' is unsupported", config.Datastore.Engine)
	}
}
