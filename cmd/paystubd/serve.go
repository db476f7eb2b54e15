package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/reflection"

	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/export"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/server"
)

var (
	serveHTTPAddr    string
	serveGRPCAddr    string
	shutdownTimeout  time.Duration
	readinessRefresh time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis API",
	Long: `Start the HTTP analysis API and the gRPC health endpoint.

The HTTP server provides:
  - /api/v1/analyses         - submit a pay stub, poll, cancel, export
  - /api/v1/rules/analyze    - evaluate already-extracted fields
  - /api/v1/penalties/...    - penalty and compliance calculators
  - /health, /ready          - liveness and dependency checks

The gRPC server exposes grpc.health.v1.Health, which mirrors /ready.
On SIGINT or SIGTERM the servers stop accepting work and queued analyses
are drained before exit.

Examples:
  paystubd serve
  paystubd serve --config /etc/paystub.yaml --http-addr :8081`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		mgr, logger, level, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		if serveHTTPAddr != "" {
			cfg.Server.HTTPAddr = serveHTTPAddr
		}
		if serveGRPCAddr != "" {
			cfg.Server.GRPCAddr = serveGRPCAddr
		}

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to initialize", "error", err)
			return err
		}
		defer a.Close()

		queue, err := a.newQueue()
		if err != nil {
			logger.Error("failed to start queue", "backend", cfg.Queue.Backend, "error", err)
			return err
		}

		exporter := export.NewService(a.store, a.archive, logger)
		opts := append(a.readiness(), server.WithMaxDocumentBytes(cfg.OCR.MaxDocumentBytes))
		srv, err := server.New(logger, a.proc, queue, exporter, opts...)
		if err != nil {
			return err
		}

		// Only the log level is applied live; everything else needs a restart.
		mgr.OnChange(func(c common.Config) {
			if logLevel == "" {
				level.Set(common.ParseLevel(c.Log.Level))
			}
			logger.Info("config.applied", "log_level", level.Level().String())
		})
		mgr.WatchConfig()

		httpServer := &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           srv.Handler(),
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.Server.WriteTimeout,
		}

		grpcServer, healthServer := server.NewGRPCServer(logger)
		reflection.Register(grpcServer)
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
			queue.Shutdown(context.Background())
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("http server listening", "addr", cfg.Server.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			logger.Info("grpc server listening", "addr", lis.Addr().String())
			return grpcServer.Serve(lis)
		})
		g.Go(func() error {
			srv.WatchReadiness(gctx, healthServer, readinessRefresh)
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down", "timeout", shutdownTimeout.String())
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(sctx); err != nil {
				logger.Warn("http shutdown incomplete", "error", err)
			}
			queue.Shutdown(sctx)

			stopped := make(chan struct{})
			go func() { grpcServer.GracefulStop(); close(stopped) }()
			select {
			case <-stopped:
			case <-sctx.Done():
				grpcServer.Stop()
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			logger.Error("server exited", "error", err)
			return err
		}
		logger.Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http-addr", "", "override server.http_addr")
	serveCmd.Flags().StringVar(&serveGRPCAddr, "grpc-addr", "", "override server.grpc_addr")
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "time allowed to drain in-flight analyses")
	serveCmd.Flags().DurationVar(&readinessRefresh, "readiness-interval", 10*time.Second, "how often gRPC health re-runs the readiness checks")

	rootCmd.AddCommand(serveCmd)
}
