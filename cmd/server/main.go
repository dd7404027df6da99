package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcAdapter "github.com/Abdurahmanit/GroupProject/discovery-service/internal/adapter/grpc"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/adapter/httpapi"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/adapter/storage/s3"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/app"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/query"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/spatial"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/platform/auth"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/platform/tracer"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
)

func main() {
	configPath := flag.String("config", "", "path to a config file or directory")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Printf("INFO: .env file not found or error loading: %v. Relying on OS environment variables.\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewLogger(cfg.Log).Named(cfg.ServiceName)
	defer func() { _ = appLogger.Sync() }()
	appLogger.Info("Application starting",
		zap.String("backend", cfg.Backend),
		zap.String("http_port", cfg.HTTP.Port),
		zap.String("grpc_port", cfg.GRPC.Port),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Bool("minio_enabled", cfg.MinIO.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.OTLPEndpoint != "" {
		tp := tracer.InitTracer(cfg.ServiceName, cfg.Tracing.OTLPEndpoint, appLogger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				appLogger.Error("Failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	} else {
		appLogger.Info("OpenTelemetry tracer not initialized (tracing.otlp_endpoint not set)")
	}

	metricsManager := metrics.NewMetricsManager("discovery")

	backend, err := app.OpenBackend(ctx, cfg, metricsManager, appLogger.Logger)
	if err != nil {
		appLogger.Fatal("Failed to open listing backend", zap.Error(err))
	}
	defer backend.Close()

	var signer httpapi.PhotoSigner
	if cfg.MinIO.Enabled {
		photoSigner, err := s3.NewPhotoSigner(ctx, &cfg.MinIO, appLogger.Logger)
		if err != nil {
			appLogger.Fatal("Failed to initialize media storage", zap.Error(err))
		}
		signer = photoSigner
	}

	verifier := auth.NewTokenVerifier(cfg.Auth.JWTSecret)
	planner := query.NewPlanner(backend.Recommender, metricsManager, appLogger.Logger,
		query.WithLookupTimeout(cfg.Discovery.RecommendTimeout))
	mapOpts := spatial.Options{
		MaxZoom:       cfg.Discovery.MaxZoom,
		WidthPx:       cfg.Discovery.ViewportWidthPx,
		HeightPx:      cfg.Discovery.ViewportHeightPx,
		ClusterCellPx: cfg.Discovery.ClusterCellPx,
	}
	handler := httpapi.NewHandler(backend.Listings, planner, signer, mapOpts, appLogger.Logger)

	routerCfg := httpapi.RouterConfig{Verifier: verifier, Observer: metricsManager}
	if cfg.Discovery.RateLimitRPS > 0 {
		routerCfg.Limiter = rate.NewLimiter(rate.Limit(cfg.Discovery.RateLimitRPS), cfg.Discovery.RateLimitBurst)
	}
	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      httpapi.NewRouter(handler, routerCfg, appLogger.Logger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", cfg.HTTP.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	lis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		appLogger.Fatal("Failed to listen for gRPC", zap.String("port", cfg.GRPC.Port), zap.Error(err))
	}
	grpcServer, _, grpcCleanup := grpcAdapter.NewGRPCServer(appLogger.Named("grpc"), verifier)
	go func() {
		appLogger.Info("Starting gRPC server", zap.String("port", cfg.GRPC.Port))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			appLogger.Error("gRPC server failed", zap.Error(err))
			stop()
		}
	}()

	go func() {
		if err := metrics.StartMetricsServer(ctx, cfg.Metrics.Port, appLogger, metricsManager.Registry); err != nil {
			appLogger.Error("Prometheus metrics server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	appLogger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	grpcCleanup()
	appLogger.Info("Application stopped")
}
