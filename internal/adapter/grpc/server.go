package grpc

import (
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/adapter/grpc/middleware"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/platform/auth"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/platform/logger"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-check name of the discovery service.
const ServiceName = "discovery.DiscoveryService"

var publicMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
	healthpb.Health_Watch_FullMethodName: true,
	"/grpc.health.v1.Health/List":        true,
}

// NewGRPCServer builds the server exposing health and reflection. The returned
// cleanup marks the service NOT_SERVING and stops gracefully.
func NewGRPCServer(log *logger.Logger, verifier *auth.TokenVerifier) (*grpc.Server, *health.Server, func()) {
	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			middleware.LoggingInterceptor(log),
			middleware.AuthInterceptor(verifier, log, publicMethods),
		),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(server)

	cleanup := func() {
		healthServer.Shutdown()
		server.GracefulStop()
		log.Info("gRPC server stopped")
	}
	return server, healthServer, cleanup
}
