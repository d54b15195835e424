package main

import (
	"log/slog"

	"github.com/md-rashed-zaman/catalogbus/libs/grpcx"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/grpcserver"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func newGrpcServer(logger *slog.Logger, catalog grpcserver.Catalog) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcx.UnaryServerRequestIDInterceptor(),
			grpcx.UnaryServerLogInterceptor(logger),
		),
	)
	grpcserver.Register(srv, catalog, logger)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for _, k := range model.Kinds {
		hs.SetServingStatus(grpcserver.ServiceName(k), healthpb.HealthCheckResponse_SERVING)
	}
	return srv, hs
}
