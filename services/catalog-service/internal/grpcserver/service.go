// Package grpcserver serves client.ClientService and produit.ProduitService.
// There is no generated code: descriptors are declared here and payloads use
// the JSON codec from libs/grpcx.
package grpcserver

import (
	"context"
	"log/slog"

	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Catalog interface {
	Create(ctx context.Context, kind model.Kind, nom, description string) (model.Entity, error)
	Get(ctx context.Context, kind model.Kind, id string) (model.Entity, error)
	List(ctx context.Context, kind model.Kind) ([]model.Entity, error)
	Update(ctx context.Context, kind model.Kind, id, nom, description string) (model.Entity, error)
	Delete(ctx context.Context, kind model.Kind, id string) (model.Entity, error)
}

// kindService is the handler type of every catalog service descriptor.
type kindService interface {
	entityKind() model.Kind
}

type kindServer struct {
	kind    model.Kind
	catalog Catalog
	logger  *slog.Logger
}

func (s *kindServer) entityKind() model.Kind { return s.kind }

// ServiceName is the fully qualified service of kind, e.g. "client.ClientService".
func ServiceName(kind model.Kind) string {
	return kind.String() + "." + kind.Label() + "Service"
}

// Register adds one service per kind to srv.
func Register(srv grpc.ServiceRegistrar, catalog Catalog, logger *slog.Logger) {
	for _, kind := range model.Kinds {
		srv.RegisterService(serviceDesc(kind), &kindServer{kind: kind, catalog: catalog, logger: logger})
	}
}

func serviceDesc(kind model.Kind) *grpc.ServiceDesc {
	label := kind.Label()
	name := ServiceName(kind)
	return &grpc.ServiceDesc{
		ServiceName: name,
		HandlerType: (*kindService)(nil),
		Methods: []grpc.MethodDesc{
			unary(name, "Get"+label, (*kindServer).get),
			unary(name, "Search"+label+"s", (*kindServer).search),
			unary(name, "Create"+label, (*kindServer).create),
			unary(name, "Update"+label, (*kindServer).update),
			unary(name, "Delete"+label, (*kindServer).delete),
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: kind.String() + ".proto",
	}
}

type method func(s *kindServer, ctx context.Context, req *entityRequest) (any, error)

func unary(service, name string, fn method) grpc.MethodDesc {
	info := &grpc.UnaryServerInfo{FullMethod: "/" + service + "/" + name}
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			s := srv.(*kindServer)
			req := &entityRequest{kind: s.kind}
			if err := dec(req); err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "invalid request: %s", status.Convert(err).Message())
			}
			if interceptor == nil {
				return fn(s, ctx, req)
			}
			callInfo := *info
			callInfo.Server = srv
			return interceptor(ctx, req, &callInfo, func(ctx context.Context, r any) (any, error) {
				return fn(s, ctx, r.(*entityRequest))
			})
		},
	}
}

func (s *kindServer) get(ctx context.Context, req *entityRequest) (any, error) {
	e, err := s.catalog.Get(ctx, s.kind, req.ID)
	if err != nil {
		return nil, toStatus(ctx, s.logger, s.kind, model.MethodGet, err)
	}
	return entityReply{kind: s.kind, entity: e}, nil
}

func (s *kindServer) search(ctx context.Context, _ *entityRequest) (any, error) {
	list, err := s.catalog.List(ctx, s.kind)
	if err != nil {
		return nil, toStatus(ctx, s.logger, s.kind, model.MethodList, err)
	}
	return listReply{kind: s.kind, entities: list}, nil
}

func (s *kindServer) create(ctx context.Context, req *entityRequest) (any, error) {
	e, err := s.catalog.Create(ctx, s.kind, req.Nom, req.Description)
	if err != nil {
		return nil, toStatus(ctx, s.logger, s.kind, model.MethodCreate, err)
	}
	return entityReply{kind: s.kind, entity: e}, nil
}

func (s *kindServer) update(ctx context.Context, req *entityRequest) (any, error) {
	e, err := s.catalog.Update(ctx, s.kind, req.ID, req.Nom, req.Description)
	if err != nil {
		return nil, toStatus(ctx, s.logger, s.kind, model.MethodUpdate, err)
	}
	return entityReply{kind: s.kind, entity: e}, nil
}

func (s *kindServer) delete(ctx context.Context, req *entityRequest) (any, error) {
	if _, err := s.catalog.Delete(ctx, s.kind, req.ID); err != nil {
		return nil, toStatus(ctx, s.logger, s.kind, model.MethodDelete, err)
	}
	return deleteReply{Message: model.DeletedMessage(s.kind)}, nil
}
