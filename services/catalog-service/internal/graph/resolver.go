package graph

import (
	"context"
	"log/slog"

	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"
)

type Catalog interface {
	Create(ctx context.Context, kind model.Kind, nom, description string) (model.Entity, error)
	Get(ctx context.Context, kind model.Kind, id string) (model.Entity, error)
	List(ctx context.Context, kind model.Kind) ([]model.Entity, error)
	Update(ctx context.Context, kind model.Kind, id, nom, description string) (model.Entity, error)
	Delete(ctx context.Context, kind model.Kind, id string) (model.Entity, error)
}

// Resolver is the root of both Query and Mutation.
type Resolver struct {
	catalog Catalog
	logger  *slog.Logger
}

type idArgs struct {
	ID string
}

type fieldArgs struct {
	Nom         string
	Description string
}

type updateArgs struct {
	ID          string
	Nom         string
	Description string
}

// entityResolver backs both Client and Produit.
type entityResolver struct {
	e model.Entity
}

func (r *entityResolver) ID() string          { return r.e.ID }
func (r *entityResolver) Nom() string         { return r.e.Nom }
func (r *entityResolver) Description() string { return r.e.Description }

func (r *Resolver) Client(ctx context.Context, args idArgs) (*entityResolver, error) {
	return r.get(ctx, model.KindClient, args.ID)
}

func (r *Resolver) Clients(ctx context.Context) (*[]*entityResolver, error) {
	return r.list(ctx, model.KindClient)
}

func (r *Resolver) Produit(ctx context.Context, args idArgs) (*entityResolver, error) {
	return r.get(ctx, model.KindProduit, args.ID)
}

func (r *Resolver) Produits(ctx context.Context) (*[]*entityResolver, error) {
	return r.list(ctx, model.KindProduit)
}

func (r *Resolver) CreateClient(ctx context.Context, args fieldArgs) (*entityResolver, error) {
	return r.create(ctx, model.KindClient, args)
}

func (r *Resolver) CreateProduit(ctx context.Context, args fieldArgs) (*entityResolver, error) {
	return r.create(ctx, model.KindProduit, args)
}

func (r *Resolver) UpdateClient(ctx context.Context, args updateArgs) (*entityResolver, error) {
	return r.update(ctx, model.KindClient, args)
}

func (r *Resolver) UpdateProduit(ctx context.Context, args updateArgs) (*entityResolver, error) {
	return r.update(ctx, model.KindProduit, args)
}

func (r *Resolver) DeleteClient(ctx context.Context, args idArgs) (*string, error) {
	return r.delete(ctx, model.KindClient, args.ID)
}

func (r *Resolver) DeleteProduit(ctx context.Context, args idArgs) (*string, error) {
	return r.delete(ctx, model.KindProduit, args.ID)
}

func (r *Resolver) get(ctx context.Context, kind model.Kind, id string) (*entityResolver, error) {
	e, err := r.catalog.Get(ctx, kind, id)
	if err != nil {
		return nil, r.toGraphError(kind, model.MethodGet, err)
	}
	return &entityResolver{e: e}, nil
}

func (r *Resolver) list(ctx context.Context, kind model.Kind) (*[]*entityResolver, error) {
	list, err := r.catalog.List(ctx, kind)
	if err != nil {
		return nil, r.toGraphError(kind, model.MethodList, err)
	}
	out := make([]*entityResolver, len(list))
	for i := range list {
		out[i] = &entityResolver{e: list[i]}
	}
	return &out, nil
}

func (r *Resolver) create(ctx context.Context, kind model.Kind, args fieldArgs) (*entityResolver, error) {
	e, err := r.catalog.Create(ctx, kind, args.Nom, args.Description)
	if err != nil {
		return nil, r.toGraphError(kind, model.MethodCreate, err)
	}
	return &entityResolver{e: e}, nil
}

func (r *Resolver) update(ctx context.Context, kind model.Kind, args updateArgs) (*entityResolver, error) {
	e, err := r.catalog.Update(ctx, kind, args.ID, args.Nom, args.Description)
	if err != nil {
		return nil, r.toGraphError(kind, model.MethodUpdate, err)
	}
	return &entityResolver{e: e}, nil
}

func (r *Resolver) delete(ctx context.Context, kind model.Kind, id string) (*string, error) {
	if _, err := r.catalog.Delete(ctx, kind, id); err != nil {
		return nil, r.toGraphError(kind, model.MethodDelete, err)
	}
	msg := model.DeletedMessage(kind)
	return &msg, nil
}
