package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/catalogbus/libs/httpx"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"
)

// Catalog is the mutation surface the adapters call. *coordinator.Coordinator implements it.
type Catalog interface {
	Create(ctx context.Context, kind model.Kind, nom, description string) (model.Entity, error)
	Get(ctx context.Context, kind model.Kind, id string) (model.Entity, error)
	List(ctx context.Context, kind model.Kind) ([]model.Entity, error)
	Update(ctx context.Context, kind model.Kind, id, nom, description string) (model.Entity, error)
	Delete(ctx context.Context, kind model.Kind, id string) (model.Entity, error)
}

type Handler struct {
	catalog Catalog
	logger  *slog.Logger
}

func New(catalog Catalog, logger *slog.Logger) *Handler {
	return &Handler{catalog: catalog, logger: logger}
}

// Register mounts /client and /produit with their /{id} sub-routes.
func (h *Handler) Register(mux *http.ServeMux) {
	for _, kind := range model.Kinds {
		base := "/" + kind.String()
		mux.HandleFunc("GET "+base, h.list(kind))
		mux.HandleFunc("POST "+base, h.create(kind))
		mux.HandleFunc("GET "+base+"/{id}", h.get(kind))
		mux.HandleFunc("PUT "+base+"/{id}", h.update(kind))
		mux.HandleFunc("DELETE "+base+"/{id}", h.delete(kind))
	}
}

type entityBody struct {
	Nom         *string `json:"nom"`
	Description *string `json:"description"`
}

func decodeBody(r *http.Request) (nom, description string, err error) {
	var body entityBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", "", model.Validation("request body too large")
		}
		return "", "", model.Validation("invalid JSON body")
	}
	if body.Nom == nil {
		return "", "", model.Validation("nom is required")
	}
	if body.Description == nil {
		return "", "", model.Validation("description is required")
	}
	return *body.Nom, *body.Description, nil
}

func (h *Handler) list(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := h.catalog.List(r.Context(), kind)
		if err != nil {
			h.writeError(w, r, kind, model.MethodList, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, list)
	}
}

func (h *Handler) get(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := h.catalog.Get(r.Context(), kind, r.PathValue("id"))
		if err != nil {
			h.writeError(w, r, kind, model.MethodGet, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, e)
	}
}

func (h *Handler) create(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nom, description, err := decodeBody(r)
		if err != nil {
			h.writeError(w, r, kind, model.MethodCreate, err)
			return
		}
		e, err := h.catalog.Create(r.Context(), kind, nom, description)
		if err != nil {
			h.writeError(w, r, kind, model.MethodCreate, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, e)
	}
}

func (h *Handler) update(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nom, description, err := decodeBody(r)
		if err != nil {
			h.writeError(w, r, kind, model.MethodUpdate, err)
			return
		}
		e, err := h.catalog.Update(r.Context(), kind, r.PathValue("id"), nom, description)
		if err != nil {
			h.writeError(w, r, kind, model.MethodUpdate, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, e)
	}
}

func (h *Handler) delete(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.catalog.Delete(r.Context(), kind, r.PathValue("id")); err != nil {
			h.writeError(w, r, kind, model.MethodDelete, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(model.DeletedMessage(kind)))
	}
}

// writeError maps the domain taxonomy onto HTTP. Server-side causes are logged
// and replaced by a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, kind model.Kind, m model.Method, err error) {
	switch model.CodeOf(err) {
	case model.CodeNotFound:
		http.Error(w, model.NotFoundMessage(kind), http.StatusNotFound)
	case model.CodeValidation:
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("request failed",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"kind", kind.String(),
			"path", r.URL.Path,
			"err", err,
		)
		http.Error(w, model.FailureMessage(kind, m), http.StatusInternalServerError)
	}
}
