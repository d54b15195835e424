package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/coordinator"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/memstore"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"
)

func newServer(t *testing.T) (*httptest.Server, *memstore.Store) {
	t.Helper()
	s := memstore.New()
	repos := map[model.Kind]coordinator.Repository{}
	for _, k := range model.Kinds {
		repos[k] = s.Repository(k)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := coordinator.New(s, s.Outbox(), repos, logger, coordinator.Options{})

	mux := http.NewServeMux()
	New(c, logger).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, s
}

func do(t *testing.T, method, url, body string) (int, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, strings.TrimSpace(string(raw))
}

func TestClientLifecycle(t *testing.T) {
	srv, store := newServer(t)

	code, body := do(t, http.MethodPost, srv.URL+"/client", `{"nom":"Acme","description":"Widgets"}`)
	if code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d (%s)", code, body)
	}
	var created model.Entity
	if err := json.Unmarshal([]byte(body), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == "" || created.Nom != "Acme" || created.Description != "Widgets" {
		t.Fatalf("unexpected created entity: %+v", created)
	}

	code, body = do(t, http.MethodPut, srv.URL+"/client/"+created.ID, `{"nom":"Acme Corp","description":"Widgets"}`)
	if code != http.StatusOK || !strings.Contains(body, `"nom":"Acme Corp"`) {
		t.Fatalf("update: got %d %s", code, body)
	}

	code, body = do(t, http.MethodGet, srv.URL+"/client", "")
	if code != http.StatusOK || !strings.HasPrefix(body, "[") || !strings.Contains(body, created.ID) {
		t.Fatalf("list: got %d %s", code, body)
	}

	code, body = do(t, http.MethodDelete, srv.URL+"/client/"+created.ID, "")
	if code != http.StatusOK || body != "Client supprimé avec succès" {
		t.Fatalf("delete: got %d %q", code, body)
	}

	code, body = do(t, http.MethodGet, srv.URL+"/client/"+created.ID, "")
	if code != http.StatusNotFound || body != "Client non trouvé" {
		t.Fatalf("get after delete: got %d %q", code, body)
	}

	var ops []model.Operation
	for _, rec := range store.Outbox().Records() {
		ops = append(ops, rec.Event.Operation)
	}
	if len(ops) != 3 || ops[0] != model.OpCreated || ops[1] != model.OpUpdated || ops[2] != model.OpDeleted {
		t.Fatalf("unexpected staged operations: %v", ops)
	}
}

func TestEmptyListIsArray(t *testing.T) {
	srv, _ := newServer(t)

	code, body := do(t, http.MethodGet, srv.URL+"/produit", "")
	if code != http.StatusOK || body != "[]" {
		t.Fatalf("expected 200 [], got %d %s", code, body)
	}
}

func TestProduitNotFound(t *testing.T) {
	srv, store := newServer(t)

	for _, tc := range []struct{ method, body string }{
		{http.MethodGet, ""},
		{http.MethodPut, `{"nom":"x","description":""}`},
		{http.MethodDelete, ""},
	} {
		code, body := do(t, tc.method, srv.URL+"/produit/6f1c1b3e-0000-4000-8000-000000000000", tc.body)
		if code != http.StatusNotFound || body != "Produit non trouvé" {
			t.Fatalf("%s: expected 404 Produit non trouvé, got %d %q", tc.method, code, body)
		}
	}
	if n := len(store.Outbox().Records()); n != 0 {
		t.Fatalf("expected no staged events, got %d", n)
	}
}

func TestValidationIsBadRequest(t *testing.T) {
	srv, store := newServer(t)

	for _, body := range []string{
		`{"nom":"","description":"Widgets"}`,
		`{"description":"Widgets"}`,
		`{"nom":"Acme"}`,
		`not json`,
	} {
		code, _ := do(t, http.MethodPost, srv.URL+"/client", body)
		if code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, code)
		}
	}
	if n := len(store.Outbox().Records()); n != 0 {
		t.Fatalf("expected no staged events, got %d", n)
	}
}

func TestEmptyDescriptionAccepted(t *testing.T) {
	srv, _ := newServer(t)

	code, body := do(t, http.MethodPost, srv.URL+"/produit", `{"nom":"Bolt","description":""}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", code, body)
	}
}

type brokenCatalog struct{ Catalog }

func (brokenCatalog) List(context.Context, model.Kind) ([]model.Entity, error) {
	return nil, model.Persistence("list client", errors.New("password authentication failed for user catalog"))
}

func TestServerErrorHidesCause(t *testing.T) {
	mux := http.NewServeMux()
	New(brokenCatalog{}, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(mux)

	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/client", nil))

	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rw.Code)
	}
	body := strings.TrimSpace(rw.Body.String())
	if body != "Erreur lors de la recherche des clients" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newServer(t)

	code, _ := do(t, http.MethodPatch, srv.URL+"/client/abc", "")
	if code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", code)
	}
}
