package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/coordinator"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/memstore"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestSchema(t *testing.T) (*graphql.Schema, *memstore.Store) {
	t.Helper()
	s := memstore.New()
	repos := map[model.Kind]coordinator.Repository{}
	for _, k := range model.Kinds {
		repos[k] = s.Repository(k)
	}
	c := coordinator.New(s, s.Outbox(), repos, discard(), coordinator.Options{})
	return NewSchema(c, discard()), s
}

func exec(t *testing.T, schema *graphql.Schema, query string, vars map[string]interface{}) (map[string]json.RawMessage, *graphql.Response) {
	t.Helper()
	resp := schema.Exec(context.Background(), query, "", vars)
	data := map[string]json.RawMessage{}
	if len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, &data))
	}
	return data, resp
}

func TestClientMutationsAndQueries(t *testing.T) {
	schema, store := newTestSchema(t)

	data, resp := exec(t, schema, `mutation($nom: String!, $description: String!) {
		createClient(nom: $nom, description: $description) { id nom description }
	}`, map[string]interface{}{"nom": "Acme", "description": "Widgets"})
	require.Empty(t, resp.Errors)
	var created model.Entity
	require.NoError(t, json.Unmarshal(data["createClient"], &created))
	require.NotEmpty(t, created.ID)

	data, resp = exec(t, schema, `mutation($id: String!) {
		updateClient(id: $id, nom: "Acme Corp", description: "Widgets") { nom }
	}`, map[string]interface{}{"id": created.ID})
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"nom":"Acme Corp"}`, string(data["updateClient"]))

	data, resp = exec(t, schema, `query($id: String!) { client(id: $id) { id nom } clients { id } }`,
		map[string]interface{}{"id": created.ID})
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"id":"`+created.ID+`","nom":"Acme Corp"}`, string(data["client"]))
	assert.JSONEq(t, `[{"id":"`+created.ID+`"}]`, string(data["clients"]))

	data, resp = exec(t, schema, `mutation($id: String!) { deleteClient(id: $id) }`,
		map[string]interface{}{"id": created.ID})
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `"Client supprimé avec succès"`, string(data["deleteClient"]))

	assert.Len(t, store.Outbox().Records(), 3)
}

func TestNotFoundCode(t *testing.T) {
	schema, store := newTestSchema(t)

	for _, q := range []string{
		`{ produit(id: "nope") { id } }`,
		`mutation { updateProduit(id: "nope", nom: "x", description: "") { id } }`,
		`mutation { deleteProduit(id: "nope") }`,
	} {
		data, resp := exec(t, schema, q, nil)
		require.Len(t, resp.Errors, 1, q)
		assert.Equal(t, "Produit non trouvé", resp.Errors[0].Message)
		assert.Equal(t, CodeNotFound, resp.Errors[0].Extensions["code"])
		for _, v := range data {
			assert.Equal(t, "null", string(v))
		}
	}
	assert.Empty(t, store.Outbox().Records())
}

func TestEmptyNomIsBadUserInput(t *testing.T) {
	schema, store := newTestSchema(t)

	_, resp := exec(t, schema, `mutation { createProduit(nom: "", description: "x") { id } }`, nil)

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, CodeBadUserInput, resp.Errors[0].Extensions["code"])
	assert.Empty(t, store.Outbox().Records())
}

type downCatalog struct{ Catalog }

func (downCatalog) List(context.Context, model.Kind) ([]model.Entity, error) {
	return nil, model.Persistence("list produit", errors.New("timeout"))
}

func TestInternalErrorCode(t *testing.T) {
	schema := NewSchema(downCatalog{}, discard())

	_, resp := exec(t, schema, `{ produits { id } }`, nil)

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "Erreur lors de la recherche des produits", resp.Errors[0].Message)
	assert.Equal(t, CodeInternalError, resp.Errors[0].Extensions["code"])
}

func TestHandlerServesPOST(t *testing.T) {
	schema, _ := newTestSchema(t)
	body, _ := json.Marshal(map[string]string{"query": `{ clients { id } }`})

	rw := httptest.NewRecorder()
	Handler(schema).ServeHTTP(rw, httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rw.Code)
	assert.JSONEq(t, `{"data":{"clients":[]}}`, rw.Body.String())
}
