// Package graph serves the catalog GraphQL schema at /graphql.
package graph

import (
	"log/slog"
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
)

const schemaSDL = `
schema {
  query: Query
  mutation: Mutation
}

type Client {
  id: String!
  nom: String!
  description: String!
}

type Produit {
  id: String!
  nom: String!
  description: String!
}

type Query {
  client(id: String!): Client
  clients: [Client]
  produit(id: String!): Produit
  produits: [Produit]
}

type Mutation {
  createClient(nom: String!, description: String!): Client
  deleteClient(id: String!): String
  createProduit(nom: String!, description: String!): Produit
  deleteProduit(id: String!): String
  updateClient(id: String!, nom: String!, description: String!): Client
  updateProduit(id: String!, nom: String!, description: String!): Produit
}
`

// maxDepth bounds query nesting. The schema is two levels deep.
const maxDepth = 8

// NewSchema parses the schema against a resolver over catalog. It panics if
// the resolver does not match the schema.
func NewSchema(catalog Catalog, logger *slog.Logger) *graphql.Schema {
	return graphql.MustParseSchema(schemaSDL, &Resolver{catalog: catalog, logger: logger}, graphql.MaxDepth(maxDepth))
}

// Handler answers POST /graphql.
func Handler(schema *graphql.Schema) http.Handler {
	return &relay.Handler{Schema: schema}
}
