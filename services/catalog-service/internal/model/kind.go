package model

import "strings"

// Kind names an entity family. Each kind has its own table and topic.
type Kind string

const (
	KindClient  Kind = "client"
	KindProduit Kind = "produit"
)

// Kinds lists every supported kind in a stable order.
var Kinds = []Kind{KindClient, KindProduit}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", Validation("unknown entity kind %q", s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	return k == KindClient || k == KindProduit
}

func (k Kind) String() string { return string(k) }

// Table is the relation holding entities of this kind.
func (k Kind) Table() string { return string(k) + "s" }

// Label is the capitalised display name used in user-facing messages.
func (k Kind) Label() string {
	switch k {
	case KindClient:
		return "Client"
	case KindProduit:
		return "Produit"
	default:
		return string(k)
	}
}

// IDField is the request key naming an entity of this kind over RPC.
func (k Kind) IDField() string { return string(k) + "_id" }
