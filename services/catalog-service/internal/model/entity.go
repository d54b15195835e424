package model

import (
	"strings"
	"time"
)

// Entity is a Client or Produit as stored. ID is assigned by the store and never changes.
type Entity struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"-"`
	Nom         string    `json:"nom"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// ValidateFields checks the mutable fields of a create or update. Description
// may be empty.
func ValidateFields(nom string) error {
	if strings.TrimSpace(nom) == "" {
		return Validation("nom is required")
	}
	return nil
}
