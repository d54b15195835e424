package grpcserver

import (
	"encoding/json"
	"fmt"

	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"
)

// entityRequest is every request of a kind's service. The id travels under
// the kind's own key (client_id, produit_id).
type entityRequest struct {
	kind        model.Kind
	ID          string
	Nom         string
	Description string
}

func (r *entityRequest) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	for key, dst := range map[string]*string{
		r.kind.IDField(): &r.ID,
		"nom":            &r.Nom,
		"description":    &r.Description,
	} {
		raw, ok := fields[key]
		if !ok || string(raw) == "null" {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
	}
	return nil
}

// entityReply renders as {"client": {...}} or {"produit": {...}}.
type entityReply struct {
	kind   model.Kind
	entity model.Entity
}

func (r entityReply) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]model.Entity{r.kind.String(): r.entity})
}

// listReply renders as {"clients": [...]} or {"produits": [...]}.
type listReply struct {
	kind     model.Kind
	entities []model.Entity
}

func (r listReply) MarshalJSON() ([]byte, error) {
	list := r.entities
	if list == nil {
		list = []model.Entity{}
	}
	return json.Marshal(map[string][]model.Entity{r.kind.Table(): list})
}

type deleteReply struct {
	Message string `json:"message"`
}
