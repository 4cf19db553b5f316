package rxnorm

import (
	"context"
	"strings"

	"med-adherence/internal/ports/drugref"
)

// Resolver implementa drugref.Resolver sobre la API de RxNorm.
// Es un colaborador best-effort: el servicio de drogas degrada al índice
// local si este upstream falla o tarda.
type Resolver struct {
	client *Client
}

func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

func (r *Resolver) Search(ctx context.Context, query string, limit int) ([]drugref.Result, error) {
	if r == nil || r.client == nil {
		return nil, ErrRxNormNotConfigured
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []drugref.Result{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	concepts, err := r.client.SearchDrugs(ctx, query)
	if err != nil {
		return nil, err
	}

	// RxNorm devuelve el mismo ingrediente bajo varios term types;
	// nos quedamos con la primera aparición de cada rxcui.
	seen := map[string]struct{}{}
	out := make([]drugref.Result, 0, limit)
	for _, c := range concepts {
		id := strings.TrimSpace(c.RxCUI)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		res := drugref.Result{
			ID:   "rxnorm-" + id,
			Name: strings.TrimSpace(c.Name),
		}
		if syn := strings.TrimSpace(c.Synonym); syn != "" && !strings.EqualFold(syn, res.Name) {
			res.BrandNames = []string{syn}
		}
		out = append(out, res)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
