package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"med-adherence/internal/domain/drugs"
)

type drugRepo struct {
	mu           sync.RWMutex
	byID         map[string]drugs.Identity
	interactions []drugs.InteractionRule
}

// NewDrugRepo crea el índice en memoria ya cargado con el seed embebido.
func NewDrugRepo() drugs.Repository {
	return NewDrugRepoWith(drugs.SeedIdentities(), drugs.SeedInteractions())
}

func NewDrugRepoWith(identities []drugs.Identity, rules []drugs.InteractionRule) drugs.Repository {
	byID := make(map[string]drugs.Identity, len(identities))
	for _, d := range identities {
		byID[d.ID] = d
	}
	return &drugRepo{
		byID:         byID,
		interactions: rules,
	}
}

func (r *drugRepo) GetByID(ctx context.Context, id string) (drugs.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return drugs.Identity{}, drugs.ErrNotFound
	}
	return d, nil
}

func (r *drugRepo) GetByName(ctx context.Context, name string) (drugs.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(name))
	for _, d := range r.byID {
		if strings.ToLower(d.Name) == needle || strings.ToLower(d.GenericName) == needle {
			return d, nil
		}
		for _, b := range d.BrandNames {
			if strings.ToLower(b) == needle {
				return d, nil
			}
		}
	}
	return drugs.Identity{}, drugs.ErrNotFound
}

func (r *drugRepo) List(ctx context.Context) ([]drugs.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]drugs.Identity, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *drugRepo) Search(ctx context.Context, query string, limit int) ([]drugs.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	needle := strings.ToLower(strings.TrimSpace(query))

	out := make([]drugs.Identity, 0)
	for _, d := range r.byID {
		if matchesQuery(d, needle) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesQuery(d drugs.Identity, needle string) bool {
	if needle == "" {
		return false
	}
	if strings.Contains(strings.ToLower(d.Name), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(d.GenericName), needle) {
		return true
	}
	for _, b := range d.BrandNames {
		if strings.Contains(strings.ToLower(b), needle) {
			return true
		}
	}
	return false
}

func (r *drugRepo) InteractionBetween(ctx context.Context, drugIDA, drugIDB string) (drugs.InteractionRule, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rule := range r.interactions {
		if (rule.DrugA == drugIDA && rule.DrugB == drugIDB) ||
			(rule.DrugA == drugIDB && rule.DrugB == drugIDA) {
			return rule, true, nil
		}
	}
	return drugs.InteractionRule{}, false, nil
}
