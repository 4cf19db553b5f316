package drugs

import (
	"context"
	"errors"
	"strings"
	"time"

	"med-adherence/internal/ports/drugref"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	repo     Repository
	upstream drugref.Resolver // puede ser nil (solo índice local)

	// Timeout por llamada al upstream. Si vence, degradamos al índice local.
	upstreamTimeout time.Duration
}

func NewService(repo Repository, upstream drugref.Resolver) *Service {
	return &Service{
		repo:            repo,
		upstream:        upstream,
		upstreamTimeout: 3 * time.Second,
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (Identity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Identity{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByName(ctx context.Context, name string) (Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Identity{}, ErrInvalidInput
	}
	return s.repo.GetByName(ctx, name)
}

func (s *Service) List(ctx context.Context) ([]Identity, error) {
	return s.repo.List(ctx)
}

// Search intenta primero el dataset externo y degrada al índice local si el
// upstream falla o no está configurado. Nunca propaga el error del upstream.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Identity, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return []Identity{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	if s.upstream != nil {
		uctx, cancel := context.WithTimeout(ctx, s.upstreamTimeout)
		defer cancel()

		results, err := s.upstream.Search(uctx, query, limit)
		if err == nil && len(results) > 0 {
			out := make([]Identity, 0, len(results))
			for _, r := range results {
				out = append(out, Identity{
					ID:          r.ID,
					Name:        r.Name,
					GenericName: r.GenericName,
					BrandNames:  r.BrandNames,
					Category:    r.Category,
				})
			}
			return out, nil
		}
		// fall through al índice local
	}

	return s.repo.Search(ctx, query, limit)
}

// InteractionBetween expone la regla para un par de drogas.
func (s *Service) InteractionBetween(ctx context.Context, a, b string) (InteractionRule, bool, error) {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" || a == b {
		return InteractionRule{}, false, ErrInvalidInput
	}
	return s.repo.InteractionBetween(ctx, a, b)
}
