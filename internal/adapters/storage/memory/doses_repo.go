package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"med-adherence/internal/domain/doses"
)

type doseRepo struct {
	mu   sync.Mutex
	byID map[string]doses.DoseEvent
}

func NewDoseRepo() doses.Repository {
	return &doseRepo{
		byID: make(map[string]doses.DoseEvent),
	}
}

func (r *doseRepo) CreateIfAbsent(ctx context.Context, e doses.DoseEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == "" {
		return false, errors.New("dose event id required")
	}

	// Unicidad por (MedicationID, ScheduledAt) entre eventos no cancelados.
	for _, existing := range r.byID {
		if existing.MedicationID == e.MedicationID &&
			existing.ScheduledAt.Equal(e.ScheduledAt) &&
			existing.Status != doses.StatusCancelled {
			return false, nil
		}
	}

	r.byID[e.ID] = e
	return true, nil
}

func (r *doseRepo) GetByID(ctx context.Context, id string) (doses.DoseEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return doses.DoseEvent{}, doses.ErrNotFound
	}
	return e, nil
}

func (r *doseRepo) ListByUser(ctx context.Context, userID string, filter doses.ListFilter) ([]doses.DoseEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]doses.DoseEvent, 0)
	for _, e := range r.byID {
		if e.UserID != userID {
			continue
		}
		if filter.MedicationID != "" && e.MedicationID != filter.MedicationID {
			continue
		}
		if len(filter.Statuses) > 0 {
			ok := false
			for _, s := range filter.Statuses {
				if e.Status == s {
					ok = true
					break
				}
			}
			if !ok {
				continue
			}
		}
		// Rango semiabierto [From, To) sobre scheduled_at.
		if filter.From != nil && e.ScheduledAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !e.ScheduledAt.Before(*filter.To) {
			continue
		}

		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})

	// Limit 0 devuelve todo: las lecturas internas (adherencia,
	// regeneración) necesitan el rango completo, no una página.
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *doseRepo) UpdateIfStatus(ctx context.Context, updated doses.DoseEvent, expected []doses.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[updated.ID]
	if !ok {
		return doses.ErrNotFound
	}

	match := false
	for _, s := range expected {
		if current.Status == s {
			match = true
			break
		}
	}
	if !match {
		return doses.ErrStaleState
	}

	r.byID[updated.ID] = updated
	return nil
}

func (r *doseRepo) ListUnresolvedBefore(ctx context.Context, cutoff time.Time) ([]doses.DoseEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]doses.DoseEvent, 0)
	for _, e := range r.byID {
		if e.Status != doses.StatusPending && e.Status != doses.StatusSnoozed {
			continue
		}
		if !e.ScheduledAt.Before(cutoff) {
			continue
		}
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out, nil
}

func (r *doseRepo) CancelPendingFrom(ctx context.Context, medicationID string, from, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cancelled := 0
	for id, e := range r.byID {
		if e.MedicationID != medicationID {
			continue
		}
		if e.Status != doses.StatusPending && e.Status != doses.StatusSnoozed {
			continue
		}
		if !from.IsZero() && e.ScheduledAt.Before(from) {
			continue
		}
		e.Status = doses.StatusCancelled
		e.UpdatedAt = now
		r.byID[id] = e
		cancelled++
	}
	return cancelled, nil
}
