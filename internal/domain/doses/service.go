package doses

import (
	"context"
	"errors"
	"strings"
	"time"

	"med-adherence/internal/domain/medications"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	// ErrStaleState: el evento ya no está en el estado esperado (conflicto
	// optimista o replay de una mutación offline). Seguro de reintentar
	// releyendo el estado actual.
	ErrStaleState = errors.New("stale state")
	// ErrInvalidTransition: la máquina de estados no permite la transición.
	ErrInvalidTransition = errors.New("invalid transition")
)

type Service struct {
	repo Repository
	meds *medications.Service
	cfg  Config
	now  func() time.Time
}

func NewService(repo Repository, meds *medications.Service, cfg Config) *Service {
	return &Service{
		repo: repo,
		meds: meds,
		cfg:  cfg,
		now:  time.Now,
	}
}

// GenerateSchedule materializa las dosis de un medicamento en [from, to).
// Regenerar sobre un rango ya generado es idempotente: los instantes
// existentes no se duplican ni se tocan los eventos ya resueltos.
func (s *Service) GenerateSchedule(ctx context.Context, medicationID string, from, to time.Time) ([]DoseEvent, error) {
	medicationID = strings.TrimSpace(medicationID)
	if medicationID == "" || !from.Before(to) {
		return nil, ErrInvalidInput
	}

	m, err := s.meds.GetByID(ctx, medicationID)
	if err != nil {
		return nil, ErrNotFound
	}

	now := s.now()

	// Solo medicamentos activos generan calendario.
	if m.Status == medications.StatusActive {
		for _, instant := range GenerateDue(m.Rule, from, to) {
			e := DoseEvent{
				ID:           uuid.NewString(),
				MedicationID: m.ID,
				UserID:       m.UserID,
				ScheduledAt:  instant,
				Status:       StatusPending,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if _, err := s.repo.CreateIfAbsent(ctx, e); err != nil {
				return nil, err
			}
		}
	}

	return s.repo.ListByUser(ctx, m.UserID, ListFilter{
		MedicationID: m.ID,
		From:         &from,
		To:           &to,
		Statuses:     []Status{StatusPending, StatusTaken, StatusMissed, StatusSnoozed},
	})
}

func (s *Service) GetByID(ctx context.Context, id string) (DoseEvent, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return DoseEvent{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID string, filter ListFilter) ([]DoseEvent, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByUser(ctx, userID, filter)
}

type ResolveInput struct {
	Action Action
	// At: instante de la acción. Zero = ahora. Puede diferir del horario
	// programado (tomas tardías).
	At   time.Time
	Note string
}

// Resolve ejecuta una transición de la máquina de estados sobre una dosis.
// El check optimista (estado leído == estado al escribir) hace que un replay
// o una resolución concurrente pierda con ErrStaleState en vez de pisar.
func (s *Service) Resolve(ctx context.Context, id string, in ResolveInput) (DoseEvent, []Warning, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return DoseEvent{}, nil, ErrInvalidInput
	}

	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return DoseEvent{}, nil, err
	}

	if e.Status == StatusCancelled {
		return DoseEvent{}, nil, ErrInvalidTransition
	}
	// Ya resuelta: un segundo intento (retry, replay offline) es stale,
	// no una doble aplicación.
	if e.Status.resolved() {
		return DoseEvent{}, nil, ErrStaleState
	}

	expected := e.Status // pending o snoozed
	now := s.now()
	at := in.At
	if at.IsZero() {
		at = now
	}

	warnings := make([]Warning, 0)

	switch in.Action {
	case ActionTaken:
		e.Status = StatusTaken
		e.ResolvedAt = &at

	case ActionMissed:
		e.Status = StatusMissed
		e.ResolvedAt = &at

	case ActionSnoozed:
		if e.SnoozeCount >= s.cfg.MaxSnoozes {
			return DoseEvent{}, nil, ErrInvalidTransition
		}
		target := at.Add(s.cfg.SnoozeDelay)
		limit := e.ScheduledAt.Add(s.cfg.MaxSnoozeDelay)
		if !at.Before(limit) {
			// Ya pasó el tope de posposición; el barrido la marcará missed.
			return DoseEvent{}, nil, ErrInvalidTransition
		}
		if target.After(limit) {
			target = limit
		}
		e.Status = StatusSnoozed
		e.SnoozedUntil = &target
		e.SnoozeCount++

	default:
		return DoseEvent{}, nil, ErrInvalidInput
	}

	if n := strings.TrimSpace(in.Note); n != "" {
		e.Note = n
	}
	e.UpdatedAt = now

	if err := s.repo.UpdateIfStatus(ctx, e, []Status{expected}); err != nil {
		return DoseEvent{}, nil, err
	}

	// El descuento de stock es posterior y best-effort: el tracking de
	// adherencia nunca se bloquea por inventario.
	if in.Action == ActionTaken {
		if _, sw, err := s.meds.DecrementSupply(ctx, e.MedicationID); err == nil {
			switch sw {
			case medications.SupplyInsufficient:
				warnings = append(warnings, Warning{
					Code:    "insufficient_supply",
					Message: "supply count was already zero; dose logged anyway",
				})
			case medications.SupplyLow:
				warnings = append(warnings, Warning{
					Code:    "low_supply",
					Message: "remaining supply is at or below the refill threshold",
				})
			}
		}
	}

	return e, warnings, nil
}

type EditInput struct {
	NewStatus  Status
	NewInstant *time.Time
	Note       *string
}

// Edit corrige el historial de una dosis ya resuelta (taken <-> missed,
// ajustar instante o nota). Nunca cambia medicamento ni horario programado.
func (s *Service) Edit(ctx context.Context, id string, in EditInput) (DoseEvent, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return DoseEvent{}, ErrInvalidInput
	}

	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return DoseEvent{}, err
	}

	if !e.Status.resolved() {
		return DoseEvent{}, ErrInvalidTransition
	}
	if in.NewStatus != StatusTaken && in.NewStatus != StatusMissed {
		return DoseEvent{}, ErrInvalidTransition
	}

	expected := e.Status
	now := s.now()

	resolvedAt := e.ResolvedAt
	if in.NewInstant != nil {
		resolvedAt = in.NewInstant
	}
	// Invariante: el instante resuelto no puede quedar antes de
	// scheduled - grace (sería una toma de otra dosis).
	if resolvedAt != nil && resolvedAt.Before(e.ScheduledAt.Add(-s.cfg.GraceWindow)) {
		return DoseEvent{}, ErrInvalidTransition
	}

	e.Status = in.NewStatus
	e.ResolvedAt = resolvedAt
	if in.Note != nil {
		e.Note = strings.TrimSpace(*in.Note)
	}
	e.UpdatedAt = now

	if err := s.repo.UpdateIfStatus(ctx, e, []Status{expected}); err != nil {
		return DoseEvent{}, err
	}
	return e, nil
}

// SweepMissed marca como missed las dosis vencidas:
// - pending cuyo horario + grace ya pasó
// - snoozed cuyo nuevo target + grace ya pasó, o que superaron el tope
//   total de posposición
// Es idempotente y seguro de correr concurrentemente: re-evaluar un evento
// ya resuelto es un no-op (el check optimista descarta al perdedor).
func (s *Service) SweepMissed(ctx context.Context, now time.Time) (int, error) {
	if now.IsZero() {
		now = s.now()
	}

	candidates, err := s.repo.ListUnresolvedBefore(ctx, now)
	if err != nil {
		return 0, err
	}

	transitioned := 0
	for _, e := range candidates {
		due := false
		switch e.Status {
		case StatusPending:
			due = !now.Before(e.ScheduledAt.Add(s.cfg.GraceWindow))
		case StatusSnoozed:
			if e.SnoozedUntil != nil && !now.Before(e.SnoozedUntil.Add(s.cfg.GraceWindow)) {
				due = true
			}
			if !now.Before(e.ScheduledAt.Add(s.cfg.MaxSnoozeDelay)) {
				due = true
			}
		}
		if !due {
			continue
		}

		expected := e.Status
		at := now
		e.Status = StatusMissed
		e.ResolvedAt = &at
		e.UpdatedAt = now

		err := s.repo.UpdateIfStatus(ctx, e, []Status{expected})
		if err != nil {
			if errors.Is(err, ErrStaleState) || errors.Is(err, ErrNotFound) {
				continue // otro sweep o el usuario llegaron primero
			}
			return transitioned, err
		}
		transitioned++
	}

	return transitioned, nil
}

// CancelPendingFrom implementa medications.DoseCanceller: soft-delete de los
// pendientes futuros cuando cambia la regla o se borra el medicamento.
func (s *Service) CancelPendingFrom(ctx context.Context, medicationID string, from time.Time) (int, error) {
	medicationID = strings.TrimSpace(medicationID)
	if medicationID == "" {
		return 0, ErrInvalidInput
	}
	return s.repo.CancelPendingFrom(ctx, medicationID, from, s.now())
}
