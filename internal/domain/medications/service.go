package medications

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// SupplyWarning anota el resultado de un descuento de stock.
// Nunca bloquea la operación que lo originó.
type SupplyWarning string

const (
	SupplyOK           SupplyWarning = ""
	SupplyLow          SupplyWarning = "low_supply"
	SupplyInsufficient SupplyWarning = "insufficient_supply"
)

// DoseCanceller cancela dosis pendientes futuras de un medicamento.
// Lo implementa el módulo de dosis; la interfaz vive acá para evitar
// ciclos de imports (medications <-> doses).
type DoseCanceller interface {
	CancelPendingFrom(ctx context.Context, medicationID string, from time.Time) (int, error)
}

type Service struct {
	repo  Repository
	doses DoseCanceller // puede ser nil en tests de este módulo
	now   func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// SetDoseCanceller conecta el módulo de dosis después del wiring inicial.
func (s *Service) SetDoseCanceller(dc DoseCanceller) {
	s.doses = dc
}

type RuleInput struct {
	Kind          RuleKind
	Times         []string
	IntervalHours int
	Start         time.Time
	End           *time.Time
}

type CreateInput struct {
	Name    string
	DrugID  *string
	Purpose string

	DosageAmount float64
	DosageUnit   string

	Rule RuleInput

	PillCount         *int
	LowStockThreshold int
	Notes             string
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Medication, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Medication{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Name) == "" {
		return Medication{}, ErrInvalidInput
	}
	if in.DosageAmount < 0 {
		return Medication{}, ErrInvalidInput
	}

	now := s.now()

	rule, err := normalizeRule(in.Rule, now)
	if err != nil {
		return Medication{}, err
	}

	threshold := in.LowStockThreshold
	if threshold <= 0 {
		threshold = 7
	}

	m := Medication{
		ID:                uuid.NewString(),
		UserID:            userID,
		Name:              strings.TrimSpace(in.Name),
		DrugID:            trimIDPtr(in.DrugID),
		Purpose:           strings.TrimSpace(in.Purpose),
		DosageAmount:      in.DosageAmount,
		DosageUnit:        strings.TrimSpace(in.DosageUnit),
		Rule:              rule,
		PillCount:         in.PillCount,
		LowStockThreshold: threshold,
		Status:            StatusActive,
		Notes:             strings.TrimSpace(in.Notes),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Medication{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Medication, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByUser(ctx, userID)
}

// OwnerOf expone el userID dueño de un medicamento.
// Se usa para chequeos de permisos sin acoplar módulos.
func (s *Service) OwnerOf(ctx context.Context, medicationID string) (string, error) {
	m, err := s.GetByID(ctx, medicationID)
	if err != nil {
		return "", err
	}
	return m.UserID, nil
}

type UpdateInput struct {
	Name    *string
	DrugID  *string
	Purpose *string

	DosageAmount *float64
	DosageUnit   *string

	// Si viene, la regla nueva aplica solo hacia adelante: las dosis
	// pendientes futuras de la regla vieja se cancelan (soft-delete).
	Rule *RuleInput

	PillCount         *int
	LowStockThreshold *int
	Status            *Status
	Notes             *string
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Medication{}, ErrInvalidInput
	}

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Medication{}, err
	}

	now := s.now()
	ruleChanged := false

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Medication{}, ErrInvalidInput
		}
		m.Name = name
	}
	if in.DrugID != nil {
		m.DrugID = trimIDPtr(in.DrugID)
	}
	if in.Purpose != nil {
		m.Purpose = strings.TrimSpace(*in.Purpose)
	}
	if in.DosageAmount != nil {
		if *in.DosageAmount < 0 {
			return Medication{}, ErrInvalidInput
		}
		m.DosageAmount = *in.DosageAmount
	}
	if in.DosageUnit != nil {
		m.DosageUnit = strings.TrimSpace(*in.DosageUnit)
	}
	if in.Rule != nil {
		rule, err := normalizeRule(*in.Rule, now)
		if err != nil {
			return Medication{}, err
		}
		m.Rule = rule
		ruleChanged = true
	}
	if in.PillCount != nil {
		if *in.PillCount < 0 {
			return Medication{}, ErrInvalidInput
		}
		m.PillCount = in.PillCount
	}
	if in.LowStockThreshold != nil {
		if *in.LowStockThreshold < 1 {
			return Medication{}, ErrInvalidInput
		}
		m.LowStockThreshold = *in.LowStockThreshold
	}
	if in.Status != nil {
		switch *in.Status {
		case StatusActive, StatusPaused, StatusArchived:
			m.Status = *in.Status
		default:
			return Medication{}, ErrInvalidInput
		}
	}
	if in.Notes != nil {
		m.Notes = strings.TrimSpace(*in.Notes)
	}

	m.UpdatedAt = now

	if err := s.repo.Update(ctx, m); err != nil {
		return Medication{}, err
	}

	// El cambio de regla aplica prospectivamente: lo ya resuelto no se toca,
	// lo pendiente futuro de la regla vieja se cancela para no duplicar.
	if ruleChanged && s.doses != nil {
		_, _ = s.doses.CancelPendingFrom(ctx, m.ID, now)
	}

	return m, nil
}

// Delete borra el medicamento y cancela (soft) sus dosis pendientes.
// Las dosis ya resueltas quedan como historial.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidInput
	}

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if s.doses != nil {
		_, _ = s.doses.CancelPendingFrom(ctx, m.ID, time.Time{})
	}

	return s.repo.Delete(ctx, m.ID)
}

// DecrementSupply descuenta una toma del stock y reporta el warning que
// corresponda. Nunca devuelve error por falta de stock: el tracking de
// adherencia no se bloquea por inventario.
func (s *Service) DecrementSupply(ctx context.Context, id string) (Medication, SupplyWarning, error) {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return Medication{}, SupplyOK, err
	}
	if m.PillCount == nil {
		return m, SupplyOK, nil
	}

	warning := SupplyOK
	count := *m.PillCount

	if count <= 0 {
		return m, SupplyInsufficient, nil
	}

	count--
	m.PillCount = &count
	m.UpdatedAt = s.now()

	if count <= m.LowStockThreshold {
		warning = SupplyLow
	}

	if err := s.repo.Update(ctx, m); err != nil {
		return Medication{}, SupplyOK, err
	}
	return m, warning, nil
}

func normalizeRule(in RuleInput, now time.Time) (Rule, error) {
	start := in.Start
	if start.IsZero() {
		start = now
	}
	if in.End != nil && in.End.Before(start) {
		return Rule{}, ErrInvalidInput
	}

	switch in.Kind {
	case RuleTimes:
		if len(in.Times) == 0 {
			return Rule{}, ErrInvalidInput
		}
		seen := map[string]struct{}{}
		times := make([]string, 0, len(in.Times))
		for _, raw := range in.Times {
			t := strings.TrimSpace(raw)
			if _, err := time.Parse("15:04", t); err != nil {
				return Rule{}, ErrInvalidInput
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			times = append(times, t)
		}
		sort.Strings(times)
		return Rule{Kind: RuleTimes, Times: times, Start: start, End: in.End}, nil

	case RuleInterval:
		if in.IntervalHours < 1 || in.IntervalHours > 48 {
			return Rule{}, ErrInvalidInput
		}
		return Rule{Kind: RuleInterval, IntervalHours: in.IntervalHours, Start: start, End: in.End}, nil

	case RuleAsNeeded:
		return Rule{Kind: RuleAsNeeded, Start: start, End: in.End}, nil

	default:
		return Rule{}, ErrInvalidInput
	}
}

func trimIDPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
