package doses

import (
	"context"
	"time"
)

type ListFilter struct {
	MedicationID string
	Statuses     []Status
	From         *time.Time
	To           *time.Time
	// Limit 0 devuelve todos los eventos del filtro. Los handlers HTTP
	// siempre pasan un límite; las lecturas internas (adherencia,
	// regeneración) necesitan el rango completo.
	Limit int
}

type Repository interface {
	// CreateIfAbsent inserta el evento solo si no existe otro no-cancelado
	// para (MedicationID, ScheduledAt). Devuelve false si ya existía.
	// Es la clave de la regeneración idempotente de calendario.
	CreateIfAbsent(ctx context.Context, e DoseEvent) (bool, error)

	GetByID(ctx context.Context, id string) (DoseEvent, error)
	ListByUser(ctx context.Context, userID string, filter ListFilter) ([]DoseEvent, error)

	// UpdateIfStatus aplica la actualización solo si el estado actual está
	// en expected (check optimista). Si el evento existe pero el estado no
	// coincide, devuelve ErrStaleState; si no existe, ErrNotFound.
	UpdateIfStatus(ctx context.Context, updated DoseEvent, expected []Status) error

	// ListUnresolvedBefore devuelve eventos pending/snoozed con
	// ScheduledAt < cutoff, para el barrido de missed.
	ListUnresolvedBefore(ctx context.Context, cutoff time.Time) ([]DoseEvent, error)

	// CancelPendingFrom cancela (soft) los pending/snoozed del medicamento
	// con ScheduledAt >= from. from zero cancela todos los pendientes.
	CancelPendingFrom(ctx context.Context, medicationID string, from, now time.Time) (int, error)
}
