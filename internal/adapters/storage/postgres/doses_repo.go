package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"med-adherence/internal/domain/doses"
)

type DosesRepo struct {
	db *sql.DB
}

func NewDosesRepo(db *sql.DB) *DosesRepo {
	return &DosesRepo{db: db}
}

// CreateIfAbsent se apoya en el índice único parcial sobre
// (medication_id, scheduled_at) WHERE status <> 'cancelled': una fila
// existente gana y el insert es un no-op.
func (r *DosesRepo) CreateIfAbsent(ctx context.Context, e doses.DoseEvent) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO dose_events (
			id, medication_id, user_id,
			scheduled_at,
			status, resolved_at,
			snoozed_until, snooze_count,
			note,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (medication_id, scheduled_at) WHERE status <> 'cancelled'
		DO NOTHING
	`,
		e.ID,
		e.MedicationID,
		e.UserID,
		e.ScheduledAt,
		string(e.Status),
		e.ResolvedAt,
		e.SnoozedUntil,
		e.SnoozeCount,
		e.Note,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		return false, err
	}

	n, _ := res.RowsAffected()
	return n > 0, nil
}

const doseColumns = `
	id, medication_id, user_id,
	scheduled_at,
	status, resolved_at,
	snoozed_until, snooze_count,
	note,
	created_at, updated_at
`

func (r *DosesRepo) GetByID(ctx context.Context, id string) (doses.DoseEvent, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return doses.DoseEvent{}, doses.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+doseColumns+`
		FROM dose_events
		WHERE id = $1
	`, id)

	e, err := scanDoseEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return doses.DoseEvent{}, doses.ErrNotFound
		}
		return doses.DoseEvent{}, err
	}
	return e, nil
}

func (r *DosesRepo) ListByUser(ctx context.Context, userID string, filter doses.ListFilter) ([]doses.DoseEvent, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}

	sb := strings.Builder{}
	sb.WriteString(`
		SELECT ` + doseColumns + `
		FROM dose_events
		WHERE user_id = $1
	`)

	args := []any{userID}
	argN := 2

	if filter.MedicationID != "" {
		sb.WriteString(fmt.Sprintf(" AND medication_id = $%d", argN))
		args = append(args, filter.MedicationID)
		argN++
	}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			placeholders = append(placeholders, fmt.Sprintf("$%d", argN))
			args = append(args, string(s))
			argN++
		}
		sb.WriteString(" AND status IN (" + strings.Join(placeholders, ",") + ")")
	}

	// Rango semiabierto [From, To) sobre scheduled_at.
	if filter.From != nil {
		sb.WriteString(fmt.Sprintf(" AND scheduled_at >= $%d", argN))
		args = append(args, *filter.From)
		argN++
	}
	if filter.To != nil {
		sb.WriteString(fmt.Sprintf(" AND scheduled_at < $%d", argN))
		args = append(args, *filter.To)
		argN++
	}

	sb.WriteString(" ORDER BY scheduled_at ASC, id ASC")

	// Limit 0 devuelve todo: las lecturas internas (adherencia,
	// regeneración) necesitan el rango completo, no una página.
	if filter.Limit > 0 {
		limit := filter.Limit
		if limit > 1000 {
			limit = 1000
		}
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", argN))
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]doses.DoseEvent, 0)
	for rows.Next() {
		e, err := scanDoseEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *DosesRepo) UpdateIfStatus(ctx context.Context, updated doses.DoseEvent, expected []doses.Status) error {
	if len(expected) == 0 {
		return doses.ErrStaleState
	}

	placeholders := make([]string, 0, len(expected))
	args := []any{
		updated.ID,
		string(updated.Status),
		updated.ResolvedAt,
		updated.SnoozedUntil,
		updated.SnoozeCount,
		updated.Note,
		updated.UpdatedAt,
	}
	argN := len(args) + 1
	for _, s := range expected {
		placeholders = append(placeholders, fmt.Sprintf("$%d", argN))
		args = append(args, string(s))
		argN++
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE dose_events SET
			status = $2,
			resolved_at = $3,
			snoozed_until = $4,
			snooze_count = $5,
			note = $6,
			updated_at = $7
		WHERE id = $1 AND status IN (`+strings.Join(placeholders, ",")+`)
	`, args...)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}

	// 0 filas: distinguimos "no existe" de "estado cambió debajo nuestro".
	var exists bool
	if err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM dose_events WHERE id = $1)
	`, updated.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return doses.ErrNotFound
	}
	return doses.ErrStaleState
}

func (r *DosesRepo) ListUnresolvedBefore(ctx context.Context, cutoff time.Time) ([]doses.DoseEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+doseColumns+`
		FROM dose_events
		WHERE status IN ('pending', 'snoozed')
		  AND scheduled_at < $1
		ORDER BY scheduled_at ASC
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]doses.DoseEvent, 0)
	for rows.Next() {
		e, err := scanDoseEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *DosesRepo) CancelPendingFrom(ctx context.Context, medicationID string, from, now time.Time) (int, error) {
	sb := strings.Builder{}
	sb.WriteString(`
		UPDATE dose_events SET
			status = 'cancelled',
			updated_at = $2
		WHERE medication_id = $1
		  AND status IN ('pending', 'snoozed')
	`)
	args := []any{medicationID, now}

	if !from.IsZero() {
		sb.WriteString(" AND scheduled_at >= $3")
		args = append(args, from)
	}

	res, err := r.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanDoseEvent(row rowScanner) (doses.DoseEvent, error) {
	var e doses.DoseEvent
	var status string

	if err := row.Scan(
		&e.ID,
		&e.MedicationID,
		&e.UserID,
		&e.ScheduledAt,
		&status,
		&e.ResolvedAt,
		&e.SnoozedUntil,
		&e.SnoozeCount,
		&e.Note,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return doses.DoseEvent{}, err
	}

	e.Status = doses.Status(status)
	return e, nil
}
