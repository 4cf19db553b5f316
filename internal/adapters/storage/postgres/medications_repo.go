package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"med-adherence/internal/domain/medications"
)

type MedicationsRepo struct {
	db *sql.DB
}

func NewMedicationsRepo(db *sql.DB) *MedicationsRepo {
	return &MedicationsRepo{db: db}
}

func (r *MedicationsRepo) Create(ctx context.Context, m medications.Medication) error {
	times, err := json.Marshal(m.Rule.Times)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO medications (
			id, user_id,
			name, drug_id, purpose,
			dosage_amount, dosage_unit,
			rule_kind, rule_times, rule_interval_hours, rule_start, rule_end,
			pill_count, low_stock_threshold,
			status, notes,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`,
		m.ID,
		m.UserID,
		m.Name,
		m.DrugID,
		m.Purpose,
		m.DosageAmount,
		m.DosageUnit,
		string(m.Rule.Kind),
		times,
		m.Rule.IntervalHours,
		m.Rule.Start,
		m.Rule.End,
		m.PillCount,
		m.LowStockThreshold,
		string(m.Status),
		m.Notes,
		m.CreatedAt,
		m.UpdatedAt,
	)
	return err
}

func (r *MedicationsRepo) Update(ctx context.Context, m medications.Medication) error {
	times, err := json.Marshal(m.Rule.Times)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE medications SET
			name = $2,
			drug_id = $3,
			purpose = $4,
			dosage_amount = $5,
			dosage_unit = $6,
			rule_kind = $7,
			rule_times = $8,
			rule_interval_hours = $9,
			rule_start = $10,
			rule_end = $11,
			pill_count = $12,
			low_stock_threshold = $13,
			status = $14,
			notes = $15,
			updated_at = $16
		WHERE id = $1
	`,
		m.ID,
		m.Name,
		m.DrugID,
		m.Purpose,
		m.DosageAmount,
		m.DosageUnit,
		string(m.Rule.Kind),
		times,
		m.Rule.IntervalHours,
		m.Rule.Start,
		m.Rule.End,
		m.PillCount,
		m.LowStockThreshold,
		string(m.Status),
		m.Notes,
		m.UpdatedAt,
	)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return medications.ErrNotFound
	}
	return nil
}

const medicationColumns = `
	id, user_id,
	name, drug_id, purpose,
	dosage_amount, dosage_unit,
	rule_kind, rule_times, rule_interval_hours, rule_start, rule_end,
	pill_count, low_stock_threshold,
	status, notes,
	created_at, updated_at
`

func (r *MedicationsRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medications.Medication{}, medications.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+medicationColumns+`
		FROM medications
		WHERE id = $1
	`, id)

	m, err := scanMedication(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return medications.Medication{}, medications.ErrNotFound
		}
		return medications.Medication{}, err
	}
	return m, nil
}

func (r *MedicationsRepo) ListByUser(ctx context.Context, userID string) ([]medications.Medication, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+medicationColumns+`
		FROM medications
		WHERE user_id = $1
		ORDER BY name ASC, id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medications.Medication, 0)
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MedicationsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM medications WHERE id = $1
	`, id)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return medications.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedication(row rowScanner) (medications.Medication, error) {
	var m medications.Medication
	var kind, status string
	var times []byte

	if err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.Name,
		&m.DrugID,
		&m.Purpose,
		&m.DosageAmount,
		&m.DosageUnit,
		&kind,
		&times,
		&m.Rule.IntervalHours,
		&m.Rule.Start,
		&m.Rule.End,
		&m.PillCount,
		&m.LowStockThreshold,
		&status,
		&m.Notes,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return medications.Medication{}, err
	}

	m.Rule.Kind = medications.RuleKind(kind)
	m.Status = medications.Status(status)
	if len(times) > 0 {
		if err := json.Unmarshal(times, &m.Rule.Times); err != nil {
			return medications.Medication{}, err
		}
	}

	return m, nil
}
