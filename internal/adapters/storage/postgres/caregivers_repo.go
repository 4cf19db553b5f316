package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"med-adherence/internal/domain/caregivers"
)

type CaregiversRepo struct {
	db *sql.DB
}

func NewCaregiversRepo(db *sql.DB) *CaregiversRepo {
	return &CaregiversRepo{db: db}
}

func (r *CaregiversRepo) Create(ctx context.Context, g caregivers.Grant) error {
	scopes, err := json.Marshal(g.Scopes)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO caregiver_grants (
			id, patient_user_id, caregiver_user_id,
			scopes, status,
			created_at, updated_at, revoked_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		g.ID,
		g.PatientUserID,
		g.CaregiverUserID,
		scopes,
		string(g.Status),
		g.CreatedAt,
		g.UpdatedAt,
		g.RevokedAt,
	)
	return err
}

func (r *CaregiversRepo) Update(ctx context.Context, g caregivers.Grant) error {
	scopes, err := json.Marshal(g.Scopes)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE caregiver_grants SET
			scopes = $2,
			status = $3,
			updated_at = $4,
			revoked_at = $5
		WHERE id = $1
	`,
		g.ID,
		scopes,
		string(g.Status),
		g.UpdatedAt,
		g.RevokedAt,
	)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return caregivers.ErrNotFound
	}
	return nil
}

const grantColumns = `
	id, patient_user_id, caregiver_user_id,
	scopes, status,
	created_at, updated_at, revoked_at
`

func (r *CaregiversRepo) GetByID(ctx context.Context, id string) (caregivers.Grant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return caregivers.Grant{}, caregivers.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+grantColumns+`
		FROM caregiver_grants
		WHERE id = $1
	`, id)

	g, err := scanGrant(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return caregivers.Grant{}, caregivers.ErrNotFound
		}
		return caregivers.Grant{}, err
	}
	return g, nil
}

func (r *CaregiversRepo) ListByPatient(ctx context.Context, patientUserID string) ([]caregivers.Grant, error) {
	return r.list(ctx, "patient_user_id", patientUserID)
}

func (r *CaregiversRepo) ListByCaregiver(ctx context.Context, caregiverUserID string) ([]caregivers.Grant, error) {
	return r.list(ctx, "caregiver_user_id", caregiverUserID)
}

func (r *CaregiversRepo) list(ctx context.Context, column, value string) ([]caregivers.Grant, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+grantColumns+`
		FROM caregiver_grants
		WHERE `+column+` = $1
		ORDER BY created_at DESC
	`, value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]caregivers.Grant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Si por data sucia existieran múltiples grants activos, gana el más
// reciente por updated_at (y en empate, por created_at).
func (r *CaregiversRepo) GetActiveGrant(ctx context.Context, patientUserID, caregiverUserID string) (caregivers.Grant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+grantColumns+`
		FROM caregiver_grants
		WHERE patient_user_id = $1
		  AND caregiver_user_id = $2
		  AND status = 'active'
		ORDER BY updated_at DESC, created_at DESC
		LIMIT 1
	`, patientUserID, caregiverUserID)

	g, err := scanGrant(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return caregivers.Grant{}, caregivers.ErrNotFound
		}
		return caregivers.Grant{}, err
	}
	return g, nil
}

func scanGrant(row rowScanner) (caregivers.Grant, error) {
	var g caregivers.Grant
	var scopes []byte
	var status string

	if err := row.Scan(
		&g.ID,
		&g.PatientUserID,
		&g.CaregiverUserID,
		&scopes,
		&status,
		&g.CreatedAt,
		&g.UpdatedAt,
		&g.RevokedAt,
	); err != nil {
		return caregivers.Grant{}, err
	}

	g.Status = caregivers.Status(status)
	if len(scopes) > 0 {
		if err := json.Unmarshal(scopes, &g.Scopes); err != nil {
			return caregivers.Grant{}, err
		}
	}
	return g, nil
}
