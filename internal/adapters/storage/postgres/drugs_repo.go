package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"med-adherence/internal/domain/drugs"
)

type DrugsRepo struct {
	db *sql.DB
}

func NewDrugsRepo(db *sql.DB) *DrugsRepo {
	return &DrugsRepo{db: db}
}

const drugColumns = `
	id, name, generic_name, brand_names, category
`

func (r *DrugsRepo) GetByID(ctx context.Context, id string) (drugs.Identity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return drugs.Identity{}, drugs.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+drugColumns+`
		FROM drugs
		WHERE id = $1
	`, id)

	d, err := scanDrug(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return drugs.Identity{}, drugs.ErrNotFound
		}
		return drugs.Identity{}, err
	}
	return d, nil
}

func (r *DrugsRepo) GetByName(ctx context.Context, name string) (drugs.Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return drugs.Identity{}, drugs.ErrNotFound
	}

	// brand_names es JSONB; el EXISTS recorre el array en SQL.
	row := r.db.QueryRowContext(ctx, `
		SELECT `+drugColumns+`
		FROM drugs
		WHERE LOWER(name) = LOWER($1)
		   OR LOWER(generic_name) = LOWER($1)
		   OR EXISTS (
			SELECT 1 FROM jsonb_array_elements_text(brand_names) b
			WHERE LOWER(b) = LOWER($1)
		   )
		LIMIT 1
	`, name)

	d, err := scanDrug(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return drugs.Identity{}, drugs.ErrNotFound
		}
		return drugs.Identity{}, err
	}
	return d, nil
}

func (r *DrugsRepo) List(ctx context.Context) ([]drugs.Identity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+drugColumns+`
		FROM drugs
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDrugs(rows)
}

func (r *DrugsRepo) Search(ctx context.Context, query string, limit int) ([]drugs.Identity, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []drugs.Identity{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+drugColumns+`
		FROM drugs
		WHERE name ILIKE $1
		   OR generic_name ILIKE $1
		   OR EXISTS (
			SELECT 1 FROM jsonb_array_elements_text(brand_names) b
			WHERE b ILIKE $1
		   )
		ORDER BY name ASC
		LIMIT $2
	`, "%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDrugs(rows)
}

func (r *DrugsRepo) InteractionBetween(ctx context.Context, drugIDA, drugIDB string) (drugs.InteractionRule, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT drug_a, drug_b, severity, description, recommendation
		FROM drug_interactions
		WHERE (drug_a = $1 AND drug_b = $2)
		   OR (drug_a = $2 AND drug_b = $1)
		LIMIT 1
	`, drugIDA, drugIDB)

	var rule drugs.InteractionRule
	var severity string
	if err := row.Scan(
		&rule.DrugA,
		&rule.DrugB,
		&severity,
		&rule.Description,
		&rule.Recommendation,
	); err != nil {
		if err == sql.ErrNoRows {
			return drugs.InteractionRule{}, false, nil
		}
		return drugs.InteractionRule{}, false, err
	}

	rule.Severity = drugs.Severity(severity)
	return rule, true, nil
}

func collectDrugs(rows *sql.Rows) ([]drugs.Identity, error) {
	out := make([]drugs.Identity, 0)
	for rows.Next() {
		d, err := scanDrug(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDrug(row rowScanner) (drugs.Identity, error) {
	var d drugs.Identity
	var brands []byte

	if err := row.Scan(
		&d.ID,
		&d.Name,
		&d.GenericName,
		&brands,
		&d.Category,
	); err != nil {
		return drugs.Identity{}, err
	}

	if len(brands) > 0 {
		if err := json.Unmarshal(brands, &d.BrandNames); err != nil {
			return drugs.Identity{}, err
		}
	}
	return d, nil
}
