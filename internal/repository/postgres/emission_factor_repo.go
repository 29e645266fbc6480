package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"factorsync/internal/domain"
	"factorsync/internal/port"
)

const emissionFactorColumns = `id, name, category, subcategory, unit, factor_value, source, is_active, created_at, updated_at`

type emissionFactorRepo struct {
	db *sqlx.DB
}

// NewEmissionFactorRepo creates a new SQL-backed FactorStore.
func NewEmissionFactorRepo(db *sqlx.DB) port.FactorStore {
	return &emissionFactorRepo{db: db}
}

func (r *emissionFactorRepo) FindByKey(ctx context.Context, subcategory, category string) (*domain.EmissionFactor, error) {
	var f domain.EmissionFactor
	err := r.db.GetContext(ctx, &f, r.db.Rebind(
		`SELECT `+emissionFactorColumns+` FROM emission_factors
		 WHERE subcategory = ? AND category = ?`), subcategory, category)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("emissionFactorRepo.FindByKey: %w", err)
	}
	return &f, nil
}

// Upsert updates the row sharing factor's (category, subcategory) or inserts
// a new one. The existing row keeps its ID and created_at.
func (r *emissionFactorRepo) Upsert(ctx context.Context, factor *domain.EmissionFactor) (domain.UpsertOutcome, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("emissionFactorRepo.Upsert begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	factor.UpdatedAt = now

	res, err := tx.ExecContext(ctx, tx.Rebind(
		`UPDATE emission_factors
		 SET name = ?, unit = ?, factor_value = ?, source = ?, is_active = ?, updated_at = ?
		 WHERE category = ? AND subcategory = ?`),
		factor.Name, factor.Unit, factor.FactorValue, factor.Source, factor.IsActive, factor.UpdatedAt,
		factor.Category, factor.Subcategory)
	if err != nil {
		return "", fmt.Errorf("emissionFactorRepo.Upsert update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("emissionFactorRepo.Upsert rows affected: %w", err)
	}

	outcome := domain.UpsertUpdated
	if affected == 0 {
		if factor.ID == uuid.Nil {
			factor.ID = uuid.New()
		}
		factor.CreatedAt = now
		_, err = tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO emission_factors (`+emissionFactorColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			factor.ID, factor.Name, factor.Category, factor.Subcategory, factor.Unit,
			factor.FactorValue, factor.Source, factor.IsActive, factor.CreatedAt, factor.UpdatedAt)
		if err != nil {
			return "", fmt.Errorf("emissionFactorRepo.Upsert insert: %w", err)
		}
		outcome = domain.UpsertCreated
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("emissionFactorRepo.Upsert commit: %w", err)
	}
	return outcome, nil
}

func (r *emissionFactorRepo) ListByCategory(ctx context.Context, category string) ([]domain.EmissionFactor, error) {
	var factors []domain.EmissionFactor
	err := r.db.SelectContext(ctx, &factors, r.db.Rebind(
		`SELECT `+emissionFactorColumns+` FROM emission_factors
		 WHERE category = ?
		 ORDER BY subcategory`), category)
	if err != nil {
		return nil, fmt.Errorf("emissionFactorRepo.ListByCategory: %w", err)
	}
	return factors, nil
}
