package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"factorsync/internal/domain"
	"factorsync/internal/port"
)

type feedConfigRepo struct {
	db *sqlx.DB
}

// NewFeedConfigRepo creates a new SQL-backed FeedConfigRepository.
func NewFeedConfigRepo(db *sqlx.DB) port.FeedConfigRepository {
	return &feedConfigRepo{db: db}
}

func (r *feedConfigRepo) Get(ctx context.Context) (*domain.FeedConfiguration, error) {
	var cfg domain.FeedConfiguration
	err := r.db.GetContext(ctx, &cfg, r.db.Rebind(
		`SELECT id, csv_url, update_frequency_months, last_update, csv_version, active_sectors,
		        created_at, updated_at
		 FROM feed_configuration WHERE id = ?`), domain.FeedConfigurationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("feedConfigRepo.Get: %w", err)
	}
	return &cfg, nil
}

func (r *feedConfigRepo) Create(ctx context.Context, cfg *domain.FeedConfiguration) (*domain.FeedConfiguration, error) {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO feed_configuration
		   (id, csv_url, update_frequency_months, last_update, csv_version, active_sectors, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`),
		domain.FeedConfigurationID, cfg.CSVURL, cfg.UpdateFrequencyMonths, cfg.LastUpdate,
		cfg.CSVVersion, cfg.ActiveSectors, now, now)
	if err != nil {
		return nil, fmt.Errorf("feedConfigRepo.Create: %w", err)
	}
	return r.Get(ctx)
}

func (r *feedConfigRepo) Update(ctx context.Context, cfg *domain.FeedConfiguration) error {
	cfg.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE feed_configuration
		 SET csv_url = ?, update_frequency_months = ?, active_sectors = ?, updated_at = ?
		 WHERE id = ?`),
		cfg.CSVURL, cfg.UpdateFrequencyMonths, cfg.ActiveSectors, cfg.UpdatedAt, domain.FeedConfigurationID)
	if err != nil {
		return fmt.Errorf("feedConfigRepo.Update: %w", err)
	}
	return requireRow(res)
}

func (r *feedConfigRepo) MarkUpdated(ctx context.Context, at time.Time, version string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE feed_configuration
		 SET last_update = ?, csv_version = ?, updated_at = ?
		 WHERE id = ?`),
		at.UTC(), version, time.Now().UTC(), domain.FeedConfigurationID)
	if err != nil {
		return fmt.Errorf("feedConfigRepo.MarkUpdated: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
