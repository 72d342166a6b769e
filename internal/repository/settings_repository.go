package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-web-api/internal/models"
)

// SettingsRepository persists site settings records.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// List returns every stored settings record.
func (r *SettingsRepository) List(ctx context.Context) ([]models.SiteSettingRow, error) {
	const query = `SELECT key, value, schema_version, updated_by, updated_at FROM site_settings ORDER BY key ASC`
	rows := []models.SiteSettingRow{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list site settings: %w", err)
	}
	return rows, nil
}

// Get fetches a single record by key.
func (r *SettingsRepository) Get(ctx context.Context, key string) (*models.SiteSettingRow, error) {
	const query = `SELECT key, value, schema_version, updated_by, updated_at FROM site_settings WHERE key = $1`
	var row models.SiteSettingRow
	if err := r.db.GetContext(ctx, &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get site setting %s: %w", key, err)
	}
	return &row, nil
}

// Upsert inserts or replaces a settings record.
func (r *SettingsRepository) Upsert(ctx context.Context, row *models.SiteSettingRow) error {
	const query = `INSERT INTO site_settings (key, value, schema_version, updated_by, updated_at)
VALUES (:key, :value, :schema_version, :updated_by, :updated_at)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, schema_version = EXCLUDED.schema_version,
              updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	row.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("upsert site setting %s: %w", row.Key, err)
	}
	return nil
}
