package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// ImageReferenceRepository answers whether any content row or site setting
// still points at an uploaded image.
type ImageReferenceRepository struct {
	db    *sqlx.DB
	query string
}

// NewImageReferenceRepository builds the lookup over the image columns of tables.
func NewImageReferenceRepository(db *sqlx.DB, tables ...Table) *ImageReferenceRepository {
	checks := make([]string, 0, len(tables)+1)
	for _, t := range tables {
		for _, col := range t.ImageColumns {
			checks = append(checks, fmt.Sprintf("EXISTS(SELECT 1 FROM %s WHERE %s = $1)", t.Name, col))
		}
	}
	checks = append(checks, "EXISTS(SELECT 1 FROM site_settings WHERE strpos(value::text, $1) > 0)")
	return &ImageReferenceRepository{db: db, query: "SELECT " + strings.Join(checks, " OR ")}
}

// IsReferenced reports whether url is still used anywhere.
func (r *ImageReferenceRepository) IsReferenced(ctx context.Context, url string) (bool, error) {
	var used bool
	if err := r.db.GetContext(ctx, &used, r.query, url); err != nil {
		return false, fmt.Errorf("check image references: %w", err)
	}
	return used, nil
}
