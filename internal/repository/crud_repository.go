package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-web-api/internal/models"
)

// CrudRepository provides table-level access for one content entity.
type CrudRepository[T any, PT models.EntityPtr[T]] struct {
	db    *sqlx.DB
	table Table
}

// NewCrudRepository constructs a repository for the given table.
func NewCrudRepository[T any, PT models.EntityPtr[T]](db *sqlx.DB, table Table) *CrudRepository[T, PT] {
	return &CrudRepository[T, PT]{db: db, table: table}
}

// Table returns the table descriptor.
func (r *CrudRepository[T, PT]) Table() Table {
	return r.table
}

// List returns rows matching the filter together with the total count.
func (r *CrudRepository[T, PT]) List(ctx context.Context, filter models.ListFilter) ([]T, int, error) {
	var conditions []string
	var args []interface{}

	if search := strings.TrimSpace(filter.Search); search != "" && len(r.table.SearchColumns) > 0 {
		placeholder := fmt.Sprintf("$%d", len(args)+1)
		parts := make([]string, len(r.table.SearchColumns))
		for i, col := range r.table.SearchColumns {
			parts[i] = col + " ILIKE " + placeholder
		}
		conditions = append(conditions, "("+strings.Join(parts, " OR ")+")")
		args = append(args, "%"+escapeLike(search)+"%")
	}
	if filter.Visible != nil {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", r.table.VisibilityColumn, len(args)+1))
		args = append(args, *filter.Visible)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, pageSize := normalisePage(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT %d OFFSET %d",
		r.table.selectColumns(), r.table.Name, where, r.table.OrderBy, pageSize, offset)
	rows := []T{}
	if err := r.db.SelectContext(ctx, &rows, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", r.table.Name, err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", r.table.Name, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.table.Name, err)
	}

	return rows, total, nil
}

// ListVisible returns publicly visible rows in display order. A limit <= 0 returns all rows.
func (r *CrudRepository[T, PT]) ListVisible(ctx context.Context, limit int) ([]T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s",
		r.table.selectColumns(), r.table.Name, r.table.visibleCondition(), r.table.OrderBy)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows := []T{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list visible %s: %w", r.table.Name, err)
	}
	return rows, nil
}

// FindByID returns a row by identifier.
func (r *CrudRepository[T, PT]) FindByID(ctx context.Context, id string) (*T, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, sql.ErrNoRows
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 LIMIT 1", r.table.selectColumns(), r.table.Name)
	var row T
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find %s by id: %w", r.table.Name, err)
	}
	return &row, nil
}

// FindVisibleBy returns a publicly visible row whose column equals value.
func (r *CrudRepository[T, PT]) FindVisibleBy(ctx context.Context, column string, value interface{}) (*T, error) {
	if !r.table.hasColumn(column) {
		return nil, fmt.Errorf("find %s: unknown column %q", r.table.Name, column)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 AND %s LIMIT 1",
		r.table.selectColumns(), r.table.Name, column, r.table.visibleCondition())
	var row T
	if err := r.db.GetContext(ctx, &row, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find %s by %s: %w", r.table.Name, column, err)
	}
	return &row, nil
}

// Exists reports whether another row has column equal to value.
func (r *CrudRepository[T, PT]) Exists(ctx context.Context, column string, value interface{}, excludeID string) (bool, error) {
	if !r.table.hasColumn(column) {
		return false, fmt.Errorf("exists %s: unknown column %q", r.table.Name, column)
	}
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1", r.table.Name, column)
	args := []interface{}{value}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	query += ")"
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("exists %s.%s: %w", r.table.Name, column, err)
	}
	return exists, nil
}

// Create inserts a new row, assigning its identifier and timestamps.
func (r *CrudRepository[T, PT]) Create(ctx context.Context, row *T) error {
	entity := PT(row)
	if entity.GetID() == "" {
		entity.SetID(uuid.NewString())
	}
	entity.Touch(time.Now().UTC())

	if _, err := r.db.NamedExecContext(ctx, r.table.insertQuery(), row); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create %s: %w", r.table.Name, ErrDuplicate)
		}
		return fmt.Errorf("create %s: %w", r.table.Name, err)
	}
	return nil
}

// Update overwrites the writable columns of an existing row.
func (r *CrudRepository[T, PT]) Update(ctx context.Context, row *T) error {
	PT(row).Touch(time.Now().UTC())
	res, err := r.db.NamedExecContext(ctx, r.table.updateQuery(), row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update %s: %w", r.table.Name, ErrDuplicate)
		}
		return fmt.Errorf("update %s: %w", r.table.Name, err)
	}
	return requireAffected(res)
}

// Delete removes a row. sql.ErrNoRows is returned when nothing was deleted.
func (r *CrudRepository[T, PT]) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return sql.ErrNoRows
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.table.Name), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.table.Name, err)
	}
	return requireAffected(res)
}

// ToggleVisibility flips the visibility flag in a single statement and returns the updated row.
func (r *CrudRepository[T, PT]) ToggleVisibility(ctx context.Context, id string, now time.Time) (*T, error) {
	col := r.table.VisibilityColumn
	sets := []string{col + " = NOT " + col}
	args := []interface{}{id}
	if r.table.PublishedAtColumn != "" {
		sets = append(sets, fmt.Sprintf("%s = CASE WHEN %s THEN NULL ELSE $2::timestamptz END", r.table.PublishedAtColumn, col))
		args = append(args, now)
	}
	return r.updateVisibility(ctx, sets, args, now)
}

// SetVisibility sets the visibility flag explicitly and returns the updated row.
// Publishing an already published row keeps its original publish time.
func (r *CrudRepository[T, PT]) SetVisibility(ctx context.Context, id string, visible bool, now time.Time) (*T, error) {
	col := r.table.VisibilityColumn
	sets := []string{fmt.Sprintf("%s = %t", col, visible)}
	args := []interface{}{id}
	if r.table.PublishedAtColumn != "" {
		if visible {
			sets = append(sets, fmt.Sprintf("%s = COALESCE(%s, $2::timestamptz)", r.table.PublishedAtColumn, r.table.PublishedAtColumn))
			args = append(args, now)
		} else {
			sets = append(sets, r.table.PublishedAtColumn+" = NULL")
		}
	}
	return r.updateVisibility(ctx, sets, args, now)
}

func (r *CrudRepository[T, PT]) updateVisibility(ctx context.Context, sets []string, args []interface{}, now time.Time) (*T, error) {
	if _, err := uuid.Parse(args[0].(string)); err != nil {
		return nil, sql.ErrNoRows
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)+1))
	args = append(args, now)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 RETURNING %s",
		r.table.Name, strings.Join(sets, ", "), r.table.selectColumns())
	var row T
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("set visibility %s: %w", r.table.Name, err)
	}
	return &row, nil
}

// Count returns the number of rows, optionally only the visible ones.
func (r *CrudRepository[T, PT]) Count(ctx context.Context, visibleOnly bool) (int, error) {
	query := "SELECT COUNT(*) FROM " + r.table.Name
	if visibleOnly {
		query += " WHERE " + r.table.visibleCondition()
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("count %s: %w", r.table.Name, err)
	}
	return total, nil
}

func normalisePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
