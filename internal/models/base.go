package models

import "time"

// Base carries the identifier and timestamps shared by every content row.
type Base struct {
	ID        string    `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GetID returns the row identifier.
func (b *Base) GetID() string { return b.ID }

// SetID assigns the row identifier.
func (b *Base) SetID(id string) { b.ID = id }

// Created returns the creation timestamp.
func (b *Base) Created() time.Time { return b.CreatedAt }

// Touch sets the creation time when missing and moves the update time to now.
func (b *Base) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Restore puts back identity fields that a client payload must not change.
func (b *Base) Restore(id string, created time.Time) {
	b.ID = id
	b.CreatedAt = created
}

// Entity is implemented by pointers to content rows.
type Entity interface {
	GetID() string
	SetID(id string)
	Created() time.Time
	Touch(now time.Time)
	Restore(id string, created time.Time)
}

// EntityPtr constrains PT to be a pointer to T implementing Entity.
type EntityPtr[T any] interface {
	*T
	Entity
}

// Preparer normalises a row before it is validated and saved.
type Preparer interface {
	Prepare(now time.Time)
}

// Checker reports cross-field violations with a user facing message.
type Checker interface {
	Check() error
}

// Publishable is a row whose visibility flag is checked before it is flipped.
type Publishable interface {
	IsPublished() bool
	SetPublished(published bool)
}

// ImageOwner exposes uploaded image URLs referenced by a row.
type ImageOwner interface {
	ImageURLs() []string
}

// Exportable rows can be rendered into roster exports.
type Exportable interface {
	ExportRow() map[string]string
}

// ListFilter captures admin list parameters.
type ListFilter struct {
	Search   string
	Visible  *bool
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// ContentStats summarises a content table for the dashboard.
type ContentStats struct {
	Resource string `json:"resource"`
	Label    string `json:"label"`
	Total    int    `json:"total"`
	Visible  int    `json:"visible"`
}

// syncPublishedAt keeps the publish timestamp set exactly when the row is published.
func syncPublishedAt(published bool, at **time.Time, now time.Time) {
	if !published {
		*at = nil
		return
	}
	if *at == nil {
		ts := now
		*at = &ts
	}
}
