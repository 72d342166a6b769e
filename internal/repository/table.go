package repository

import "strings"

// Table describes how a content entity maps to its SQL table.
type Table struct {
	Name string
	// Columns lists writable columns, excluding id, created_at and updated_at.
	Columns []string
	// OrderBy is the fixed ordering used for admin and public listings.
	OrderBy       string
	SearchColumns []string
	// VisibilityColumn is the boolean controlling public visibility.
	VisibilityColumn string
	// PublishedAtColumn, when set, is stamped on publish and cleared on unpublish.
	PublishedAtColumn string
	// PublicPredicate is an extra condition applied to public listings.
	PublicPredicate string
	// ImageColumns hold uploaded image URLs.
	ImageColumns []string
}

func (t Table) selectColumns() string {
	cols := make([]string, 0, len(t.Columns)+3)
	cols = append(cols, "id")
	cols = append(cols, t.Columns...)
	cols = append(cols, "created_at", "updated_at")
	return strings.Join(cols, ", ")
}

func (t Table) hasColumn(name string) bool {
	if name == "id" {
		return true
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

func (t Table) insertQuery() string {
	cols := append([]string{"id"}, t.Columns...)
	cols = append(cols, "created_at", "updated_at")
	named := make([]string, len(cols))
	for i, c := range cols {
		named[i] = ":" + c
	}
	return "INSERT INTO " + t.Name + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(named, ", ") + ")"
}

func (t Table) updateQuery() string {
	sets := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		sets = append(sets, c+" = :"+c)
	}
	sets = append(sets, "updated_at = :updated_at")
	return "UPDATE " + t.Name + " SET " + strings.Join(sets, ", ") + " WHERE id = :id"
}

func (t Table) visibleCondition() string {
	cond := t.VisibilityColumn + " = TRUE"
	if t.PublicPredicate != "" {
		cond += " AND " + t.PublicPredicate
	}
	return cond
}

// Content tables.
var (
	NewsTable = Table{
		Name:              "news_posts",
		Columns:           []string{"title", "slug", "excerpt", "content", "image_url", "category", "published", "published_at"},
		OrderBy:           "created_at DESC, id ASC",
		SearchColumns:     []string{"title", "excerpt", "category"},
		VisibilityColumn:  "published",
		PublishedAtColumn: "published_at",
		ImageColumns:      []string{"image_url"},
	}
	GalleryTable = Table{
		Name:             "gallery_images",
		Columns:          []string{"title", "description", "image_url", "album", "published", "display_order"},
		OrderBy:          "display_order ASC, created_at DESC, id ASC",
		SearchColumns:    []string{"title", "description", "album"},
		VisibilityColumn: "published",
		ImageColumns:     []string{"image_url"},
	}
	AnnouncementTable = Table{
		Name:              "announcements",
		Columns:           []string{"title", "content", "is_important", "published", "published_at", "expires_at"},
		OrderBy:           "created_at DESC, id ASC",
		SearchColumns:     []string{"title", "content"},
		VisibilityColumn:  "published",
		PublishedAtColumn: "published_at",
		PublicPredicate:   "(expires_at IS NULL OR expires_at > NOW())",
	}
	StaffTable = Table{
		Name:             "staff_members",
		Columns:          []string{"name", "position", "category", "nip", "photo_url", "email", "phone", "display_order", "is_active"},
		OrderBy:          "display_order ASC, name ASC, id ASC",
		SearchColumns:    []string{"name", "position", "nip"},
		VisibilityColumn: "is_active",
		ImageColumns:     []string{"photo_url"},
	}
	StudentTable = Table{
		Name:             "students",
		Columns:          []string{"name", "nis", "class_name", "gender", "entry_year", "is_active"},
		OrderBy:          "class_name ASC, name ASC, id ASC",
		SearchColumns:    []string{"name", "nis", "class_name"},
		VisibilityColumn: "is_active",
	}
	AlumniTable = Table{
		Name:             "alumni",
		Columns:          []string{"name", "graduation_year", "current_status", "institution", "testimonial", "photo_url", "published"},
		OrderBy:          "graduation_year DESC, name ASC, id ASC",
		SearchColumns:    []string{"name", "institution", "current_status"},
		VisibilityColumn: "published",
		ImageColumns:     []string{"photo_url"},
	}
	ClassTable = Table{
		Name:             "classes",
		Columns:          []string{"name", "grade", "major", "homeroom_teacher", "student_count", "is_active"},
		OrderBy:          "grade ASC, name ASC, id ASC",
		SearchColumns:    []string{"name", "major", "homeroom_teacher"},
		VisibilityColumn: "is_active",
	}
	CalendarTable = Table{
		Name:             "calendar_events",
		Columns:          []string{"title", "description", "category", "start_date", "end_date", "location", "published"},
		OrderBy:          "start_date ASC, id ASC",
		SearchColumns:    []string{"title", "description", "location"},
		VisibilityColumn: "published",
	}
	StructureTable = Table{
		Name:             "structure_nodes",
		Columns:          []string{"name", "position", "photo_url", "parent_id", "display_order", "is_active"},
		OrderBy:          "display_order ASC, name ASC, id ASC",
		SearchColumns:    []string{"name", "position"},
		VisibilityColumn: "is_active",
		ImageColumns:     []string{"photo_url"},
	}
)
