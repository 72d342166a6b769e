package models

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/noah-isme/sma-web-api/pkg/slug"
)

const excerptLength = 160

// NewsPost is an article shown in the news section.
type NewsPost struct {
	Base
	Title       string     `db:"title" json:"title" validate:"notblank,max=200"`
	Slug        string     `db:"slug" json:"slug" validate:"omitempty,slug,max=220"`
	Excerpt     string     `db:"excerpt" json:"excerpt" validate:"max=500"`
	Content     string     `db:"content" json:"content" validate:"notblank"`
	ImageURL    string     `db:"image_url" json:"image_url" validate:"omitempty,url"`
	Category    string     `db:"category" json:"category" validate:"max=50"`
	Published   bool       `db:"published" json:"published"`
	PublishedAt *time.Time `db:"published_at" json:"published_at"`
}

// Prepare derives the slug and excerpt and keeps published_at consistent.
func (n *NewsPost) Prepare(now time.Time) {
	n.Title = strings.TrimSpace(n.Title)
	n.Slug = slug.Make(n.Slug)
	if n.Slug == "" {
		n.Slug = slug.Make(n.Title)
	}
	if n.Slug == "" && n.Title != "" {
		n.Slug = "berita-" + strconv.FormatInt(now.UnixNano(), 36)
	}
	if strings.TrimSpace(n.Excerpt) == "" {
		n.Excerpt = makeExcerpt(n.Content)
	}
	if n.Category == "" {
		n.Category = "umum"
	}
	syncPublishedAt(n.Published, &n.PublishedAt, now)
}

// ImageURLs implements ImageOwner.
func (n *NewsPost) ImageURLs() []string { return nonEmpty(n.ImageURL) }

// GalleryImage is a photo in the gallery.
type GalleryImage struct {
	Base
	Title        string `db:"title" json:"title" validate:"notblank,max=200"`
	Description  string `db:"description" json:"description"`
	ImageURL     string `db:"image_url" json:"image_url" validate:"notblank,url"`
	Album        string `db:"album" json:"album" validate:"max=100"`
	Published    bool   `db:"published" json:"published"`
	DisplayOrder int    `db:"display_order" json:"display_order" validate:"gte=0"`
}

// Prepare trims text fields and defaults the album.
func (g *GalleryImage) Prepare(time.Time) {
	g.Title = strings.TrimSpace(g.Title)
	if strings.TrimSpace(g.Album) == "" {
		g.Album = "umum"
	}
}

// ImageURLs implements ImageOwner.
func (g *GalleryImage) ImageURLs() []string { return nonEmpty(g.ImageURL) }

// Announcement is a short notice with optional expiry.
type Announcement struct {
	Base
	Title       string     `db:"title" json:"title" validate:"notblank,max=200"`
	Content     string     `db:"content" json:"content" validate:"notblank"`
	IsImportant bool       `db:"is_important" json:"is_important"`
	Published   bool       `db:"published" json:"published"`
	PublishedAt *time.Time `db:"published_at" json:"published_at"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at"`
}

// Prepare keeps published_at consistent with the published flag.
func (a *Announcement) Prepare(now time.Time) {
	a.Title = strings.TrimSpace(a.Title)
	syncPublishedAt(a.Published, &a.PublishedAt, now)
}

// Check ensures the expiry falls after publication.
func (a *Announcement) Check() error {
	if a.ExpiresAt != nil && a.PublishedAt != nil && !a.ExpiresAt.After(*a.PublishedAt) {
		return errors.New("Tanggal kedaluwarsa harus setelah tanggal terbit")
	}
	return nil
}

// IsPublished implements Publishable.
func (a *Announcement) IsPublished() bool { return a.Published }

// SetPublished implements Publishable.
func (a *Announcement) SetPublished(published bool) { a.Published = published }

// StaffMember is a teacher or staff profile.
type StaffMember struct {
	Base
	Name         string `db:"name" json:"name" validate:"notblank,max=150"`
	Position     string `db:"position" json:"position" validate:"notblank,max=150"`
	Category     string `db:"category" json:"category" validate:"omitempty,oneof=pimpinan guru staf"`
	NIP          string `db:"nip" json:"nip" validate:"omitempty,numeric,max=30"`
	PhotoURL     string `db:"photo_url" json:"photo_url" validate:"omitempty,url"`
	Email        string `db:"email" json:"email" validate:"omitempty,email"`
	Phone        string `db:"phone" json:"phone" validate:"max=30"`
	DisplayOrder int    `db:"display_order" json:"display_order" validate:"gte=0"`
	IsActive     bool   `db:"is_active" json:"is_active"`
}

// Prepare trims text fields and defaults the category.
func (s *StaffMember) Prepare(time.Time) {
	s.Name = strings.TrimSpace(s.Name)
	s.Position = strings.TrimSpace(s.Position)
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	if s.Category == "" {
		s.Category = "guru"
	}
}

// ImageURLs implements ImageOwner.
func (s *StaffMember) ImageURLs() []string { return nonEmpty(s.PhotoURL) }

// ExportRow implements Exportable.
func (s *StaffMember) ExportRow() map[string]string {
	return map[string]string{
		"Nama":     s.Name,
		"Jabatan":  s.Position,
		"Kategori": s.Category,
		"NIP":      s.NIP,
		"Email":    s.Email,
		"Telepon":  s.Phone,
		"Aktif":    yesNo(s.IsActive),
	}
}

// Student is a roster entry for an enrolled student.
type Student struct {
	Base
	Name      string `db:"name" json:"name" validate:"notblank,max=150"`
	NIS       string `db:"nis" json:"nis" validate:"omitempty,numeric,max=20"`
	ClassName string `db:"class_name" json:"class_name" validate:"notblank,max=50"`
	Gender    string `db:"gender" json:"gender" validate:"omitempty,oneof=L P"`
	EntryYear int    `db:"entry_year" json:"entry_year" validate:"omitempty,gte=1950,lte=2100"`
	IsActive  bool   `db:"is_active" json:"is_active"`
}

// Prepare trims text fields.
func (s *Student) Prepare(time.Time) {
	s.Name = strings.TrimSpace(s.Name)
	s.ClassName = strings.TrimSpace(s.ClassName)
	s.Gender = strings.ToUpper(strings.TrimSpace(s.Gender))
}

// ExportRow implements Exportable.
func (s *Student) ExportRow() map[string]string {
	return map[string]string{
		"Nama":        s.Name,
		"NIS":         s.NIS,
		"Kelas":       s.ClassName,
		"L/P":         s.Gender,
		"Tahun Masuk": yearString(s.EntryYear),
		"Aktif":       yesNo(s.IsActive),
	}
}

// Alumnus is a graduate profile.
type Alumnus struct {
	Base
	Name           string `db:"name" json:"name" validate:"notblank,max=150"`
	GraduationYear int    `db:"graduation_year" json:"graduation_year" validate:"required,gte=1950,lte=2100"`
	CurrentStatus  string `db:"current_status" json:"current_status" validate:"max=100"`
	Institution    string `db:"institution" json:"institution" validate:"max=150"`
	Testimonial    string `db:"testimonial" json:"testimonial"`
	PhotoURL       string `db:"photo_url" json:"photo_url" validate:"omitempty,url"`
	Published      bool   `db:"published" json:"published"`
}

// Prepare trims text fields.
func (a *Alumnus) Prepare(time.Time) {
	a.Name = strings.TrimSpace(a.Name)
}

// ImageURLs implements ImageOwner.
func (a *Alumnus) ImageURLs() []string { return nonEmpty(a.PhotoURL) }

// ExportRow implements Exportable.
func (a *Alumnus) ExportRow() map[string]string {
	return map[string]string{
		"Nama":        a.Name,
		"Tahun Lulus": yearString(a.GraduationYear),
		"Status":      a.CurrentStatus,
		"Instansi":    a.Institution,
	}
}

// Class is a homeroom class.
type Class struct {
	Base
	Name            string `db:"name" json:"name" validate:"notblank,max=50"`
	Grade           string `db:"grade" json:"grade" validate:"notblank,oneof=X XI XII"`
	Major           string `db:"major" json:"major" validate:"max=50"`
	HomeroomTeacher string `db:"homeroom_teacher" json:"homeroom_teacher" validate:"max=150"`
	StudentCount    int    `db:"student_count" json:"student_count" validate:"gte=0"`
	IsActive        bool   `db:"is_active" json:"is_active"`
}

// Prepare trims text fields.
func (c *Class) Prepare(time.Time) {
	c.Name = strings.TrimSpace(c.Name)
	c.Grade = strings.ToUpper(strings.TrimSpace(c.Grade))
}

// ExportRow implements Exportable.
func (c *Class) ExportRow() map[string]string {
	return map[string]string{
		"Kelas":        c.Name,
		"Tingkat":      c.Grade,
		"Jurusan":      c.Major,
		"Wali Kelas":   c.HomeroomTeacher,
		"Jumlah Siswa": strconv.Itoa(c.StudentCount),
	}
}

// CalendarEvent is an academic calendar entry.
type CalendarEvent struct {
	Base
	Title       string `db:"title" json:"title" validate:"notblank,max=200"`
	Description string `db:"description" json:"description"`
	Category    string `db:"category" json:"category" validate:"max=50"`
	StartDate   Date   `db:"start_date" json:"start_date" validate:"required"`
	EndDate     *Date  `db:"end_date" json:"end_date"`
	Location    string `db:"location" json:"location" validate:"max=150"`
	Published   bool   `db:"published" json:"published"`
}

// Prepare trims text fields and drops an empty end date.
func (e *CalendarEvent) Prepare(time.Time) {
	e.Title = strings.TrimSpace(e.Title)
	if e.EndDate != nil && e.EndDate.IsZero() {
		e.EndDate = nil
	}
	if e.Category == "" {
		e.Category = "kegiatan"
	}
}

// Check ensures the event does not end before it starts.
func (e *CalendarEvent) Check() error {
	if e.EndDate != nil && e.EndDate.Before(e.StartDate.Time) {
		return errors.New("Tanggal selesai tidak boleh sebelum tanggal mulai")
	}
	return nil
}

// StructureNode is a position in the organisational chart.
type StructureNode struct {
	Base
	Name         string  `db:"name" json:"name" validate:"notblank,max=150"`
	Position     string  `db:"position" json:"position" validate:"notblank,max=150"`
	PhotoURL     string  `db:"photo_url" json:"photo_url" validate:"omitempty,url"`
	ParentID     *string `db:"parent_id" json:"parent_id" validate:"omitempty,uuid"`
	DisplayOrder int     `db:"display_order" json:"display_order" validate:"gte=0"`
	IsActive     bool    `db:"is_active" json:"is_active"`
}

// Prepare trims text fields and clears an empty parent reference.
func (s *StructureNode) Prepare(time.Time) {
	s.Name = strings.TrimSpace(s.Name)
	s.Position = strings.TrimSpace(s.Position)
	if s.ParentID != nil && strings.TrimSpace(*s.ParentID) == "" {
		s.ParentID = nil
	}
}

// Check rejects a node pointing at itself.
func (s *StructureNode) Check() error {
	if s.ParentID != nil && s.ID != "" && *s.ParentID == s.ID {
		return ErrStructureCycle
	}
	return nil
}

// ImageURLs implements ImageOwner.
func (s *StructureNode) ImageURLs() []string { return nonEmpty(s.PhotoURL) }

// ErrStructureCycle is returned when a node would become its own ancestor.
var ErrStructureCycle = errors.New("Struktur tidak boleh melingkar")

// StructureTreeNode is a structure node with nested children.
type StructureTreeNode struct {
	StructureNode
	Children []*StructureTreeNode `json:"children"`
}

func makeExcerpt(content string) string {
	text := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(text) <= excerptLength {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:excerptLength])
	if i := strings.LastIndex(cut, " "); i > excerptLength/2 {
		cut = cut[:i]
	}
	return cut + "…"
}

func nonEmpty(urls ...string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if strings.TrimSpace(u) != "" {
			out = append(out, u)
		}
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "Ya"
	}
	return "Tidak"
}

func yearString(y int) string {
	if y == 0 {
		return ""
	}
	return strconv.Itoa(y)
}
