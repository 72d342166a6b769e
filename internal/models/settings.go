package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Site setting keys.
const (
	SettingHeroSlides   = "hero_slides"
	SettingStats        = "stats"
	SettingPPDBInfo     = "ppdb_info"
	SettingContactInfo  = "contact_info"
	SettingFooterConfig = "footer_config"
)

// SiteSettingRow is the stored form of a settings record.
type SiteSettingRow struct {
	Key           string         `db:"key"`
	Value         types.JSONText `db:"value"`
	SchemaVersion int            `db:"schema_version"`
	UpdatedBy     *string        `db:"updated_by"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// SiteSetting is a decoded, current-version settings record.
type SiteSetting struct {
	Key           string      `json:"key"`
	Value         interface{} `json:"value"`
	SchemaVersion int         `json:"schema_version"`
	UpdatedBy     *string     `json:"updated_by,omitempty"`
	UpdatedAt     *time.Time  `json:"updated_at,omitempty"`
	IsDefault     bool        `json:"is_default"`
}

// HeroSlide is one slide of the homepage carousel.
type HeroSlide struct {
	Title    string `json:"title" validate:"notblank,max=150"`
	Subtitle string `json:"subtitle" validate:"max=300"`
	ImageURL string `json:"image_url" validate:"notblank,url"`
	CTALabel string `json:"cta_label" validate:"max=50"`
	CTAURL   string `json:"cta_url" validate:"omitempty,uri"`
}

// HeroSlides is the hero_slides record.
type HeroSlides struct {
	Slides []HeroSlide `json:"slides" validate:"max=10,dive"`
}

// Stat is a single counter on the homepage.
type Stat struct {
	Label string `json:"label" validate:"notblank,max=50"`
	Value string `json:"value" validate:"notblank,max=20"`
	Icon  string `json:"icon" validate:"max=50"`
}

// Stats is the stats record.
type Stats struct {
	Items []Stat `json:"items" validate:"max=8,dive"`
}

// PPDBInfo describes the admission period.
type PPDBInfo struct {
	Open            bool     `json:"open"`
	AcademicYear    string   `json:"academic_year" validate:"max=20"`
	Title           string   `json:"title" validate:"notblank,max=150"`
	Description     string   `json:"description"`
	StartDate       *Date    `json:"start_date"`
	EndDate         *Date    `json:"end_date"`
	RegistrationURL string   `json:"registration_url" validate:"omitempty,url"`
	Requirements    []string `json:"requirements" validate:"dive,notblank"`
	ContactPerson   string   `json:"contact_person" validate:"max=150"`
}

// ContactInfo is the school's contact block.
type ContactInfo struct {
	Address     string `json:"address" validate:"notblank"`
	Phone       string `json:"phone" validate:"max=30"`
	Email       string `json:"email" validate:"omitempty,email"`
	WhatsApp    string `json:"whatsapp" validate:"max=30"`
	OfficeHours string `json:"office_hours" validate:"max=100"`
	MapEmbedURL string `json:"map_embed_url" validate:"omitempty,url"`
}

// FooterLink is a labelled link in the footer.
type FooterLink struct {
	Label string `json:"label" validate:"notblank,max=50"`
	URL   string `json:"url" validate:"notblank,uri"`
}

// SocialLink points at a social media profile.
type SocialLink struct {
	Platform string `json:"platform" validate:"notblank,oneof=facebook instagram youtube tiktok x"`
	URL      string `json:"url" validate:"notblank,url"`
}

// FooterConfig is the footer_config record.
type FooterConfig struct {
	About     string       `json:"about" validate:"max=500"`
	Links     []FooterLink `json:"links" validate:"max=12,dive"`
	Socials   []SocialLink `json:"socials" validate:"max=6,dive"`
	Copyright string       `json:"copyright" validate:"max=150"`
}
