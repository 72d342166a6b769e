package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-web-api/internal/models"
	appErrors "github.com/noah-isme/sma-web-api/pkg/errors"
	"github.com/noah-isme/sma-web-api/pkg/validation"
)

const settingsNamespace = "settings"

type settingsRepository interface {
	List(ctx context.Context) ([]models.SiteSettingRow, error)
	Get(ctx context.Context, key string) (*models.SiteSettingRow, error)
	Upsert(ctx context.Context, row *models.SiteSettingRow) error
}

// settingMigration rewrites a stored value from version n to n+1.
type settingMigration func(raw json.RawMessage) (json.RawMessage, error)

// settingDefinition is the typed schema of one settings key.
type settingDefinition struct {
	key     string
	version int
	// decode target; must return a pointer
	zero       func() interface{}
	defaults   func() interface{}
	migrations map[int]settingMigration
	check      func(value interface{}) error
}

var settingDefinitions = []settingDefinition{
	{
		key:     models.SettingHeroSlides,
		version: 2,
		zero:    func() interface{} { return &models.HeroSlides{} },
		defaults: func() interface{} {
			return &models.HeroSlides{Slides: []models.HeroSlide{{
				Title:    "Selamat Datang",
				Subtitle: "Membangun generasi berkarakter, berprestasi, dan berwawasan global",
				CTALabel: "Profil Sekolah",
				CTAURL:   "/profil",
			}}}
		},
		migrations: map[int]settingMigration{1: wrapArray("slides")},
	},
	{
		key:     models.SettingStats,
		version: 2,
		zero:    func() interface{} { return &models.Stats{} },
		defaults: func() interface{} {
			return &models.Stats{Items: []models.Stat{
				{Label: "Siswa", Value: "900+", Icon: "users"},
				{Label: "Guru", Value: "60+", Icon: "user-check"},
				{Label: "Ekstrakurikuler", Value: "20+", Icon: "award"},
				{Label: "Prestasi", Value: "150+", Icon: "trophy"},
			}}
		},
		migrations: map[int]settingMigration{1: wrapArray("items")},
	},
	{
		key:     models.SettingPPDBInfo,
		version: 1,
		zero:    func() interface{} { return &models.PPDBInfo{} },
		defaults: func() interface{} {
			return &models.PPDBInfo{
				Title:       "Penerimaan Peserta Didik Baru",
				Description: "Informasi pendaftaran akan diumumkan segera.",
			}
		},
		check: func(value interface{}) error {
			info := value.(*models.PPDBInfo)
			if info.StartDate != nil && info.EndDate != nil && info.EndDate.Before(info.StartDate.Time) {
				return errors.New("Tanggal penutupan tidak boleh sebelum tanggal pembukaan")
			}
			return nil
		},
	},
	{
		key:     models.SettingContactInfo,
		version: 1,
		zero:    func() interface{} { return &models.ContactInfo{} },
		defaults: func() interface{} {
			return &models.ContactInfo{
				Address:     "Alamat sekolah belum diatur",
				OfficeHours: "Senin - Jumat, 07.00 - 15.00",
			}
		},
	},
	{
		key:     models.SettingFooterConfig,
		version: 1,
		zero:    func() interface{} { return &models.FooterConfig{} },
		defaults: func() interface{} {
			return &models.FooterConfig{
				Links: []models.FooterLink{
					{Label: "Beranda", URL: "/"},
					{Label: "Berita", URL: "/berita"},
					{Label: "Kontak", URL: "/kontak"},
				},
				Copyright: "Hak cipta dilindungi",
			}
		},
	},
}

// wrapArray migrates a bare JSON array into an object holding it under field.
func wrapArray(field string) settingMigration {
	return func(raw json.RawMessage) (json.RawMessage, error) {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("expected array: %w", err)
		}
		if items == nil {
			items = []json.RawMessage{}
		}
		return json.Marshal(map[string]interface{}{field: items})
	}
}

// SettingsService manages typed homepage settings.
type SettingsService struct {
	repo        settingsRepository
	validator   *validation.Validator
	cache       *CacheService
	cacheTTL    time.Duration
	logger      *zap.Logger
	definitions map[string]settingDefinition
	debug       bool
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(repo settingsRepository, validate *validation.Validator, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defs := make(map[string]settingDefinition, len(settingDefinitions))
	for _, def := range settingDefinitions {
		defs[def.key] = def
	}
	return &SettingsService{repo: repo, validator: validate, cache: cache, cacheTTL: cacheTTL, logger: logger, definitions: defs}
}

// WithDebugErrors makes fallback warnings carry the underlying cause.
func (s *SettingsService) WithDebugErrors(debug bool) *SettingsService {
	s.debug = debug
	return s
}

// Keys lists the supported settings keys.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingDefinitions))
	for _, def := range settingDefinitions {
		keys = append(keys, def.key)
	}
	return keys
}

// List returns every settings key, substituting defaults for keys never saved.
func (s *SettingsService) List(ctx context.Context) ([]models.SiteSetting, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "Gagal memuat pengaturan")
	}
	stored := make(map[string]models.SiteSettingRow, len(rows))
	for _, row := range rows {
		stored[row.Key] = row
	}
	out := make([]models.SiteSetting, 0, len(settingDefinitions))
	for _, def := range settingDefinitions {
		row, ok := stored[def.key]
		if !ok {
			out = append(out, defaultSetting(def))
			continue
		}
		setting, err := s.decode(def, &row)
		if err != nil {
			return nil, err
		}
		out = append(out, *setting)
	}
	return out, nil
}

// Get returns the current-version record for key.
func (s *SettingsService) Get(ctx context.Context, key string) (*models.SiteSetting, error) {
	def, err := s.definition(key)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			setting := defaultSetting(def)
			return &setting, nil
		}
		return nil, appErrors.Internal(err, "Gagal memuat pengaturan")
	}
	return s.decode(def, row)
}

// GetPublic is Get with caching; backend failures fall back to the default record.
func (s *SettingsService) GetPublic(ctx context.Context, key string) (*models.SiteSetting, error) {
	def, err := s.definition(key)
	if err != nil {
		return nil, err
	}
	cacheKey := PublicKey(settingsNamespace, key)
	cached := models.SiteSetting{Value: def.zero()}
	if s.cache.Get(ctx, cacheKey, &cached) {
		return &cached, nil
	}
	setting, err := s.Get(ctx, key)
	if err != nil {
		s.logger.Warn("public settings read failed, serving defaults", zap.String("key", key), causeField(s.debug, err))
		fallback := defaultSetting(def)
		return &fallback, nil
	}
	s.cache.Set(ctx, cacheKey, setting, s.cacheTTL)
	return setting, nil
}

// Update validates payload against the key's schema and stores it at the current version.
func (s *SettingsService) Update(ctx context.Context, key string, payload []byte, updatedBy string) (*models.SiteSetting, error) {
	def, err := s.definition(key)
	if err != nil {
		return nil, err
	}
	value := def.zero()
	if err := decodePayload(payload, value); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(value); err != nil {
		return nil, validationFailure(s.validator, err)
	}
	if def.check != nil {
		if err := def.check(value); err != nil {
			return nil, invalid(err, err.Error())
		}
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, appErrors.Internal(err, "Gagal menyimpan pengaturan")
	}
	row := &models.SiteSettingRow{Key: key, Value: encoded, SchemaVersion: def.version}
	if updatedBy != "" {
		row.UpdatedBy = &updatedBy
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return nil, appErrors.Internal(err, "Gagal menyimpan pengaturan")
	}
	s.cache.Invalidate(ctx, PublicPattern(settingsNamespace))

	updatedAt := row.UpdatedAt
	return &models.SiteSetting{
		Key:           key,
		Value:         value,
		SchemaVersion: def.version,
		UpdatedBy:     row.UpdatedBy,
		UpdatedAt:     &updatedAt,
	}, nil
}

func (s *SettingsService) definition(key string) (settingDefinition, error) {
	def, ok := s.definitions[key]
	if !ok {
		return settingDefinition{}, appErrors.Clone(appErrors.ErrNotFound, "Pengaturan tidak ditemukan")
	}
	return def, nil
}

// decode upgrades a stored row through the key's migrations and unmarshals it.
func (s *SettingsService) decode(def settingDefinition, row *models.SiteSettingRow) (*models.SiteSetting, error) {
	raw := json.RawMessage(row.Value)
	version := row.SchemaVersion
	if version < 1 {
		version = 1
	}
	if version > def.version {
		return nil, appErrors.Internal(fmt.Errorf("setting %s has schema version %d, newest known is %d", def.key, version, def.version), "Gagal memuat pengaturan")
	}
	for version < def.version {
		migrate, ok := def.migrations[version]
		if !ok {
			return nil, appErrors.Internal(fmt.Errorf("setting %s: no migration from version %d", def.key, version), "Gagal memuat pengaturan")
		}
		next, err := migrate(raw)
		if err != nil {
			return nil, appErrors.Internal(fmt.Errorf("migrate setting %s from v%d: %w", def.key, version, err), "Gagal memuat pengaturan")
		}
		raw = next
		version++
	}

	value := def.zero()
	if err := json.Unmarshal(raw, value); err != nil {
		return nil, appErrors.Internal(fmt.Errorf("decode setting %s: %w", def.key, err), "Gagal memuat pengaturan")
	}
	if row.SchemaVersion != def.version {
		s.logger.Debug("setting migrated on read", zap.String("key", def.key), zap.Int("from", row.SchemaVersion), zap.Int("to", def.version))
	}
	updatedAt := row.UpdatedAt
	return &models.SiteSetting{
		Key:           def.key,
		Value:         value,
		SchemaVersion: def.version,
		UpdatedBy:     row.UpdatedBy,
		UpdatedAt:     &updatedAt,
	}, nil
}

func defaultSetting(def settingDefinition) models.SiteSetting {
	return models.SiteSetting{
		Key:           def.key,
		Value:         def.defaults(),
		SchemaVersion: def.version,
		IsDefault:     true,
	}
}
