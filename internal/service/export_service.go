package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-web-api/internal/models"
	appErrors "github.com/noah-isme/sma-web-api/pkg/errors"
	"github.com/noah-isme/sma-web-api/pkg/export"
)

const exportPageSize = 100

// RosterSource loads every row of an exportable resource.
type RosterSource func(ctx context.Context) ([]models.Exportable, error)

// Roster describes one exportable resource.
type Roster struct {
	Title   string
	Headers []string
	Source  RosterSource
}

// ExportFile is a rendered roster ready to download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders rosters into CSV, PDF or XLSX.
type ExportService struct {
	rosters map[string]Roster
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService for the given rosters keyed by resource name.
func NewExportService(rosters map[string]Roster, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{rosters: rosters, logger: logger, now: time.Now}
}

// Export renders resource in the requested format.
func (s *ExportService) Export(ctx context.Context, resource, rawFormat string) (*ExportFile, error) {
	roster, ok := s.rosters[resource]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Data ekspor tidak ditemukan")
	}
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, invalid(err, "Format ekspor tidak didukung")
	}

	rows, err := roster.Source(ctx)
	if err != nil {
		return nil, err
	}
	dataset := export.Dataset{Headers: roster.Headers, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, row.ExportRow())
	}

	payload, err := export.RendererFor(format).Render(dataset, roster.Title)
	if err != nil {
		s.logger.Error("render export failed", zap.String("resource", resource), zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Internal(err, "Gagal membuat file ekspor")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("%s_%s.%s", resource, s.now().UTC().Format("20060102_150405"), format.Extension()),
		ContentType: format.ContentType(),
		Data:        payload,
	}, nil
}

type pagedLister[T any] interface {
	List(ctx context.Context, filter models.ListFilter) ([]T, *models.Pagination, error)
}

// ContentRoster pages through every row of a content service.
func ContentRoster[T any, PT interface {
	*T
	models.Exportable
}](svc pagedLister[T]) RosterSource {
	return func(ctx context.Context) ([]models.Exportable, error) {
		var out []models.Exportable
		for page := 1; ; page++ {
			rows, pagination, err := svc.List(ctx, models.ListFilter{Page: page, PageSize: exportPageSize})
			if err != nil {
				return nil, err
			}
			for i := range rows {
				out = append(out, PT(&rows[i]))
			}
			if len(rows) < exportPageSize || len(out) >= pagination.TotalCount {
				return out, nil
			}
		}
	}
}

// Roster definitions.
var (
	StaffRosterHeaders   = []string{"Nama", "Jabatan", "Kategori", "NIP", "Email", "Telepon", "Aktif"}
	StudentRosterHeaders = []string{"Nama", "NIS", "Kelas", "L/P", "Tahun Masuk", "Aktif"}
	AlumniRosterHeaders  = []string{"Nama", "Tahun Lulus", "Status", "Instansi"}
	ClassRosterHeaders   = []string{"Kelas", "Tingkat", "Jurusan", "Wali Kelas", "Jumlah Siswa"}
)
