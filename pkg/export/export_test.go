package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Nama", "Jabatan"},
		Rows: []map[string]string{
			{"Nama": "Siti Aminah", "Jabatan": "Kepala Sekolah"},
			{"Nama": "Budi", "Jabatan": "Guru Matematika"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset(), "")
	require.NoError(t, err)
	assert.Equal(t, "\ufeffNama,Jabatan\nSiti Aminah,Kepala Sekolah\nBudi,Guru Matematika\n", string(out))
}

func TestCSVExporterNeutralizesFormulas(t *testing.T) {
	data := Dataset{
		Headers: []string{"Nama", "Telepon"},
		Rows:    []map[string]string{{"Nama": "=HYPERLINK(\"http://x\")", "Telepon": "+62 812"}},
	}
	out, err := NewCSVExporter().Render(data, "")
	require.NoError(t, err)
	assert.Equal(t, "\ufeffNama,Telepon\n\"'=HYPERLINK(\"\"http://x\"\")\",'+62 812\n", string(out))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "Daftar Guru")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset(), "Daftar Guru")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	title, err := f.GetCellValue("Data", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Daftar Guru", title)
	name, err := f.GetCellValue("Data", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Siti Aminah", name)
}

func TestExportersRequireHeaders(t *testing.T) {
	for _, f := range []Format{FormatCSV, FormatPDF, FormatXLSX} {
		_, err := RendererFor(f).Render(Dataset{}, "")
		assert.Error(t, err, f)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("EXCEL")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	assert.Equal(t, ".xlsx", f.Extension())

	_, err = ParseFormat("docx")
	assert.Error(t, err)
}
