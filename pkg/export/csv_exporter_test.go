package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func papeletaDataset() Dataset {
	return Dataset{
		Headers: []string{"Numero", "Fecha", "Destino", "Estado"},
		Rows: []map[string]string{
			{"Numero": "N-0001", "Fecha": "2026-08-01", "Destino": "SUNAT", "Estado": "Aprobada"},
			{"Numero": "N-0002", "Fecha": "2026-08-02", "Destino": "Centro, Trujillo", "Estado": "Pendiente"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(papeletaDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Numero,Fecha,Destino,Estado", lines[0])
	assert.Equal(t, "N-0001,2026-08-01,SUNAT,Aprobada", lines[1])
	// A comma inside a field stays quoted.
	assert.Contains(t, lines[2], `"Centro, Trujillo"`)
}

func TestCSVExporterMissingCellRendersEmpty(t *testing.T) {
	data := Dataset{
		Headers: []string{"Numero", "Estado"},
		Rows:    []map[string]string{{"Numero": "N-0003"}},
	}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Contains(t, string(out), "N-0003,")
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(papeletaDataset(), "Papeletas de Salida")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF-"))
}

func TestPDFExporterRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{}, "")
	require.Error(t, err)
}
