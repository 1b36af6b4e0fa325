package export_test

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/unidatahq/udc/features/export"
	"github.com/unidatahq/udc/runtime/connector"
)

func TestParseFormat(t *testing.T) {
	f, err := export.ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, export.FormatCSV, f)

	f, err = export.ParseFormat("xlsx")
	require.NoError(t, err)
	require.Equal(t, export.FormatXLSX, f)

	_, err = export.ParseFormat("pdf")
	require.Error(t, err)
}

func TestColumnsRaggedRecords(t *testing.T) {
	columns := export.Columns([]connector.Record{
		{"customer_id": 1, "name": "Ada"},
		{"customer_id": 2, "name": "Grace", "status": "active"},
	})
	require.Equal(t, []string{"customer_id", "name", "status"}, columns)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := export.WriteCSV(&buf, []connector.Record{
		{"customer_id": 1, "name": "Ada", "score": 9.5},
		{"customer_id": 2, "name": "Grace", "tags": []any{"vip"}},
	})
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"customer_id", "name", "score", "tags"}, rows[0])
	require.Equal(t, []string{"1", "Ada", "9.5", ""}, rows[1])
	require.Equal(t, "2", rows[2][0])
	require.Equal(t, `["vip"]`, rows[2][3])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, nil))
	// Just the empty header line.
	require.LessOrEqual(t, buf.Len(), 2)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	err := export.WriteXLSX(&buf, "crm", []connector.Record{
		{"customer_id": 1, "name": "Ada"},
		{"customer_id": 2, "name": "Grace"},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("crm")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"customer_id", "name"}, rows[0])
	require.Equal(t, []string{"1", "Ada"}, rows[1])
}
