package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lobbying-cli/internal/resilience"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Expenditures": {
			{"Lob F Name", "Lob L Name", "Cost"},
			{"Jane", " Doe ", "$12.50"},
		},
	})

	rows, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Jane", "Doe", "$12.50"}, rows[1])

	_, err = ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	assert.Error(t, err)

	_, err = ReadXLSX(path, XLSXOptions{SheetIndex: 3})
	assert.Error(t, err)

	_, err = ReadXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), XLSXOptions{})
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	rows, err := ReadCSV(context.Background(), strings.NewReader("a,b\n 1 , 2\n"), CSVOptions{TrimSpace: true})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, rows)

	_, err = ReadCSV(context.Background(), strings.NewReader("a,\"b\n"), CSVOptions{})
	assert.Error(t, err)
}

func TestStreamCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var body strings.Builder
	for i := 0; i < 500; i++ {
		body.WriteString("x,y\n")
	}
	rowCh, errCh := StreamCSV(ctx, strings.NewReader(body.String()), CSVOptions{})
	for range rowCh {
	}
	assert.Error(t, <-errCh)
}

func TestTable(t *testing.T) {
	tbl := NewTable([][]string{
		{"\ufeffLob F Name", "Cost ", "Cost"},
		{"Jane", "1.00"},
		{"", " "},
	})
	assert.Len(t, tbl.Rows, 1, "blank row dropped")
	assert.True(t, tbl.Has("lob f name"))
	assert.Equal(t, "Jane", tbl.Get(tbl.Rows[0], "Lob F Name"))
	assert.Equal(t, "1.00", tbl.Get(tbl.Rows[0], "cost"), "first duplicate column wins")
	assert.Equal(t, "", tbl.Get(tbl.Rows[0], "Principal"))

	assert.NoError(t, tbl.Require("Cost"))
	err := tbl.Require("Cost", "Principal", "Date")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Principal, Date")

	assert.Empty(t, NewTable(nil).Rows)
}

func TestReadTable(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "gifts.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Recipient,Cost\nSmith,$5\n"), 0o644))

	tbl, err := ReadTable(context.Background(), csvPath)
	require.NoError(t, err)
	assert.Equal(t, "$5", tbl.Get(tbl.Rows[0], "Cost"))

	xlsxPath := createTestXLSX(t, map[string][][]string{"S": {{"Recipient"}, {"Jones"}}})
	tbl, err = ReadTable(context.Background(), xlsxPath)
	require.NoError(t, err)
	assert.Equal(t, "Jones", tbl.Get(tbl.Rows[0], "Recipient"))

	_, err = ReadTable(context.Background(), filepath.Join(dir, "gifts.pdf"))
	assert.Error(t, err)
}

func TestHTTPFetcher_DownloadToFile(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "lobbying-cli/test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("a,b\n"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher("lobbying-cli/test", time.Second)
	f.retry = resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	dest := filepath.Join(t.TempDir(), "sub", "export.csv")
	n, err := f.DownloadToFile(context.Background(), srv.URL+"/export.csv", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.FileExists(t, dest)
}
