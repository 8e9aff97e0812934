package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abelzeko/population-bot/internal/integration"
	"github.com/abelzeko/population-bot/internal/repository"
	"github.com/abelzeko/population-bot/internal/usecases"
	"github.com/xuri/excelize/v2"
)

const testHTML = `<!DOCTYPE html>
<html>
<body>
<table>
<tr><th>Rank</th><th>CCA3</th><th>Country</th><th>Capital</th><th>Continent</th>
<th>2022 Population</th><th>2020 Population</th><th>1970 Population</th>
<th>Area (km²)</th><th>Density (per km²)</th><th>Growth Rate</th><th>World Population Percentage</th></tr>
<tr><td>1</td><td>TST</td><td>Testland</td><td>Test City</td><td>Europe</td>
<td>1000</td><td>980</td><td>700</td><td>1200</td><td>0.83</td><td>2.00%</td><td>0.01</td></tr>
<tr><td>2</td><td>SMP</td><td>Sample Land</td><td>Sample Town</td><td>Asia</td>
<td>2500000</td><td>2400000</td><td>1400000</td><td>5000</td><td>500.5</td><td>1.52%</td><td>0.03</td></tr>
<tr><td>3</td><td>BRK</td><td>Brokenland</td><td>Nowhere</td><td>Africa</td>
<td>10</td><td>10</td><td>10</td><td>10</td><td>1</td><td>N/A%</td><td>0</td></tr>
</table>
</body>
</html>`

// mockHTMLServer creates a test server that serves a fixed HTML response
func mockHTMLServer(html string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, html)
	}))
}

func newTestExporter(t *testing.T, charts []string) *exporter {
	t.Helper()

	server := mockHTMLServer(testHTML)
	defer server.Close()

	ds, err := integration.NewDatasetLoader(',').Load(server.URL + "/population")
	if err != nil {
		t.Fatalf("Failed to load dataset: %v", err)
	}

	repo, err := repository.NewSQLitePopulationRepository(ds)
	if err != nil {
		t.Fatalf("Failed to initialize repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return &exporter{
		useCase:  usecases.NewPopulationUseCase(repo, nil, usecases.ProjectionOptions{}),
		writer:   integration.NewReportWriter(),
		renderer: integration.NewChartRenderer(),
		dir:      filepath.Join(t.TempDir(), "reports"),
		charts:   charts,
	}
}

// TestExportWritesWorkbook runs one export end to end from an HTML table source
func TestExportWritesWorkbook(t *testing.T) {
	e := newTestExporter(t, nil)
	now := time.Date(2025, time.April, 18, 8, 0, 0, 0, time.UTC)

	path, err := e.run(now)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if filepath.Base(path) != "population-20250418-080000.xlsx" {
		t.Errorf("Unexpected report name: %s", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Failed to open report: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(integration.SheetCountries)
	if err != nil {
		t.Fatalf("Failed to read countries sheet: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected a header and 3 countries, got %d rows", len(rows))
	}
	if rows[1][0] != "Testland" || rows[2][0] != "Sample Land" || rows[3][0] != "Brokenland" {
		t.Errorf("Unexpected country order: %v", rows)
	}

	if got, _ := f.GetCellValue(integration.SheetProjection, "I4"); !strings.Contains(got, "N/A%") {
		t.Errorf("Expected the malformed growth rate to be reported, got %q", got)
	}
}

// TestExportWritesCharts checks chart files for the configured countries
func TestExportWritesCharts(t *testing.T) {
	e := newTestExporter(t, []string{"sample land", " Brokenland", "Atlantis"})
	now := time.Date(2025, time.April, 18, 8, 0, 0, 0, time.UTC)

	if _, err := e.run(now); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	expected := map[string]bool{
		"sample-land-growth-20250418-080000.png":     true,
		"sample-land-projection-20250418-080000.png": true,
		"brokenland-growth-20250418-080000.png":      true,
		"brokenland-projection-20250418-080000.png":  false,
	}
	for name, want := range expected {
		_, err := os.Stat(filepath.Join(e.dir, name))
		if got := err == nil; got != want {
			t.Errorf("%s: expected exists=%v, got %v", name, want, got)
		}
	}
}
