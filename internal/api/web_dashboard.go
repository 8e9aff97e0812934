package api

import (
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/abelzeko/population-bot/internal/entities"
	"github.com/abelzeko/population-bot/internal/usecases"
)

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"pct": func(v float64) float64 { return v * 100 },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>World Population Dashboard</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.error { color: #b00020; }
section { margin-bottom: 2em; }
td, th { padding: 0.2em 1em; text-align: left; }
</style>
</head>
<body>
<h1>World Population Dashboard</h1>
{{if not .Countries}}
<p class="error">The dataset is empty, there are no countries to show.</p>
{{else}}
<form method="get" action="/">
<label for="country">Country</label>
<select id="country" name="country" onchange="this.form.submit()">
{{range .Countries}}<option value="{{.}}"{{if eq . $.Selected}} selected{{end}}>{{.}}</option>
{{end}}</select>
<noscript><button type="submit">Show</button></noscript>
</form>

<section id="info">
<h2>Country Info</h2>
{{if .InfoError}}<p class="error">{{.InfoError}}</p>{{else}}
<table>
<tr><th>Capital</th><td>{{.View.Info.Capital}}</td></tr>
<tr><th>Density</th><td>{{.Density}} per km²</td></tr>
<tr><th>Area</th><td>{{.Area}} km²</td></tr>
<tr><th>World Population</th><td>{{.WorldShare}}%</td></tr>
</table>
{{end}}
</section>

<section id="growth">
<h2>Population Growth</h2>
{{if .SeriesError}}<p class="error">{{.SeriesError}}</p>{{else}}
<img src="/charts/{{.Selected}}/growth.png" alt="Population growth of {{.Selected}}">
{{end}}
</section>

<section id="projection">
<h2>Expected Growth until {{.TargetYear}}</h2>
{{if .ProjectionError}}<p class="error">{{.ProjectionError}}</p>{{else}}
<p>{{.Current}} people in {{.View.Projection.CurrentYear}}, {{.Projected}} expected in {{.View.Projection.TargetYear}}
({{printf "%+.1f" (pct .View.Projection.RelativeDelta)}}%)</p>
<img src="/charts/{{.Selected}}/projection.png" alt="Expected growth of {{.Selected}}">
{{end}}
</section>
{{end}}
</body>
</html>
`))

type dashboardPage struct {
	Countries       []string
	Selected        string
	TargetYear      int
	View            entities.DashboardView
	InfoError       string
	SeriesError     string
	ProjectionError string
	Density         string
	Area            string
	WorldShare      string
	Current         string
	Projected       string
}

// WebDashboard serves the population dashboard over HTTP
type WebDashboard struct {
	useCase *usecases.PopulationUseCase
	charts  *ChartCache
	mux     *http.ServeMux
}

// NewWebDashboard creates the dashboard and registers its routes
func NewWebDashboard(useCase *usecases.PopulationUseCase, charts *ChartCache) *WebDashboard {
	d := &WebDashboard{
		useCase: useCase,
		charts:  charts,
		mux:     http.NewServeMux(),
	}
	d.mux.HandleFunc("GET /{$}", d.handleIndex)
	d.mux.HandleFunc("GET /api/countries", d.handleCountries)
	d.mux.HandleFunc("GET /api/countries/{country}/{view}", d.handleView)
	d.mux.HandleFunc("GET /charts/{country}/{chart}", d.handleChart)
	return d
}

// ServeHTTP implements http.Handler
func (d *WebDashboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mux.ServeHTTP(w, r)
}

// NewServer wraps the dashboard in an HTTP server listening on addr
func (d *WebDashboard) NewServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           d,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (d *WebDashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	countries, err := d.useCase.GetAvailableCountries()
	if err != nil {
		log.Printf("Error fetching countries: %v", err)
		http.Error(w, "Error fetching population data", http.StatusInternalServerError)
		return
	}

	page := dashboardPage{Countries: countries, TargetYear: d.useCase.TargetYear()}
	if len(countries) > 0 {
		page.Selected = countries[0]
		if requested := strings.TrimSpace(r.URL.Query().Get("country")); requested != "" {
			page.Selected = requested
		}
		page.View = d.useCase.RefreshDashboard(page.Selected)
		page.InfoError = errorText(page.View.InfoErr)
		page.SeriesError = errorText(page.View.SeriesErr)
		page.ProjectionError = errorText(page.View.ProjectionErr)
		page.Density = d.useCase.FormatMeasure("%.1f", page.View.Info.Density)
		page.Area = d.useCase.FormatNumber(page.View.Info.Area)
		page.WorldShare = d.useCase.FormatMeasure("%.2f", page.View.Info.WorldPopulationPercentage)
		page.Current = d.useCase.FormatNumber(float64(page.View.Projection.CurrentPopulation))
		page.Projected = d.useCase.FormatNumber(page.View.Projection.ProjectedPopulation)
	}

	status := http.StatusOK
	var notFound *entities.NotFoundError
	if errors.As(page.View.InfoErr, &notFound) {
		status = http.StatusNotFound
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := dashboardTemplate.Execute(w, page); err != nil {
		log.Printf("Error rendering dashboard: %v", err)
	}
}

func (d *WebDashboard) handleCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := d.useCase.GetAvailableCountries()
	if err != nil {
		writeError(w, err)
		return
	}
	if countries == nil {
		countries = []string{}
	}
	writeJSON(w, http.StatusOK, countries)
}

func (d *WebDashboard) handleView(w http.ResponseWriter, r *http.Request) {
	country := r.PathValue("country")

	var (
		body any
		err  error
	)
	switch r.PathValue("view") {
	case "info":
		body, err = d.useCase.GetCountryInfo(country)
	case "growth":
		body, err = d.useCase.GetGrowthSeries(country)
	case "projection":
		body, err = d.useCase.GetGrowthProjection(country)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (d *WebDashboard) handleChart(w http.ResponseWriter, r *http.Request) {
	kind, ok := strings.CutSuffix(r.PathValue("chart"), ".png")
	if !ok {
		http.NotFound(w, r)
		return
	}

	img, known, err := d.charts.Chart(kind, r.PathValue("country"))
	if !known {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=3600")
	if _, err := w.Write(img); err != nil {
		log.Printf("Error writing chart: %v", err)
	}
}

// statusFor maps view errors onto HTTP status codes
func statusFor(err error) int {
	var (
		notFound *entities.NotFoundError
		parseErr *entities.ParseError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("Error serving request: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": usecases.DescribeError(err)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return usecases.DescribeError(err)
}
