// Package integration handles external sources and output formats
package integration

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/abelzeko/population-bot/internal/entities"
)

// Required column labels; matching is case-insensitive
const (
	columnCountry         = "Country"
	columnCapital         = "Capital"
	columnDensity         = "Density (per km²)"
	columnArea            = "Area (km²)"
	columnWorldPercentage = "World Population Percentage"
	columnGrowthRate      = "Growth Rate"
	columnCode            = "CCA3"
	columnContinent       = "Continent"
	columnRank            = "Rank"
)

// columnAliases maps alternative header spellings onto the canonical label
var columnAliases = map[string]string{
	"country/territory": columnCountry,
}

// DatasetLoader reads a population dataset from a local file or a URL
type DatasetLoader struct {
	client    *http.Client
	delimiter rune
}

// NewDatasetLoader creates a loader; delimiter applies to CSV sources and defaults to a comma
func NewDatasetLoader(delimiter rune) *DatasetLoader {
	if delimiter == 0 {
		delimiter = ','
	}
	return &DatasetLoader{
		client:    &http.Client{Timeout: 30 * time.Second},
		delimiter: delimiter,
	}
}

// Load reads and parses the dataset at source
func (l *DatasetLoader) Load(source string) (entities.Dataset, error) {
	log.Printf("Loading population dataset from %s", source)

	var (
		content []byte
		format  TableFormat
		err     error
	)
	if isURL(source) {
		content, format, err = l.fetch(source)
	} else {
		content, err = os.ReadFile(source)
		format = formatFromExtension(filepath.Ext(source))
	}
	if err != nil {
		return entities.Dataset{}, &entities.LoadError{Source: source, Err: err}
	}

	rows, err := readTable(format, content, l.delimiter)
	if err != nil {
		return entities.Dataset{}, &entities.LoadError{Source: source, Err: err}
	}

	// A CSV delimited by something other than "," follows the decimal-comma convention
	decimalComma := format == FormatCSV && l.delimiter != ','
	ds, err := parseDataset(rows, decimalComma)
	if err != nil {
		var schemaErr *entities.SchemaError
		if errors.As(err, &schemaErr) {
			return entities.Dataset{}, err
		}
		return entities.Dataset{}, &entities.LoadError{Source: source, Err: err}
	}

	log.Printf("Loaded %d countries with %d population years from %s", ds.Len(), len(ds.Years), source)
	return ds, nil
}

// fetch downloads a remote source and works out its format
func (l *DatasetLoader) fetch(source string) ([]byte, TableFormat, error) {
	log.Printf("Sending HTTP request to %s", source)
	res, err := l.client.Get(source)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch dataset: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		log.Printf("Received unexpected status code: %d %s", res.StatusCode, res.Status)
		return nil, "", fmt.Errorf("unexpected status code: %d %s", res.StatusCode, res.Status)
	}

	content, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	format := formatFromContentType(res.Header.Get("Content-Type"))
	if u, err := url.Parse(source); err == nil && format == "" {
		format = formatFromExtension(path.Ext(u.Path))
	}
	if format == "" {
		format = FormatCSV
	}
	return content, format, nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func formatFromExtension(ext string) TableFormat {
	switch strings.ToLower(ext) {
	case ".xlsx":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	case ".html", ".htm":
		return FormatHTML
	case ".tsv":
		return FormatTSV
	default:
		return FormatCSV
	}
}

// formatFromContentType returns "" when the media type says nothing specific
func formatFromContentType(contentType string) TableFormat {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "text/html":
		return FormatHTML
	case "text/csv":
		return FormatCSV
	case "text/tab-separated-values":
		return FormatTSV
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX
	case "application/vnd.ms-excel":
		return FormatXLS
	default:
		return ""
	}
}

// header holds the column positions of a parsed header row
type header struct {
	index       map[string]int
	yearColumns []int
	years       []int
	width       int
}

func (h header) optional(label string) (int, bool) {
	i, ok := h.index[strings.ToLower(label)]
	return i, ok
}

// parseHeader locates the required columns and derives the year list
func parseHeader(row []string) (header, error) {
	h := header{index: make(map[string]int), width: len(row)}

	var populationColumns []string
	seenYears := make(map[int]bool)
	for i, cell := range row {
		label := strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
		key := strings.ToLower(label)
		if canonical, ok := columnAliases[key]; ok {
			key = strings.ToLower(canonical)
		}
		if _, exists := h.index[key]; !exists {
			h.index[key] = i
		}

		if !entities.IsPopulationLabel(label) {
			continue
		}
		populationColumns = append(populationColumns, label)
		year, err := entities.ParseYearLabel(label)
		if err != nil {
			continue
		}
		if seenYears[year] {
			return header{}, &entities.SchemaError{Columns: populationColumns, Years: h.years,
				Reason: fmt.Sprintf("year %d appears more than once", year)}
		}
		seenYears[year] = true
		h.yearColumns = append(h.yearColumns, i)
		h.years = append(h.years, year)
	}

	if len(populationColumns) != len(h.years) {
		return header{}, &entities.SchemaError{Columns: populationColumns, Years: h.years,
			Reason: "some population columns have no integer year"}
	}

	var missing []string
	for _, label := range []string{columnCountry, columnCapital, columnDensity, columnArea, columnWorldPercentage, columnGrowthRate} {
		if _, ok := h.optional(label); !ok {
			missing = append(missing, label)
		}
	}
	if len(h.years) == 0 {
		missing = append(missing, "<year> Population")
	}
	if len(missing) > 0 {
		return header{}, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return h, nil
}

// ParseDataset builds a Dataset from decoded rows, header row first, reading "," as a thousands separator.
// Rows with an empty country are dropped; unreadable numeric cells are logged and kept as missing values.
func ParseDataset(rows [][]string) (entities.Dataset, error) {
	return parseDataset(rows, false)
}

func parseDataset(rows [][]string, decimalComma bool) (entities.Dataset, error) {
	if len(rows) == 0 {
		return entities.Dataset{}, fmt.Errorf("dataset has no header row")
	}

	h, err := parseHeader(rows[0])
	if err != nil {
		return entities.Dataset{}, err
	}

	ds := entities.Dataset{
		Records: make([]entities.PopulationRecord, 0, len(rows)-1),
		Years:   h.years,
	}

	skipped, incomplete := 0, 0
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		record, problems := parseRecord(h, row, decimalComma)
		if record.Country == "" {
			skipped++
			log.Printf("Warning: skipping dataset row %d: empty country", i+2)
			continue
		}
		if len(problems) > 0 {
			incomplete++
			log.Printf("Warning: dataset row %d (%s) has missing values: %s", i+2, record.Country, strings.Join(problems, "; "))
		}
		ds.Records = append(ds.Records, record)
	}

	if skipped > 0 || incomplete > 0 {
		log.Printf("Parsed %d records, skipped %d rows without a country, %d records with missing values",
			len(ds.Records), skipped, incomplete)
	}
	return ds, nil
}

// parseRecord converts one data row and lists the cells it could not read.
// Spreadsheet readers drop trailing empty cells so short rows are padded.
func parseRecord(h header, row []string, decimalComma bool) (entities.PopulationRecord, []string) {
	if len(row) < h.width {
		padded := make([]string, h.width)
		copy(padded, row)
		row = padded
	}

	cell := func(label string) string {
		i, ok := h.optional(label)
		if !ok {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	record := entities.PopulationRecord{
		Country:     cell(columnCountry),
		Capital:     cell(columnCapital),
		Code:        cell(columnCode),
		Continent:   cell(columnContinent),
		GrowthRate:  cell(columnGrowthRate),
		Populations: make(map[int]int64, len(h.years)),
	}

	var problems []string
	measure := func(label string) float64 {
		value, err := parseNumber(cell(label), decimalComma)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", label, err))
			return math.NaN()
		}
		return value
	}
	record.Density = measure(columnDensity)
	record.Area = measure(columnArea)
	record.WorldPopulationPercentage = measure(columnWorldPercentage)

	if rank := cell(columnRank); rank != "" {
		value, err := strconv.Atoi(rank)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", columnRank, err))
		}
		record.Rank = value
	}

	for i, col := range h.yearColumns {
		value, err := parseNumber(row[col], decimalComma)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", entities.YearLabel(h.years[i]), err))
			continue
		}
		record.Populations[h.years[i]] = int64(math.Round(value))
	}

	return record, problems
}

var (
	commaGrouped = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)
	dotGrouped   = regexp.MustCompile(`^[+-]?\d{1,3}(\.\d{3})+(,\d+)?$`)
)

// parseNumber reads a cell with an optional trailing percent sign.
// By default "," is only accepted as a thousands separator ("2,500,000").
// With decimalComma the cell uses "," as the decimal mark and "." to group thousands ("1.234,5").
func parseNumber(raw string, decimalComma bool) (float64, error) {
	cleaned := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if cleaned == "" {
		return 0, fmt.Errorf("empty value")
	}

	switch {
	case decimalComma:
		if dotGrouped.MatchString(cleaned) {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		} else if strings.Contains(cleaned, ".") && strings.Contains(cleaned, ",") {
			return 0, fmt.Errorf("ambiguous number %q", raw)
		}
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case commaGrouped.MatchString(cleaned):
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case strings.Contains(cleaned, ","):
		return 0, fmt.Errorf("ambiguous number %q", raw)
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("number %q is not finite", raw)
	}
	return value, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
