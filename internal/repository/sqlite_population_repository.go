package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/abelzeko/population-bot/internal/entities"
	_ "github.com/mattn/go-sqlite3"
)

// SQLitePopulationRepository mirrors the dataset into an in-memory SQLite database.
// Nothing is written to disk; the database lives and dies with the process.
type SQLitePopulationRepository struct {
	db *sql.DB
}

// NewSQLitePopulationRepository creates the schema and copies ds into it
func NewSQLitePopulationRepository(ds entities.Dataset) (*SQLitePopulationRepository, error) {
	log.Printf("Opening in-memory population database")
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" gets its own database, so keep exactly one
	db.SetMaxOpenConns(1)

	// Country names are not unique: first-match lookups rely on position order
	createTableSQL := `
	CREATE TABLE countries (
		position INTEGER PRIMARY KEY,
		country TEXT NOT NULL,
		capital TEXT,
		code TEXT,
		continent TEXT,
		country_rank INTEGER,
		density REAL,
		area REAL,
		world_percentage REAL,
		growth_rate TEXT
	);
	CREATE INDEX idx_country ON countries(country);
	CREATE TABLE populations (
		position INTEGER NOT NULL,
		year INTEGER NOT NULL,
		population INTEGER NOT NULL,
		PRIMARY KEY(position, year)
	);
	CREATE TABLE years (
		ordinal INTEGER PRIMARY KEY,
		year INTEGER NOT NULL UNIQUE
	);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	repo := &SQLitePopulationRepository{db: db}
	if err := repo.importDataset(ds); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// importDataset copies every record and the year list in one transaction
func (r *SQLitePopulationRepository) importDataset(ds entities.Dataset) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	yearStmt, err := tx.Prepare(`INSERT INTO years(ordinal, year) VALUES(?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer yearStmt.Close()

	for i, year := range ds.Years {
		if _, err := yearStmt.Exec(i, year); err != nil {
			return fmt.Errorf("failed to insert year %d: %w", year, err)
		}
	}

	countryStmt, err := tx.Prepare(`
		INSERT INTO countries(position, country, capital, code, continent, country_rank, density, area, world_percentage, growth_rate)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer countryStmt.Close()

	populationStmt, err := tx.Prepare(`INSERT INTO populations(position, year, population) VALUES(?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer populationStmt.Close()

	for i, rec := range ds.Records {
		if _, err := countryStmt.Exec(
			i,
			rec.Country,
			rec.Capital,
			rec.Code,
			rec.Continent,
			rec.Rank,
			nullableMeasure(rec.Density),
			nullableMeasure(rec.Area),
			nullableMeasure(rec.WorldPopulationPercentage),
			rec.GrowthRate,
		); err != nil {
			return fmt.Errorf("failed to insert country %s: %w", rec.Country, err)
		}
		for year, population := range rec.Populations {
			if _, err := populationStmt.Exec(i, year, population); err != nil {
				return fmt.Errorf("failed to insert %d population for %s: %w", year, rec.Country, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Successfully imported %d country records", len(ds.Records))
	return nil
}

// Close closes the database connection
func (r *SQLitePopulationRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// GetCountries returns distinct country names ordered by their first appearance
func (r *SQLitePopulationRepository) GetCountries() ([]string, error) {
	query := `
		SELECT country
		FROM countries
		GROUP BY country
		ORDER BY MIN(position)`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query countries: %w", err)
	}
	defer rows.Close()

	countries := []string{}
	for rows.Next() {
		var country string
		if err := rows.Scan(&country); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		countries = append(countries, country)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return countries, nil
}

// GetRecordByCountry retrieves the first record stored for country
func (r *SQLitePopulationRepository) GetRecordByCountry(country string) (entities.PopulationRecord, error) {
	query := `
		SELECT position, country, capital, code, continent, country_rank, density, area, world_percentage, growth_rate
		FROM countries
		WHERE country = ?
		ORDER BY position
		LIMIT 1`

	var (
		position                       int
		rec                            entities.PopulationRecord
		density, area, worldPercentage sql.NullFloat64
	)
	err := r.db.QueryRow(query, country).Scan(
		&position,
		&rec.Country,
		&rec.Capital,
		&rec.Code,
		&rec.Continent,
		&rec.Rank,
		&density,
		&area,
		&worldPercentage,
		&rec.GrowthRate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.PopulationRecord{}, &entities.NotFoundError{Country: country}
	}
	if err != nil {
		return entities.PopulationRecord{}, fmt.Errorf("failed to query country %s: %w", country, err)
	}
	rec.Density = measureOrNaN(density)
	rec.Area = measureOrNaN(area)
	rec.WorldPopulationPercentage = measureOrNaN(worldPercentage)

	rows, err := r.db.Query(`SELECT year, population FROM populations WHERE position = ?`, position)
	if err != nil {
		return entities.PopulationRecord{}, fmt.Errorf("failed to query populations for %s: %w", country, err)
	}
	defer rows.Close()

	rec.Populations = make(map[int]int64)
	for rows.Next() {
		var (
			year       int
			population int64
		)
		if err := rows.Scan(&year, &population); err != nil {
			return entities.PopulationRecord{}, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.Populations[year] = population
	}

	if err := rows.Err(); err != nil {
		return entities.PopulationRecord{}, fmt.Errorf("error during row iteration: %w", err)
	}

	return rec, nil
}

// GetYears returns the year list in its original order
func (r *SQLitePopulationRepository) GetYears() ([]int, error) {
	rows, err := r.db.Query(`SELECT year FROM years ORDER BY ordinal`)
	if err != nil {
		return nil, fmt.Errorf("failed to query years: %w", err)
	}
	defer rows.Close()

	years := []int{}
	for rows.Next() {
		var year int
		if err := rows.Scan(&year); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		years = append(years, year)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return years, nil
}

// nullableMeasure stores missing (NaN) measures as NULL
func nullableMeasure(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

func measureOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
