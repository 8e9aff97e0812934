// Package repository provides read-only data access over the loaded dataset
package repository

import (
	"fmt"
	"log"
	"slices"

	"github.com/abelzeko/population-bot/internal/entities"
)

// PopulationRepository defines the read operations the use cases need
type PopulationRepository interface {
	// GetCountries returns distinct country names in first-seen order
	GetCountries() ([]string, error)
	// GetRecordByCountry returns the first record for country or an *entities.NotFoundError
	GetRecordByCountry(country string) (entities.PopulationRecord, error)
	// GetYears returns the year list in column declaration order
	GetYears() ([]int, error)
	Close() error
}

// Backend names accepted by New
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// New builds the repository backend named by backend over ds
func New(backend string, ds entities.Dataset) (PopulationRepository, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemoryPopulationRepository(ds), nil
	case BackendSQLite:
		return NewSQLitePopulationRepository(ds)
	default:
		return nil, fmt.Errorf("unknown repository backend %q", backend)
	}
}

// MemoryPopulationRepository serves lookups straight from the in-memory dataset
type MemoryPopulationRepository struct {
	dataset   entities.Dataset
	countries []string
	index     map[string]int // country -> position of its first record
}

// NewMemoryPopulationRepository indexes ds; ds must not be modified afterwards
func NewMemoryPopulationRepository(ds entities.Dataset) *MemoryPopulationRepository {
	repo := &MemoryPopulationRepository{
		dataset:   ds,
		countries: make([]string, 0, len(ds.Records)),
		index:     make(map[string]int, len(ds.Records)),
	}

	for i, record := range ds.Records {
		if _, seen := repo.index[record.Country]; seen {
			log.Printf("Warning: duplicate country %q at row %d, lookups use the first one", record.Country, i)
			continue
		}
		repo.index[record.Country] = i
		repo.countries = append(repo.countries, record.Country)
	}

	return repo
}

// GetCountries returns distinct country names in first-seen order
func (r *MemoryPopulationRepository) GetCountries() ([]string, error) {
	return slices.Clone(r.countries), nil
}

// GetRecordByCountry returns a copy of the first record for country
func (r *MemoryPopulationRepository) GetRecordByCountry(country string) (entities.PopulationRecord, error) {
	i, ok := r.index[country]
	if !ok {
		return entities.PopulationRecord{}, &entities.NotFoundError{Country: country}
	}
	return r.dataset.Records[i].Clone(), nil
}

// GetYears returns the year list
func (r *MemoryPopulationRepository) GetYears() ([]int, error) {
	return slices.Clone(r.dataset.Years), nil
}

// Close is a no-op for the memory backend
func (r *MemoryPopulationRepository) Close() error {
	return nil
}
