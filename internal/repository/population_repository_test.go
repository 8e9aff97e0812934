package repository

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/abelzeko/population-bot/internal/entities"
)

func testDataset() entities.Dataset {
	return entities.Dataset{
		Years: []int{2022, 2020, 1970},
		Records: []entities.PopulationRecord{
			{Country: "Testland", Capital: "Test City", Code: "TST", Continent: "Europe", Rank: 2, Density: 0.83, Area: 1200,
				WorldPopulationPercentage: 0.01, GrowthRate: "2.00%", Populations: map[int]int64{2022: 1000, 2020: 980, 1970: 700}},
			{Country: "Sampleland", Capital: "Sample Town", Density: 500.5, Area: 5000,
				WorldPopulationPercentage: 0.03, GrowthRate: "1.52%", Populations: map[int]int64{2022: 2500000, 2020: 2400000, 1970: 1400000}},
			{Country: "Testland", Capital: "Shadow City", GrowthRate: "9.99%", Populations: map[int]int64{2022: 1, 2020: 1, 1970: 1}},
		},
	}
}

// openBackends returns every backend loaded with ds, keyed by name
func openBackends(t *testing.T, ds entities.Dataset) map[string]PopulationRepository {
	t.Helper()

	backends := make(map[string]PopulationRepository)
	for _, name := range []string{BackendMemory, BackendSQLite} {
		repo, err := New(name, ds)
		if err != nil {
			t.Fatalf("Failed to initialize %s repository: %v", name, err)
		}
		t.Cleanup(func() { repo.Close() })
		backends[name] = repo
	}
	return backends
}

func TestGetCountriesFirstSeenOrder(t *testing.T) {
	for name, repo := range openBackends(t, testDataset()) {
		t.Run(name, func(t *testing.T) {
			countries, err := repo.GetCountries()
			if err != nil {
				t.Fatalf("Failed to get countries: %v", err)
			}
			expected := []string{"Testland", "Sampleland"}
			if !reflect.DeepEqual(countries, expected) {
				t.Errorf("Expected %v, got %v", expected, countries)
			}
		})
	}
}

func TestGetRecordByCountryTakesFirstMatch(t *testing.T) {
	ds := testDataset()
	for name, repo := range openBackends(t, ds) {
		t.Run(name, func(t *testing.T) {
			record, err := repo.GetRecordByCountry("Testland")
			if err != nil {
				t.Fatalf("Failed to get Testland: %v", err)
			}
			if !reflect.DeepEqual(record, ds.Records[0]) {
				t.Errorf("Expected %+v, got %+v", ds.Records[0], record)
			}
		})
	}
}

func TestGetRecordByCountryNotFound(t *testing.T) {
	for name, repo := range openBackends(t, testDataset()) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.GetRecordByCountry("Atlantis")
			var notFound *entities.NotFoundError
			if !errors.As(err, &notFound) {
				t.Fatalf("Expected NotFoundError, got %v", err)
			}
			if notFound.Country != "Atlantis" {
				t.Errorf("Expected the error to name Atlantis, got %q", notFound.Country)
			}
		})
	}
}

func TestGetYearsKeepsDeclarationOrder(t *testing.T) {
	for name, repo := range openBackends(t, testDataset()) {
		t.Run(name, func(t *testing.T) {
			years, err := repo.GetYears()
			if err != nil {
				t.Fatalf("Failed to get years: %v", err)
			}
			if !reflect.DeepEqual(years, []int{2022, 2020, 1970}) {
				t.Errorf("Unexpected years %v", years)
			}
		})
	}
}

func TestEmptyDataset(t *testing.T) {
	for name, repo := range openBackends(t, entities.Dataset{}) {
		t.Run(name, func(t *testing.T) {
			countries, err := repo.GetCountries()
			if err != nil {
				t.Fatalf("Failed to get countries: %v", err)
			}
			if len(countries) != 0 {
				t.Errorf("Expected no countries, got %v", countries)
			}

			var notFound *entities.NotFoundError
			if _, err := repo.GetRecordByCountry("Testland"); !errors.As(err, &notFound) {
				t.Errorf("Expected NotFoundError, got %v", err)
			}
		})
	}
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryPopulationRepository(testDataset())

	record, _ := repo.GetRecordByCountry("Testland")
	record.Populations[2022] = 0

	again, _ := repo.GetRecordByCountry("Testland")
	if again.Populations[2022] != 1000 {
		t.Errorf("Expected the stored record to stay unchanged, got %d", again.Populations[2022])
	}

	countries, _ := repo.GetCountries()
	countries[0] = "Mutated"
	if fresh, _ := repo.GetCountries(); fresh[0] != "Testland" {
		t.Errorf("Expected the directory to stay unchanged, got %v", fresh)
	}
}

func TestUnknownBackend(t *testing.T) {
	if _, err := New("postgres", testDataset()); err == nil {
		t.Error("Expected an error for an unknown backend")
	}
}

func TestMissingValuesSurviveBackends(t *testing.T) {
	ds := entities.Dataset{
		Years: []int{2022, 1970},
		Records: []entities.PopulationRecord{
			{Country: "Newland", Capital: "New City", Density: math.NaN(), Area: 5000, WorldPopulationPercentage: math.NaN(),
				GrowthRate: "1.00%", Populations: map[int]int64{2022: 5000}},
		},
	}

	for name, repo := range openBackends(t, ds) {
		t.Run(name, func(t *testing.T) {
			record, err := repo.GetRecordByCountry("Newland")
			if err != nil {
				t.Fatalf("Failed to get Newland: %v", err)
			}
			if !math.IsNaN(record.Density) || !math.IsNaN(record.WorldPopulationPercentage) || record.Area != 5000 {
				t.Errorf("Expected missing measures to stay NaN: %+v", record)
			}
			if _, ok := record.Population(1970); ok {
				t.Errorf("Expected 1970 to stay missing, got %v", record.Populations)
			}
			if population, ok := record.Population(2022); !ok || population != 5000 {
				t.Errorf("Expected the 2022 population, got %v", record.Populations)
			}
		})
	}
}
