package entities

import (
	"fmt"
	"strings"
)

// LoadError reports a dataset source that is unreadable or malformed
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load dataset from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// SchemaError reports population columns that do not map one-to-one onto years
type SchemaError struct {
	Columns []string // Columns ending in " Population"
	Years   []int    // Years successfully parsed from Columns
	Reason  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("population columns do not match years (%d columns, %d years): %s [%s]",
		len(e.Columns), len(e.Years), e.Reason, strings.Join(e.Columns, ", "))
}

// NotFoundError reports a selected country that is absent from the dataset
type NotFoundError struct {
	Country string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("country %q not found", e.Country)
}

// ParseError reports a record field that could not be parsed
type ParseError struct {
	Country string
	Field   string
	Value   string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s %q for %s: %v", e.Field, e.Value, e.Country, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
