// Package table holds the in-memory mortality dataset: CSV loading, batch
// merging, in-place cleaning and the filtered views the dashboard reads.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/healthgrid/govai/internal/core/canon"
	"github.com/healthgrid/govai/internal/core/clean"
)

// Well-known dataset columns. Datasets may carry extras; these are the ones
// the pipeline understands.
const (
	ColCity        = "City Name"
	ColYear        = "Year"
	ColLiveBirths  = "Total No. of Live Births"
	ColDeathsTotal = "No. of Deaths - Total"
	ColDeathsM     = "No. of Deaths - Male"
	ColDeathsF     = "No. of Deaths - Female"
	ColInfants     = "No. of Deaths - Infants (0-1 year)"
	ColChildren    = "No. of Deaths - Children (1-5 years)"
	ColAbove5      = "No. of Deaths - age above 5 years"
)

// NumericColumns are the count columns rewritten to clean decimal form at
// ingestion.
var NumericColumns = []string{
	ColLiveBirths, ColDeathsTotal, ColDeathsM, ColDeathsF,
	ColInfants, ColChildren, ColAbove5,
}

var ErrEmptyDataset = errors.New("dataset has no rows")

// MissingColumnsError names the required columns a dataset lacks. It is a
// condition for the caller to act on, not a pipeline crash.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("dataset missing required columns: %s", strings.Join(e.Columns, ", "))
}

// Table is a header-ordered set of string-valued rows. Numeric cells hold a
// clean decimal spelling or "" for missing once a batch has been ingested.
type Table struct {
	Headers []string
	Rows    []map[string]string
}

// ReadCSV parses one CSV batch. Header names are whitespace-trimmed; short
// records pad with empty cells rather than failing the batch.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	t := &Table{Headers: headers}
	for _, rec := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			} else {
				row[h] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Merge appends next's rows to prev and returns a new table; neither input
// is mutated. Headers are the union, prev's order first.
func Merge(prev, next *Table) *Table {
	if prev == nil {
		return next.Clone()
	}
	if next == nil {
		return prev.Clone()
	}

	merged := prev.Clone()
	seen := make(map[string]bool, len(merged.Headers))
	for _, h := range merged.Headers {
		seen[h] = true
	}
	for _, h := range next.Headers {
		if !seen[h] {
			merged.Headers = append(merged.Headers, h)
			seen[h] = true
		}
	}
	for _, row := range next.Rows {
		copied := make(map[string]string, len(row))
		for k, v := range row {
			copied[k] = v
		}
		merged.Rows = append(merged.Rows, copied)
	}
	return merged
}

func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	c := &Table{Headers: append([]string(nil), t.Headers...)}
	c.Rows = make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		copied := make(map[string]string, len(row))
		for k, v := range row {
			copied[k] = v
		}
		c.Rows = append(c.Rows, copied)
	}
	return c
}

func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// RequireColumns reports the absent columns as a MissingColumnsError.
func (t *Table) RequireColumns(names ...string) error {
	var missing []string
	for _, n := range names {
		if !t.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}
	return nil
}

// Canonicalize builds this batch's canonical map over the city column and
// rewrites the column in place. Returns the map (empty when the column is
// absent).
func (t *Table) Canonicalize(r *canon.Resolver) map[string]string {
	if !t.HasColumn(ColCity) {
		return map[string]string{}
	}
	labels := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		labels = append(labels, row[ColCity])
	}
	mapping := r.Resolve(labels)
	for _, row := range t.Rows {
		row[ColCity] = canon.Canonical(mapping, row[ColCity])
	}
	return mapping
}

// RewriteNumeric coerces the given columns to clean decimal strings in
// place; cells with no numeric token become "".
func (t *Table) RewriteNumeric(columns ...string) {
	for _, col := range columns {
		if !t.HasColumn(col) {
			continue
		}
		for _, row := range t.Rows {
			row[col] = clean.Rewrite(row[col])
		}
	}
}

// Float parses a cell through the numeric cleaner.
func (t *Table) Float(row map[string]string, col string) (float64, bool) {
	return clean.Numeric(row[col])
}

// Distinct returns the sorted distinct non-empty values of a column.
func (t *Table) Distinct(col string) []string {
	seen := make(map[string]bool)
	for _, row := range t.Rows {
		if v := row[col]; v != "" {
			seen[v] = true
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Filter returns the rows whose city and year are in the given sets. Empty
// sets mean "no constraint" for that column.
func (t *Table) Filter(cities, years []string) *Table {
	citySet := toSet(cities)
	yearSet := toSet(years)

	out := &Table{Headers: append([]string(nil), t.Headers...)}
	for _, row := range t.Rows {
		if len(citySet) > 0 && !citySet[row[ColCity]] {
			continue
		}
		if len(yearSet) > 0 && !yearSet[row[ColYear]] {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func toSet(values []string) map[string]bool {
	s := make(map[string]bool, len(values))
	for _, v := range values {
		if v != "" {
			s[v] = true
		}
	}
	return s
}

// Metrics are the headline numbers of a filtered view.
type Metrics struct {
	Rows        int     `json:"rows"`
	TotalDeaths float64 `json:"total_deaths"`
	AvgBirths   float64 `json:"avg_births"`
}

// Summary computes the headline metrics with skip-missing semantics.
func (t *Table) Summary() Metrics {
	m := Metrics{Rows: len(t.Rows)}
	births, count := 0.0, 0
	for _, row := range t.Rows {
		if v, ok := t.Float(row, ColDeathsTotal); ok {
			m.TotalDeaths += v
		}
		if v, ok := t.Float(row, ColLiveBirths); ok {
			births += v
			count++
		}
	}
	if count > 0 {
		m.AvgBirths = births / float64(count)
	}
	return m
}
