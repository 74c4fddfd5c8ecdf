// Package dataset loads purchase records from a tabular source into an immutable in-memory table.
package dataset

import (
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/kaimono/internal/models"
	"golang.org/x/text/cases"
)

// Format identifies the kind of tabular source a dataset was read from.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatSQLite Format = "sqlite"
	FormatMemory Format = "memory"
)

// Dataset is an ordered, read-only collection of purchase records.
// It is safe for concurrent use because nothing mutates it after construction.
type Dataset struct {
	records  []models.Record
	folded   [][]string
	facets   map[models.Column][]string
	source   string
	format   Format
	currency string
	loadedAt time.Time
}

// Option configures a Dataset built with New.
type Option func(*Dataset)

// WithSource records where the data came from.
func WithSource(source string, format Format) Option {
	return func(d *Dataset) {
		d.source = source
		d.format = format
	}
}

// WithCurrency sets the currency symbol used when formatting amounts in messages.
func WithCurrency(symbol string) Option {
	return func(d *Dataset) { d.currency = symbol }
}

var textPos = func() map[models.Column]int {
	m := make(map[models.Column]int, len(models.TextColumns))
	for i, c := range models.TextColumns {
		m[c] = i
	}
	return m
}()

// New builds a Dataset from records. The slice is copied.
func New(records []models.Record, opts ...Option) *Dataset {
	d := &Dataset{
		records:  append([]models.Record(nil), records...),
		folded:   make([][]string, len(records)),
		facets:   make(map[models.Column][]string),
		format:   FormatMemory,
		loadedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(d)
	}

	caser := cases.Fold()
	seen := make(map[models.Column]map[string]bool, len(models.TextColumns))
	for _, c := range models.TextColumns {
		seen[c] = make(map[string]bool)
	}
	for i, r := range d.records {
		row := make([]string, len(models.TextColumns))
		for j, c := range models.TextColumns {
			row[j] = caser.String(strings.TrimSpace(r.Text(c)))
			if c == models.ColumnItem || row[j] == "" || seen[c][row[j]] {
				continue
			}
			seen[c][row[j]] = true
			d.facets[c] = append(d.facets[c], strings.TrimSpace(r.Text(c)))
		}
		d.folded[i] = row
	}
	for _, values := range d.facets {
		sort.Strings(values)
	}
	return d
}

// Fold returns the canonical comparison form of s: trimmed and case-folded.
// Dataset text values are stored in this form, so criteria must be folded the same way.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Record returns a copy of the record at position i.
func (d *Dataset) Record(i int) models.Record {
	return d.records[i]
}

// Records returns a copy of all records in dataset order.
func (d *Dataset) Records() []models.Record {
	return append([]models.Record(nil), d.records...)
}

// Folded returns the case-folded value of text column c for record i.
func (d *Dataset) Folded(i int, c models.Column) string {
	pos, ok := textPos[c]
	if !ok {
		return ""
	}
	return d.folded[i][pos]
}

// Facets returns the sorted distinct values of each categorical column.
// Item names are omitted; they are free text.
func (d *Dataset) Facets() map[models.Column][]string {
	out := make(map[models.Column][]string, len(d.facets))
	for c, values := range d.facets {
		out[c] = append([]string(nil), values...)
	}
	return out
}

// Source returns the path the dataset was loaded from, if any.
func (d *Dataset) Source() string { return d.source }

// Format returns the source format.
func (d *Dataset) Format() Format { return d.format }

// Currency returns the currency symbol for amounts, or "" when unknown.
func (d *Dataset) Currency() string { return d.currency }

// LoadedAt returns when the dataset was built.
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

// Info summarizes the dataset for status output.
func (d *Dataset) Info() *models.DatasetInfo {
	facets := make(map[string][]string, len(d.facets))
	for c, values := range d.Facets() {
		facets[string(c)] = values
	}
	return &models.DatasetInfo{
		Source:   d.source,
		Format:   string(d.format),
		Records:  len(d.records),
		Currency: d.currency,
		LoadedAt: d.loadedAt,
		Facets:   facets,
	}
}
