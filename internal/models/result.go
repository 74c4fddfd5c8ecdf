package models

import "time"

// Row is one projected record. Index is the record's position in the dataset.
type Row struct {
	Index  int      `json:"index"`
	Values []string `json:"values"`
}

// Result is the outcome of a query operation.
// When nothing matched, Rows is empty and Message describes the criteria.
type Result struct {
	Operation Operation `json:"operation"`
	Columns   []Column  `json:"columns"`
	Rows      []Row     `json:"rows"`
	Total     int       `json:"total"`
	Message   string    `json:"message,omitempty"`
	QueryTime int64     `json:"query_time_ms"`
}

// Empty reports whether the query matched no records.
func (r *Result) Empty() bool {
	return len(r.Rows) == 0
}

// Indexes returns the dataset positions of the matched records in result order.
func (r *Result) Indexes() []int {
	out := make([]int, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Index
	}
	return out
}

// ColumnValues returns the values of column c across all rows, or nil when c is not projected.
func (r *Result) ColumnValues(c Column) []string {
	pos := -1
	for i, col := range r.Columns {
		if col == c {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil
	}
	out := make([]string, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Values[pos]
	}
	return out
}

// DatasetInfo summarizes a loaded dataset.
type DatasetInfo struct {
	Source   string              `json:"source,omitempty"`
	Format   string              `json:"format"`
	Records  int                 `json:"records"`
	Currency string              `json:"currency,omitempty"`
	LoadedAt time.Time           `json:"loaded_at"`
	Facets   map[string][]string `json:"facets,omitempty"`
}
