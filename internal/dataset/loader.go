package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/hyperjump/kaimono/internal/models"
)

type loadOptions struct {
	format Format
	sheet  string
	table  string
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithFormat forces the source format instead of detecting it from the file extension.
func WithFormat(f Format) LoadOption {
	return func(o *loadOptions) {
		if f != "" {
			o.format = f
		}
	}
}

// WithSheet selects the worksheet of an XLSX source. The first sheet is used by default.
func WithSheet(name string) LoadOption {
	return func(o *loadOptions) { o.sheet = name }
}

// WithTable selects the table of a SQLite source.
func WithTable(name string) LoadOption {
	return func(o *loadOptions) {
		if name != "" {
			o.table = name
		}
	}
}

// DefaultTable is the SQLite table read when none is configured.
const DefaultTable = "purchases"

// DetectFormat returns the source format implied by the file extension of path.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Load reads the purchase records at path.
// Every failure is returned as *LoadError; the dataset is unusable in that case.
func Load(path string, opts ...LoadOption) (*Dataset, error) {
	o := &loadOptions{table: DefaultTable}
	for _, opt := range opts {
		opt(o)
	}
	if o.format == "" {
		f, err := DetectFormat(path)
		if err != nil {
			return nil, &LoadError{Source: path, Err: err}
		}
		o.format = f
	}

	var (
		df   dataframe.DataFrame
		rows [][]string
	)
	switch o.format {
	case FormatCSV:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Source: path, Err: err}
		}
		df = dataframe.ReadCSV(bytes.NewReader(data), frameOptions()...)
		if df.Err != nil {
			// gota rejects a frame without data rows; keep the raw rows to detect a bare header.
			rows, _ = csv.NewReader(bytes.NewReader(data)).ReadAll()
		}
	case FormatXLSX:
		var err error
		if rows, err = readExcel(path, o.sheet); err != nil {
			return nil, &LoadError{Source: path, Err: err}
		}
		df = loadFrame(rows)
	case FormatSQLite:
		var err error
		if rows, err = readSQLite(path, o.table); err != nil {
			return nil, &LoadError{Source: path, Err: err}
		}
		df = loadFrame(rows)
	default:
		return nil, &LoadError{Source: path, Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, o.format)}
	}

	if df.Err != nil && headerOnly(rows) {
		_, currency, err := resolveHeader(rows[0])
		if err != nil {
			return nil, &LoadError{Source: path, Err: err}
		}
		return New(nil, WithSource(path, o.format), WithCurrency(currency)), nil
	}

	records, currency, err := recordsFromFrame(path, df)
	if err != nil {
		return nil, err
	}
	return New(records, WithSource(path, o.format), WithCurrency(currency)), nil
}

// frameOptions keeps every cell as text so numeric parsing and its errors stay under our control.
func frameOptions() []dataframe.LoadOption {
	return []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	}
}

// loadFrame builds a DataFrame from a header row plus data rows, padding short rows
// and skipping blank ones.
func loadFrame(rows [][]string) dataframe.DataFrame {
	if len(rows) == 0 {
		return dataframe.LoadRecords(rows, frameOptions()...)
	}
	width := len(rows[0])
	table := make([][]string, 0, len(rows))
	table = append(table, rows[0])
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		}
		table = append(table, row[:width])
	}
	return dataframe.LoadRecords(table, frameOptions()...)
}

// headerOnly reports whether rows hold a header and nothing but blank rows after it.
func headerOnly(rows [][]string) bool {
	if len(rows) == 0 {
		return false
	}
	for _, row := range rows[1:] {
		if !isBlank(row) {
			return false
		}
	}
	return true
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func recordsFromFrame(source string, df dataframe.DataFrame) ([]models.Record, string, error) {
	if df.Err != nil {
		return nil, "", &LoadError{Source: source, Err: df.Err}
	}
	cols, currency, err := resolveHeader(df.Names())
	if err != nil {
		return nil, "", &LoadError{Source: source, Err: err}
	}
	values := make(map[models.Column][]string, len(cols))
	for c, name := range cols {
		values[c] = df.Col(name).Records()
	}

	n := df.Nrow()
	records := make([]models.Record, n)
	for i := 0; i < n; i++ {
		r := models.Record{
			Item:     strings.TrimSpace(values[models.ColumnItem][i]),
			Color:    strings.TrimSpace(values[models.ColumnColor][i]),
			Category: strings.TrimSpace(values[models.ColumnCategory][i]),
			Gender:   strings.TrimSpace(values[models.ColumnGender][i]),
			Size:     strings.TrimSpace(values[models.ColumnSize][i]),
			Season:   strings.TrimSpace(values[models.ColumnSeason][i]),
		}
		if r.Amount, err = parseFloat(values[models.ColumnAmount][i]); err != nil {
			return nil, "", &LoadError{Source: source, Row: i + 1, Column: cols[models.ColumnAmount], Err: err}
		}
		if r.Rating, err = parseFloat(values[models.ColumnRating][i]); err != nil {
			return nil, "", &LoadError{Source: source, Row: i + 1, Column: cols[models.ColumnRating], Err: err}
		}
		if r.Age, err = parseAge(values[models.ColumnAge][i]); err != nil {
			return nil, "", &LoadError{Source: source, Row: i + 1, Column: cols[models.ColumnAge], Err: err}
		}
		records[i] = r
	}
	return records, currency, nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedValue, s)
	}
	return v, nil
}

// maxAge bounds the customer age column; anything beyond it is a data error.
const maxAge = 200

// parseAge accepts integral floats such as "30.0", which spreadsheet exports produce.
func parseAge(s string) (int, error) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < 0 || f > maxAge {
		return 0, fmt.Errorf("%w: %q", ErrMalformedValue, s)
	}
	return int(f), nil
}
