package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumns means the source header lacks one or more required columns.
	ErrMissingColumns = errors.New("missing required columns")
	// ErrUnsupportedFormat means the source format could not be determined or is not supported.
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	// ErrMalformedValue means a numeric cell could not be parsed.
	ErrMalformedValue = errors.New("malformed value")
	// ErrInvalidTable means the SQLite table name is not a plain identifier.
	ErrInvalidTable = errors.New("invalid table name")
)

// LoadError reports a dataset source that is missing, malformed, or lacks required columns.
// Row is the 1-based data row (header excluded) when the failure is tied to a cell.
type LoadError struct {
	Source string
	Row    int
	Column string
	Err    error
}

func (e *LoadError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("load %s: row %d, column %q: %v", e.Source, e.Row, e.Column, e.Err)
	case e.Column != "":
		return fmt.Sprintf("load %s: column %q: %v", e.Source, e.Column, e.Err)
	default:
		return fmt.Sprintf("load %s: %v", e.Source, e.Err)
	}
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
