// Package cli renders query results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperjump/kaimono/internal/models"
	"github.com/hyperjump/kaimono/pkg/utils"
	"github.com/olekukonko/tablewriter"
)

// OutputFormat is the format for query result output.
type OutputFormat string

const (
	// OutputText is a human-readable table (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one tab-separated row per line, without decoration.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// MaxCellWidth bounds the width of a text table cell.
const MaxCellWidth = 48

// ParseOutputFormat returns the format named by s.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return OutputText, nil
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, compact or json)", s)
}

// Options tune result rendering.
type Options struct {
	// Index prepends each row's dataset position.
	Index bool
}

// WriteResult writes result to w in the given format.
// Unknown formats fall back to text.
func WriteResult(w io.Writer, result *models.Result, format OutputFormat, opts Options) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case OutputCompact:
		return writeCompact(w, result, opts)
	default:
		return writeText(w, result, opts)
	}
}

func writeText(w io.Writer, result *models.Result, opts Options) error {
	if result.Empty() {
		_, err := fmt.Fprintln(w, result.Message)
		return err
	}
	fmt.Fprintf(w, "\nFound %d records in %dms\n\n", result.Total, result.QueryTime)

	table := tablewriter.NewWriter(w)
	table.SetHeader(header(result, opts))
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	for _, row := range result.Rows {
		cells := make([]string, 0, len(row.Values)+1)
		if opts.Index {
			cells = append(cells, strconv.Itoa(row.Index))
		}
		for _, v := range row.Values {
			cells = append(cells, utils.Truncate(v, MaxCellWidth))
		}
		table.Append(cells)
	}
	table.Render()
	return nil
}

func writeCompact(w io.Writer, result *models.Result, opts Options) error {
	if result.Empty() {
		_, err := fmt.Fprintln(w, result.Message)
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Join(header(result, opts), "\t")); err != nil {
		return err
	}
	for _, row := range result.Rows {
		line := strings.Join(row.Values, "\t")
		if opts.Index {
			line = strconv.Itoa(row.Index) + "\t" + line
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func header(result *models.Result, opts Options) []string {
	out := make([]string, 0, len(result.Columns)+1)
	if opts.Index {
		out = append(out, "Index")
	}
	for _, c := range result.Columns {
		out = append(out, string(c))
	}
	return out
}

// WriteDatasetInfo writes a dataset summary to w. Text output lists each facet
// with its distinct values.
func WriteDatasetInfo(w io.Writer, info *models.DatasetInfo, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintf(w, "Source:   %s\n", info.Source)
	fmt.Fprintf(w, "Format:   %s\n", info.Format)
	fmt.Fprintf(w, "Records:  %d\n", info.Records)
	if info.Currency != "" {
		fmt.Fprintf(w, "Currency: %s\n", info.Currency)
	}
	if len(info.Facets) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Column", "Values"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, c := range models.TextColumns {
		values, ok := info.Facets[string(c)]
		if !ok {
			continue
		}
		table.Append([]string{string(c), utils.Truncate(strings.Join(values, ", "), 2*MaxCellWidth)})
	}
	table.Render()
	return nil
}
