// Package query provides the filter operations over a loaded dataset.
package query

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/kaimono/internal/dataset"
	"github.com/hyperjump/kaimono/internal/models"
	"go.uber.org/zap"
)

// checkEvery is how many records are scanned between context checks.
const checkEvery = 1024

// Engine runs filter operations against one immutable dataset.
// Operations only read the dataset, so an Engine is safe for concurrent use.
type Engine struct {
	ds     *dataset.Dataset
	logger *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger; each query is logged at debug level.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine over ds.
func NewEngine(ds *dataset.Dataset, opts ...EngineOption) *Engine {
	e := &Engine{ds: ds, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dataset returns the dataset the engine reads.
func (e *Engine) Dataset() *dataset.Dataset {
	return e.ds
}

// plan describes how matched records are ordered, projected and reported.
type plan struct {
	op      models.Operation
	less    func(a, b models.Record) bool // nil keeps dataset order
	noMatch string
}

// execute scans the dataset with match and builds the result described by p.
func (e *Engine) execute(ctx context.Context, p plan, match func(i int) bool) (*models.Result, error) {
	start := time.Now()
	positions, err := e.scan(ctx, match)
	if err != nil {
		return nil, err
	}
	if p.less != nil {
		sort.SliceStable(positions, func(a, b int) bool {
			return p.less(e.ds.Record(positions[a]), e.ds.Record(positions[b]))
		})
	}

	columns := Projection(p.op)
	result := &models.Result{
		Operation: p.op,
		Columns:   columns,
		Rows:      make([]models.Row, 0, len(positions)),
		Total:     len(positions),
	}
	for _, pos := range positions {
		result.Rows = append(result.Rows, models.Row{Index: pos, Values: Project(e.ds.Record(pos), columns)})
	}
	if result.Empty() {
		result.Message = p.noMatch
	}
	elapsed := time.Since(start)
	result.QueryTime = elapsed.Milliseconds()
	e.logger.Debug("query executed",
		zap.String("operation", string(p.op)),
		zap.Int("matches", result.Total),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}

// scan returns the positions of matching records in dataset order.
func (e *Engine) scan(ctx context.Context, match func(i int) bool) ([]int, error) {
	var out []int
	for i := 0; i < e.ds.Len(); i++ {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if match(i) {
			out = append(out, i)
		}
	}
	return out, nil
}

func (e *Engine) rejected(op models.Operation, err error) error {
	e.logger.Debug("query rejected", zap.String("operation", string(op)), zap.Error(err))
	return err
}

func (e *Engine) equals(i int, c models.Column, folded string) bool {
	return e.ds.Folded(i, c) == folded
}

func (e *Engine) contains(i int, c models.Column, folded string) bool {
	return strings.Contains(e.ds.Folded(i, c), folded)
}

// Project returns the display values of r for columns, in column order.
func Project(r models.Record, columns []models.Column) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = r.Value(c)
	}
	return out
}

// display is the form user input takes in messages.
func display(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
