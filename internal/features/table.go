// Package features turns a price series into the feature table used to
// train and query the horizon models.
package features

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ajitpratap0/tradepro/internal/indicators"
)

var (
	// ErrFeatureDrift means a frozen feature column is absent from (or
	// entirely undefined in) the live table.
	ErrFeatureDrift = errors.New("feature set drifted from frozen columns")
	// ErrIncompleteRow means the requested row has missing values in a
	// frozen column.
	ErrIncompleteRow = errors.New("feature row incomplete")
)

// Raw columns copied from the bars. They are never model inputs.
const (
	ColOpen   = "open"
	ColHigh   = "high"
	ColLow    = "low"
	ColClose  = "close"
	ColVolume = "volume"
	ColTarget = "target"
)

var excluded = map[string]bool{
	"date":    true,
	ColTarget: true,
	ColOpen:   true,
	ColHigh:   true,
	ColLow:    true,
	ColClose:  true,
	ColVolume: true,
}

// Table is a column store aligned with the source bars.
type Table struct {
	Timestamps []time.Time
	order      []string
	cols       map[string][]float64
}

func newTable(ts []time.Time) *Table {
	return &Table{Timestamps: ts, cols: make(map[string][]float64)}
}

func (t *Table) add(name string, values []float64) {
	if _, ok := t.cols[name]; !ok {
		t.order = append(t.order, name)
	}
	t.cols[name] = values
}

// Len is the number of rows.
func (t *Table) Len() int {
	return len(t.Timestamps)
}

// Columns returns every column name in derivation order, raw columns first.
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Column returns the values of name.
func (t *Table) Column(name string) ([]float64, bool) {
	v, ok := t.cols[name]
	return v, ok
}

// Latest returns the last value of name, or NaN.
func (t *Table) Latest(name string) float64 {
	v, ok := t.cols[name]
	if !ok {
		return math.NaN()
	}
	return indicators.Last(v)
}

// FeatureColumns lists the derived columns usable as model inputs: raw and
// target columns are excluded, as is any column with no defined value.
func (t *Table) FeatureColumns() []string {
	var out []string
	for _, name := range t.order {
		if excluded[name] || allMissing(t.cols[name]) {
			continue
		}
		out = append(out, name)
	}
	return out
}

func allMissing(values []float64) bool {
	for _, v := range values {
		if !indicators.IsMissing(v) {
			return false
		}
	}
	return true
}

// Dataset is a dense design matrix. Rows keep their chronological order.
type Dataset struct {
	Columns []string
	X       [][]float64
	Y       []float64
	// Rows maps each sample back to its table row.
	Rows []int
}

// Len is the number of samples.
func (d *Dataset) Len() int {
	return len(d.Y)
}

// Split cuts the dataset chronologically: the first int(frac*n) samples
// train, the rest test.
func (d *Dataset) Split(frac float64) (train, test *Dataset) {
	cut := int(float64(d.Len()) * frac)
	train = &Dataset{Columns: d.Columns, X: d.X[:cut], Y: d.Y[:cut], Rows: d.Rows[:cut]}
	test = &Dataset{Columns: d.Columns, X: d.X[cut:], Y: d.Y[cut:], Rows: d.Rows[cut:]}
	return train, test
}

// TrainingSet appends the forward return at horizon as the target and
// returns every row whose features and target are all defined.
func TrainingSet(t *Table, horizon int) (*Dataset, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	closes, ok := t.Column(ColClose)
	if !ok {
		return nil, fmt.Errorf("table has no %s column", ColClose)
	}

	target := indicators.PctChange(closes, horizon)
	target = indicators.Shift(target, -horizon)

	cols := t.FeatureColumns()
	ds := &Dataset{Columns: cols}
	for i := 0; i < t.Len(); i++ {
		if indicators.IsMissing(target[i]) {
			continue
		}
		row, ok := t.row(cols, i)
		if !ok {
			continue
		}
		ds.X = append(ds.X, row)
		ds.Y = append(ds.Y, target[i])
		ds.Rows = append(ds.Rows, i)
	}
	return ds, nil
}

func (t *Table) row(cols []string, i int) ([]float64, bool) {
	row := make([]float64, len(cols))
	for j, name := range cols {
		v := t.cols[name][i]
		if indicators.IsMissing(v) {
			return nil, false
		}
		row[j] = v
	}
	return row, true
}

func (t *Table) checkFrozen(frozen []string) error {
	for _, name := range frozen {
		values, ok := t.cols[name]
		if !ok || excluded[name] || allMissing(values) {
			return fmt.Errorf("%w: column %q", ErrFeatureDrift, name)
		}
	}
	return nil
}

// LatestRow returns the final table row projected onto frozen, in that
// order.
func LatestRow(t *Table, frozen []string) ([]float64, error) {
	if err := t.checkFrozen(frozen); err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrIncompleteRow)
	}
	row, ok := t.row(frozen, t.Len()-1)
	if !ok {
		return nil, fmt.Errorf("%w: latest row has missing values", ErrIncompleteRow)
	}
	return row, nil
}

// LatestDenseRow returns the most recent row that is fully defined over
// frozen, with its row index.
func LatestDenseRow(t *Table, frozen []string) ([]float64, int, error) {
	if err := t.checkFrozen(frozen); err != nil {
		return nil, -1, err
	}
	for i := t.Len() - 1; i >= 0; i-- {
		if row, ok := t.row(frozen, i); ok {
			return row, i, nil
		}
	}
	return nil, -1, fmt.Errorf("%w: no dense row", ErrIncompleteRow)
}
