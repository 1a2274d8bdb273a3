// Package dataset holds the in-memory numeric table the regression engine
// consumes, and the readers that build it from delimited text files.
//
// A table row is one recording: every column before the trailing target
// block is a feature, the target block holds one or two coordinates
// (latitude, then longitude).
package dataset

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/geofit/pkg/errors"
)

// Target selects which trailing column is regressed.
type Target int

const (
	// Latitude is the first target column.
	Latitude Target = iota
	// Longitude is the second target column.
	Longitude
)

func (t Target) String() string {
	switch t {
	case Latitude:
		return "latitude"
	case Longitude:
		return "longitude"
	default:
		return fmt.Sprintf("target(%d)", int(t))
	}
}

// ParseTarget accepts "latitude"/"lat" and "longitude"/"lon"/"lng".
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "latitude", "lat":
		return Latitude, nil
	case "longitude", "lon", "lng", "long":
		return Longitude, nil
	default:
		return Latitude, errors.NewValidationError("target", "must be latitude or longitude", s)
	}
}

// Table is a read-only numeric table. Accessors return copies.
type Table struct {
	data     *mat.Dense
	nTargets int
	header   []string
	source   string
}

// NewTable wraps data whose last nTargets columns are targets. data must be
// non-empty, finite and have at least one feature column. The table keeps
// its own copy of data.
func NewTable(data mat.Matrix, nTargets int) (*Table, error) {
	const op = "dataset.NewTable"

	if data == nil {
		return nil, errors.NewEmptyInputError(op)
	}
	if nTargets != 1 && nTargets != 2 {
		return nil, errors.NewValidationError("targets", "must be 1 or 2", nTargets)
	}
	r, c := data.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewEmptyInputError(op)
	}
	if c <= nTargets {
		return nil, errors.NewValueError(op, fmt.Sprintf("need at least %d columns for %d target(s), got %d", nTargets+1, nTargets, c))
	}
	if err := errors.CheckMatrix(op, data); err != nil {
		return nil, err
	}

	return &Table{data: mat.DenseCopyOf(data), nTargets: nTargets}, nil
}

// Rows returns the number of samples.
func (t *Table) Rows() int {
	r, _ := t.data.Dims()
	return r
}

// Cols returns the total column count (features + targets).
func (t *Table) Cols() int {
	_, c := t.data.Dims()
	return c
}

// NumFeatures returns the number of feature columns.
func (t *Table) NumFeatures() int {
	return t.Cols() - t.nTargets
}

// NumTargets returns how many trailing target columns the table has.
func (t *Table) NumTargets() int {
	return t.nTargets
}

// Targets lists the targets available in this table, in column order.
func (t *Table) Targets() []Target {
	if t.nTargets == 1 {
		return []Target{Latitude}
	}
	return []Target{Latitude, Longitude}
}

// Header returns the column names when the source file had a header row.
func (t *Table) Header() []string {
	if t.header == nil {
		return nil
	}
	out := make([]string, len(t.header))
	copy(out, t.header)
	return out
}

// Source returns the path or name the table was read from.
func (t *Table) Source() string {
	return t.source
}

// At returns a single cell.
func (t *Table) At(i, j int) float64 {
	return t.data.At(i, j)
}

// TargetColumn returns the column index of target.
func (t *Table) TargetColumn(target Target) (int, error) {
	idx := int(target)
	if idx < 0 || idx >= t.nTargets {
		return 0, errors.NewValidationError("target", fmt.Sprintf("table has %d target column(s)", t.nTargets), target.String())
	}
	return t.NumFeatures() + idx, nil
}

// Slice returns copies of the feature rows [start, end) and the matching
// target values.
func (t *Table) Slice(target Target, start, end int) (*mat.Dense, *mat.VecDense, error) {
	col, err := t.TargetColumn(target)
	if err != nil {
		return nil, nil, err
	}
	if start < 0 || end > t.Rows() || start > end {
		return nil, nil, errors.NewValueError("dataset.Slice", fmt.Sprintf("row range [%d, %d) outside [0, %d)", start, end, t.Rows()))
	}
	if start == end {
		return nil, nil, errors.NewEmptyInputError("dataset.Slice")
	}

	X := mat.DenseCopyOf(t.data.Slice(start, end, 0, t.NumFeatures()))
	y := mat.NewVecDense(end-start, nil)
	for i := start; i < end; i++ {
		y.SetVec(i-start, t.data.At(i, col))
	}
	return X, y, nil
}

// Gather returns copies of the given rows, in the given order.
func (t *Table) Gather(target Target, rows []int) (*mat.Dense, *mat.VecDense, error) {
	col, err := t.TargetColumn(target)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, errors.NewEmptyInputError("dataset.Gather")
	}

	nf := t.NumFeatures()
	X := mat.NewDense(len(rows), nf, nil)
	y := mat.NewVecDense(len(rows), nil)
	for i, r := range rows {
		if r < 0 || r >= t.Rows() {
			return nil, nil, errors.NewValueError("dataset.Gather", fmt.Sprintf("row %d outside [0, %d)", r, t.Rows()))
		}
		X.SetRow(i, t.data.RawRowView(r)[:nf])
		y.SetVec(i, t.data.At(r, col))
	}
	return X, y, nil
}
