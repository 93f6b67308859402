// Package probability holds the counter tables that scene models learn into and query from.
package probability

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/psm/utils"
)

var (
	// ErrInvalidArgument is returned when a table is created with no rows or no columns.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrOutOfRange is returned when a row or column index is outside the table.
	ErrOutOfRange = errors.New("index out of range")
)

// Table is a dense rows x columns grid of non-negative counters. After Normalize every row with a
// nonzero sum sums to 1. Rows that sum to zero stay all-zero; they are not spread uniformly.
//
// A Table is not safe for concurrent use.
type Table struct {
	rows    [][]float64
	columns int
}

// NewTable returns a zero-filled table.
func NewTable(rows, columns int) (*Table, error) {
	if rows <= 0 || columns <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "table must have rows and columns, got %dx%d", rows, columns)
	}
	t := &Table{rows: make([][]float64, rows), columns: columns}
	for i := range t.rows {
		t.rows[i] = make([]float64, columns)
	}
	return t, nil
}

func (t *Table) check(row, column int) error {
	if row < 0 || row >= len(t.rows) {
		return errors.Wrap(ErrOutOfRange, utils.NewOutOfRangeError("row", row, len(t.rows)).Error())
	}
	if column < 0 || column >= t.columns {
		return errors.Wrap(ErrOutOfRange, utils.NewOutOfRangeError("column", column, t.columns).Error())
	}
	return nil
}

// Increment adds amount to a cell.
func (t *Table) Increment(row, column int, amount float64) error {
	if err := t.check(row, column); err != nil {
		return err
	}
	t.rows[row][column] += amount
	return nil
}

// Set overwrites a cell.
func (t *Table) Set(row, column int, value float64) error {
	if err := t.check(row, column); err != nil {
		return err
	}
	t.rows[row][column] = value
	return nil
}

// Get returns a raw count or, after Normalize, a probability.
func (t *Table) Get(row, column int) (float64, error) {
	if err := t.check(row, column); err != nil {
		return 0, err
	}
	return t.rows[row][column], nil
}

// Row returns a copy of a row.
func (t *Table) Row(row int) ([]float64, error) {
	if err := t.check(row, 0); err != nil {
		return nil, err
	}
	return append([]float64(nil), t.rows[row]...), nil
}

// Normalize divides every cell by its row sum.
func (t *Table) Normalize() {
	for _, row := range t.rows {
		sum := floats.Sum(row)
		if sum == 0 {
			continue
		}
		floats.Scale(1/sum, row)
	}
}

// AddColumn appends a zero column and returns its index. Existing indices do not move.
func (t *Table) AddColumn() int {
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], 0)
	}
	t.columns++
	return t.columns - 1
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.rows)
}

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int {
	return t.columns
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := &Table{rows: make([][]float64, len(t.rows)), columns: t.columns}
	for i, row := range t.rows {
		c.rows[i] = append([]float64(nil), row...)
	}
	return c
}
