package probability

import (
	"github.com/pkg/errors"
)

// DefaultClass is the reserved column that stands in for every type the table has never mapped.
const DefaultClass = "_default"

// MappedTable is a Table whose columns are addressed by object type name. Column 0 always belongs to
// DefaultClass. The name index only grows: once a type has a column, that column never moves.
//
// Raw counts are kept separately from the normalized snapshot that Probability reads, so learning
// can keep accumulating exact counts after a Normalize.
type MappedTable struct {
	counts     *Table
	normalized *Table
	index      map[string]int
	types      []string
}

// NewMappedTable returns an empty table with the given number of rows and only the default column.
func NewMappedTable(rows int) (*MappedTable, error) {
	counts, err := NewTable(rows, 1)
	if err != nil {
		return nil, err
	}
	return &MappedTable{
		counts:     counts,
		normalized: counts.Clone(),
		index:      map[string]int{DefaultClass: 0},
		types:      []string{DefaultClass},
	}, nil
}

// AddColumn maps typeName to a new column unless it is already mapped, and returns its column.
func (mt *MappedTable) AddColumn(typeName string) int {
	if idx, ok := mt.index[typeName]; ok {
		return idx
	}
	idx := mt.counts.AddColumn()
	mt.normalized.AddColumn()
	mt.index[typeName] = idx
	mt.types = append(mt.types, typeName)
	return idx
}

// Increment adds amount to the counter of typeName in row. Unmapped types get their own column.
func (mt *MappedTable) Increment(row int, typeName string, amount float64) error {
	if err := mt.counts.check(row, 0); err != nil {
		return err
	}
	return mt.counts.Increment(row, mt.AddColumn(typeName), amount)
}

// SetDefaultClassCounter sets the prior mass reserved in row for types that were never observed.
func (mt *MappedTable) SetDefaultClassCounter(row int, count float64) error {
	return mt.counts.Set(row, 0, count)
}

// Probability returns the normalized value of typeName in row as of the last Normalize. Types that
// were never mapped read the default class.
func (mt *MappedTable) Probability(row int, typeName string) (float64, error) {
	idx, ok := mt.index[typeName]
	if !ok {
		idx = 0
	}
	return mt.normalized.Get(row, idx)
}

// Count returns the raw counter of typeName in row, or the default class counter if it is unmapped.
func (mt *MappedTable) Count(row int, typeName string) (float64, error) {
	idx, ok := mt.index[typeName]
	if !ok {
		idx = 0
	}
	return mt.counts.Get(row, idx)
}

// Normalize rebuilds the probability snapshot from the raw counts.
func (mt *MappedTable) Normalize() {
	mt.normalized = mt.counts.Clone()
	mt.normalized.Normalize()
}

// Types returns the mapped type names in column order, DefaultClass first.
func (mt *MappedTable) Types() []string {
	return append([]string(nil), mt.types...)
}

// ColumnIndex returns the column of typeName.
func (mt *MappedTable) ColumnIndex(typeName string) (int, bool) {
	idx, ok := mt.index[typeName]
	return idx, ok
}

// Contains returns whether typeName has a column of its own.
func (mt *MappedTable) Contains(typeName string) bool {
	_, ok := mt.index[typeName]
	return ok && typeName != DefaultClass
}

// RowCount returns the number of rows.
func (mt *MappedTable) RowCount() int {
	return mt.counts.RowCount()
}

// ColumnCount returns the number of columns including the default column.
func (mt *MappedTable) ColumnCount() int {
	return mt.counts.ColumnCount()
}

// Clone returns a deep copy.
func (mt *MappedTable) Clone() *MappedTable {
	index := make(map[string]int, len(mt.index))
	for k, v := range mt.index {
		index[k] = v
	}
	return &MappedTable{
		counts:     mt.counts.Clone(),
		normalized: mt.normalized.Clone(),
		index:      index,
		types:      mt.Types(),
	}
}

// Entry is the persisted form of one column: a type name and its raw count in every row.
type Entry struct {
	Type   string
	Counts []float64
}

// Entries returns one Entry per column in column order.
func (mt *MappedTable) Entries() []Entry {
	entries := make([]Entry, 0, len(mt.types))
	for col, name := range mt.types {
		counts := make([]float64, mt.RowCount())
		for row := range counts {
			counts[row] = mt.counts.rows[row][col]
		}
		entries = append(entries, Entry{Type: name, Counts: counts})
	}
	return entries
}

// NewMappedTableFromEntries rebuilds a table from persisted entries and normalizes it. The default
// class may appear anywhere in entries or not at all; it always ends up in column 0.
func NewMappedTableFromEntries(rows int, entries []Entry) (*MappedTable, error) {
	mt, err := NewMappedTable(rows)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, e := range entries {
		if e.Type == "" {
			return nil, errors.Wrap(ErrInvalidArgument, "entry without a type")
		}
		if seen[e.Type] {
			return nil, errors.Wrapf(ErrInvalidArgument, "duplicate entry for type %q", e.Type)
		}
		seen[e.Type] = true
		if len(e.Counts) > rows {
			return nil, errors.Wrapf(ErrOutOfRange, "entry %q has %d counts for %d rows", e.Type, len(e.Counts), rows)
		}
		col := mt.AddColumn(e.Type)
		for row, v := range e.Counts {
			if v < 0 {
				return nil, errors.Wrapf(ErrInvalidArgument, "negative count %v for type %q", v, e.Type)
			}
			if err := mt.counts.Set(row, col, v); err != nil {
				return nil, err
			}
		}
	}
	mt.Normalize()
	return mt, nil
}
