package probability

import (
	"encoding/xml"
	"io"

	"github.com/pkg/errors"
)

// TableNode is the XML form of a MappedTable:
//
//	<table rows="2"><entry type="Cup"><count row="0" value="3"/><count row="1" value="1"/></entry></table>
//
// The element name comes from the enclosing field, so the same node is used for every table in a
// model document.
type TableNode struct {
	Rows    int         `xml:"rows,attr"`
	Entries []EntryNode `xml:"entry"`
}

// EntryNode is one column of a TableNode.
type EntryNode struct {
	Type   string      `xml:"type,attr"`
	Counts []CountNode `xml:"count"`
}

// CountNode is one cell of an EntryNode. Rows not listed are zero.
type CountNode struct {
	Row   int     `xml:"row,attr"`
	Value float64 `xml:"value,attr"`
}

// ToNode converts the raw counts of the table into its XML form. Zero cells are omitted.
func (mt *MappedTable) ToNode() TableNode {
	node := TableNode{Rows: mt.RowCount()}
	for _, e := range mt.Entries() {
		entry := EntryNode{Type: e.Type}
		for row, v := range e.Counts {
			if v != 0 {
				entry.Counts = append(entry.Counts, CountNode{Row: row, Value: v})
			}
		}
		node.Entries = append(node.Entries, entry)
	}
	return node
}

// NewMappedTableFromNode rebuilds a table from its XML form.
func NewMappedTableFromNode(node TableNode) (*MappedTable, error) {
	entries := make([]Entry, 0, len(node.Entries))
	for _, en := range node.Entries {
		e := Entry{Type: en.Type, Counts: make([]float64, max(node.Rows, 0))}
		for _, c := range en.Counts {
			if c.Row < 0 || c.Row >= node.Rows {
				return nil, errors.Wrapf(ErrOutOfRange, "count for type %q in row %d of %d", en.Type, c.Row, node.Rows)
			}
			e.Counts[c.Row] += c.Value
		}
		entries = append(entries, e)
	}
	return NewMappedTableFromEntries(node.Rows, entries)
}

type tableDocument struct {
	XMLName xml.Name `xml:"table"`
	TableNode
}

// Save writes the table as a standalone XML document.
func (mt *MappedTable) Save(w io.Writer) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(tableDocument{TableNode: mt.ToNode()}); err != nil {
		return errors.Wrap(err, "cannot encode table")
	}
	return enc.Flush()
}

// LoadMappedTable reads a table written by Save.
func LoadMappedTable(r io.Reader) (*MappedTable, error) {
	var doc tableDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "cannot decode table")
	}
	return NewMappedTableFromNode(doc.TableNode)
}
