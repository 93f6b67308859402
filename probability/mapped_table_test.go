package probability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func kitchenTable(t *testing.T) *MappedTable {
	t.Helper()
	mt, err := NewMappedTable(2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mt.Increment(0, "Cup", 3), test.ShouldBeNil)
	test.That(t, mt.Increment(1, "Cup", 1), test.ShouldBeNil)
	test.That(t, mt.Increment(1, "Plate", 2), test.ShouldBeNil)
	test.That(t, mt.SetDefaultClassCounter(0, 1), test.ShouldBeNil)
	test.That(t, mt.SetDefaultClassCounter(1, 1), test.ShouldBeNil)
	mt.Normalize()
	return mt
}

func TestMappedTableColumns(t *testing.T) {
	mt, err := NewMappedTable(2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mt.Types(), test.ShouldResemble, []string{DefaultClass})

	test.That(t, mt.AddColumn("Cup"), test.ShouldEqual, 1)
	test.That(t, mt.AddColumn("Plate"), test.ShouldEqual, 2)
	test.That(t, mt.AddColumn("Cup"), test.ShouldEqual, 1)
	test.That(t, mt.ColumnCount(), test.ShouldEqual, 3)
	test.That(t, mt.Types(), test.ShouldResemble, []string{DefaultClass, "Cup", "Plate"})
	test.That(t, mt.Contains("Cup"), test.ShouldBeTrue)
	test.That(t, mt.Contains(DefaultClass), test.ShouldBeFalse)

	test.That(t, mt.Increment(0, "Fork", 1), test.ShouldBeNil)
	idx, ok := mt.ColumnIndex("Fork")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, idx, test.ShouldEqual, 3)

	test.That(t, errors.Is(mt.Increment(2, "Knife", 1), ErrOutOfRange), test.ShouldBeTrue)
	_, ok = mt.ColumnIndex("Knife")
	test.That(t, ok, test.ShouldBeFalse)

	_, err = NewMappedTable(0)
	test.That(t, errors.Is(err, ErrInvalidArgument), test.ShouldBeTrue)
}

func TestMappedTableProbability(t *testing.T) {
	mt := kitchenTable(t)

	p, err := mt.Probability(0, "Cup")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p, test.ShouldAlmostEqual, 0.75)

	p, err = mt.Probability(1, "Plate")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p, test.ShouldAlmostEqual, 0.5)

	for row := 0; row < 2; row++ {
		unknown, err := mt.Probability(row, "Spaceship")
		test.That(t, err, test.ShouldBeNil)
		def, err := mt.Probability(row, DefaultClass)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, unknown, test.ShouldEqual, def)
	}

	_, err = mt.Probability(5, "Cup")
	test.That(t, errors.Is(err, ErrOutOfRange), test.ShouldBeTrue)

	// Counts keep accumulating exactly; probabilities move only on Normalize.
	test.That(t, mt.Increment(0, "Cup", 4), test.ShouldBeNil)
	c, err := mt.Count(0, "Cup")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c, test.ShouldEqual, 7.)
	p, err = mt.Probability(0, "Cup")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p, test.ShouldAlmostEqual, 0.75)
	mt.Normalize()
	p, err = mt.Probability(0, "Cup")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p, test.ShouldAlmostEqual, 7./8)
}

func TestMappedTableRoundTrip(t *testing.T) {
	mt := kitchenTable(t)

	var buf bytes.Buffer
	test.That(t, mt.Save(&buf), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, `<entry type="Plate">`)

	loaded, err := LoadMappedTable(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loaded.Types(), test.ShouldResemble, mt.Types())
	test.That(t, loaded.Entries(), test.ShouldResemble, mt.Entries())
	for _, name := range mt.Types() {
		for row := 0; row < mt.RowCount(); row++ {
			want, err := mt.Probability(row, name)
			test.That(t, err, test.ShouldBeNil)
			got, err := loaded.Probability(row, name)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, got, test.ShouldEqual, want)
		}
	}

	clone := mt.Clone()
	clone.AddColumn("Fork")
	test.That(t, mt.Contains("Fork"), test.ShouldBeFalse)
}

func TestLoadMappedTableErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
		err  error
	}{
		{"no rows", `<table rows="0"></table>`, ErrInvalidArgument},
		{"duplicate", `<table rows="1"><entry type="Cup"/><entry type="Cup"/></table>`, ErrInvalidArgument},
		{"untyped", `<table rows="1"><entry/></table>`, ErrInvalidArgument},
		{"bad row", `<table rows="1"><entry type="Cup"><count row="1" value="2"/></entry></table>`, ErrOutOfRange},
		{"negative", `<table rows="1"><entry type="Cup"><count row="0" value="-2"/></entry></table>`, ErrInvalidArgument},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadMappedTable(strings.NewReader(tc.doc))
			test.That(t, errors.Is(err, tc.err), test.ShouldBeTrue)
		})
	}

	_, err := LoadMappedTable(strings.NewReader(`<table rows="1"`))
	test.That(t, err, test.ShouldNotBeNil)

	// The default class is moved to column 0 wherever it is listed.
	mt, err := LoadMappedTable(strings.NewReader(
		`<table rows="1"><entry type="Cup"><count row="0" value="1"/></entry><entry type="_default"><count row="0" value="3"/></entry></table>`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mt.Types(), test.ShouldResemble, []string{DefaultClass, "Cup"})
	p, err := mt.Probability(0, "Unseen")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p, test.ShouldAlmostEqual, 0.75)
}
