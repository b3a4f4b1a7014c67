package models

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
)

// Table is an aligned set of columns over a shared, strictly increasing
// date axis. Every column has exactly one Value per date.
//
// Tables are treated as immutable once built: transforms return new
// tables and accessors hand out copies.
type Table struct {
	dates []Date
	names []string
	cols  map[string][]Value
}

// NewTable creates a table with the given date axis and no columns.
// The dates are copied; callers must pass them sorted and unique.
func NewTable(dates []Date) *Table {
	return &Table{
		dates: slices.Clone(dates),
		cols:  make(map[string][]Value),
	}
}

// AddColumn appends a column. vals is copied.
func (t *Table) AddColumn(name string, vals []Value) error {
	if len(vals) != len(t.dates) {
		return fmt.Errorf("column %q has %d values for %d dates", name, len(vals), len(t.dates))
	}
	if _, dup := t.cols[name]; dup {
		return fmt.Errorf("column %q already exists", name)
	}
	t.names = append(t.names, name)
	t.cols[name] = slices.Clone(vals)
	return nil
}

// MustAddColumn is AddColumn for callers that built vals from t's own axis.
func (t *Table) MustAddColumn(name string, vals []Value) {
	if err := t.AddColumn(name, vals); err != nil {
		panic(err)
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.dates) }

// Empty reports whether the table has no rows or no columns.
func (t *Table) Empty() bool { return len(t.dates) == 0 || len(t.names) == 0 }

// Dates returns a copy of the date axis.
func (t *Table) Dates() []Date { return slices.Clone(t.dates) }

// Date returns the date of row i.
func (t *Table) Date(i int) Date { return t.dates[i] }

// First and Last return the axis bounds; both are zero for an empty table.
func (t *Table) First() Date {
	if len(t.dates) == 0 {
		return Date{}
	}
	return t.dates[0]
}

func (t *Table) Last() Date {
	if len(t.dates) == 0 {
		return Date{}
	}
	return t.dates[len(t.dates)-1]
}

// Columns returns column names in insertion order.
func (t *Table) Columns() []string { return slices.Clone(t.names) }

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]Value, bool) {
	c, ok := t.cols[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(c), true
}

// At returns the cell at row i of column name, or Missing if the column does not exist.
func (t *Table) At(name string, i int) Value {
	c, ok := t.cols[name]
	if !ok {
		return Missing()
	}
	return c[i]
}

// Index returns the row of d, or -1.
func (t *Table) Index(d Date) int {
	i := sort.Search(len(t.dates), func(i int) bool { return !t.dates[i].Before(d) })
	if i < len(t.dates) && t.dates[i] == d {
		return i
	}
	return -1
}

// Floor returns the last row dated on or before d, or -1.
func (t *Table) Floor(d Date) int {
	return sort.Search(len(t.dates), func(i int) bool { return t.dates[i].After(d) }) - 1
}

// Nearest returns the row whose date is closest to d, preferring the
// earlier row on ties. It returns -1 for an empty table.
func (t *Table) Nearest(d Date) int {
	n := len(t.dates)
	if n == 0 {
		return -1
	}
	i := sort.Search(n, func(i int) bool { return !t.dates[i].Before(d) })
	switch {
	case i == 0:
		return 0
	case i == n:
		return n - 1
	}
	if d.DaysSince(t.dates[i-1]) <= t.dates[i].DaysSince(d) {
		return i - 1
	}
	return i
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := NewTable(t.dates)
	for _, n := range t.names {
		out.MustAddColumn(n, t.cols[n])
	}
	return out
}

// Select returns a table with only the named columns that exist, in the given order.
func (t *Table) Select(names ...string) *Table {
	out := NewTable(t.dates)
	for _, n := range names {
		if c, ok := t.cols[n]; ok && !out.Has(n) {
			out.MustAddColumn(n, c)
		}
	}
	return out
}

// FilterRows returns a table keeping only rows for which keep returns true.
func (t *Table) FilterRows(keep func(i int) bool) *Table {
	var idx []int
	for i := range t.dates {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	dates := make([]Date, len(idx))
	for j, i := range idx {
		dates[j] = t.dates[i]
	}
	out := NewTable(dates)
	for _, n := range t.names {
		src := t.cols[n]
		vals := make([]Value, len(idx))
		for j, i := range idx {
			vals[j] = src[i]
		}
		out.MustAddColumn(n, vals)
	}
	return out
}

// RowEmpty reports whether every column is non-numeric at row i.
func (t *Table) RowEmpty(i int) bool {
	for _, n := range t.names {
		if t.cols[n][i].IsNumber() {
			return false
		}
	}
	return true
}

// DropEmptyRows removes rows where no column holds a number.
func (t *Table) DropEmptyRows() *Table {
	return t.FilterRows(func(i int) bool { return !t.RowEmpty(i) })
}

// Between keeps rows with from <= date <= to. A zero bound is open.
func (t *Table) Between(from, to Date) *Table {
	return t.FilterRows(func(i int) bool {
		d := t.dates[i]
		if !from.IsZero() && d.Before(from) {
			return false
		}
		if !to.IsZero() && d.After(to) {
			return false
		}
		return true
	})
}

// FirstValid returns the row and value of the first numeric cell in a column.
func (t *Table) FirstValid(name string) (int, float64, bool) {
	for i, v := range t.cols[name] {
		if f, ok := v.Float(); ok {
			return i, f, true
		}
	}
	return -1, 0, false
}

// LastValid returns the row and value of the last numeric cell in a column.
func (t *Table) LastValid(name string) (int, float64, bool) {
	c := t.cols[name]
	for i := len(c) - 1; i >= 0; i-- {
		if f, ok := c[i].Float(); ok {
			return i, f, true
		}
	}
	return -1, 0, false
}

// WriteCSV writes a header "Date,<columns>" followed by one row per date.
// Non-numeric cells are written as empty fields.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append([]string{"Date"}, t.names...)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for i, d := range t.dates {
		row[0] = d.String()
		for j, n := range t.names {
			row[j+1] = t.cols[n][i].String()
			if t.cols[n][i].IsUndefined() {
				row[j+1] = ""
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type tableJSON struct {
	Dates   []Date             `json:"dates"`
	Columns []string           `json:"columns"`
	Data    map[string][]Value `json:"data"`
}

// MarshalJSON encodes the table column-wise.
func (t *Table) MarshalJSON() ([]byte, error) {
	dates := t.dates
	if dates == nil {
		dates = []Date{}
	}
	names := t.names
	if names == nil {
		names = []string{}
	}
	return json.Marshal(tableJSON{Dates: dates, Columns: names, Data: t.cols})
}

func (t *Table) UnmarshalJSON(b []byte) error {
	var raw tableJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	nt := NewTable(raw.Dates)
	for _, n := range raw.Columns {
		if err := nt.AddColumn(n, raw.Data[n]); err != nil {
			return err
		}
	}
	*t = *nt
	return nil
}
