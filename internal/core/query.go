package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

const (
	ColumnID       Column = "id"
	ColumnDate     Column = "Date"
	ColumnCategory Column = "Category"
	ColumnAmount   Column = "Amount"
)

type (
	// Column names a field present in a query result.
	Column string

	// Query selects, groups, and signs ledger entries.
	Query struct {
		// Dates restricts entries to an inclusive range; nil means all dates.
		Dates *DateRange
		// Categories keeps entries whose category is listed. A nil slice
		// keeps every category; callers resolve "All" before querying.
		Categories []string

		GroupByDate     bool
		GroupByCategory bool
		// IncludeID keeps the id column. Ignored for grouped queries.
		IncludeID bool

		IncludeExpenditure bool
		IncludeRevenue     bool
	}

	// Row is one line of a query result. Fields not listed in the result's
	// Columns are zero.
	Row struct {
		ID       int64
		Date     Date
		Category string
		Amount   decimal.Decimal
	}

	Result struct {
		Columns []Column
		Rows    []Row
	}
)

// DefaultQuery returns every entry ungrouped, without ids, with
// expenditure and revenue combined.
func DefaultQuery() Query {
	return Query{IncludeExpenditure: true, IncludeRevenue: true}
}

func (q Query) Grouped() bool {
	return q.GroupByDate || q.GroupByCategory
}

// Signed reports whether amounts are combined into a net figure.
func (q Query) Signed() bool {
	return q.IncludeExpenditure && q.IncludeRevenue
}

// Columns returns the result schema for q.
func (q Query) Columns() []Column {
	if !q.Grouped() {
		cols := make([]Column, 0, 4)
		if q.IncludeID {
			cols = append(cols, ColumnID)
		}
		return append(cols, ColumnDate, ColumnCategory, ColumnAmount)
	}
	cols := make([]Column, 0, 3)
	if q.GroupByDate {
		cols = append(cols, ColumnDate)
	}
	if q.GroupByCategory {
		cols = append(cols, ColumnCategory)
	}
	return append(cols, ColumnAmount)
}

func (r Result) Has(c Column) bool {
	for _, col := range r.Columns {
		if col == c {
			return true
		}
	}
	return false
}

// Total sums the Amount column.
func (r Result) Total() decimal.Decimal {
	total := decimal.Zero
	for _, row := range r.Rows {
		total = total.Add(row.Amount)
	}
	return total
}

// Apply runs the query pipeline over entries: filter, group, aggregate,
// then sign. The input slice is never modified.
//
// Ungrouped results are ordered by date with ties kept in input order.
// Grouped results are ordered by date, then category. When both types are
// requested, each group collapses into a single net row.
func Apply(entries []Entry, q Query) Result {
	kept := filterEntries(entries, q)

	var rows []Row
	if q.Grouped() {
		rows = groupRows(kept, q)
	} else {
		rows = flatRows(kept, q)
	}
	return Result{Columns: q.Columns(), Rows: rows}
}

func filterEntries(entries []Entry, q Query) []Entry {
	var cats map[string]struct{}
	if q.Categories != nil {
		cats = make(map[string]struct{}, len(q.Categories))
		for _, c := range q.Categories {
			cats[c] = struct{}{}
		}
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if q.Dates != nil && !q.Dates.Contains(e.Date) {
			continue
		}
		if cats != nil {
			if _, ok := cats[e.Category]; !ok {
				continue
			}
		}
		if !q.includes(e.Type) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (q Query) includes(t EntryType) bool {
	switch t {
	case Expenditure:
		return q.IncludeExpenditure
	case Revenue:
		return q.IncludeRevenue
	}
	return false
}

func flatRows(entries []Entry, q Query) []Row {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	rows := make([]Row, len(sorted))
	for i, e := range sorted {
		amount := e.Amount
		if q.Signed() {
			amount = amount.Mul(e.Type.Sign())
		}
		rows[i] = Row{Date: e.Date, Category: e.Category, Amount: amount}
		if q.IncludeID {
			rows[i].ID = e.ID
		}
	}
	return rows
}

type groupKey struct {
	date     string
	category string
	typ      EntryType
}

func groupRows(entries []Entry, q Query) []Row {
	sums := make(map[groupKey]*Row)
	var keys []groupKey

	for _, e := range entries {
		k := groupKey{typ: e.Type}
		if q.GroupByDate {
			k.date = e.Date.String()
		}
		if q.GroupByCategory {
			k.category = e.Category
		}
		// Signed queries net both types into one row per group.
		amount := e.Amount
		if q.Signed() {
			k.typ = ""
			amount = amount.Mul(e.Type.Sign())
		}

		row, ok := sums[k]
		if !ok {
			row = &Row{Amount: decimal.Zero}
			if q.GroupByDate {
				row.Date = e.Date
			}
			if q.GroupByCategory {
				row.Category = e.Category
			}
			sums[k] = row
			keys = append(keys, k)
		}
		row.Amount = row.Amount.Add(amount)
	}

	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].date != keys[j].date {
			return keys[i].date < keys[j].date
		}
		if keys[i].category != keys[j].category {
			return keys[i].category < keys[j].category
		}
		return keys[i].typ < keys[j].typ
	})

	rows := make([]Row, len(keys))
	for i, k := range keys {
		rows[i] = *sums[k]
	}
	return rows
}
