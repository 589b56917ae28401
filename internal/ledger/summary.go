package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

var ErrNoGrouping = errors.New("summary needs date or category grouping")

type SummaryRequest struct {
	Dates           *core.DateRange
	Categories      []string
	GroupByDate     bool
	GroupByCategory bool
	Type            core.EntryType
}

// Share is one slice of a category pie chart.
type Share struct {
	Category string
	Amount   decimal.Decimal
	Percent  float64
}

type Summary struct {
	Type   core.EntryType
	Dates  *core.DateRange
	Table  core.Result
	Total  decimal.Decimal
	Shares []Share
}

// Summarize totals one entry type over the requested grouping and splits
// the total by category.
func (l *Ledger) Summarize(ctx context.Context, req SummaryRequest) (Summary, error) {
	if !req.GroupByDate && !req.GroupByCategory {
		return Summary{}, ErrNoGrouping
	}
	if err := req.Type.Validate(); err != nil {
		return Summary{}, fmt.Errorf("summarize: %w", err)
	}

	q := core.Query{
		Dates:              req.Dates,
		Categories:         req.Categories,
		GroupByDate:        req.GroupByDate,
		GroupByCategory:    req.GroupByCategory,
		IncludeExpenditure: req.Type == core.Expenditure,
		IncludeRevenue:     req.Type == core.Revenue,
	}
	table, err := l.Query(ctx, q)
	if err != nil {
		return Summary{}, err
	}

	byCategory := table
	if req.GroupByDate {
		q.GroupByDate = false
		q.GroupByCategory = true
		if byCategory, err = l.Query(ctx, q); err != nil {
			return Summary{}, err
		}
	}

	total := table.Total()
	return Summary{
		Type:   req.Type,
		Dates:  req.Dates,
		Table:  table,
		Total:  total,
		Shares: shares(byCategory, total),
	}, nil
}

func shares(byCategory core.Result, total decimal.Decimal) []Share {
	out := make([]Share, 0, len(byCategory.Rows))
	for _, row := range byCategory.Rows {
		s := Share{Category: row.Category, Amount: row.Amount}
		if !total.IsZero() {
			s.Percent = row.Amount.Div(total).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		out = append(out, s)
	}
	return out
}
