package core

import (
	"strconv"
	"strings"
)

// Filter narrows a listing. Empty fields are ignored, and so are dates that
// do not parse.
type Filter struct {
	Category  string
	StartDate string
	EndDate   string
}

// SummaryFilter narrows a summary to a year and/or month.
// Values that do not parse as integers are ignored.
type SummaryFilter struct {
	Year  string
	Month string
}

// Summary is the aggregate over a filtered set of transactions.
// Expense is reported as a negative number.
type Summary struct {
	Total   float64 `json:"total"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Count   int     `json:"transactions_count"`
}

// Predicate compiles the filter into a match function.
func (f Filter) Predicate() func(Transaction) bool {
	category := f.Category
	start, hasStart := parseBound(f.StartDate)
	end, hasEnd := parseBound(f.EndDate)

	return func(t Transaction) bool {
		if category != "" && !strings.EqualFold(t.Category, category) {
			return false
		}
		if hasStart && t.Date.Before(start.Time) {
			return false
		}
		if hasEnd && t.Date.After(end.Time) {
			return false
		}
		return true
	}
}

func parseBound(s string) (Date, bool) {
	if s == "" {
		return Date{}, false
	}
	d, err := ParseDate(s)
	if err != nil {
		return Date{}, false
	}
	return d, true
}

// Predicate compiles the summary filter into a match function.
// A month outside 1-12 parses but matches nothing.
func (f SummaryFilter) Predicate() func(Transaction) bool {
	year, hasYear := parseYear(f.Year)
	month, hasMonth := parseMonth(f.Month)

	return func(t Transaction) bool {
		if hasYear && t.Date.Year() != year {
			return false
		}
		if hasMonth && int(t.Date.Month()) != month {
			return false
		}
		return true
	}
}

// Key identifies the filter for caching. Unparsable parts collapse to the
// same key as absent ones since they select the same set.
func (f SummaryFilter) Key() string {
	var b strings.Builder
	b.WriteString("summary:")
	if y, ok := parseYear(f.Year); ok {
		b.WriteString(strconv.Itoa(y))
	} else {
		b.WriteString("*")
	}
	b.WriteString("-")
	if m, ok := parseMonth(f.Month); ok {
		b.WriteString(strconv.Itoa(m))
	} else {
		b.WriteString("*")
	}
	return b.String()
}

func parseYear(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	y, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int(y), true
}

func parseMonth(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	m, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int(m), true
}

// Summarize aggregates the transactions accepted by keep.
func Summarize(txs []Transaction, keep func(Transaction) bool) Summary {
	var acc summaryAccumulator
	for _, t := range txs {
		if keep != nil && !keep(t) {
			continue
		}
		acc.add(t.Amount)
	}
	return acc.summary()
}
