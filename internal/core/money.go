// Package core holds the transaction domain model, filters and aggregation.
//
// Amounts travel as float64 on the wire and on disk. Sums are computed with
// decimal arithmetic so that totals such as 0.1 + 0.2 come out as 0.3 rather
// than accumulating binary rounding error.
package core

import "github.com/shopspring/decimal"

type summaryAccumulator struct {
	total   decimal.Decimal
	income  decimal.Decimal
	expense decimal.Decimal
	count   int
}

func (a *summaryAccumulator) add(amount float64) {
	d := decimal.NewFromFloat(amount)
	a.total = a.total.Add(d)
	switch d.Sign() {
	case 1:
		a.income = a.income.Add(d)
	case -1:
		a.expense = a.expense.Add(d)
	}
	a.count++
}

func (a *summaryAccumulator) summary() Summary {
	return Summary{
		Total:   a.total.InexactFloat64(),
		Income:  a.income.InexactFloat64(),
		Expense: a.expense.InexactFloat64(),
		Count:   a.count,
	}
}
