// Package analytics computes aggregates over transaction sets.
// Every function is pure: inputs are never mutated and results are recomputed
// from scratch on each call.
package analytics

import (
	"sort"
	"time"

	"github.com/boddenberg/finance-core/internal/domain"
)

// Order is the direction of SortByDate.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// GroupByCategory sums expense amounts per category. Income is ignored.
func GroupByCategory(txs []domain.Transaction) domain.CategorySummary {
	summary := make(domain.CategorySummary)
	for _, tx := range txs {
		if tx.Type == domain.TypeExpense {
			summary[tx.Category] += tx.Amount
		}
	}
	return summary
}

// SortByDate returns a stably sorted copy of txs. Any order other than Asc
// sorts newest first.
func SortByDate(txs []domain.Transaction, order Order) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	copy(out, txs)

	sort.SliceStable(out, func(i, j int) bool {
		if order == Asc {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// TotalIncome sums income amounts.
func TotalIncome(txs []domain.Transaction) float64 {
	return sumByType(txs, domain.TypeIncome)
}

// TotalExpenses sums expense amounts.
func TotalExpenses(txs []domain.Transaction) float64 {
	return sumByType(txs, domain.TypeExpense)
}

// NetWorth is income minus expenses; it may be negative.
func NetWorth(txs []domain.Transaction) float64 {
	return TotalIncome(txs) - TotalExpenses(txs)
}

func sumByType(txs []domain.Transaction, t domain.TransactionType) float64 {
	var sum float64
	for _, tx := range txs {
		if tx.Type == t {
			sum += tx.Amount
		}
	}
	return sum
}

// CompoundInterest applies principal += principal*rate exactly periods times.
// Results must match iterative compounding bit for bit; do not replace the
// loop with math.Pow.
func CompoundInterest(principal, rate float64, periods int) float64 {
	for i := 0; i < periods; i++ {
		principal += principal * rate
	}
	return principal
}

// InRange keeps transactions with start <= date <= end.
func InRange(txs []domain.Transaction, start, end time.Time) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.Date.Before(start) && !tx.Date.After(end) {
			out = append(out, tx)
		}
	}
	return out
}

// MonthBounds returns midnight of the first and of the last day of now's month,
// in now's location.
func MonthBounds(now time.Time) (time.Time, time.Time) {
	y, m, _ := now.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	end := time.Date(y, m+1, 0, 0, 0, 0, 0, now.Location())
	return start, end
}

// CurrentMonth keeps the transactions of now's calendar month. The upper bound
// is midnight of the last day, so records later on that day fall outside.
func CurrentMonth(txs []domain.Transaction, now time.Time) []domain.Transaction {
	start, end := MonthBounds(now)
	return InRange(txs, start, end)
}

// Summarize builds the aggregate view used by the analytics endpoints.
func Summarize(txs []domain.Transaction) domain.Summary {
	s := domain.Summary{
		TotalIncome:      TotalIncome(txs),
		TotalExpenses:    TotalExpenses(txs),
		TransactionCount: len(txs),
		ByCategory:       GroupByCategory(txs),
	}
	s.NetWorth = s.TotalIncome - s.TotalExpenses

	for i := range txs {
		switch txs[i].Type {
		case domain.TypeIncome:
			s.IncomeCount++
		case domain.TypeExpense:
			s.ExpenseCount++
			if s.LargestExpense == nil || txs[i].Amount > s.LargestExpense.Amount {
				tx := txs[i]
				s.LargestExpense = &tx
			}
		}
	}

	s.TopCategories = TopCategories(s.ByCategory, s.TotalExpenses)
	return s
}

// TopCategories orders a category summary by amount, largest first.
// Ties are broken by category name to keep the output deterministic.
func TopCategories(summary domain.CategorySummary, totalExpenses float64) []domain.CategoryTotal {
	out := make([]domain.CategoryTotal, 0, len(summary))
	for cat, amount := range summary {
		pct := 0.0
		if totalExpenses > 0 {
			pct = amount / totalExpenses * 100
		}
		out = append(out, domain.CategoryTotal{Category: cat, Amount: amount, Percentage: pct})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Category < out[j].Category
	})
	return out
}
