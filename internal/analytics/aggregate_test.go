package analytics_test

import (
	"math"
	"testing"
	"time"

	"github.com/boddenberg/finance-core/internal/analytics"
	"github.com/boddenberg/finance-core/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 12, 0, 0, 0, time.UTC)
}

func fixtures() []domain.Transaction {
	return []domain.Transaction{
		{ID: "1", Amount: 50, Category: "Food", Type: domain.TypeExpense, Date: day(1)},
		{ID: "2", Amount: 20, Category: "Food", Type: domain.TypeExpense, Date: day(3)},
		{ID: "3", Amount: 30, Category: "Transport", Type: domain.TypeExpense, Date: day(2)},
		{ID: "4", Amount: 1000, Category: "Salary", Type: domain.TypeIncome, Date: day(5)},
	}
}

func TestGroupByCategory_ExpensesOnly(t *testing.T) {
	got := analytics.GroupByCategory(fixtures())

	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %v", got)
	}
	if got["Food"] != 70 {
		t.Errorf("expected Food=70, got %v", got["Food"])
	}
	if got["Transport"] != 30 {
		t.Errorf("expected Transport=30, got %v", got["Transport"])
	}
	if _, ok := got["Salary"]; ok {
		t.Error("income category must not appear")
	}
}

func TestGroupByCategory_Empty(t *testing.T) {
	got := analytics.GroupByCategory(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil summary, got %v", got)
	}
}

func TestSortByDate_DoesNotMutateInput(t *testing.T) {
	in := fixtures()
	before := make([]string, len(in))
	for i, tx := range in {
		before[i] = tx.ID
	}

	out := analytics.SortByDate(in, analytics.Desc)

	for i, tx := range in {
		if tx.ID != before[i] {
			t.Fatalf("input mutated at %d: %s != %s", i, tx.ID, before[i])
		}
	}
	wantDesc := []string{"4", "2", "3", "1"}
	for i, tx := range out {
		if tx.ID != wantDesc[i] {
			t.Errorf("desc position %d: expected %s, got %s", i, wantDesc[i], tx.ID)
		}
	}
}

func TestSortByDate_AscIsReverseOfDesc(t *testing.T) {
	desc := analytics.SortByDate(fixtures(), analytics.Desc)
	asc := analytics.SortByDate(desc, analytics.Asc)

	for i := range asc {
		if asc[i].ID != desc[len(desc)-1-i].ID {
			t.Fatalf("asc[%d]=%s, expected %s", i, asc[i].ID, desc[len(desc)-1-i].ID)
		}
	}
}

func TestSortByDate_StableOnTies(t *testing.T) {
	same := day(10)
	in := []domain.Transaction{
		{ID: "a", Date: same},
		{ID: "b", Date: day(1)},
		{ID: "c", Date: same},
		{ID: "d", Date: same},
	}

	desc := analytics.SortByDate(in, analytics.Desc)
	want := []string{"a", "c", "d", "b"}
	for i := range want {
		if desc[i].ID != want[i] {
			t.Errorf("desc[%d]: expected %s, got %s", i, want[i], desc[i].ID)
		}
	}

	asc := analytics.SortByDate(in, analytics.Asc)
	want = []string{"b", "a", "c", "d"}
	for i := range want {
		if asc[i].ID != want[i] {
			t.Errorf("asc[%d]: expected %s, got %s", i, want[i], asc[i].ID)
		}
	}
}

func TestTotalsAndNetWorth(t *testing.T) {
	txs := []domain.Transaction{
		{Amount: 1000, Type: domain.TypeIncome},
		{Amount: 100, Type: domain.TypeExpense},
	}
	if got := analytics.TotalIncome(txs); got != 1000 {
		t.Errorf("expected income 1000, got %v", got)
	}
	if got := analytics.TotalExpenses(txs); got != 100 {
		t.Errorf("expected expenses 100, got %v", got)
	}
	if got := analytics.NetWorth(txs); got != 900 {
		t.Errorf("expected net worth 900, got %v", got)
	}

	txs = append(txs, domain.Transaction{Amount: 2000, Type: domain.TypeExpense})
	if got := analytics.NetWorth(txs); got != -1100 {
		t.Errorf("expected net worth -1100, got %v", got)
	}
}

func TestTotals_Empty(t *testing.T) {
	if analytics.TotalIncome(nil) != 0 || analytics.TotalExpenses(nil) != 0 || analytics.NetWorth(nil) != 0 {
		t.Error("expected zero totals for empty input")
	}
}

func TestCompoundInterest(t *testing.T) {
	if got := analytics.CompoundInterest(1000, 0.05, 2); math.Abs(got-1102.5) > 1e-2 {
		t.Errorf("expected ~1102.5, got %v", got)
	}
	if got := analytics.CompoundInterest(1234.5, 0.3, 0); got != 1234.5 {
		t.Errorf("zero periods must return principal, got %v", got)
	}
	if got := analytics.CompoundInterest(1234.5, 0, 12); got != 1234.5 {
		t.Errorf("zero rate must return principal, got %v", got)
	}
}

func TestCompoundInterest_MatchesIterativeSteps(t *testing.T) {
	p := 1000.0
	for i := 0; i < 7; i++ {
		p = p + p*0.013
	}
	if got := analytics.CompoundInterest(1000, 0.013, 7); got != p {
		t.Errorf("expected %v, got %v", p, got)
	}
}

func TestInRange_Inclusive(t *testing.T) {
	txs := fixtures()
	got := analytics.InRange(txs, day(2), day(3))
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(got))
	}
	if got[0].ID != "2" || got[1].ID != "3" {
		t.Errorf("unexpected ids: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestCurrentMonth(t *testing.T) {
	now := time.Date(2024, 2, 15, 9, 0, 0, 0, time.UTC)
	txs := []domain.Transaction{
		{ID: "jan", Date: time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC)},
		{ID: "first", Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "mid", Date: time.Date(2024, 2, 14, 10, 0, 0, 0, time.UTC)},
		{ID: "last", Date: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{ID: "mar", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	got := analytics.CurrentMonth(txs, now)
	want := []string{"first", "mid", "last"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %d transactions", want, len(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i].ID)
		}
	}
}

func TestSummarize(t *testing.T) {
	s := analytics.Summarize(fixtures())

	if s.TransactionCount != 4 || s.IncomeCount != 1 || s.ExpenseCount != 3 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.NetWorth != 900 {
		t.Errorf("expected net worth 900, got %v", s.NetWorth)
	}
	if s.LargestExpense == nil || s.LargestExpense.ID != "1" {
		t.Errorf("expected largest expense id 1, got %+v", s.LargestExpense)
	}
	if len(s.TopCategories) != 2 || s.TopCategories[0].Category != "Food" {
		t.Fatalf("unexpected top categories: %+v", s.TopCategories)
	}
	if math.Abs(s.TopCategories[0].Percentage-70) > 1e-9 {
		t.Errorf("expected Food at 70%%, got %v", s.TopCategories[0].Percentage)
	}
}
