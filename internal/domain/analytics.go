package domain

import "time"

// ============================================================
// Analytics
// ============================================================

// Summary is the aggregated view over a set of transactions.
type Summary struct {
	Period           *Period         `json:"period,omitempty"`
	TotalIncome      float64         `json:"totalIncome"`
	TotalExpenses    float64         `json:"totalExpenses"`
	NetWorth         float64         `json:"netWorth"`
	TransactionCount int             `json:"transactionCount"`
	IncomeCount      int             `json:"incomeCount"`
	ExpenseCount     int             `json:"expenseCount"`
	ByCategory       CategorySummary `json:"byCategory"`
	TopCategories    []CategoryTotal `json:"topCategories"`
	LargestExpense   *Transaction    `json:"largestExpense,omitempty"`
	Source           Source          `json:"source,omitempty"`
}

// Period is an inclusive date range.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CategoryTotal is one row of the expense breakdown, ordered by amount.
type CategoryTotal struct {
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// InterestProjection is returned by the compound interest endpoint.
type InterestProjection struct {
	Principal float64 `json:"principal"`
	Rate      float64 `json:"rate"`
	Periods   int     `json:"periods"`
	Amount    float64 `json:"amount"`
	Interest  float64 `json:"interest"`
}
