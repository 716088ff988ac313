package domain

// Category is a display entry of the category catalog. Transactions reference
// categories by label only; the catalog is not enforced as a foreign key.
type Category struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Color string          `json:"color"`
	Icon  string          `json:"icon"`
	Type  TransactionType `json:"type"`
}

// CategorySummary maps a category label to its accumulated expense total.
// It is always derived, never persisted.
type CategorySummary map[string]float64

// DefaultCategories is the built-in catalog shipped with the app.
var DefaultCategories = []Category{
	{ID: "salary", Name: "Salary", Color: "#4CAF50", Icon: "briefcase", Type: TypeIncome},
	{ID: "freelance", Name: "Freelance", Color: "#2196F3", Icon: "code", Type: TypeIncome},
	{ID: "investment", Name: "Investment", Color: "#9C27B0", Icon: "trending-up", Type: TypeIncome},
	{ID: "other-income", Name: "Other Income", Color: "#00BCD4", Icon: "plus-circle", Type: TypeIncome},

	{ID: "food", Name: "Food", Color: "#FF9800", Icon: "restaurant", Type: TypeExpense},
	{ID: "transport", Name: "Transport", Color: "#607D8B", Icon: "car", Type: TypeExpense},
	{ID: "entertainment", Name: "Entertainment", Color: "#E91E63", Icon: "film", Type: TypeExpense},
	{ID: "shopping", Name: "Shopping", Color: "#795548", Icon: "shopping-bag", Type: TypeExpense},
	{ID: "healthcare", Name: "Healthcare", Color: "#F44336", Icon: "heart", Type: TypeExpense},
	{ID: "education", Name: "Education", Color: "#3F51B5", Icon: "book", Type: TypeExpense},
	{ID: "utilities", Name: "Utilities", Color: "#009688", Icon: "home", Type: TypeExpense},
	{ID: "other-expense", Name: "Other Expense", Color: "#9E9E9E", Icon: "minus-circle", Type: TypeExpense},
}

// CategoriesByType filters the catalog by transaction type.
// An empty type returns the full catalog.
func CategoriesByType(t TransactionType) []Category {
	if t == "" {
		out := make([]Category, len(DefaultCategories))
		copy(out, DefaultCategories)
		return out
	}
	out := make([]Category, 0, len(DefaultCategories))
	for _, c := range DefaultCategories {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}
