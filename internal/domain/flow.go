package domain

import "github.com/shopspring/decimal"

// CategoryFlow aggregates one category's money movement over a window.
// Net = Income - Expenses and Expenses = RecurringExpenses + VariableExpenses
// hold for every value built through AddTransaction.
type CategoryFlow struct {
	Income            decimal.Decimal `json:"income"`
	Expenses          decimal.Decimal `json:"expenses"`
	Net               decimal.Decimal `json:"net"`
	RecurringExpenses decimal.Decimal `json:"recurringExpenses"`
	VariableExpenses  decimal.Decimal `json:"variableExpenses"`
}

// AddTransaction folds a single record into the flow
func (f *CategoryFlow) AddTransaction(tx *TransactionRecord) {
	switch tx.Direction {
	case DirectionDebit:
		f.Expenses = f.Expenses.Add(tx.Amount)
		if tx.Recurring {
			f.RecurringExpenses = f.RecurringExpenses.Add(tx.Amount)
		} else {
			f.VariableExpenses = f.VariableExpenses.Add(tx.Amount)
		}
	case DirectionCredit:
		f.Income = f.Income.Add(tx.Amount)
	default:
		return
	}
	f.Net = f.Income.Sub(f.Expenses)
}

// SignedSpend is debits minus credits; negative when credits dominate
func (f CategoryFlow) SignedSpend() decimal.Decimal {
	return f.Expenses.Sub(f.Income)
}

// NetSpend is SignedSpend floored at zero
func (f CategoryFlow) NetSpend() decimal.Decimal {
	return decimal.Max(decimal.Zero, f.SignedSpend())
}

// IsIncome reports whether the category brought in more than it spent
func (f CategoryFlow) IsIncome() bool {
	return f.Income.GreaterThan(f.Expenses)
}

// CategoryFlows maps category id to its flow
type CategoryFlows map[int32]CategoryFlow

// Get returns the flow for a category, or a zero flow
func (c CategoryFlows) Get(categoryID int32) CategoryFlow {
	if f, ok := c[categoryID]; ok {
		return f
	}
	return CategoryFlow{}
}

// BuildCategoryFlows is the single constructor for per-category aggregates.
// Uncategorised, hidden and deleted records are ignored.
func BuildCategoryFlows(txs []*TransactionRecord) CategoryFlows {
	flows := make(CategoryFlows)
	for _, tx := range txs {
		if tx == nil || tx.CategoryID == nil || !tx.Counts() {
			continue
		}
		f := flows[*tx.CategoryID]
		f.AddTransaction(tx)
		flows[*tx.CategoryID] = f
	}
	return flows
}
