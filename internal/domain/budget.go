package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetRecord is one category's spending limit for one month.
// RolloverEnabled is always concrete; see ResolveRolloverEnabled.
type BudgetRecord struct {
	UserID          uuid.UUID       `json:"userId"`
	CategoryID      int32           `json:"categoryId"`
	CategoryName    string          `json:"categoryName,omitempty"`
	Month           MonthKey        `json:"month"`
	Amount          decimal.Decimal `json:"amount"`
	RolloverEnabled bool            `json:"rolloverEnabled"`
	SavingsGoal     bool            `json:"savingsGoal"`
}

// ResolveRolloverEnabled turns the nullable rollover column into a concrete
// flag. Absent means enabled; savings goals always roll over.
func ResolveRolloverEnabled(enabled *bool, savingsGoal bool) bool {
	if savingsGoal {
		return true
	}
	if enabled == nil {
		return true
	}
	return *enabled
}

// BudgetSource is the read-only provider of monthly budgets
type BudgetSource interface {
	ListBudgets(ctx context.Context, userID uuid.UUID, month MonthKey) ([]*BudgetRecord, error)
}

// BudgetCategoryIDs returns the category ids of budgets in input order
func BudgetCategoryIDs(budgets []*BudgetRecord) []int32 {
	ids := make([]int32, len(budgets))
	for i, b := range budgets {
		ids[i] = b.CategoryID
	}
	return ids
}
