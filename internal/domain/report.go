package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryBudgetLine is one budgeted category's figures for a month
type CategoryBudgetLine struct {
	CategoryID       int32           `json:"categoryId"`
	CategoryName     string          `json:"categoryName,omitempty"`
	BaseBudget       decimal.Decimal `json:"baseBudget"`
	CarriedRollover  decimal.Decimal `json:"carriedRollover"`
	AppliedRollover  decimal.Decimal `json:"appliedRollover"`
	TotalBudget      decimal.Decimal `json:"totalBudget"`
	Flow             CategoryFlow    `json:"flow"`
	NetRecurring     decimal.Decimal `json:"netRecurring"`
	NetVariable      decimal.Decimal `json:"netVariable"`
	NetSpend         decimal.Decimal `json:"netSpend"`
	Remaining        decimal.Decimal `json:"remaining"`
	PercentageUsed   decimal.Decimal `json:"percentageUsed"`
	RolloverEnabled  bool            `json:"rolloverEnabled"`
	SavingsGoal      bool            `json:"savingsGoal"`
	IsIncomeCategory bool            `json:"isIncomeCategory"`
	IsOverBudget     bool            `json:"isOverBudget"`
	Pacing           *PacingResult   `json:"pacing,omitempty"`
}

// BudgetTotals are the whole-month aggregates across budgeted categories
type BudgetTotals struct {
	BaseBudget          decimal.Decimal `json:"baseBudget"`
	TotalRollover       decimal.Decimal `json:"totalRollover"`
	TotalBudget         decimal.Decimal `json:"totalBudget"`
	TotalIncome         decimal.Decimal `json:"totalIncome"`
	TotalExpenses       decimal.Decimal `json:"totalExpenses"`
	Net                 decimal.Decimal `json:"net"`
	TotalRecurring      decimal.Decimal `json:"totalRecurring"`
	TotalVariable       decimal.Decimal `json:"totalVariable"`
	TotalSpent          decimal.Decimal `json:"totalSpent"`
	Remaining           decimal.Decimal `json:"remaining"`
	OverAmount          decimal.Decimal `json:"overAmount"`
	PercentageUsed      decimal.Decimal `json:"percentageUsed"`
	RecurringPercentage decimal.Decimal `json:"recurringPercentage"`
	VariablePercentage  decimal.Decimal `json:"variablePercentage"`
	IsOverBudget        bool            `json:"isOverBudget"`
}

// BudgetAggregate is the reporter's output
type BudgetAggregate struct {
	Totals     BudgetTotals          `json:"totals"`
	Categories []*CategoryBudgetLine `json:"categories"`
}

// MonthlyReport is the full rollover and pacing report for one month
type MonthlyReport struct {
	UserID      uuid.UUID                    `json:"userId"`
	Month       MonthKey                     `json:"month"`
	GeneratedAt time.Time                    `json:"generatedAt"`
	Totals      BudgetTotals                 `json:"totals"`
	Categories  []*CategoryBudgetLine        `json:"categories"`
	Rollover    RolloverMap                  `json:"rollover"`
	Historical  *HistoricalRecurringSnapshot `json:"historical,omitempty"`
	Pacing      *PacingResult                `json:"pacing,omitempty"`
	Warnings    []string                     `json:"warnings,omitempty"`
}
