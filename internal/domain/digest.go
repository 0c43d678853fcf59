package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxDigestRecentTransactions caps the recent activity list
const MaxDigestRecentTransactions = 10

// DigestProgress is the whole-budget status shown in a digest
type DigestProgress struct {
	TotalBudget         decimal.Decimal `json:"totalBudget"`
	TotalSpent          decimal.Decimal `json:"totalSpent"`
	TotalRemaining      decimal.Decimal `json:"totalRemaining"`
	PercentageUsed      decimal.Decimal `json:"percentageUsed"`
	IsOverBudget        bool            `json:"isOverBudget"`
	PercentThroughMonth decimal.Decimal `json:"percentThroughMonth"`
	ExpectedSpending    decimal.Decimal `json:"expectedSpending"`
	PacingDifference    decimal.Decimal `json:"pacingDifference"`
	IsPacingOver        bool            `json:"isPacingOver"`
}

// DigestCategory is one line of the digest breakdown
type DigestCategory struct {
	CategoryID     int32            `json:"categoryId"`
	CategoryName   string           `json:"categoryName"`
	BudgetAmount   decimal.Decimal  `json:"budgetAmount"`
	Spent          decimal.Decimal  `json:"spent"`
	Remaining      decimal.Decimal  `json:"remaining"`
	PercentageUsed decimal.Decimal  `json:"percentageUsed"`
	Rollover       *decimal.Decimal `json:"rollover,omitempty"`
}

// DigestTransaction is a recent ledger entry in the digest
type DigestTransaction struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	CategoryID  *int32          `json:"categoryId,omitempty"`
	Direction   Direction       `json:"direction"`
}

// DigestData is the computed content of a daily budget digest
type DigestData struct {
	Date                 time.Time           `json:"date"`
	Month                MonthKey            `json:"month"`
	Progress             DigestProgress      `json:"budgetProgress"`
	Categories           []DigestCategory    `json:"categoryBreakdown"`
	RecentTransactions   []DigestTransaction `json:"recentTransactions"`
	DaysRemainingInMonth int                 `json:"daysRemainingInMonth"`
}
