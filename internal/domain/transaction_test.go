package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func int32Ptr(v int32) *int32 { return &v }

func tx(category *int32, dir Direction, amount int64, recurring bool) *TransactionRecord {
	return &TransactionRecord{
		Date:       time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Amount:     decimal.NewFromInt(amount),
		Direction:  dir,
		CategoryID: category,
		Recurring:  recurring,
	}
}

func TestDirectionConstants(t *testing.T) {
	tests := []struct {
		name      string
		direction Direction
		expected  string
	}{
		{"debit direction", DirectionDebit, "debit"},
		{"credit direction", DirectionCredit, "credit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.direction) != tt.expected {
				t.Errorf("Direction constant %s = %s, want %s", tt.name, tt.direction, tt.expected)
			}
		})
	}
}

func TestBuildCategoryFlows_Invariants(t *testing.T) {
	groceries := int32Ptr(1)
	salary := int32Ptr(2)

	txs := []*TransactionRecord{
		tx(groceries, DirectionDebit, 120, false),
		tx(groceries, DirectionDebit, 30, true),
		tx(groceries, DirectionCredit, 20, false),
		tx(salary, DirectionCredit, 3000, true),
		tx(nil, DirectionDebit, 999, false),
	}
	hidden := tx(groceries, DirectionDebit, 500, false)
	hidden.Hidden = true
	deleted := tx(groceries, DirectionDebit, 700, false)
	deleted.Deleted = true
	txs = append(txs, hidden, deleted)

	flows := BuildCategoryFlows(txs)

	if len(flows) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(flows))
	}

	for id, f := range flows {
		if !f.Net.Equal(f.Income.Sub(f.Expenses)) {
			t.Errorf("category %d: net %s != income %s - expenses %s", id, f.Net, f.Income, f.Expenses)
		}
		if !f.Expenses.Equal(f.RecurringExpenses.Add(f.VariableExpenses)) {
			t.Errorf("category %d: expenses %s != recurring %s + variable %s", id, f.Expenses, f.RecurringExpenses, f.VariableExpenses)
		}
	}

	g := flows.Get(1)
	if g.Expenses.String() != "150" || g.Income.String() != "20" || g.RecurringExpenses.String() != "30" {
		t.Errorf("unexpected groceries flow: %+v", g)
	}
	if g.NetSpend().String() != "130" {
		t.Errorf("expected net spend 130, got %s", g.NetSpend())
	}

	s := flows.Get(2)
	if !s.IsIncome() {
		t.Error("salary category should be an income category")
	}
	if !s.NetSpend().IsZero() {
		t.Errorf("income category net spend should be floored at zero, got %s", s.NetSpend())
	}
	if s.SignedSpend().String() != "-3000" {
		t.Errorf("expected signed spend -3000, got %s", s.SignedSpend())
	}
}

func TestCategoryFlows_GetMissing(t *testing.T) {
	flows := BuildCategoryFlows(nil)
	f := flows.Get(42)
	if !f.Expenses.IsZero() || !f.Income.IsZero() || !f.Net.IsZero() {
		t.Errorf("expected zero flow, got %+v", f)
	}
}

func TestResolveRolloverEnabled(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name        string
		enabled     *bool
		savingsGoal bool
		expected    bool
	}{
		{"absent defaults to enabled", nil, false, true},
		{"explicitly enabled", &yes, false, true},
		{"explicitly disabled", &no, false, false},
		{"savings goal overrides disabled", &no, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveRolloverEnabled(tt.enabled, tt.savingsGoal); got != tt.expected {
				t.Errorf("ResolveRolloverEnabled() = %v, want %v", got, tt.expected)
			}
		})
	}
}
