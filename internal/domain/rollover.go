package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RolloverMap holds the signed balance per category entering a month
type RolloverMap map[int32]decimal.Decimal

// Get returns the balance for a category, zero when absent
func (r RolloverMap) Get(categoryID int32) decimal.Decimal {
	if v, ok := r[categoryID]; ok {
		return v
	}
	return decimal.Zero
}

// Has reports whether the category carries a non-zero balance
func (r RolloverMap) Has(categoryID int32) bool {
	v, ok := r[categoryID]
	return ok && !v.IsZero()
}

// Clone returns an independent copy
func (r RolloverMap) Clone() RolloverMap {
	out := make(RolloverMap, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RolloverSignPolicy decides what happens to a negative carried balance
type RolloverSignPolicy string

const (
	// RolloverCarryNegative lets overspending carry into the next month as debt
	RolloverCarryNegative RolloverSignPolicy = "carry"
	// RolloverClampAtZero drops overspending; only surpluses carry
	RolloverClampAtZero RolloverSignPolicy = "clamp"
)

// ParseRolloverSignPolicy validates a configured policy name
func ParseRolloverSignPolicy(s string) (RolloverSignPolicy, error) {
	switch p := RolloverSignPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case RolloverCarryNegative, RolloverClampAtZero:
		return p, nil
	case "":
		return RolloverCarryNegative, nil
	default:
		return "", fmt.Errorf("%w: rollover sign policy %q", ErrUnknownPolicy, s)
	}
}

// Apply maps a computed remaining balance through the policy
func (p RolloverSignPolicy) Apply(remaining decimal.Decimal) decimal.Decimal {
	if p == RolloverClampAtZero && remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// RolloverMemo stores resolved rollover maps between requests.
//
// Writers take the user's Generation before reading any ledger data and pass
// it to Set. An Invalidate in between advances the generation, and a Set
// carrying an older one must never become visible to Get.
type RolloverMemo interface {
	Generation(userID uuid.UUID) uint64
	Get(userID uuid.UUID, month MonthKey) (RolloverMap, bool)
	Set(userID uuid.UUID, month MonthKey, generation uint64, rollover RolloverMap)
	Invalidate(userID uuid.UUID)
}
