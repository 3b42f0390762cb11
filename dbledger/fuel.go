package dbledger

import (
	"sync/atomic"

	"github.com/fluree/fluree-core/ferrors"
)

// FuelMeter is a shared budget counter: DB.Stage spends one unit per
// staged flake against it, and Spend reports db/unexpected-error once
// the budget is exceeded. Range scans are not charged. A nil
// *FuelMeter, or one constructed
// with a non-positive budget, never limits anything.
type FuelMeter struct {
	budget int64
	spent  int64
}

// NewFuelMeter returns a meter with the given budget.
func NewFuelMeter(budget int64) *FuelMeter {
	return &FuelMeter{budget: budget}
}

// Spend adds n to the running total and fails once it exceeds the
// budget. Safe for concurrent callers.
func (m *FuelMeter) Spend(n int64) error {
	if m == nil || m.budget <= 0 {
		return nil
	}
	if atomic.AddInt64(&m.spent, n) > m.budget {
		return ferrors.New(ferrors.UnexpectedError, "dbledger: fuel budget exceeded")
	}
	return nil
}

// Spent returns the running total consumed so far.
func (m *FuelMeter) Spent() int64 {
	if m == nil {
		return 0
	}
	return atomic.LoadInt64(&m.spent)
}
