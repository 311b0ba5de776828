package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
)

// Fallback reports which axes were priced with the substitute multiplier.
type Fallback struct {
	Size     bool
	Workload bool
}

// Any reports whether either axis fell back.
func (f Fallback) Any() bool { return f.Size || f.Workload }

// Merge accumulates fallbacks across several calculations.
func (f Fallback) Merge(other Fallback) Fallback {
	return Fallback{Size: f.Size || other.Size, Workload: f.Workload || other.Workload}
}

// Engine prices rooms and jobs against a single multiplier table.
type Engine struct {
	table *MultiplierTable
}

// NewEngine returns an engine over table, or over DefaultTable when table is nil.
func NewEngine(table *MultiplierTable) *Engine {
	if table == nil {
		table = DefaultTable()
	}
	return &Engine{table: table}
}

// Table returns the multiplier table the engine prices against.
func (e *Engine) Table() *MultiplierTable { return e.table }

// CalculateRoomCost returns base * size * workload + sum(adjustments), rounded
// half-up to cents once at the end. Unknown classes never fail; they are priced
// as medium/moderate and reported in the returned Fallback.
func (e *Engine) CalculateRoomCost(size domain.SizeClass, workload domain.WorkloadClass, adjustments []domain.Adjustment) (decimal.Decimal, Fallback) {
	fallback := Fallback{Size: !size.Valid(), Workload: !workload.Valid()}

	cost := e.table.BaseRate().
		Mul(e.table.SizeMultiplier(size)).
		Mul(e.table.WorkloadMultiplier(workload)).
		Add(domain.SumAdjustments(adjustments))

	return RoundMoney(cost), fallback
}

// RoundMoney rounds to cents, half-up with ties going away from zero, so
// -0.005 becomes -0.01.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}
