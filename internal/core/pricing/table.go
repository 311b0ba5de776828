// Package pricing turns room classifications into money and keeps job totals
// consistent with their rooms.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
)

// DefaultTableVersion identifies the built-in rate card.
const DefaultTableVersion = "default-2024"

// MultiplierTable is an immutable rate card. Build it with NewTable or DefaultTable.
type MultiplierTable struct {
	version  string
	baseRate decimal.Decimal
	size     map[domain.SizeClass]decimal.Decimal
	workload map[domain.WorkloadClass]decimal.Decimal
}

// TableSpec is the raw material for a MultiplierTable.
type TableSpec struct {
	Version  string
	BaseRate decimal.Decimal
	Size     map[domain.SizeClass]decimal.Decimal
	Workload map[domain.WorkloadClass]decimal.Decimal
}

// DefaultTable returns the built-in rate card used when no rules file is configured.
func DefaultTable() *MultiplierTable {
	table, err := NewTable(TableSpec{
		Version:  DefaultTableVersion,
		BaseRate: decimal.RequireFromString("150.00"),
		Size: map[domain.SizeClass]decimal.Decimal{
			domain.SizeSmall:      decimal.RequireFromString("1.0"),
			domain.SizeMedium:     decimal.RequireFromString("1.5"),
			domain.SizeLarge:      decimal.RequireFromString("2.0"),
			domain.SizeExtraLarge: decimal.RequireFromString("3.0"),
		},
		Workload: map[domain.WorkloadClass]decimal.Decimal{
			domain.WorkloadLight:    decimal.RequireFromString("1.0"),
			domain.WorkloadModerate: decimal.RequireFromString("1.3"),
			domain.WorkloadHeavy:    decimal.RequireFromString("1.6"),
			domain.WorkloadExtreme:  decimal.RequireFromString("2.0"),
		},
	})
	if err != nil {
		panic(fmt.Sprintf("pricing: default table is invalid: %v", err))
	}
	return table
}

// NewTable validates spec and copies it. Every enum member must be present with
// a positive multiplier and the base rate must be positive.
func NewTable(spec TableSpec) (*MultiplierTable, error) {
	if spec.Version == "" {
		return nil, domain.InvalidInput("build multiplier table", "version is required")
	}
	if !spec.BaseRate.IsPositive() {
		return nil, domain.InvalidInput("build multiplier table", "base rate must be positive, got %s", spec.BaseRate)
	}

	size := make(map[domain.SizeClass]decimal.Decimal, len(domain.SizeClasses))
	for _, s := range domain.SizeClasses {
		m, ok := spec.Size[s]
		if !ok {
			return nil, domain.InvalidInput("build multiplier table", "missing size multiplier for %q", s)
		}
		if !m.IsPositive() {
			return nil, domain.InvalidInput("build multiplier table", "size multiplier for %q must be positive", s)
		}
		size[s] = m
	}
	for s := range spec.Size {
		if !s.Valid() {
			return nil, domain.InvalidInput("build multiplier table", "unknown size class %q", s)
		}
	}

	workload := make(map[domain.WorkloadClass]decimal.Decimal, len(domain.WorkloadClasses))
	for _, w := range domain.WorkloadClasses {
		m, ok := spec.Workload[w]
		if !ok {
			return nil, domain.InvalidInput("build multiplier table", "missing workload multiplier for %q", w)
		}
		if !m.IsPositive() {
			return nil, domain.InvalidInput("build multiplier table", "workload multiplier for %q must be positive", w)
		}
		workload[w] = m
	}
	for w := range spec.Workload {
		if !w.Valid() {
			return nil, domain.InvalidInput("build multiplier table", "unknown workload class %q", w)
		}
	}

	return &MultiplierTable{
		version:  spec.Version,
		baseRate: spec.BaseRate,
		size:     size,
		workload: workload,
	}, nil
}

// Version identifies the rate card.
func (t *MultiplierTable) Version() string { return t.version }

// BaseRate is the price of a small, light room before adjustments.
func (t *MultiplierTable) BaseRate() decimal.Decimal { return t.baseRate }

// SizeMultiplier is total: values outside the enum get the medium multiplier.
func (t *MultiplierTable) SizeMultiplier(s domain.SizeClass) decimal.Decimal {
	if m, ok := t.size[s]; ok {
		return m
	}
	return t.size[domain.SizeMedium]
}

// WorkloadMultiplier is total: values outside the enum get the moderate multiplier.
func (t *MultiplierTable) WorkloadMultiplier(w domain.WorkloadClass) decimal.Decimal {
	if m, ok := t.workload[w]; ok {
		return m
	}
	return t.workload[domain.WorkloadModerate]
}

// Spec returns a copy of the table contents.
func (t *MultiplierTable) Spec() TableSpec {
	out := TableSpec{
		Version:  t.version,
		BaseRate: t.baseRate,
		Size:     make(map[domain.SizeClass]decimal.Decimal, len(t.size)),
		Workload: make(map[domain.WorkloadClass]decimal.Decimal, len(t.workload)),
	}
	for k, v := range t.size {
		out.Size[k] = v
	}
	for k, v := range t.workload {
		out.Workload[k] = v
	}
	return out
}
