package pricing

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertMoney(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: expected %s, got %s", label, want, got.StringFixed(2))
	}
}

func automatedRoom(id string, size domain.SizeClass, workload domain.WorkloadClass) domain.Room {
	return domain.Room{
		ID:        id,
		Name:      id,
		Automated: domain.Classification{Size: size, Workload: workload, Confidence: 0.9},
	}
}

func TestCalculateRoomCostMatchesFormulaForEveryClassPair(t *testing.T) {
	engine := NewEngine(DefaultTable())
	table := engine.Table()

	for _, s := range domain.SizeClasses {
		for _, w := range domain.WorkloadClasses {
			got, fallback := engine.CalculateRoomCost(s, w, nil)
			want := table.BaseRate().Mul(table.SizeMultiplier(s)).Mul(table.WorkloadMultiplier(w)).Round(2)
			if !got.Equal(want) {
				t.Fatalf("%s/%s: expected %s, got %s", s, w, want, got)
			}
			if fallback.Any() {
				t.Fatalf("%s/%s: unexpected fallback %+v", s, w, fallback)
			}
		}
	}
}

func TestCalculateRoomCostKnownValues(t *testing.T) {
	engine := NewEngine(nil)
	tests := []struct {
		name        string
		size        domain.SizeClass
		workload    domain.WorkloadClass
		adjustments []domain.Adjustment
		want        string
	}{
		{name: "small light", size: domain.SizeSmall, workload: domain.WorkloadLight, want: "150.00"},
		{name: "medium moderate", size: domain.SizeMedium, workload: domain.WorkloadModerate, want: "292.50"},
		{name: "large heavy", size: domain.SizeLarge, workload: domain.WorkloadHeavy, want: "480.00"},
		{name: "extra large extreme", size: domain.SizeExtraLarge, workload: domain.WorkloadExtreme, want: "900.00"},
		{
			name:     "large heavy with adjustments",
			size:     domain.SizeLarge,
			workload: domain.WorkloadHeavy,
			adjustments: []domain.Adjustment{
				{Label: "Stairs", Amount: dec("50.00")},
				{Label: "Bin rental", Amount: dec("75.00")},
			},
			want: "605.00",
		},
		{
			name:     "medium moderate with adjustments",
			size:     domain.SizeMedium,
			workload: domain.WorkloadModerate,
			adjustments: []domain.Adjustment{
				{Label: "Stairs", Amount: dec("50")},
				{Label: "Hazmat", Amount: dec("75")},
			},
			want: "417.50",
		},
		{
			name:        "negative adjustment",
			size:        domain.SizeSmall,
			workload:    domain.WorkloadLight,
			adjustments: []domain.Adjustment{{Label: "Discount", Amount: dec("-25.50")}},
			want:        "124.50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := engine.CalculateRoomCost(tt.size, tt.workload, tt.adjustments)
			assertMoney(t, tt.name, got, tt.want)
		})
	}
}

func TestCalculateRoomCostRoundsOnlyAtTheEnd(t *testing.T) {
	table, err := NewTable(TableSpec{
		Version:  "test",
		BaseRate: dec("100.005"),
		Size: map[domain.SizeClass]decimal.Decimal{
			domain.SizeSmall: dec("1"), domain.SizeMedium: dec("1"), domain.SizeLarge: dec("1"), domain.SizeExtraLarge: dec("1"),
		},
		Workload: map[domain.WorkloadClass]decimal.Decimal{
			domain.WorkloadLight: dec("1"), domain.WorkloadModerate: dec("1"), domain.WorkloadHeavy: dec("1"), domain.WorkloadExtreme: dec("1"),
		},
	})
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	engine := NewEngine(table)

	// 100.005 - 0.001 = 100.004 -> 100.00; rounding the base first would give 100.01.
	got, _ := engine.CalculateRoomCost(domain.SizeSmall, domain.WorkloadLight, []domain.Adjustment{{Label: "x", Amount: dec("-0.001")}})
	assertMoney(t, "late rounding", got, "100.00")

	// Half-up: 100.005 -> 100.01.
	got, _ = engine.CalculateRoomCost(domain.SizeSmall, domain.WorkloadLight, nil)
	assertMoney(t, "half up", got, "100.01")
}

func TestCalculateRoomCostFallsBackForUnknownClasses(t *testing.T) {
	engine := NewEngine(DefaultTable())

	got, fallback := engine.CalculateRoomCost("huge", domain.WorkloadModerate, nil)
	assertMoney(t, "unknown size", got, "292.50")
	if !fallback.Size || fallback.Workload {
		t.Fatalf("expected size-only fallback, got %+v", fallback)
	}

	got, fallback = engine.CalculateRoomCost(domain.SizeLarge, "", nil)
	assertMoney(t, "missing workload", got, "390.00")
	if fallback.Size || !fallback.Workload {
		t.Fatalf("expected workload-only fallback, got %+v", fallback)
	}
}

func TestNewTableRejectsIncompleteSpec(t *testing.T) {
	spec := DefaultTable().Spec()
	delete(spec.Size, domain.SizeLarge)
	if _, err := NewTable(spec); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing size, got %v", err)
	}

	spec = DefaultTable().Spec()
	spec.Workload["insane"] = dec("3")
	if _, err := NewTable(spec); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown workload, got %v", err)
	}

	spec = DefaultTable().Spec()
	spec.BaseRate = decimal.Zero
	if _, err := NewTable(spec); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero base rate, got %v", err)
	}
}

func TestTableSpecIsACopy(t *testing.T) {
	table := DefaultTable()
	spec := table.Spec()
	spec.Size[domain.SizeSmall] = dec("99")
	if !table.SizeMultiplier(domain.SizeSmall).Equal(dec("1.0")) {
		t.Fatalf("table mutated through Spec()")
	}
}

func TestReconcileAxisPrecedence(t *testing.T) {
	automated := domain.Classification{Size: domain.SizeLarge, Workload: domain.WorkloadHeavy}

	final := Reconcile(automated, domain.Override{})
	if final.Size != domain.SizeLarge || final.Workload != domain.WorkloadHeavy {
		t.Fatalf("expected automated values, got %+v", final)
	}
	if final.SizeSource != domain.SourceAutomated || final.WorkloadSource != domain.SourceAutomated {
		t.Fatalf("expected automated sources, got %+v", final)
	}

	final = Reconcile(automated, domain.Override{Size: domain.SizeMedium})
	if final.Size != domain.SizeMedium || final.Workload != domain.WorkloadHeavy {
		t.Fatalf("expected size override only, got %+v", final)
	}
	if final.SizeSource != domain.SourceHuman || final.WorkloadSource != domain.SourceAutomated {
		t.Fatalf("unexpected sources %+v", final)
	}

	final = Reconcile(automated, domain.Override{Workload: domain.WorkloadLight})
	if final.Size != domain.SizeLarge || final.Workload != domain.WorkloadLight {
		t.Fatalf("expected workload override only, got %+v", final)
	}

	again := Reconcile(automated, domain.Override{Workload: domain.WorkloadLight})
	if again != final {
		t.Fatalf("reconcile is not idempotent: %+v vs %+v", again, final)
	}
}

func TestOverrideOrderDoesNotMatter(t *testing.T) {
	engine := NewEngine(nil)
	sizeFirst := automatedRoom("a", domain.SizeLarge, domain.WorkloadHeavy)
	workloadFirst := sizeFirst

	domain.RoomOverridePatch{Size: domain.SizeSmall}.Apply(&sizeFirst)
	engine.PriceRoom(&sizeFirst)
	domain.RoomOverridePatch{Workload: domain.WorkloadExtreme}.Apply(&sizeFirst)
	engine.PriceRoom(&sizeFirst)

	domain.RoomOverridePatch{Workload: domain.WorkloadExtreme}.Apply(&workloadFirst)
	engine.PriceRoom(&workloadFirst)
	domain.RoomOverridePatch{Size: domain.SizeSmall}.Apply(&workloadFirst)
	engine.PriceRoom(&workloadFirst)

	if sizeFirst.Final != workloadFirst.Final {
		t.Fatalf("final differs by order: %+v vs %+v", sizeFirst.Final, workloadFirst.Final)
	}
	assertMoney(t, "size first", sizeFirst.EstimatedCost, "300.00")
	assertMoney(t, "workload first", workloadFirst.EstimatedCost, "300.00")
}

func TestReprocessKeepsOverriddenAxis(t *testing.T) {
	engine := NewEngine(nil)
	room := automatedRoom("a", domain.SizeLarge, domain.WorkloadHeavy)
	room.Override.Size = domain.SizeMedium
	engine.PriceRoom(&room)
	assertMoney(t, "before reprocess", room.EstimatedCost, "360.00")

	room.Automated = domain.Classification{Size: domain.SizeExtraLarge, Workload: domain.WorkloadHeavy, Confidence: 0.7}
	engine.PriceRoom(&room)

	if room.Override.Size != domain.SizeMedium {
		t.Fatalf("override cleared by reprocess")
	}
	if room.Final.Size != domain.SizeMedium {
		t.Fatalf("expected final size to stay medium, got %s", room.Final.Size)
	}
	assertMoney(t, "after reprocess", room.EstimatedCost, "360.00")

	room.Automated.Workload = domain.WorkloadLight
	engine.PriceRoom(&room)
	if room.Final.Workload != domain.WorkloadLight {
		t.Fatalf("expected non-overridden axis to follow automated value, got %s", room.Final.Workload)
	}
	assertMoney(t, "after workload change", room.EstimatedCost, "225.00")
}

func TestRecomputeJobTotals(t *testing.T) {
	engine := NewEngine(nil)
	job := &domain.Job{
		Rooms: []domain.Room{
			automatedRoom("a", domain.SizeLarge, domain.WorkloadHeavy),
			automatedRoom("b", domain.SizeSmall, domain.WorkloadLight),
		},
		Adjustments: []domain.Adjustment{{Label: "Dump fee", Amount: dec("200.00")}},
	}

	totals, fallback := engine.RecomputeJob(job)
	if fallback.Any() {
		t.Fatalf("unexpected fallback %+v", fallback)
	}
	assertMoney(t, "final price", totals.FinalPrice, "830.00")
	assertMoney(t, "ai estimate", totals.AIEstimate, "630.00")
	assertMoney(t, "job final price", job.FinalPrice, "830.00")

	again, _ := engine.RecomputeJob(job)
	if !again.FinalPrice.Equal(totals.FinalPrice) || !again.AIEstimate.Equal(totals.AIEstimate) {
		t.Fatalf("recompute is not idempotent: %+v vs %+v", again, totals)
	}
}

func TestRecomputeJobAIEstimateIgnoresOverrides(t *testing.T) {
	engine := NewEngine(nil)
	job := &domain.Job{Rooms: []domain.Room{automatedRoom("a", domain.SizeLarge, domain.WorkloadHeavy)}}
	engine.RecomputeJob(job)
	assertMoney(t, "initial final", job.FinalPrice, "480.00")

	job.Rooms[0].Override.Size = domain.SizeMedium
	engine.RecomputeJob(job)

	if job.Rooms[0].Final.Size != domain.SizeMedium || job.Rooms[0].Final.Workload != domain.WorkloadHeavy {
		t.Fatalf("unexpected final %+v", job.Rooms[0].Final)
	}
	assertMoney(t, "room cost", job.Rooms[0].EstimatedCost, "360.00")
	assertMoney(t, "final price", job.FinalPrice, "360.00")
	assertMoney(t, "ai estimate", job.AIEstimate, "480.00")
}

func TestRecomputeJobIncludesRoomAdjustmentsInBothTotals(t *testing.T) {
	engine := NewEngine(nil)
	room := automatedRoom("a", domain.SizeLarge, domain.WorkloadHeavy)
	room.Adjustments = []domain.Adjustment{{Label: "Stairs", Amount: dec("50")}, {Label: "Bin", Amount: dec("75")}}
	room.Override.Workload = domain.WorkloadLight
	job := &domain.Job{Rooms: []domain.Room{room}}

	engine.RecomputeJob(job)
	assertMoney(t, "ai estimate", job.AIEstimate, "605.00")
	assertMoney(t, "final price", job.FinalPrice, "425.00")
}

func TestRecomputeEmptyJob(t *testing.T) {
	engine := NewEngine(nil)
	job := &domain.Job{
		Rooms:       []domain.Room{automatedRoom("a", domain.SizeLarge, domain.WorkloadHeavy)},
		Adjustments: []domain.Adjustment{{Label: "Travel", Amount: dec("35.00")}},
	}
	engine.RecomputeJob(job)
	assertMoney(t, "with room", job.FinalPrice, "515.00")

	job.Rooms = nil
	totals, _ := engine.RecomputeJob(job)
	assertMoney(t, "ai estimate", totals.AIEstimate, "0.00")
	assertMoney(t, "final price", totals.FinalPrice, "35.00")

	job.Adjustments = nil
	totals, _ = engine.RecomputeJob(job)
	assertMoney(t, "ai estimate no adjustments", totals.AIEstimate, "0")
	assertMoney(t, "final price no adjustments", totals.FinalPrice, "0")
}

func TestRecomputeJobReportsFallback(t *testing.T) {
	engine := NewEngine(nil)
	job := &domain.Job{Rooms: []domain.Room{automatedRoom("a", "gigantic", domain.WorkloadHeavy)}}
	totals, fallback := engine.RecomputeJob(job)
	if !fallback.Size {
		t.Fatalf("expected size fallback")
	}
	assertMoney(t, "fallback price", totals.FinalPrice, "360.00")
}

func TestHumanAdjustedEstimateDoesNotChangeFinalPrice(t *testing.T) {
	engine := NewEngine(nil)
	job := &domain.Job{
		Rooms:                 []domain.Room{automatedRoom("a", domain.SizeLarge, domain.WorkloadHeavy)},
		HumanAdjustedEstimate: dec("450.00"),
	}
	engine.RecomputeJob(job)
	assertMoney(t, "final price", job.FinalPrice, "480.00")
	assertMoney(t, "quoted price", job.QuotedPrice(), "450.00")

	job.HumanAdjustedEstimate = decimal.Zero
	assertMoney(t, "quoted without pin", job.QuotedPrice(), "480.00")
}

func TestEstimateDoesNotMutateInput(t *testing.T) {
	engine := NewEngine(nil)
	room := automatedRoom("a", domain.SizeLarge, domain.WorkloadHeavy)
	room.Override.Size = domain.SizeMedium
	job := domain.Job{ID: "job-1", Rooms: []domain.Room{room}}

	estimate, _ := engine.Estimate(job)
	if !job.Rooms[0].EstimatedCost.IsZero() {
		t.Fatalf("input room mutated")
	}
	if len(estimate.Rooms) != 1 {
		t.Fatalf("expected 1 room row, got %d", len(estimate.Rooms))
	}
	assertMoney(t, "room cost", estimate.Rooms[0].Cost, "360.00")
	assertMoney(t, "automated cost", estimate.Rooms[0].AutomatedCost, "480.00")
	assertMoney(t, "quoted", estimate.QuotedPrice, "360.00")
	if estimate.TableVersion != DefaultTableVersion {
		t.Fatalf("unexpected table version %q", estimate.TableVersion)
	}
}

func TestFormatLineItems(t *testing.T) {
	engine := NewEngine(nil)
	kitchen := automatedRoom("k", domain.SizeLarge, domain.WorkloadHeavy)
	kitchen.Name = "Kitchen"
	unnamed := automatedRoom("u", domain.SizeSmall, domain.WorkloadLight)
	unnamed.Name = "  "
	unnamed.Override.Workload = domain.WorkloadExtreme

	items := engine.FormatLineItems(
		[]domain.Room{kitchen, unnamed},
		[]domain.Adjustment{{Label: "Dumpster Rental", Amount: dec("200")}},
	)
	if len(items) != 3 {
		t.Fatalf("expected 3 line items, got %d", len(items))
	}

	want := []struct {
		desc  string
		total string
	}{
		{"Kitchen Cleanout", "480.00"},
		{"Room Cleanout", "300.00"},
		{"Dumpster Rental", "200.00"},
	}
	for i, w := range want {
		item := items[i]
		if item.Description != w.desc {
			t.Fatalf("item %d: expected description %q, got %q", i, w.desc, item.Description)
		}
		if item.Quantity != 1 {
			t.Fatalf("item %d: expected quantity 1, got %d", i, item.Quantity)
		}
		assertMoney(t, w.desc, item.Total, w.total)
		if !item.UnitPrice.Equal(item.Total) {
			t.Fatalf("item %d: unit price %s differs from total %s", i, item.UnitPrice, item.Total)
		}
	}
}

func TestLineItemsSumToFinalPrice(t *testing.T) {
	engine := NewEngine(nil)
	adjustments := []domain.Adjustment{
		{Label: "Dumpster Rental", Amount: dec("0.01")},
		{Label: "Hazmat Fee", Amount: dec("0.01")},
		{Label: "Loyalty Discount", Amount: dec("-19.99")},
	}
	if err := domain.ValidateAdjustments("update job", adjustments); err != nil {
		t.Fatalf("validate: %v", err)
	}
	stairs := automatedRoom("b", domain.SizeSmall, domain.WorkloadModerate)
	stairs.Adjustments = []domain.Adjustment{{Label: "Stairs", Amount: dec("33.33")}}
	job := &domain.Job{
		Rooms:       []domain.Room{automatedRoom("a", domain.SizeMedium, domain.WorkloadHeavy), stairs},
		Adjustments: adjustments,
	}

	totals, _ := engine.RecomputeJob(job)
	sum := decimal.Zero
	for _, item := range engine.FormatLineItems(job.Rooms, job.Adjustments) {
		sum = sum.Add(item.Total)
	}
	assertMoney(t, "line item sum", sum, totals.FinalPrice.StringFixed(2))

	if err := domain.ValidateAdjustments("update job", []domain.Adjustment{
		{Label: "Dumpster Rental", Amount: dec("0.005")},
		{Label: "Hazmat Fee", Amount: dec("0.005")},
	}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected half-cent adjustments to be rejected, got %v", err)
	}
}

func TestFormatLineItemsNeverLeaksClassificationVocabulary(t *testing.T) {
	engine := NewEngine(nil)
	rooms := make([]domain.Room, 0)
	for _, s := range domain.SizeClasses {
		for _, w := range domain.WorkloadClasses {
			rooms = append(rooms, automatedRoom("Attic", s, w))
		}
	}
	vocabulary := []string{"small", "medium", "large", "extra", "light", "moderate", "heavy", "extreme", "confidence"}

	for _, item := range engine.FormatLineItems(rooms, nil) {
		for _, word := range vocabulary {
			if containsFold(item.Description, word) {
				t.Fatalf("line item %q leaks %q", item.Description, word)
			}
		}
	}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
