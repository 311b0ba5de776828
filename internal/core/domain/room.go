package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Adjustment is a labeled signed amount added to a room or job total.
type Adjustment struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// ValidateAdjustments rejects blank labels and amounts finer than a cent.
func ValidateAdjustments(operation string, adjustments []Adjustment) error {
	for i, adj := range adjustments {
		if strings.TrimSpace(adj.Label) == "" {
			return InvalidInput(operation, "adjustment %d: label is required", i)
		}
		if !IsWholeCents(adj.Amount) {
			return InvalidInput(operation, "adjustment %d: amount %s has more than two decimal places", i, adj.Amount.String())
		}
	}
	return nil
}

// IsWholeCents reports whether v has no significant digits below a cent.
// Trailing zeros such as 10.500 are accepted.
func IsWholeCents(v decimal.Decimal) bool {
	return v.Equal(v.Round(2))
}

// SumAdjustments returns the exact sum of the amounts.
func SumAdjustments(adjustments []Adjustment) decimal.Decimal {
	total := decimal.Zero
	for _, adj := range adjustments {
		total = total.Add(adj.Amount)
	}
	return total
}

type Room struct {
	ID       string `json:"id"`
	JobID    string `json:"job_id"`
	Name     string `json:"name"`
	Position int    `json:"position"`

	ImageKey         string `json:"image_key,omitempty"`
	ImageContentType string `json:"image_content_type,omitempty"`

	Automated Classification `json:"automated"`
	Override  Override       `json:"override"`

	// Final and EstimatedCost are derived by the pricing engine.
	Final         FinalClassification `json:"final"`
	EstimatedCost decimal.Decimal     `json:"estimated_cost"`

	Adjustments []Adjustment `json:"adjustments"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoomOverridePatch is a partial update of the human classification. Empty
// values leave an axis untouched; Clear* flags remove an existing override.
type RoomOverridePatch struct {
	Size          SizeClass
	Workload      WorkloadClass
	Reason        *string
	ClearSize     bool
	ClearWorkload bool
}

func (p RoomOverridePatch) Validate() error {
	if p.Size != "" && !p.Size.Valid() {
		return InvalidInput("override room", "unknown size class %q", p.Size)
	}
	if p.Workload != "" && !p.Workload.Valid() {
		return InvalidInput("override room", "unknown workload class %q", p.Workload)
	}
	if p.Size != "" && p.ClearSize {
		return InvalidInput("override room", "size override cannot be set and cleared at once")
	}
	if p.Workload != "" && p.ClearWorkload {
		return InvalidInput("override room", "workload override cannot be set and cleared at once")
	}
	if p.Size == "" && p.Workload == "" && !p.ClearSize && !p.ClearWorkload && p.Reason == nil {
		return InvalidInput("override room", "nothing to change")
	}
	return nil
}

// Apply mutates the room's human override only.
func (p RoomOverridePatch) Apply(room *Room) {
	if p.ClearSize {
		room.Override.Size = ""
	}
	if p.ClearWorkload {
		room.Override.Workload = ""
	}
	if p.Size != "" {
		room.Override.Size = p.Size
	}
	if p.Workload != "" {
		room.Override.Workload = p.Workload
	}
	if p.Reason != nil {
		room.Override.Reason = strings.TrimSpace(*p.Reason)
	}
	if room.Override.IsZero() {
		room.Override.Reason = ""
	}
}

// ReprocessRequest asks the worker to classify a stored room image again.
type ReprocessRequest struct {
	RoomID      string    `json:"room_id"`
	RequestID   string    `json:"request_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}
