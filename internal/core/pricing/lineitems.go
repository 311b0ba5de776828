package pricing

import (
	"strings"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
)

const defaultRoomLineDescription = "Room Cleanout"

// FormatLineItems builds customer-facing lines: one per room in the given
// order, then one per job adjustment. Room amounts are re-derived from the
// current room state so a stale stored cost cannot leak onto an invoice.
func (e *Engine) FormatLineItems(rooms []domain.Room, jobAdjustments []domain.Adjustment) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(rooms)+len(jobAdjustments))
	for i := range rooms {
		room := rooms[i]
		e.PriceRoom(&room)
		items = append(items, domain.LineItem{
			Description: roomLineDescription(room.Name),
			Quantity:    1,
			UnitPrice:   room.EstimatedCost,
			Total:       room.EstimatedCost,
		})
	}
	for _, adj := range jobAdjustments {
		amount := RoundMoney(adj.Amount)
		items = append(items, domain.LineItem{
			Description: strings.TrimSpace(adj.Label),
			Quantity:    1,
			UnitPrice:   amount,
			Total:       amount,
		})
	}
	return items
}

func roomLineDescription(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultRoomLineDescription
	}
	return name + " Cleanout"
}
