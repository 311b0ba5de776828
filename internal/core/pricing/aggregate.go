package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
)

// JobTotals are the derived job-level amounts.
type JobTotals struct {
	AIEstimate decimal.Decimal
	FinalPrice decimal.Decimal
}

// PriceRoom re-derives the room's final classification and estimated cost.
func (e *Engine) PriceRoom(room *domain.Room) Fallback {
	room.Final = Reconcile(room.Automated, room.Override)
	cost, fallback := e.CalculateRoomCost(room.Final.Size, room.Final.Workload, room.Adjustments)
	room.EstimatedCost = cost
	return fallback
}

// AutomatedRoomCost prices the room as if no human override existed.
func (e *Engine) AutomatedRoomCost(room *domain.Room) (decimal.Decimal, Fallback) {
	return e.CalculateRoomCost(room.Automated.Size, room.Automated.Workload, room.Adjustments)
}

// RecomputeJob prices every room and writes the job totals. The AI estimate
// ignores overrides; the final price includes them plus job adjustments.
func (e *Engine) RecomputeJob(job *domain.Job) (JobTotals, Fallback) {
	var fallback Fallback
	aiEstimate := decimal.Zero
	roomTotal := decimal.Zero

	for i := range job.Rooms {
		room := &job.Rooms[i]
		fallback = fallback.Merge(e.PriceRoom(room))
		roomTotal = roomTotal.Add(room.EstimatedCost)

		aiCost, aiFallback := e.AutomatedRoomCost(room)
		fallback = fallback.Merge(aiFallback)
		aiEstimate = aiEstimate.Add(aiCost)
	}

	totals := JobTotals{
		AIEstimate: RoundMoney(aiEstimate),
		FinalPrice: RoundMoney(roomTotal.Add(domain.SumAdjustments(job.Adjustments))),
	}
	job.AIEstimate = totals.AIEstimate
	job.FinalPrice = totals.FinalPrice
	return totals, fallback
}

// RoomEstimate is one row of an internal estimate breakdown.
type RoomEstimate struct {
	RoomID        string                     `json:"room_id"`
	Name          string                     `json:"name"`
	Position      int                        `json:"position"`
	Final         domain.FinalClassification `json:"final"`
	Automated     domain.Classification      `json:"automated"`
	Override      domain.Override            `json:"override"`
	Adjustments   []domain.Adjustment        `json:"adjustments"`
	Cost          decimal.Decimal            `json:"cost"`
	AutomatedCost decimal.Decimal            `json:"automated_cost"`
}

// Estimate is the internal pricing breakdown of a job.
type Estimate struct {
	JobID                 string              `json:"job_id"`
	TableVersion          string              `json:"table_version"`
	Rooms                 []RoomEstimate      `json:"rooms"`
	RoomTotal             decimal.Decimal     `json:"room_total"`
	Adjustments           []domain.Adjustment `json:"adjustments"`
	AdjustmentTotal       decimal.Decimal     `json:"adjustment_total"`
	AIEstimate            decimal.Decimal     `json:"ai_estimate"`
	FinalPrice            decimal.Decimal     `json:"final_price"`
	HumanAdjustedEstimate decimal.Decimal     `json:"human_adjusted_estimate"`
	QuotedPrice           decimal.Decimal     `json:"quoted_price"`
}

// Estimate recomputes job on a copy of its rooms and returns the breakdown.
// The input job is not modified.
func (e *Engine) Estimate(job domain.Job) (Estimate, Fallback) {
	job.Rooms = append([]domain.Room(nil), job.Rooms...)
	totals, fallback := e.RecomputeJob(&job)

	out := Estimate{
		JobID:                 job.ID,
		TableVersion:          e.table.Version(),
		Rooms:                 make([]RoomEstimate, 0, len(job.Rooms)),
		RoomTotal:             decimal.Zero,
		Adjustments:           job.Adjustments,
		AdjustmentTotal:       domain.SumAdjustments(job.Adjustments),
		AIEstimate:            totals.AIEstimate,
		FinalPrice:            totals.FinalPrice,
		HumanAdjustedEstimate: job.HumanAdjustedEstimate,
		QuotedPrice:           job.QuotedPrice(),
	}
	for i := range job.Rooms {
		room := &job.Rooms[i]
		aiCost, _ := e.AutomatedRoomCost(room)
		out.Rooms = append(out.Rooms, RoomEstimate{
			RoomID:        room.ID,
			Name:          room.Name,
			Position:      room.Position,
			Final:         room.Final,
			Automated:     room.Automated,
			Override:      room.Override,
			Adjustments:   room.Adjustments,
			Cost:          room.EstimatedCost,
			AutomatedCost: aiCost,
		})
		out.RoomTotal = out.RoomTotal.Add(room.EstimatedCost)
	}
	if out.Adjustments == nil {
		out.Adjustments = []domain.Adjustment{}
	}
	return out, fallback
}
