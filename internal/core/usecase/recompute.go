package usecase

import (
	"log/slog"
	"time"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
	"github.com/kirillkom/cleanout-estimator/internal/core/ports"
	"github.com/kirillkom/cleanout-estimator/internal/core/pricing"
)

const (
	triggerJobCreated      = "job_created"
	triggerJobUpdated      = "job_updated"
	triggerJobAdjusted     = "job_adjusted"
	triggerRoomCreated     = "room_created"
	triggerRoomOverridden  = "room_overridden"
	triggerRoomAdjusted    = "room_adjusted"
	triggerRoomReprocessed = "room_reprocessed"
	triggerRoomDeleted     = "room_deleted"
)

type noopObserver struct{}

func (noopObserver) RecordFallback(string)       {}
func (noopObserver) RecordClassification(string) {}
func (noopObserver) RecordRecompute(string)      {}

func observerOrNoop(observer ports.PricingObserver) ports.PricingObserver {
	if observer == nil {
		return noopObserver{}
	}
	return observer
}

// recomputeJob is the single path that writes derived pricing fields before a
// job is persisted.
func recomputeJob(engine *pricing.Engine, observer ports.PricingObserver, job *domain.Job, trigger string) pricing.JobTotals {
	totals, fallback := engine.RecomputeJob(job)
	if fallback.Any() {
		reportFallbacks(engine, observer, job)
	}
	observer.RecordRecompute(trigger)
	slog.Debug("job_recomputed",
		"job_id", job.ID,
		"trigger", trigger,
		"rooms", len(job.Rooms),
		"ai_estimate", totals.AIEstimate.StringFixed(2),
		"final_price", totals.FinalPrice.StringFixed(2),
	)
	return totals
}

func reportFallbacks(engine *pricing.Engine, observer ports.PricingObserver, job *domain.Job) {
	for _, room := range job.Rooms {
		final := pricing.Reconcile(room.Automated, room.Override)
		for _, cls := range []struct {
			source   string
			size     domain.SizeClass
			workload domain.WorkloadClass
		}{
			{"final", final.Size, final.Workload},
			{"automated", room.Automated.Size, room.Automated.Workload},
		} {
			if !cls.size.Valid() {
				observer.RecordFallback("size")
				slog.Warn("pricing_fallback",
					"job_id", job.ID,
					"room_id", room.ID,
					"classification", cls.source,
					"axis", "size",
					"value", string(cls.size),
					"substitute", string(domain.SizeMedium),
					"table_version", engine.Table().Version(),
				)
			}
			if !cls.workload.Valid() {
				observer.RecordFallback("workload")
				slog.Warn("pricing_fallback",
					"job_id", job.ID,
					"room_id", room.ID,
					"classification", cls.source,
					"axis", "workload",
					"value", string(cls.workload),
					"substitute", string(domain.WorkloadModerate),
					"table_version", engine.Table().Version(),
				)
			}
		}
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}
