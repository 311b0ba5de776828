package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
	"github.com/kirillkom/cleanout-estimator/internal/core/ports"
	"github.com/kirillkom/cleanout-estimator/internal/core/pricing"
)

type JobUseCase struct {
	jobs      ports.JobRepository
	customers ports.CustomerRepository
	images    ports.ImageStorage
	engine    *pricing.Engine
	observer  ports.PricingObserver
	now       func() time.Time
}

func NewJobUseCase(
	jobs ports.JobRepository,
	customers ports.CustomerRepository,
	images ports.ImageStorage,
	engine *pricing.Engine,
	observer ports.PricingObserver,
) *JobUseCase {
	return &JobUseCase{
		jobs:      jobs,
		customers: customers,
		images:    images,
		engine:    engine,
		observer:  observerOrNoop(observer),
		now:       utcNow,
	}
}

func (uc *JobUseCase) CreateJob(ctx context.Context, input ports.NewJob) (*domain.Job, error) {
	customerID := strings.TrimSpace(input.CustomerID)
	if customerID == "" {
		return nil, domain.InvalidInput("create job", "customer id is required")
	}
	address := strings.TrimSpace(input.PropertyAddress)
	if address == "" {
		return nil, domain.InvalidInput("create job", "property address is required")
	}
	if _, err := uc.customers.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	now := uc.now()
	job := &domain.Job{
		ID:                    uuid.NewString(),
		JobNumber:             domain.NewDocumentNumber("JOB", now),
		CustomerID:            customerID,
		Status:                domain.JobStatusDraft,
		PropertyAddress:       address,
		ScheduledDate:         input.ScheduledDate,
		Notes:                 input.Notes,
		HumanAdjustedEstimate: decimal.Zero,
		Adjustments:           []domain.Adjustment{},
		Rooms:                 []domain.Room{},
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	recomputeJob(uc.engine, uc.observer, job, triggerJobCreated)

	if err := uc.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	slog.Info("job_created", "job_id", job.ID, "job_number", job.JobNumber, "customer_id", customerID)
	return job, nil
}

func (uc *JobUseCase) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.InvalidInput("get job", "job id is required")
	}
	return uc.jobs.GetJob(ctx, id)
}

func (uc *JobUseCase) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.InvalidInput("list jobs", "unknown job status %q", filter.Status)
	}
	filter.Page = filter.Page.Normalize()
	return uc.jobs.ListJobs(ctx, filter)
}

func (uc *JobUseCase) UpdateJob(ctx context.Context, id string, patch domain.JobPatch) (*domain.Job, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	trigger := triggerJobUpdated
	if patch.ChangesPricing() {
		trigger = triggerJobAdjusted
	}

	return uc.jobs.MutateJob(ctx, id, func(job *domain.Job) error {
		patch.Apply(job)
		job.UpdatedAt = uc.now()
		recomputeJob(uc.engine, uc.observer, job, trigger)
		return nil
	})
}

func (uc *JobUseCase) DeleteJob(ctx context.Context, id string) error {
	deleted, err := uc.jobs.DeleteJob(ctx, id)
	if err != nil {
		return err
	}
	for _, room := range deleted.Rooms {
		removeImage(ctx, uc.images, room)
	}
	slog.Info("job_deleted", "job_id", id, "rooms", len(deleted.Rooms))
	return nil
}

// GetEstimate recomputes the stored job in memory and returns the breakdown.
func (uc *JobUseCase) GetEstimate(ctx context.Context, id string) (*pricing.Estimate, error) {
	job, err := uc.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	estimate, fallback := uc.engine.Estimate(*job)
	if fallback.Any() {
		reportFallbacks(uc.engine, uc.observer, job)
	}
	return &estimate, nil
}

func removeImage(ctx context.Context, images ports.ImageStorage, room domain.Room) {
	if images == nil || room.ImageKey == "" {
		return
	}
	if err := images.Delete(ctx, room.ImageKey); err != nil {
		slog.Warn("room_image_delete_failed", "room_id", room.ID, "image_key", room.ImageKey, "error", err)
	}
}
