package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
	"github.com/kirillkom/cleanout-estimator/internal/core/ports"
	"github.com/kirillkom/cleanout-estimator/internal/core/pricing"
)

const DefaultMaxImageBytes = 10 << 20

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

type RoomUseCase struct {
	jobs       ports.JobRepository
	rooms      ports.RoomReader
	images     ports.ImageStorage
	classifier ports.RoomClassifier
	queue      ports.ReprocessQueue
	engine     *pricing.Engine
	observer   ports.PricingObserver

	maxImageBytes int64
	now           func() time.Time
}

type RoomUseCaseOptions struct {
	MaxImageBytes int64
	Observer      ports.PricingObserver
}

func NewRoomUseCase(
	jobs ports.JobRepository,
	rooms ports.RoomReader,
	images ports.ImageStorage,
	classifier ports.RoomClassifier,
	queue ports.ReprocessQueue,
	engine *pricing.Engine,
	options RoomUseCaseOptions,
) *RoomUseCase {
	maxImageBytes := options.MaxImageBytes
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	return &RoomUseCase{
		jobs:          jobs,
		rooms:         rooms,
		images:        images,
		classifier:    classifier,
		queue:         queue,
		engine:        engine,
		observer:      observerOrNoop(options.Observer),
		maxImageBytes: maxImageBytes,
		now:           utcNow,
	}
}

// CreateRoom stores the image, classifies it outside the job lock, then adds
// the priced room and recomputes the job in one transaction.
func (uc *RoomUseCase) CreateRoom(ctx context.Context, upload ports.RoomUpload) (*domain.Room, error) {
	jobID := strings.TrimSpace(upload.JobID)
	if jobID == "" {
		return nil, domain.InvalidInput("create room", "job id is required")
	}
	if upload.Body == nil {
		return nil, domain.InvalidInput("create room", "image is required")
	}
	image, err := readLimited(upload.Body, uc.maxImageBytes)
	if err != nil {
		return nil, err
	}
	contentType, err := detectImageType(upload.ContentType, image)
	if err != nil {
		return nil, err
	}
	if _, err := uc.jobs.GetJob(ctx, jobID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(upload.Name)
	roomID := uuid.NewString()
	imageKey := fmt.Sprintf("rooms/%s/%s", roomID, imageFilename(upload.Filename, contentType))
	if err := uc.images.Save(ctx, imageKey, contentType, bytes.NewReader(image), int64(len(image))); err != nil {
		return nil, fmt.Errorf("save room image: %w", err)
	}

	classification := uc.classifyOrFallback(ctx, roomID, image, name)

	var created domain.Room
	_, err = uc.jobs.MutateJob(ctx, jobID, func(job *domain.Job) error {
		now := uc.now()
		room := domain.Room{
			ID:               roomID,
			JobID:            job.ID,
			Name:             name,
			Position:         upload.Position,
			ImageKey:         imageKey,
			ImageContentType: contentType,
			Automated:        classification,
			Adjustments:      []domain.Adjustment{},
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if room.Position <= 0 {
			room.Position = job.NextRoomPosition()
		}
		job.Rooms = append(job.Rooms, room)
		job.SortRooms()
		job.UpdatedAt = now
		recomputeJob(uc.engine, uc.observer, job, triggerRoomCreated)

		created = job.Rooms[job.RoomIndex(roomID)]
		return nil
	})
	if err != nil {
		removeImage(context.WithoutCancel(ctx), uc.images, domain.Room{ID: roomID, ImageKey: imageKey})
		return nil, err
	}

	slog.Info("room_created",
		"room_id", roomID,
		"job_id", jobID,
		"size", string(created.Final.Size),
		"workload", string(created.Final.Workload),
		"confidence", created.Automated.Confidence,
		"estimated_cost", created.EstimatedCost.StringFixed(2),
	)
	return &created, nil
}

func (uc *RoomUseCase) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.InvalidInput("get room", "room id is required")
	}
	return uc.rooms.GetRoom(ctx, id)
}

func (uc *RoomUseCase) ListRooms(ctx context.Context, jobID string, page domain.Page) ([]domain.Room, error) {
	return uc.rooms.ListRooms(ctx, strings.TrimSpace(jobID), page.Normalize())
}

func (uc *RoomUseCase) OverrideRoom(ctx context.Context, id string, patch domain.RoomOverridePatch) (*domain.Room, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	room, err := uc.mutateRoom(ctx, id, triggerRoomOverridden, func(room *domain.Room) error {
		patch.Apply(room)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("room_overridden",
		"room_id", room.ID,
		"job_id", room.JobID,
		"size_override", string(room.Override.Size),
		"workload_override", string(room.Override.Workload),
		"estimated_cost", room.EstimatedCost.StringFixed(2),
	)
	return room, nil
}

func (uc *RoomUseCase) SetRoomAdjustments(ctx context.Context, id string, adjustments []domain.Adjustment) (*domain.Room, error) {
	if err := domain.ValidateAdjustments("set room adjustments", adjustments); err != nil {
		return nil, err
	}
	return uc.mutateRoom(ctx, id, triggerRoomAdjusted, func(room *domain.Room) error {
		room.Adjustments = append([]domain.Adjustment{}, adjustments...)
		return nil
	})
}

// ReprocessRoom classifies the stored image again. Only the automated
// classification changes; overrides keep driving their axes. A classifier
// failure leaves the room untouched.
func (uc *RoomUseCase) ReprocessRoom(ctx context.Context, id string) (*domain.Room, error) {
	current, err := uc.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.ImageKey == "" {
		return nil, domain.WrapError(domain.ErrConflict, "reprocess room", errors.New("room has no stored image"))
	}

	image, err := uc.loadImage(ctx, current.ImageKey)
	if err != nil {
		return nil, err
	}

	classification, err := uc.classifier.ClassifyRoom(ctx, image, current.Name)
	if err == nil {
		err = validateClassification(classification)
	}
	if err != nil {
		uc.observer.RecordClassification("error")
		if domain.IsKind(err, domain.ErrTemporary) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrTemporary, "reprocess room", err)
	}
	uc.observer.RecordClassification("ok")
	classification = uc.normalizeClassification(classification)

	room, err := uc.mutateRoom(ctx, id, triggerRoomReprocessed, func(room *domain.Room) error {
		room.Automated = classification
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("room_reprocessed",
		"room_id", room.ID,
		"job_id", room.JobID,
		"automated_size", string(room.Automated.Size),
		"automated_workload", string(room.Automated.Workload),
		"final_size", string(room.Final.Size),
		"final_workload", string(room.Final.Workload),
		"estimated_cost", room.EstimatedCost.StringFixed(2),
	)
	return room, nil
}

// EnqueueReprocess publishes a reprocess request for the worker.
func (uc *RoomUseCase) EnqueueReprocess(ctx context.Context, id, requestID string) error {
	if uc.queue == nil {
		return domain.WrapError(domain.ErrTemporary, "enqueue reprocess", errors.New("reprocess queue is not configured"))
	}
	room, err := uc.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	if room.ImageKey == "" {
		return domain.WrapError(domain.ErrConflict, "enqueue reprocess", errors.New("room has no stored image"))
	}
	req := domain.ReprocessRequest{
		RoomID:      room.ID,
		RequestID:   requestID,
		RequestedAt: uc.now(),
	}
	if err := uc.queue.PublishRoomReprocess(ctx, req); err != nil {
		return fmt.Errorf("publish reprocess request: %w", err)
	}
	return nil
}

func (uc *RoomUseCase) DeleteRoom(ctx context.Context, id string) error {
	current, err := uc.GetRoom(ctx, id)
	if err != nil {
		return err
	}

	var removed domain.Room
	_, err = uc.jobs.MutateJob(ctx, current.JobID, func(job *domain.Job) error {
		idx := job.RoomIndex(id)
		if idx < 0 {
			return domain.WrapError(domain.ErrRoomNotFound, "delete room", fmt.Errorf("id=%s", id))
		}
		removed = job.Rooms[idx]
		job.Rooms = append(job.Rooms[:idx], job.Rooms[idx+1:]...)
		job.UpdatedAt = uc.now()
		recomputeJob(uc.engine, uc.observer, job, triggerRoomDeleted)
		return nil
	})
	if err != nil {
		return err
	}

	removeImage(ctx, uc.images, removed)
	slog.Info("room_deleted", "room_id", id, "job_id", current.JobID)
	return nil
}

// mutateRoom locks the owning job, applies fn to the room and recomputes.
func (uc *RoomUseCase) mutateRoom(ctx context.Context, id, trigger string, fn func(room *domain.Room) error) (*domain.Room, error) {
	current, err := uc.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	var updated domain.Room
	_, err = uc.jobs.MutateJob(ctx, current.JobID, func(job *domain.Job) error {
		idx := job.RoomIndex(id)
		if idx < 0 {
			return domain.WrapError(domain.ErrRoomNotFound, trigger, fmt.Errorf("id=%s", id))
		}
		if err := fn(&job.Rooms[idx]); err != nil {
			return err
		}
		now := uc.now()
		job.Rooms[idx].UpdatedAt = now
		job.UpdatedAt = now
		recomputeJob(uc.engine, uc.observer, job, trigger)

		updated = job.Rooms[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (uc *RoomUseCase) classifyOrFallback(ctx context.Context, roomID string, image []byte, name string) domain.Classification {
	classification, err := uc.classifier.ClassifyRoom(ctx, image, name)
	if err == nil {
		err = validateClassification(classification)
	}
	if err != nil {
		uc.observer.RecordClassification("fallback")
		slog.Warn("classifier_fallback",
			"room_id", roomID,
			"room_name", name,
			"size", string(domain.SizeMedium),
			"workload", string(domain.WorkloadModerate),
			"error", err,
		)
		return domain.FallbackClassification("Automatic classification unavailable; default estimate applied.", uc.now())
	}
	uc.observer.RecordClassification("ok")
	return uc.normalizeClassification(classification)
}

func (uc *RoomUseCase) normalizeClassification(c domain.Classification) domain.Classification {
	c.Confidence = domain.ClampConfidence(c.Confidence)
	if c.Features == nil {
		c.Features = map[string]any{}
	}
	if c.ClassifiedAt.IsZero() {
		c.ClassifiedAt = uc.now()
	}
	return c
}

func validateClassification(c domain.Classification) error {
	if !c.Size.Valid() {
		return domain.InvalidInput("validate classification", "classifier returned unknown size class %q", c.Size)
	}
	if !c.Workload.Valid() {
		return domain.InvalidInput("validate classification", "classifier returned unknown workload class %q", c.Workload)
	}
	return nil
}

func (uc *RoomUseCase) loadImage(ctx context.Context, key string) ([]byte, error) {
	rc, err := uc.images.Open(ctx, key)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil, domain.WrapError(domain.ErrConflict, "open room image", fmt.Errorf("stored image %q is missing", key))
		}
		return nil, fmt.Errorf("open room image: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, uc.maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read room image: %w", err)
	}
	return data, nil
}

func readLimited(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, domain.InvalidInput("create room", "image exceeds %d bytes", limit)
	}
	if len(data) == 0 {
		return nil, domain.InvalidInput("create room", "image is empty")
	}
	return data, nil
}

// detectImageType trusts the bytes over the declared type.
func detectImageType(declared string, data []byte) (string, error) {
	sniffed := http.DetectContentType(data)
	if _, ok := allowedImageTypes[sniffed]; ok {
		return sniffed, nil
	}
	return "", domain.InvalidInput("create room", "unsupported image type %q (declared %q)", sniffed, declared)
}

func imageFilename(filename, contentType string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	base = strings.Trim(base, "._")
	if base == "" {
		base = "image"
	}
	if ext := allowedImageTypes[contentType]; !strings.EqualFold(filepath.Ext(base), ext) &&
		!(ext == ".jpg" && strings.EqualFold(filepath.Ext(base), ".jpeg")) {
		base += ext
	}
	return base
}
