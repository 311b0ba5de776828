package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
	"github.com/kirillkom/cleanout-estimator/internal/core/ports"
)

// JobRepository stores jobs and their rooms. Rooms are only written through
// the job so totals and room prices commit together.
type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, job_number, customer_id, status, property_address, scheduled_date, completed_date, notes,
	ai_estimate, final_price, human_adjusted_estimate, adjustments, created_at, updated_at`

const roomColumns = `id, job_id, name, position, image_key, image_content_type,
	automated_size, automated_workload, automated_confidence, automated_reasoning, automated_features, automated_model, classified_at,
	override_size, override_workload, override_reason,
	final_size, final_workload, final_size_source, final_workload_source,
	estimated_cost, adjustments, created_at, updated_at`

func (r *JobRepository) CreateJob(ctx context.Context, job *domain.Job) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create job tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	adjustments, err := marshalAdjustments(job.Adjustments)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO jobs (`+jobColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`,
		job.ID, job.JobNumber, job.CustomerID, string(job.Status), job.PropertyAddress,
		nullableTime(job.ScheduledDate), nullableTime(job.CompletedDate), job.Notes,
		job.AIEstimate, job.FinalPrice, job.HumanAdjustedEstimate, adjustments, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("insert job", err, domain.ErrCustomerNotFound)
	}

	for i := range job.Rooms {
		if err := upsertRoom(ctx, tx, &job.Rooms[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create job tx: %w", err)
	}
	return nil
}

func (r *JobRepository) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	return loadJob(ctx, r.db, id, false)
}

func (r *JobRepository) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	page := filter.Page.Normalize()
	rows, err := r.db.QueryContext(ctx, `
SELECT `+jobColumns+`
FROM jobs
WHERE ($1 = '' OR status = $1)
ORDER BY created_at DESC, id ASC
LIMIT $2 OFFSET $3
`, string(filter.Status), page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

// MutateJob locks the job row for the whole read-modify-write so concurrent
// room edits cannot commit totals computed from a stale room set.
func (r *JobRepository) MutateJob(ctx context.Context, id string, fn ports.JobMutation) (*domain.Job, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin mutate job tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	job, err := loadJob(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	before := make(map[string]struct{}, len(job.Rooms))
	for _, room := range job.Rooms {
		before[room.ID] = struct{}{}
	}

	if err := fn(job); err != nil {
		return nil, err
	}

	adjustments, err := marshalAdjustments(job.Adjustments)
	if err != nil {
		return nil, err
	}
	result, err := tx.ExecContext(ctx, `
UPDATE jobs
SET status = $2, property_address = $3, scheduled_date = $4, completed_date = $5, notes = $6,
	ai_estimate = $7, final_price = $8, human_adjusted_estimate = $9, adjustments = $10, updated_at = $11
WHERE id = $1
`,
		job.ID, string(job.Status), job.PropertyAddress, nullableTime(job.ScheduledDate), nullableTime(job.CompletedDate),
		job.Notes, job.AIEstimate, job.FinalPrice, job.HumanAdjustedEstimate, adjustments, job.UpdatedAt,
	)
	if err != nil {
		return nil, mapWriteError("update job", err, nil)
	}
	if err := ensureAffected(result, domain.ErrJobNotFound, "update job", job.ID); err != nil {
		return nil, err
	}

	for i := range job.Rooms {
		job.Rooms[i].JobID = job.ID
		if err := upsertRoom(ctx, tx, &job.Rooms[i]); err != nil {
			return nil, err
		}
		delete(before, job.Rooms[i].ID)
	}
	for roomID := range before {
		if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, roomID); err != nil {
			return nil, fmt.Errorf("delete room %s: %w", roomID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit mutate job tx: %w", err)
	}
	job.SortRooms()
	return job, nil
}

func (r *JobRepository) DeleteJob(ctx context.Context, id string) (*domain.Job, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete job tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	job, err := loadJob(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		// Invoiced jobs are kept for the accounting trail.
		return nil, mapWriteError("delete job", err, domain.ErrConflict)
	}
	if err := ensureAffected(result, domain.ErrJobNotFound, "delete job", id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete job tx: %w", err)
	}
	return job, nil
}

func (r *JobRepository) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+roomColumns+`
FROM rooms
WHERE id = $1
`, id)
	room, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRoomNotFound, "get room", fmt.Errorf("id=%s", id))
		}
		return nil, err
	}
	return &room, nil
}

// ListRooms lists rooms of one job, or of every job when jobID is empty.
func (r *JobRepository) ListRooms(ctx context.Context, jobID string, page domain.Page) ([]domain.Room, error) {
	page = page.Normalize()
	rows, err := r.db.QueryContext(ctx, `
SELECT `+roomColumns+`
FROM rooms
WHERE ($1 = '' OR job_id = $1)
ORDER BY job_id ASC, position ASC, created_at ASC
LIMIT $2 OFFSET $3
`, jobID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()
	return collectRooms(rows)
}

func loadJob(ctx context.Context, q querier, id string, forUpdate bool) (*domain.Job, error) {
	query := `
SELECT ` + jobColumns + `
FROM jobs
WHERE id = $1
`
	if forUpdate {
		query += "FOR UPDATE\n"
	}

	job, err := scanJob(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id=%s", id))
		}
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
SELECT `+roomColumns+`
FROM rooms
WHERE job_id = $1
ORDER BY position ASC, created_at ASC
`, id)
	if err != nil {
		return nil, fmt.Errorf("load job rooms: %w", err)
	}
	defer rows.Close()

	job.Rooms, err = collectRooms(rows)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func upsertRoom(ctx context.Context, q querier, room *domain.Room) error {
	features := room.Automated.Features
	if features == nil {
		features = map[string]any{}
	}
	featuresJSON, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("marshal room features: %w", err)
	}
	adjustments, err := marshalAdjustments(room.Adjustments)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
INSERT INTO rooms (`+roomColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	position = EXCLUDED.position,
	image_key = EXCLUDED.image_key,
	image_content_type = EXCLUDED.image_content_type,
	automated_size = EXCLUDED.automated_size,
	automated_workload = EXCLUDED.automated_workload,
	automated_confidence = EXCLUDED.automated_confidence,
	automated_reasoning = EXCLUDED.automated_reasoning,
	automated_features = EXCLUDED.automated_features,
	automated_model = EXCLUDED.automated_model,
	classified_at = EXCLUDED.classified_at,
	override_size = EXCLUDED.override_size,
	override_workload = EXCLUDED.override_workload,
	override_reason = EXCLUDED.override_reason,
	final_size = EXCLUDED.final_size,
	final_workload = EXCLUDED.final_workload,
	final_size_source = EXCLUDED.final_size_source,
	final_workload_source = EXCLUDED.final_workload_source,
	estimated_cost = EXCLUDED.estimated_cost,
	adjustments = EXCLUDED.adjustments,
	updated_at = EXCLUDED.updated_at
`,
		room.ID, room.JobID, room.Name, room.Position, room.ImageKey, room.ImageContentType,
		string(room.Automated.Size), string(room.Automated.Workload), room.Automated.Confidence,
		room.Automated.Reasoning, featuresJSON, room.Automated.Model, room.Automated.ClassifiedAt,
		nullableString(string(room.Override.Size)), nullableString(string(room.Override.Workload)), room.Override.Reason,
		string(room.Final.Size), string(room.Final.Workload), string(room.Final.SizeSource), string(room.Final.WorkloadSource),
		room.EstimatedCost, adjustments, room.CreatedAt, room.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("upsert room", err, domain.ErrJobNotFound)
	}
	return nil
}

func collectRooms(rows *sql.Rows) ([]domain.Room, error) {
	out := make([]domain.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	return out, nil
}

func scanJob(row rowScanner) (domain.Job, error) {
	var (
		job            domain.Job
		status         string
		scheduled      sql.NullTime
		completed      sql.NullTime
		adjustmentsRaw []byte
	)
	err := row.Scan(
		&job.ID, &job.JobNumber, &job.CustomerID, &status, &job.PropertyAddress, &scheduled, &completed, &job.Notes,
		&job.AIEstimate, &job.FinalPrice, &job.HumanAdjustedEstimate, &adjustmentsRaw, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return job, err
		}
		return job, fmt.Errorf("scan job: %w", err)
	}

	job.Status = domain.JobStatus(status)
	job.ScheduledDate = timePtr(scheduled)
	job.CompletedDate = timePtr(completed)
	if job.Adjustments, err = unmarshalAdjustments(adjustmentsRaw); err != nil {
		return job, err
	}
	job.Rooms = []domain.Room{}
	return job, nil
}

func scanRoom(row rowScanner) (domain.Room, error) {
	var (
		room                                 domain.Room
		autoSize, autoWorkload               string
		overrideSize, overrideWorkload       sql.NullString
		finalSize, finalWorkload             string
		finalSizeSource, finalWorkloadSource string
		featuresRaw, adjustmentsRaw          []byte
	)
	err := row.Scan(
		&room.ID, &room.JobID, &room.Name, &room.Position, &room.ImageKey, &room.ImageContentType,
		&autoSize, &autoWorkload, &room.Automated.Confidence, &room.Automated.Reasoning, &featuresRaw,
		&room.Automated.Model, &room.Automated.ClassifiedAt,
		&overrideSize, &overrideWorkload, &room.Override.Reason,
		&finalSize, &finalWorkload, &finalSizeSource, &finalWorkloadSource,
		&room.EstimatedCost, &adjustmentsRaw, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return room, err
		}
		return room, fmt.Errorf("scan room: %w", err)
	}

	// Stored class names are kept verbatim; legacy values outside the
	// vocabulary are priced with the fallback multiplier.
	room.Automated.Size = domain.SizeClass(autoSize)
	room.Automated.Workload = domain.WorkloadClass(autoWorkload)
	room.Override.Size = domain.SizeClass(overrideSize.String)
	room.Override.Workload = domain.WorkloadClass(overrideWorkload.String)
	room.Final = domain.FinalClassification{
		Size:           domain.SizeClass(finalSize),
		Workload:       domain.WorkloadClass(finalWorkload),
		SizeSource:     domain.ClassificationSource(finalSizeSource),
		WorkloadSource: domain.ClassificationSource(finalWorkloadSource),
	}

	room.Automated.Features = map[string]any{}
	if len(featuresRaw) > 0 {
		if err := json.Unmarshal(featuresRaw, &room.Automated.Features); err != nil {
			return room, fmt.Errorf("unmarshal room features: %w", err)
		}
	}
	if room.Adjustments, err = unmarshalAdjustments(adjustmentsRaw); err != nil {
		return room, err
	}
	return room, nil
}
