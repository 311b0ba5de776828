package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type JobStatus string

const (
	JobStatusDraft      JobStatus = "draft"
	JobStatusEstimated  JobStatus = "estimated"
	JobStatusApproved   JobStatus = "approved"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusInvoiced   JobStatus = "invoiced"
	JobStatusPaid       JobStatus = "paid"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusDraft, JobStatusEstimated, JobStatusApproved, JobStatusInProgress,
		JobStatusCompleted, JobStatusInvoiced, JobStatusPaid:
		return true
	default:
		return false
	}
}

func ParseJobStatus(raw string) (JobStatus, error) {
	s := JobStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", InvalidInput("parse job status", "unknown job status %q", raw)
	}
	return s, nil
}

type Job struct {
	ID              string     `json:"id"`
	JobNumber       string     `json:"job_number"`
	CustomerID      string     `json:"customer_id"`
	Status          JobStatus  `json:"status"`
	PropertyAddress string     `json:"property_address"`
	ScheduledDate   *time.Time `json:"scheduled_date,omitempty"`
	CompletedDate   *time.Time `json:"completed_date,omitempty"`
	Notes           string     `json:"notes,omitempty"`

	// AIEstimate and FinalPrice are derived by the pricing engine.
	AIEstimate            decimal.Decimal `json:"ai_estimate"`
	FinalPrice            decimal.Decimal `json:"final_price"`
	HumanAdjustedEstimate decimal.Decimal `json:"human_adjusted_estimate"`

	Adjustments []Adjustment `json:"adjustments"`
	Rooms       []Room       `json:"rooms"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuotedPrice is the price presented to the customer: a non-zero human pinned
// estimate wins over the derived final price.
func (j *Job) QuotedPrice() decimal.Decimal {
	if !j.HumanAdjustedEstimate.IsZero() {
		return j.HumanAdjustedEstimate
	}
	return j.FinalPrice
}

// RoomIndex returns the position of roomID in Rooms or -1.
func (j *Job) RoomIndex(roomID string) int {
	for i := range j.Rooms {
		if j.Rooms[i].ID == roomID {
			return i
		}
	}
	return -1
}

// NextRoomPosition returns one past the highest room position.
func (j *Job) NextRoomPosition() int {
	next := 1
	for _, room := range j.Rooms {
		if room.Position >= next {
			next = room.Position + 1
		}
	}
	return next
}

// SortRooms orders rooms by position, then creation time.
func (j *Job) SortRooms() {
	sort.SliceStable(j.Rooms, func(a, b int) bool {
		if j.Rooms[a].Position != j.Rooms[b].Position {
			return j.Rooms[a].Position < j.Rooms[b].Position
		}
		return j.Rooms[a].CreatedAt.Before(j.Rooms[b].CreatedAt)
	})
}

// JobPatch is a partial update of operator-editable job fields.
type JobPatch struct {
	Status                *JobStatus
	PropertyAddress       *string
	ScheduledDate         *time.Time
	CompletedDate         *time.Time
	Notes                 *string
	HumanAdjustedEstimate *decimal.Decimal
	Adjustments           *[]Adjustment
}

func (p JobPatch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return InvalidInput("update job", "unknown job status %q", *p.Status)
	}
	if p.PropertyAddress != nil && strings.TrimSpace(*p.PropertyAddress) == "" {
		return InvalidInput("update job", "property address cannot be empty")
	}
	if p.HumanAdjustedEstimate != nil && p.HumanAdjustedEstimate.IsNegative() {
		return InvalidInput("update job", "human adjusted estimate cannot be negative")
	}
	if p.HumanAdjustedEstimate != nil && !IsWholeCents(*p.HumanAdjustedEstimate) {
		return InvalidInput("update job", "human adjusted estimate has more than two decimal places")
	}
	if p.Adjustments != nil {
		if err := ValidateAdjustments("update job", *p.Adjustments); err != nil {
			return err
		}
	}
	return nil
}

// ChangesPricing reports whether applying the patch requires a recomputation.
func (p JobPatch) ChangesPricing() bool {
	return p.Adjustments != nil
}

func (p JobPatch) Apply(job *Job) {
	if p.Status != nil {
		job.Status = *p.Status
	}
	if p.PropertyAddress != nil {
		job.PropertyAddress = strings.TrimSpace(*p.PropertyAddress)
	}
	if p.ScheduledDate != nil {
		job.ScheduledDate = p.ScheduledDate
	}
	if p.CompletedDate != nil {
		job.CompletedDate = p.CompletedDate
	}
	if p.Notes != nil {
		job.Notes = *p.Notes
	}
	if p.HumanAdjustedEstimate != nil {
		job.HumanAdjustedEstimate = *p.HumanAdjustedEstimate
	}
	if p.Adjustments != nil {
		job.Adjustments = append([]Adjustment(nil), (*p.Adjustments)...)
	}
}

// JobFilter narrows job listings.
type JobFilter struct {
	Status JobStatus
	Page   Page
}

// NewDocumentNumber builds human readable identifiers such as JOB-20261015-3F9A1C.
func NewDocumentNumber(prefix string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", prefix, at.UTC().Format("20060102"), suffix)
}
