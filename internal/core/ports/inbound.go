package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
	"github.com/kirillkom/cleanout-estimator/internal/core/pricing"
)

// CustomerService is the inbound contract for customer records.
type CustomerService interface {
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context, page domain.Page) ([]domain.Customer, error)
}

// NewJob carries the operator input for a new job.
type NewJob struct {
	CustomerID      string
	PropertyAddress string
	ScheduledDate   *time.Time
	Notes           string
}

// JobService is the inbound contract for jobs and their estimates.
type JobService interface {
	CreateJob(ctx context.Context, input NewJob) (*domain.Job, error)
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error)
	UpdateJob(ctx context.Context, id string, patch domain.JobPatch) (*domain.Job, error)
	DeleteJob(ctx context.Context, id string) error
	GetEstimate(ctx context.Context, id string) (*pricing.Estimate, error)
}

// RoomUpload is a room image upload with its metadata.
type RoomUpload struct {
	JobID       string
	Name        string
	Position    int
	Filename    string
	ContentType string
	Body        io.Reader
}

// RoomService is the inbound contract for room lifecycle operations.
type RoomService interface {
	CreateRoom(ctx context.Context, upload RoomUpload) (*domain.Room, error)
	GetRoom(ctx context.Context, id string) (*domain.Room, error)
	ListRooms(ctx context.Context, jobID string, page domain.Page) ([]domain.Room, error)
	OverrideRoom(ctx context.Context, id string, patch domain.RoomOverridePatch) (*domain.Room, error)
	SetRoomAdjustments(ctx context.Context, id string, adjustments []domain.Adjustment) (*domain.Room, error)
	ReprocessRoom(ctx context.Context, id string) (*domain.Room, error)
	EnqueueReprocess(ctx context.Context, id, requestID string) error
	DeleteRoom(ctx context.Context, id string) error
}

// RoomReprocessor is the inbound contract for the asynchronous worker.
type RoomReprocessor interface {
	ReprocessRoom(ctx context.Context, id string) (*domain.Room, error)
}

// InvoiceService is the inbound contract for invoice generation and export.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, jobID string) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, jobID string) ([]domain.Invoice, error)
	ExportInvoice(ctx context.Context, id string) (filename, contentType string, body []byte, err error)
}

// PricingTableReader exposes the active rate card.
type PricingTableReader interface {
	Table() *pricing.MultiplierTable
}
