package ports

import (
	"context"
	"io"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
)

// CustomerRepository persists customers.
type CustomerRepository interface {
	CreateCustomer(ctx context.Context, customer *domain.Customer) error
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context, page domain.Page) ([]domain.Customer, error)
}

// JobMutation edits a locked job snapshot in place. Returning an error aborts
// the transaction.
type JobMutation func(job *domain.Job) error

// JobRepository persists jobs together with their rooms.
type JobRepository interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	// GetJob returns the job with all rooms ordered by position.
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	// ListJobs returns jobs without rooms, newest first.
	ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error)
	// MutateJob serializes writers on the job row, hands fn a consistent
	// snapshot and persists the job and its rooms before committing.
	MutateJob(ctx context.Context, id string, fn JobMutation) (*domain.Job, error)
	// DeleteJob removes the job and its rooms and returns what was deleted.
	DeleteJob(ctx context.Context, id string) (*domain.Job, error)
}

// RoomReader is the read side of room storage.
type RoomReader interface {
	GetRoom(ctx context.Context, id string) (*domain.Room, error)
	ListRooms(ctx context.Context, jobID string, page domain.Page) ([]domain.Room, error)
}

// InvoiceRepository persists generated invoices.
type InvoiceRepository interface {
	CreateInvoice(ctx context.Context, invoice *domain.Invoice) error
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	ListInvoicesByJob(ctx context.Context, jobID string) ([]domain.Invoice, error)
}

// ImageStorage stores room images.
type ImageStorage interface {
	Save(ctx context.Context, key, contentType string, data io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// RoomClassifier estimates size and workload from a room image.
type RoomClassifier interface {
	ClassifyRoom(ctx context.Context, image []byte, roomName string) (domain.Classification, error)
}

// ReprocessQueue carries asynchronous reprocess requests.
type ReprocessQueue interface {
	PublishRoomReprocess(ctx context.Context, req domain.ReprocessRequest) error
	SubscribeRoomReprocess(ctx context.Context, handler func(context.Context, domain.ReprocessRequest) error) error
}

// PricingObserver records pricing events for metrics.
type PricingObserver interface {
	RecordFallback(axis string)
	RecordClassification(outcome string)
	RecordRecompute(trigger string)
}

// InvoiceRenderer renders an invoice into a downloadable document.
type InvoiceRenderer interface {
	RenderInvoice(invoice *domain.Invoice, customer *domain.Customer, job *domain.Job) ([]byte, error)
	ContentType() string
	FileExtension() string
}
