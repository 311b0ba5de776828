package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
	"github.com/kirillkom/cleanout-estimator/internal/core/ports"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type memoryStore struct {
	mu        sync.Mutex
	customers map[string]domain.Customer
	jobs      map[string]domain.Job
	invoices  map[string]domain.Invoice
	mutations int
	mutateErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		customers: map[string]domain.Customer{},
		jobs:      map[string]domain.Job{},
		invoices:  map[string]domain.Invoice{},
	}
}

func cloneJob(job domain.Job) domain.Job {
	out := job
	out.Adjustments = append([]domain.Adjustment(nil), job.Adjustments...)
	out.Rooms = make([]domain.Room, len(job.Rooms))
	for i, room := range job.Rooms {
		room.Adjustments = append([]domain.Adjustment(nil), room.Adjustments...)
		out.Rooms[i] = room
	}
	return out
}

func (s *memoryStore) CreateCustomer(_ context.Context, customer *domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[customer.ID] = *customer
	return nil
}

func (s *memoryStore) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrCustomerNotFound, "get customer", fmt.Errorf("id=%s", id))
	}
	return &c, nil
}

func (s *memoryStore) ListCustomers(_ context.Context, page domain.Page) ([]domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	return out, nil
}

func (s *memoryStore) CreateJob(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = cloneJob(*job)
	return nil
}

func (s *memoryStore) GetJob(_ context.Context, id string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id=%s", id))
	}
	out := cloneJob(job)
	return &out, nil
}

func (s *memoryStore) ListJobs(_ context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Job, 0)
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		job.Rooms = nil
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) MutateJob(_ context.Context, id string, fn ports.JobMutation) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mutateErr != nil {
		return nil, s.mutateErr
	}
	stored, ok := s.jobs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrJobNotFound, "mutate job", fmt.Errorf("id=%s", id))
	}
	snapshot := cloneJob(stored)
	if err := fn(&snapshot); err != nil {
		return nil, err
	}
	s.jobs[id] = cloneJob(snapshot)
	s.mutations++
	return &snapshot, nil
}

func (s *memoryStore) DeleteJob(_ context.Context, id string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrJobNotFound, "delete job", fmt.Errorf("id=%s", id))
	}
	delete(s.jobs, id)
	return &job, nil
}

func (s *memoryStore) GetRoom(_ context.Context, id string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		for _, room := range job.Rooms {
			if room.ID == id {
				return &room, nil
			}
		}
	}
	return nil, domain.WrapError(domain.ErrRoomNotFound, "get room", fmt.Errorf("id=%s", id))
}

func (s *memoryStore) ListRooms(_ context.Context, jobID string, _ domain.Page) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return []domain.Room{}, nil
	}
	return append([]domain.Room(nil), job.Rooms...), nil
}

func (s *memoryStore) CreateInvoice(_ context.Context, invoice *domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[invoice.ID] = *invoice
	return nil
}

func (s *memoryStore) GetInvoice(_ context.Context, id string) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvoiceNotFound, "get invoice", fmt.Errorf("id=%s", id))
	}
	return &inv, nil
}

func (s *memoryStore) ListInvoicesByJob(_ context.Context, jobID string) ([]domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Invoice, 0)
	for _, inv := range s.invoices {
		if inv.JobID == jobID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (s *memoryStore) job(id string) domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneJob(s.jobs[id])
}

type imageStorageFake struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	saveErr error
}

func newImageStorageFake() *imageStorageFake {
	return &imageStorageFake{objects: map[string][]byte{}}
}

func (f *imageStorageFake) Save(_ context.Context, key, _ string, data io.Reader, _ int64) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = body
	return nil
}

func (f *imageStorageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (f *imageStorageFake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type classifierFake struct {
	results []domain.Classification
	errs    []error
	calls   int
}

func (f *classifierFake) ClassifyRoom(context.Context, []byte, string) (domain.Classification, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return domain.Classification{}, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return f.results[len(f.results)-1], nil
}

type queueFake struct {
	published []domain.ReprocessRequest
	err       error
}

func (f *queueFake) PublishRoomReprocess(_ context.Context, req domain.ReprocessRequest) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, req)
	return nil
}

func (f *queueFake) SubscribeRoomReprocess(context.Context, func(context.Context, domain.ReprocessRequest) error) error {
	return nil
}

type observerFake struct {
	fallbacks       map[string]int
	classifications map[string]int
	recomputes      map[string]int
}

func newObserverFake() *observerFake {
	return &observerFake{
		fallbacks:       map[string]int{},
		classifications: map[string]int{},
		recomputes:      map[string]int{},
	}
}

func (f *observerFake) RecordFallback(axis string)          { f.fallbacks[axis]++ }
func (f *observerFake) RecordClassification(outcome string) { f.classifications[outcome]++ }
func (f *observerFake) RecordRecompute(trigger string)      { f.recomputes[trigger]++ }
