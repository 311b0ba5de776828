package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
	"github.com/kirillkom/cleanout-estimator/internal/core/ports"
)

type CustomerUseCase struct {
	repo ports.CustomerRepository
	now  func() time.Time
}

func NewCustomerUseCase(repo ports.CustomerRepository) *CustomerUseCase {
	return &CustomerUseCase{repo: repo, now: utcNow}
}

func (uc *CustomerUseCase) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	customer.Normalize()
	if err := customer.Validate(); err != nil {
		return nil, err
	}

	now := uc.now()
	customer.ID = uuid.NewString()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	if err := uc.repo.CreateCustomer(ctx, &customer); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &customer, nil
}

func (uc *CustomerUseCase) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.InvalidInput("get customer", "customer id is required")
	}
	return uc.repo.GetCustomer(ctx, id)
}

func (uc *CustomerUseCase) ListCustomers(ctx context.Context, page domain.Page) ([]domain.Customer, error) {
	return uc.repo.ListCustomers(ctx, page.Normalize())
}
