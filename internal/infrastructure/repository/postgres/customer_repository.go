package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
)

type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const customerColumns = `id, name, email, phone, address, created_at, updated_at`

func (r *CustomerRepository) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO customers (`+customerColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, customer.ID, customer.Name, customer.Email, customer.Phone, customer.Address, customer.CreatedAt, customer.UpdatedAt)
	if err != nil {
		return mapWriteError("insert customer", err, nil)
	}
	return nil
}

func (r *CustomerRepository) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+customerColumns+`
FROM customers
WHERE id = $1
`, id)

	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCustomerNotFound, "get customer", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	return &customer, nil
}

func (r *CustomerRepository) ListCustomers(ctx context.Context, page domain.Page) ([]domain.Customer, error) {
	page = page.Normalize()
	rows, err := r.db.QueryContext(ctx, `
SELECT `+customerColumns+`
FROM customers
ORDER BY name ASC, id ASC
LIMIT $1 OFFSET $2
`, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Customer, 0)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return out, nil
}

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
