package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/loanbook/internal/domain"
)

type customerRepository struct {
	db *sqlx.DB
}

func NewCustomerRepository(db *sqlx.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	query := `
		INSERT INTO customers (id, customer_id, name, email, phone, address, created_at)
		VALUES (:id, :customer_id, :name, :email, :phone, :address, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, customer)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *customerRepository) GetByCustomerID(ctx context.Context, customerID string) (*domain.Customer, error) {
	query := `
		SELECT id, customer_id, name, email, phone, address, created_at
		FROM customers
		WHERE customer_id = $1
	`

	var customer domain.Customer
	if err := r.db.GetContext(ctx, &customer, query, customerID); err != nil {
		return nil, notFound(err)
	}

	return &customer, nil
}

func (r *customerRepository) List(ctx context.Context) ([]*domain.Customer, error) {
	query := `
		SELECT id, customer_id, name, email, phone, address, created_at
		FROM customers
		ORDER BY created_at DESC
	`

	customers := []*domain.Customer{}
	if err := r.db.SelectContext(ctx, &customers, query); err != nil {
		return nil, err
	}

	return customers, nil
}
