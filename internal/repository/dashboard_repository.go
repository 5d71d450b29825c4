package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/loanbook/internal/domain"
)

type dashboardRepository struct {
	db *sqlx.DB
}

func NewDashboardRepository(db *sqlx.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM customers)                                           AS total_customers,
			(SELECT COUNT(*) FROM loans)                                               AS total_loans,
			(SELECT COUNT(*) FROM loans WHERE status = 'ACTIVE')                       AS active_loans,
			(SELECT COUNT(*) FROM loans WHERE status = 'PAID_OFF')                     AS paid_off_loans,
			(SELECT COALESCE(SUM(amount), 0) FROM loans)                               AS total_principal,
			(SELECT COALESCE(SUM(remaining_balance), 0) FROM loans)                    AS total_outstanding,
			(SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'completed') AS total_collected
	`

	var stats domain.DashboardStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, err
	}
	stats.GeneratedAt = time.Now()

	return &stats, nil
}
