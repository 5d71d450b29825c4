package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentTypeEMI     PaymentType = "EMI"
	PaymentTypeLumpSum PaymentType = "LUMP_SUM"
)

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodUPI          PaymentMethod = "UPI"
	PaymentMethodCheque       PaymentMethod = "CHEQUE"
	PaymentMethodCard         PaymentMethod = "CARD"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is an append-only record of money applied to a loan.
type Payment struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	PaymentID     string          `json:"payment_id" db:"payment_id"`
	LoanID        string          `json:"loan_id" db:"loan_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	PaymentDate   time.Time       `json:"payment_date" db:"payment_date"`
	PaymentType   PaymentType     `json:"payment_type" db:"payment_type"`
	PaymentMethod PaymentMethod   `json:"payment_method" db:"payment_method"`
	Status        PaymentStatus   `json:"status" db:"status"`
	Reference     string          `json:"reference,omitempty" db:"reference"`
}

type MakePaymentRequest struct {
	LoanID        string          `json:"-"`
	Amount        decimal.Decimal `json:"amount" validate:"decimal_gt=0,decimal_places=2"`
	PaymentType   PaymentType     `json:"payment_type" validate:"required,oneof=EMI LUMP_SUM"`
	PaymentMethod PaymentMethod   `json:"payment_method" validate:"required,oneof=CASH BANK_TRANSFER UPI CHEQUE CARD"`
	Reference     string          `json:"reference" validate:"max=100"`
}

type MakePaymentResponse struct {
	Payment *Payment `json:"payment"`
	Loan    *Loan    `json:"loan"`
}
