package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a BusinessError for the request boundary.
type Kind string

const (
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	KindNotFound        Kind = "NOT_FOUND"
	KindInvalidState    Kind = "INVALID_STATE"
	KindConflict        Kind = "CONFLICT"
	KindInternal        Kind = "INTERNAL"
)

// Kind sentinels, matched by errors.Is against any BusinessError of that kind.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrConflict        = errors.New("conflict")
	ErrInternal        = errors.New("internal error")
)

// Domain errors
var (
	ErrLoanNotFound           = errors.New("loan not found")
	ErrCustomerNotFound       = errors.New("customer not found")
	ErrCustomerEmailTaken     = errors.New("customer email already registered")
	ErrInvalidLoanTerms       = errors.New("invalid loan terms")
	ErrInvalidPaymentAmount   = errors.New("invalid payment amount")
	ErrPaymentExceedsBalance  = errors.New("payment exceeds remaining balance")
	ErrLoanAlreadyPaidOff     = errors.New("loan already paid off")
	ErrConcurrentModification = errors.New("loan was modified concurrently")
	ErrLoanBusy               = errors.New("loan is locked by another operation")
)

var kindSentinels = map[Kind]error{
	KindInvalidArgument: ErrInvalidArgument,
	KindNotFound:        ErrNotFound,
	KindInvalidState:    ErrInvalidState,
	KindConflict:        ErrConflict,
	KindInternal:        ErrInternal,
}

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Kind    Kind
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *BusinessError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// NewBusinessError creates a new business error
func NewBusinessError(kind Kind, code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeInvalidRequest         = "INVALID_REQUEST"
	ErrCodeLoanNotFound           = "LOAN_NOT_FOUND"
	ErrCodeCustomerNotFound       = "CUSTOMER_NOT_FOUND"
	ErrCodeCustomerEmailTaken     = "CUSTOMER_EMAIL_TAKEN"
	ErrCodeInvalidLoanTerms       = "INVALID_LOAN_TERMS"
	ErrCodeInvalidPaymentAmount   = "INVALID_PAYMENT_AMOUNT"
	ErrCodePaymentExceedsBalance  = "PAYMENT_EXCEEDS_BALANCE"
	ErrCodeLoanAlreadyPaidOff     = "LOAN_ALREADY_PAID_OFF"
	ErrCodeConcurrentModification = "CONCURRENT_MODIFICATION"
	ErrCodeLoanBusy               = "LOAN_BUSY"
	ErrCodeDatabaseError          = "DATABASE_ERROR"
	ErrCodeLockError              = "LOCK_ERROR"
)

func WrapInvalidRequest(message string, err error) *BusinessError {
	return NewBusinessError(KindInvalidArgument, ErrCodeInvalidRequest, message, err)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapCustomerNotFound(customerID string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeCustomerNotFound,
		fmt.Sprintf("Customer with ID %s not found", customerID),
		ErrCustomerNotFound,
	)
}

func WrapCustomerEmailTaken(email string) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeCustomerEmailTaken,
		fmt.Sprintf("A customer with email %s already exists", email),
		ErrCustomerEmailTaken,
	)
}

func WrapInvalidLoanTerms(message string) *BusinessError {
	return NewBusinessError(KindInvalidArgument, ErrCodeInvalidLoanTerms, message, ErrInvalidLoanTerms)
}

func WrapInvalidPaymentAmount(amount string) *BusinessError {
	return NewBusinessError(
		KindInvalidArgument,
		ErrCodeInvalidPaymentAmount,
		fmt.Sprintf("Invalid payment amount: %s", amount),
		ErrInvalidPaymentAmount,
	)
}

func WrapPaymentExceedsBalance(amount, balance string) *BusinessError {
	return NewBusinessError(
		KindInvalidArgument,
		ErrCodePaymentExceedsBalance,
		fmt.Sprintf("Payment amount %s exceeds remaining balance %s", amount, balance),
		ErrPaymentExceedsBalance,
	)
}

func WrapLoanAlreadyPaidOff(loanID string) *BusinessError {
	return NewBusinessError(
		KindInvalidState,
		ErrCodeLoanAlreadyPaidOff,
		fmt.Sprintf("Loan with ID %s is already paid off", loanID),
		ErrLoanAlreadyPaidOff,
	)
}

func WrapConcurrentModification(loanID string) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeConcurrentModification,
		fmt.Sprintf("Loan with ID %s was updated by another request, retry", loanID),
		ErrConcurrentModification,
	)
}

func WrapLoanBusy(loanID string, err error) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeLoanBusy,
		fmt.Sprintf("Loan with ID %s is being updated, retry", loanID),
		errors.Join(ErrLoanBusy, err),
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		KindInternal,
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapLockError(err error) *BusinessError {
	return NewBusinessError(
		KindInternal,
		ErrCodeLockError,
		"Lock operation failed",
		err,
	)
}

// KindOf returns the kind of the first BusinessError in err's chain.
// Errors without one are Internal.
func KindOf(err error) Kind {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

// HTTPStatus maps err to the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the client-safe message for err.
func PublicMessage(err error) string {
	var be *BusinessError
	if errors.As(err, &be) && be.Kind != KindInternal {
		return be.Message
	}
	return "internal server error"
}
