package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loanbook/internal/domain"
	customError "github.com/segyhp/loanbook/pkg/errors"
)

// LoanService is what the HTTP layer needs from internal/service.
type LoanService interface {
	CreateCustomer(ctx context.Context, request *domain.CreateCustomerRequest) (*domain.Customer, error)
	GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]*domain.Customer, error)
	ListCustomerLoans(ctx context.Context, customerID string) ([]*domain.Loan, error)

	QuoteLoan(ctx context.Context, request *domain.LoanQuoteRequest) (*domain.LoanQuoteResponse, error)
	CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error)
	GetLoan(ctx context.Context, loanID string) (*domain.Loan, error)
	ListLoans(ctx context.Context, status domain.LoanStatus) ([]*domain.Loan, error)
	GetSchedule(ctx context.Context, loanID string) (*domain.ScheduleResponse, error)

	ApplyPayment(ctx context.Context, request *domain.MakePaymentRequest) (*domain.MakePaymentResponse, error)
	ListPayments(ctx context.Context, loanID string) ([]*domain.Payment, error)
	ListAllPayments(ctx context.Context) ([]*domain.Payment, error)

	Dashboard(ctx context.Context) (*domain.DashboardStats, error)
	Backup(ctx context.Context) (*domain.Backup, error)
}

type LoanHandler struct {
	service   LoanService
	validator *validator.Validate
}

func NewLoanHandler(service LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: NewValidator(),
	}
}

// NewValidator returns a validator that understands decimal.Decimal fields
// through the decimal_gt, decimal_gte, decimal_lte and decimal_places tags.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("decimal_gt", decimalRule(decimal.Decimal.GreaterThan))
	_ = v.RegisterValidation("decimal_gte", decimalRule(decimal.Decimal.GreaterThanOrEqual))
	_ = v.RegisterValidation("decimal_lte", decimalRule(decimal.Decimal.LessThanOrEqual))
	_ = v.RegisterValidation("decimal_places", decimalPlaces)

	return v
}

func decimalRule(cmp func(value, param decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		param, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return cmp(value, param)
	}
}

func decimalPlaces(fl validator.FieldLevel) bool {
	value, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	places, err := strconv.ParseInt(fl.Param(), 10, 32)
	if err != nil {
		return false
	}
	return domain.HasPlaces(value, int32(places))
}

// decode reads a JSON body into dst and validates it.
func (h *LoanHandler) decode(r *http.Request, dst interface{}) error {
	if err := decodeJSON(r, dst); err != nil {
		return err
	}
	return h.validate(dst)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return customError.WrapInvalidRequest("Invalid request body", err)
	}
	return nil
}

func (h *LoanHandler) validate(dst interface{}) error {
	err := h.validator.Struct(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return customError.WrapInvalidRequest("Invalid request", err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return customError.WrapInvalidRequest(strings.Join(problems, "; "), err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "gte", "decimal_gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte", "decimal_lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "decimal_gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "decimal_places":
		return fmt.Sprintf("%s must have at most %s decimal places", fe.Field(), fe.Param())
	case "min", "max":
		return fmt.Sprintf("%s length must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
