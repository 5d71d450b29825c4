package utils

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reference prefixes for human readable ids.
const (
	CustomerPrefix = "CU"
	LoanPrefix     = "LN"
	PaymentPrefix  = "PY"
)

// NewReference returns a human readable id such as "LN-3F2A9C01B7DE".
func NewReference(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + strings.ToUpper(id[:12])
}

// CalculateDueDate returns the due date of an installment, one calendar month
// apart starting one month after loanStartDate. Days past the end of a short
// month are clamped to its last day (Jan 31 -> Feb 28/29).
func CalculateDueDate(loanStartDate time.Time, installment int) time.Time {
	year, month, day := loanStartDate.Date()
	hour, min, sec := loanStartDate.Clock()
	loc := loanStartDate.Location()

	first := time.Date(year, month+time.Month(installment), 1, hour, min, sec, loanStartDate.Nanosecond(), loc)
	if last := daysIn(first.Year(), first.Month(), loc); day > last {
		day = last
	}

	return time.Date(first.Year(), first.Month(), day, hour, min, sec, loanStartDate.Nanosecond(), loc)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// GetCurrentInstallment returns the installment number that falls due next at
// now, never less than 1.
func GetCurrentInstallment(loanStartDate time.Time, now time.Time) int {
	installment := 1
	for !CalculateDueDate(loanStartDate, installment).After(now) {
		installment++
	}
	return installment
}

// IsDateOverdue checks if dueDate has passed at now
func IsDateOverdue(dueDate, now time.Time) bool {
	return now.After(dueDate)
}
