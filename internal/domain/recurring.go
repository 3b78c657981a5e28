package domain

import (
	"errors"
	"time"
)

// ErrRecurringPaymentNotFound indicates that the recurring payment is not found.
var ErrRecurringPaymentNotFound = errors.New("recurring payment not found")

// Interval is how often a recurring payment runs.
type Interval string

// Supported intervals.
const (
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
)

// Valid reports whether i is a supported interval.
func (i Interval) Valid() bool {
	switch i {
	case IntervalDaily, IntervalWeekly, IntervalMonthly:
		return true
	}

	return false
}

// Next returns t advanced by one interval using calendar arithmetic.
//
// Monthly steps follow time.AddDate normalization, so January 31 is followed
// by March 2 or 3.
func (i Interval) Next(t time.Time) time.Time {
	switch i {
	case IntervalDaily:
		return t.AddDate(0, 0, 1)
	case IntervalWeekly:
		return t.AddDate(0, 0, 7)
	case IntervalMonthly:
		return t.AddDate(0, 1, 0)
	}

	return t
}

// RecurringPayment is a schedule the scheduler turns into SEND transfers.
type RecurringPayment struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"user_id"`
	Amount      int64       `json:"amount"`
	Destination string      `json:"destination"`
	AccountKind AccountKind `json:"account_kind"`
	Interval    Interval    `json:"interval"`
	NextRunAt   time.Time   `json:"next_run_at"`
	LastRunAt   *time.Time  `json:"last_run_at"`
	CreatedAt   time.Time   `json:"created_at"`
}

// CreateRecurringPaymentParams is the input data to create a recurring payment.
type CreateRecurringPaymentParams struct {
	UserID      int64       `json:"user_id"`
	Amount      int64       `json:"amount"`
	Destination string      `json:"destination"`
	AccountKind AccountKind `json:"account_kind"`
	Interval    Interval    `json:"interval"`
	NextRunAt   time.Time   `json:"next_run_at"`
}
