// Package fee computes overdue fees for borrowed books.
//
// Overdue days are billed at $0.50 for each of the first seven days and
// $1.00 for every day after that, capped at $15.00 per book. Callers supply
// the evaluation time, so Calculate has no dependency on the wall clock.
package fee

import (
	"fmt"
	"math"
	"time"
)

const (
	// LoanPeriod is the time between borrowing and the due date.
	LoanPeriod = 14 * 24 * time.Hour

	// MaxFee is the most a single borrow record can ever be billed.
	MaxFee = 15.00

	tierDays       = 7
	tierRateCents  = 50
	afterRateCents = 100
	maxFeeCents    = 1500
)

// Status classifies an assessment as overdue or not.
type Status string

const (
	StatusOnTime  Status = "ON_TIME"
	StatusOverdue Status = "OVERDUE"
)

// Assessment is the outcome of a fee calculation.
type Assessment struct {
	Amount      float64 `json:"fee_amount"`
	DaysOverdue int     `json:"days_overdue"`
	Status      Status  `json:"status"`
}

// Message renders the assessment for patrons. returned reports whether the
// book is back; an outstanding book is never described as returned.
func (a Assessment) Message(returned bool) string {
	switch {
	case a.Status == StatusOverdue:
		return fmt.Sprintf("Late fee is $%.2f", a.Amount)
	case returned:
		return "This book was returned on time and is not overdue"
	default:
		return "This book is not overdue"
	}
}

// DueDate returns the due date for a book borrowed at borrowedAt.
func DueDate(borrowedAt time.Time) time.Time {
	return borrowedAt.Add(LoanPeriod)
}

// DaysOverdue returns the number of whole days asOf lies past due,
// rounded toward negative infinity.
func DaysOverdue(due, asOf time.Time) int {
	d := asOf.Sub(due)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}

// Calculate assesses the late fee for a book due at due, evaluated at asOf.
func Calculate(due, asOf time.Time) Assessment {
	days := DaysOverdue(due, asOf)
	if days <= 0 {
		return Assessment{Amount: 0, DaysOverdue: 0, Status: StatusOnTime}
	}
	return Assessment{
		Amount:      float64(cents(days)) / 100,
		DaysOverdue: days,
		Status:      StatusOverdue,
	}
}

func cents(days int) int64 {
	first := days
	if first > tierDays {
		first = tierDays
	}
	// past the cap extra days cannot change the total
	rest := days - first
	if rest > maxFeeCents/afterRateCents {
		rest = maxFeeCents / afterRateCents
	}
	total := int64(first)*tierRateCents + int64(rest)*afterRateCents
	if total > maxFeeCents {
		total = maxFeeCents
	}
	return total
}

// Round rounds amount half-up to two decimal places.
func Round(amount float64) float64 {
	return math.Floor(amount*100+0.5) / 100
}
