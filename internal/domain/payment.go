package domain

import (
	"fmt"
	"strings"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// PaymentOutcome is the final verdict of the payment provider on a booking.
type PaymentOutcome string

const (
	OutcomeSucceeded PaymentOutcome = "succeeded"
	OutcomeFailed    PaymentOutcome = "failed"
	OutcomeCanceled  PaymentOutcome = "canceled"
	OutcomeRefunded  PaymentOutcome = "refunded"
)

func ParsePaymentOutcome(s string) (PaymentOutcome, error) {
	switch o := PaymentOutcome(strings.ToLower(strings.TrimSpace(s))); o {
	case OutcomeSucceeded, OutcomeFailed, OutcomeCanceled, OutcomeRefunded:
		return o, nil
	case "cancelled":
		return OutcomeCanceled, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
	}
}
