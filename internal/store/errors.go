package store

import "errors"

var (
	// ErrNotPending is returned when an approval action targets a completion
	// that has already been approved or rejected.
	ErrNotPending = errors.New("completion is not pending")

	// ErrGoalCompleted is returned when a family goal is redeemed twice.
	ErrGoalCompleted = errors.New("goal already completed")

	// ErrPaymentSettled is returned when a status transition targets a
	// payment that is already paid or cancelled.
	ErrPaymentSettled = errors.New("payment already settled")
)
