package service

import (
	"errors"
	"fmt"
	"strings"

	"rewarder/database"
	"rewarder/models"
)

var (
	// ErrNotFound is returned for an unknown user, denomination or requirement
	ErrNotFound = errors.New("not found")

	// ErrInsufficientBalance is returned when the balance cannot cover a debit
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrExhausted is returned when no code of the denomination is available
	ErrExhausted = errors.New("out of stock")

	// ErrGateUnmet is returned when the user is missing a required membership
	ErrGateUnmet = errors.New("membership requirements not met")

	// ErrUnverified is returned when the user has not completed verification
	ErrUnverified = errors.New("user not verified")

	// ErrTransientDependency is returned when the datastore or a collaborator failed
	ErrTransientDependency = errors.New("temporary failure, try again")

	// ErrForbidden is returned when a non-admin calls an admin operation
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput is returned for malformed admin input
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateGate is returned when a group is already an active requirement
	ErrDuplicateGate = errors.New("requirement already active")
)

// GateUnmetError lists the requirements a user still has to satisfy
type GateUnmetError struct {
	Missing []*models.GateRequirement
}

func (e *GateUnmetError) Error() string {
	ids := make([]string, len(e.Missing))
	for i, req := range e.Missing {
		ids[i] = req.ChatID
	}
	return fmt.Sprintf("%s: %s", ErrGateUnmet, strings.Join(ids, ", "))
}

func (e *GateUnmetError) Unwrap() error {
	return ErrGateUnmet
}

// transient marks a datastore failure as ErrTransientDependency while keeping the cause
func transient(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrTransientDependency, op, err)
}

// IsRetryable reports whether the user should be told to try again
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientDependency) || database.IsTransient(err)
}

func isGateUnmet(err error) bool {
	return errors.Is(err, ErrGateUnmet)
}

func isUnverified(err error) bool {
	return errors.Is(err, ErrUnverified)
}
