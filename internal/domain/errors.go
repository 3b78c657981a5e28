// Package domain provides definitions of all entities shared by the ledger
// and payments services.
package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is wrapped by every input validation error.
var ErrValidation = errors.New("validation error")

var (
	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = fmt.Errorf("%w: amount must be a positive number", ErrValidation)
	// ErrInvalidDestination indicates an empty destination.
	ErrInvalidDestination = fmt.Errorf("%w: destination must be a non-empty string", ErrValidation)
	// ErrInvalidAccountKind indicates an unknown account kind.
	ErrInvalidAccountKind = fmt.Errorf("%w: account kind must be one of credit, debit, loan", ErrValidation)
	// ErrInvalidTransactionKind indicates an unknown transaction kind.
	ErrInvalidTransactionKind = fmt.Errorf("%w: transaction kind must be one of SEND, WITHDRAW", ErrValidation)
	// ErrInvalidInterval indicates an unknown recurring payment interval.
	ErrInvalidInterval = fmt.Errorf("%w: interval must be one of daily, weekly, monthly", ErrValidation)
	// ErrInvalidUserID indicates a non-positive user id.
	ErrInvalidUserID = fmt.Errorf("%w: user id must be a positive integer", ErrValidation)
)

var (
	// ErrUnauthorized indicates a missing or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnauthorizedUser indicates a valid credential used on another user's resources.
	ErrUnauthorizedUser = errors.New("credential does not belong to the requested user")
	// ErrRemoteUnavailable indicates that the ledger service could not be reached
	// or could not serve the request.
	ErrRemoteUnavailable = errors.New("ledger service unavailable")
	// ErrAmbiguousOutcome indicates that a balance change may or may not have been
	// applied by the ledger service.
	ErrAmbiguousOutcome = errors.New("ledger outcome unknown")
	// ErrRequestInProgress indicates that a request with the same idempotency key
	// is still being applied.
	ErrRequestInProgress = errors.New("request with the same idempotency key is in progress")
)
