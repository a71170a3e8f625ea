package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// Validation errors are rejected locally, before any remote call, and
// are never retried. The request layer maps them to client errors.
var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrAlreadyConfirmed      = errors.New("order is already confirmed")
	ErrAlreadyCancelled      = errors.New("order is already cancelled")
	ErrCannotCancelConfirmed = errors.New("confirmed orders cannot be cancelled")
	ErrEmptyOrder            = errors.New("order has no line items")
	ErrMissingTransportType  = errors.New("a transport type is required to confirm the order")
	ErrNoTracking            = errors.New("order has no shipment to track")
	ErrIncompleteReferences  = errors.New("both reservation and shipment references are required")

	// ErrStaleState is returned by the repository when a compare-and-swap
	// transition finds the order no longer in the expected prior state.
	ErrStaleState = errors.New("order state changed concurrently")
)

// IsValidation reports whether err is one of the local precondition
// failures, as opposed to a remote-service or compensation failure.
func IsValidation(err error) bool {
	for _, v := range []error{
		ErrOrderNotFound, ErrAlreadyConfirmed, ErrAlreadyCancelled,
		ErrCannotCancelConfirmed, ErrEmptyOrder, ErrMissingTransportType,
		ErrNoTracking, ErrIncompleteReferences,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// RemoteKind classifies why a call to a collaborating service failed.
type RemoteKind string

const (
	KindUnavailable       RemoteKind = "unavailable"        // transport error, timeout, unexpected status
	KindInsufficientStock RemoteKind = "insufficient_stock" // reservation refused
	KindInvalidResponse   RemoteKind = "invalid_response"   // 2xx without a usable identifier
	KindNotFound          RemoteKind = "not_found"          // remote has no record
)

// RemoteError is a failure from the inventory or shipping service,
// normalized at the gateway boundary so the sagas never inspect raw
// HTTP responses.
type RemoteError struct {
	Service string // "inventory" | "shipping"
	Op      string // "reserve", "create_shipment", ...
	Kind    RemoteKind
	Err     error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s.%s: %s: %v", e.Service, e.Op, e.Kind, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsRemoteKind reports whether err is a RemoteError of the given kind.
func IsRemoteKind(err error, kind RemoteKind) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Kind == kind
}

// CompensationFailure is raised when a compensating call itself failed
// after a saga step had already committed, leaving an external
// reference dangling. It always requires operator attention, so it is
// surfaced distinctly from a cleanly compensated failure.
type CompensationFailure struct {
	Cause        error // the failure that triggered compensation
	Compensation error // the failure of the compensating call
}

func (e *CompensationFailure) Error() string {
	return fmt.Sprintf("compensation failed: %v (original cause: %v)", e.Compensation, e.Cause)
}

func (e *CompensationFailure) Unwrap() error { return e.Cause }
