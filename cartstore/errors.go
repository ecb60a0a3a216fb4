// Package cartstore implements the client-side shopping cart state: a
// local-only store that owns its items outright, and a server-synced store
// that treats them as a cache of the remote cart service, reconciled by
// refetching after every mutation.
package cartstore

import (
	"errors"
	"fmt"
)

// Category sentinels for the failures a store surfaces. Callers branch with
// errors.Is; the concrete error carries the operation and HTTP detail.
var (
	// ErrInvalidQuantity rejects a non-positive quantity where one is
	// required. The synced store never converts such values into removals.
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	// ErrInvalidProduct rejects a product missing the fields a line item
	// snapshot needs.
	ErrInvalidProduct = errors.New("product is missing required fields")

	// ErrAuth marks a request the cart service refused for a missing or
	// rejected credential. Re-authentication is the caller's job.
	ErrAuth = errors.New("credential missing or rejected")

	// ErrNotFound marks a mutation that targeted a line item the server no
	// longer has. Stores treat it as soft for remove and update.
	ErrNotFound = errors.New("line item not found")

	// ErrRejected marks a request the cart service refused as invalid.
	ErrRejected = errors.New("cart service rejected the request")

	// ErrUnavailable marks a transport failure or a server-side error.
	ErrUnavailable = errors.New("cart service unavailable")
)

// RemoteError describes a failed call to the cart service. It unwraps to one
// of the category sentinels above. Status is zero when no response arrived.
type RemoteError struct {
	Op     string
	Status int
	Msg    string
	kind   error
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Msg)
}

func (e *RemoteError) Unwrap() error { return e.kind }

func remoteErr(op string, status int, msg string) *RemoteError {
	kind := ErrUnavailable
	switch {
	case status == 401 || status == 403:
		kind = ErrAuth
	case status == 404:
		kind = ErrNotFound
	case status >= 400 && status < 500:
		kind = ErrRejected
	}
	return &RemoteError{Op: op, Status: status, Msg: msg, kind: kind}
}
