// Package errs defines the error taxonomy shared by the crypto core and the
// page cache. Every exported operation in this module returns one of these
// sentinel-wrapped kinds (checked with errors.Is) rather than packing a
// negated error code into a pointer return the way the original C client
// did — see DESIGN.md for why.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the abstract taxonomies of spec.md §7.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindCrypto
	KindTransport
	KindResource
	KindLookup
	KindAPI
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindCrypto:
		return "crypto"
	case KindTransport:
		return "transport"
	case KindResource:
		return "resource"
	case KindLookup:
		return "lookup"
	case KindAPI:
		return "api"
	default:
		return "unknown"
	}
}

// Config errors — local, non-retryable.
var (
	ErrNotStarted      = &Error{Kind: KindConfig, Code: "not_started", Message: "crypto core is not started"}
	ErrAlreadyStarted  = &Error{Kind: KindConfig, Code: "already_started", Message: "crypto core is already started"}
	ErrNotSetUp        = &Error{Kind: KindConfig, Code: "not_set_up", Message: "crypto keys are not set up"}
	ErrAlreadySetUp    = &Error{Kind: KindConfig, Code: "already_set_up", Message: "crypto keys are already set up"}
	ErrFolderNotCrypto = &Error{Kind: KindConfig, Code: "folder_not_encrypted", Message: "folder is not an encrypted folder"}
	ErrExpired         = &Error{Kind: KindConfig, Code: "crypto_expired", Message: "crypto setup has expired"}
)

// Crypto errors.
var (
	ErrInvalidKey       = &Error{Kind: KindCrypto, Code: "invalid_key", Message: "key is invalid for the requested operation"}
	ErrBadPassword      = &Error{Kind: KindCrypto, Code: "bad_password", Message: "password does not decrypt the private key"}
	ErrKeysDontMatch    = &Error{Kind: KindCrypto, Code: "keys_dont_match", Message: "public and private key do not form a pair"}
	ErrUnknownKeyFormat = &Error{Kind: KindCrypto, Code: "unknown_key_format", Message: "key blob type is not recognized"}
	ErrRSA              = &Error{Kind: KindCrypto, Code: "rsa_error", Message: "RSA operation failed"}
)

// Transport errors.
var (
	ErrCannotConnect  = &Error{Kind: KindTransport, Code: "cannot_connect", Message: "could not connect to the remote host"}
	ErrServerProtocol = &Error{Kind: KindTransport, Code: "server_protocol", Message: "server returned an unexpected response"}
	// ErrTransport is the generic transport-kind sentinel used by the
	// retrier to decide retryability without caring which specific
	// transport failure occurred; IsTransport checks Kind alone.
	ErrTransport = &Error{Kind: KindTransport, Code: "transport_error", Message: "transport operation failed"}
)

// Resource errors.
var (
	ErrDiskFull = &Error{Kind: KindResource, Code: "disk_full", Message: "insufficient local disk space"}
	ErrIO       = &Error{Kind: KindResource, Code: "eio", Message: "unrecoverable I/O failure"}
)

// Lookup errors.
var (
	ErrFolderNotFound = &Error{Kind: KindLookup, Code: "folder_not_found", Message: "folder not found"}
	ErrFileNotFound   = &Error{Kind: KindLookup, Code: "file_not_found", Message: "file not found"}
	ErrRemoteNotFound = &Error{Kind: KindLookup, Code: "remote_not_found", Message: "remote object not found"}
)

// Error is a concrete, comparable error value. Two *Error values compare
// equal under errors.Is when their Kind and Code match; Message and Detail
// carry context that may vary per-call without breaking that comparison.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Detail carries the server-supplied message for API errors (spec.md
	// §7's "internal error code plus the server-supplied message"),
	// or any other caller-supplied elaboration. Not part of equality.
	Detail string
	// Wrapped is the underlying cause, if any.
	Wrapped error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is matching by Kind+Code, ignoring Detail/Wrapped so
// that a contextualized copy (see WithDetail/Wrap) still matches the
// sentinel it was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// WithDetail returns a copy of the sentinel with Detail set, for surfacing
// a server-supplied message alongside a stable, comparable error kind.
func (e *Error) WithDetail(detail string) *Error {
	c := *e
	c.Detail = detail
	return &c
}

// Wrap returns a copy of the sentinel wrapping cause, so the original error
// remains inspectable via errors.Unwrap while the call site can still
// errors.Is against the sentinel.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.Wrapped = cause
	return &c
}

// IsTransport reports whether err is (or wraps) a transport-kind *Error,
// the retryability test the API client's retrier applies (spec.md §7).
func IsTransport(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindTransport
	}
	return false
}

// APIError represents a non-zero API result code retained from a call to
// the API_CLIENT collaborator (spec.md §7's "API errors").
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// Is lets errors.Is(err, ErrAPI-shaped) match any *APIError regardless of
// code, mirroring how Kind+Code matching works for *Error.
func (e *APIError) Is(target error) bool {
	_, ok := target.(*APIError)
	return ok
}

