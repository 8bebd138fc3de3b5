package entity

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvestedAmountUnknown marks a transaction scan that was refused with a permissions or
	// not-found class status. The invested figure is unknown, not zero.
	ErrInvestedAmountUnknown = errors.New("invested amount unknown")
	// ErrCurrencyNotFound is returned when no account holds the requested currency.
	ErrCurrencyNotFound = errors.New("currency not found")
)

// KeyFormatError is returned when private key material cannot be decoded into a P-256 key.
type KeyFormatError struct {
	Reason string
	Err    error
}

func (e *KeyFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid private key: %s: %v", e.Reason, e.Err)
	}
	return "invalid private key: " + e.Reason
}

func (e *KeyFormatError) Unwrap() error { return e.Err }

// SigningError wraps a failure while producing a request token.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("failed to sign request token: %v", e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// TransportError wraps network level failures: DNS, timeouts, resets, cancelled contexts.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error on %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError is any non-2xx response from the exchange API.
type UpstreamError struct {
	Status      int
	Reason      string
	BodyExcerpt string
	Path        string
}

func (e *UpstreamError) Error() string {
	if e.BodyExcerpt == "" {
		return fmt.Sprintf("upstream %s returned %d %s", e.Path, e.Status, e.Reason)
	}
	return fmt.Sprintf("upstream %s returned %d %s: %s", e.Path, e.Status, e.Reason, e.BodyExcerpt)
}

// IsPermissionOrNotFound reports whether the status means the resource is not visible to this key.
func (e *UpstreamError) IsPermissionOrNotFound() bool {
	return e.Status == http.StatusForbidden || e.Status == http.StatusNotFound
}

// DecodeError is returned when a successful response does not match the expected shape.
type DecodeError struct {
	TargetType string
	RawBody    string
	Err        error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to decode response into %s: %v", e.TargetType, e.Err)
	}
	return fmt.Sprintf("failed to decode response into %s: empty result", e.TargetType)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// PriceUnavailableError is returned when no numeric spot price could be obtained for a pair.
type PriceUnavailableError struct {
	Base  string
	Quote string
	Err   error
}

func (e *PriceUnavailableError) Error() string {
	return fmt.Sprintf("spot price %s-%s unavailable: %v", e.Base, e.Quote, e.Err)
}

func (e *PriceUnavailableError) Unwrap() error { return e.Err }
