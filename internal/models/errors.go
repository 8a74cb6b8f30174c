package models

import (
	"context"
	"errors"
	"fmt"
)

// FetchErrorKind classifies a provider failure into the shared taxonomy.
// Adapters never leak provider-shaped errors past this classification.
type FetchErrorKind string

const (
	ErrKindTransport      FetchErrorKind = "transport"
	ErrKindTimeout        FetchErrorKind = "timeout"
	ErrKindRateLimited    FetchErrorKind = "rate_limited"
	ErrKindSymbolNotFound FetchErrorKind = "symbol_not_found"
	ErrKindMalformedData  FetchErrorKind = "malformed_data"
)

// Rank orders kinds by message specificity for aggregate-error selection:
// a user-actionable "symbol not found" beats a malformed payload, which
// beats a provider quota signal, which beats generic transport noise.
func (k FetchErrorKind) Rank() int {
	switch k {
	case ErrKindSymbolNotFound:
		return 4
	case ErrKindMalformedData:
		return 3
	case ErrKindRateLimited:
		return 2
	case ErrKindTimeout:
		return 1
	case ErrKindTransport:
		return 1
	default:
		return 0
	}
}

// FetchError is a classified provider failure.
type FetchError struct {
	Kind     FetchErrorKind
	Provider string
	Message  string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, string(e.Kind))
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError builds a classified fetch error.
func NewFetchError(kind FetchErrorKind, provider, message string, err error) *FetchError {
	return &FetchError{Kind: kind, Provider: provider, Message: message, Err: err}
}

// ClassifyErr maps an arbitrary error onto the taxonomy. Already-classified
// errors keep their kind; context deadline failures become timeouts;
// everything else is transport.
func ClassifyErr(provider string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: ErrKindTimeout, Provider: provider, Message: "request timed out", Err: err}
	}
	return &FetchError{Kind: ErrKindTransport, Provider: provider, Message: err.Error(), Err: err}
}

// KindOf extracts the taxonomy kind from an error, defaulting to transport.
func KindOf(err error) FetchErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTimeout
	}
	return ErrKindTransport
}
