package store

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across all collaborator implementations.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAccountNotFound     = errors.New("account not found")
	ErrCurrencyNotFound    = errors.New("currency not found")
	ErrNoRates             = errors.New("no rates returned")
)

// RateFetchError is returned by a RateQuoteService on network or provider failure.
type RateFetchError struct {
	Provider string
	Err      error
}

func (e *RateFetchError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("rate fetch from %s failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("rate fetch failed: %v", e.Err)
}

func (e *RateFetchError) Unwrap() error { return e.Err }

// DeviceErrorKind distinguishes device failures
type DeviceErrorKind string

const (
	DeviceErrorUserRejected DeviceErrorKind = "user-rejected"
	DeviceErrorTimeout      DeviceErrorKind = "timeout"
	DeviceErrorBusy         DeviceErrorKind = "busy"
	DeviceErrorTransport    DeviceErrorKind = "transport"
)

// DeviceError is returned by a DeviceBridge.
type DeviceError struct {
	Kind DeviceErrorKind
	Err  error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("device error (%s)", e.Kind)
	}
	return fmt.Sprintf("device error (%s): %v", e.Kind, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// SigningError is returned when a transaction could not be signed.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string { return fmt.Sprintf("signing failed: %v", e.Err) }

func (e *SigningError) Unwrap() error { return e.Err }

// BroadcastError is returned when a signed operation could not be submitted.
type BroadcastError struct {
	Err error
}

func (e *BroadcastError) Error() string { return fmt.Sprintf("broadcast failed: %v", e.Err) }

func (e *BroadcastError) Unwrap() error { return e.Err }

// IsUserRejected reports whether err is a device rejection by the user
func IsUserRejected(err error) bool {
	var deviceErr *DeviceError
	return errors.As(err, &deviceErr) && deviceErr.Kind == DeviceErrorUserRejected
}
