package form

import (
	"swap-exchange-go/internal/models"
	"swap-exchange-go/internal/store"
)

// ValidationResult tells whether an exchange may be quoted and which local error applies
type ValidationResult struct {
	Eligible bool
	Err      error
}

// Validate checks an exchange locally. An incomplete form is not an error.
func Validate(exchange models.Exchange) ValidationResult {
	if exchange.FromAccount == nil || exchange.ToAccount == nil {
		return ValidationResult{}
	}

	if exchange.FromAmount.GreaterThan(exchange.FromAccount.Balance) {
		return ValidationResult{Err: store.ErrInsufficientBalance}
	}

	if !exchange.FromAmount.IsPositive() {
		return ValidationResult{}
	}

	return ValidationResult{Eligible: true}
}
