package form

import (
	"swap-exchange-go/internal/models"

	"github.com/shopspring/decimal"
)

// FormState is the single source of truth of a swap form. It is only changed
// through Transition.
type FormState struct {
	Exchange          models.Exchange
	ExchangeRate      *models.ExchangeRate
	ValidFromAccounts []*models.Account
	ValidToAccounts   []*models.Account
	IsLoading         bool
	Err               error
	CanRequestRates   bool
	// Generation is bumped by every parameter change and identifies the
	// question a rate answers.
	Generation uint64
}

// NewFormState selects the first valid source account and a complementary destination.
func NewFormState(u *Universe) FormState {
	state := FormState{
		Exchange: models.Exchange{FromAmount: decimal.Zero},
	}

	validFrom := u.ValidFromAccounts()
	if len(validFrom) > 0 {
		from := validFrom[0]
		state.Exchange.FromAccount = from
		state.Exchange.FromParentAccount = u.ParentOf(from)
		state.Exchange.FromCurrency = from.Currency
		resolveToSide(u, &state.Exchange, u.DefaultToCurrency(from.Currency))
	}

	return recompute(u, state)
}

// ToAmount returns the destination amount for the current quote
func (s FormState) ToAmount() (decimal.Decimal, bool) {
	if s.ExchangeRate == nil {
		return decimal.Zero, false
	}
	return models.ToAmount(s.Exchange.FromAmount, *s.ExchangeRate), true
}

// HasRate reports whether a quote is committed for the current parameters
func (s FormState) HasRate() bool {
	return s.ExchangeRate != nil
}
