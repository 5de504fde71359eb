package form

import (
	"fmt"

	"swap-exchange-go/internal/models"
	"swap-exchange-go/internal/store"

	"github.com/shopspring/decimal"
)

// Transition applies intent to state and returns the new state. It is pure:
// the universe is only read. An intent type outside the closed set panics.
func Transition(u *Universe, state FormState, intent Intent) FormState {
	next := state
	exchange := state.Exchange

	switch in := intent.(type) {
	case SetFromCurrency:
		exchange.FromCurrency = in.Currency
		exchange.FromAccount = u.DefaultFromAccount(in.Currency)
		exchange.FromParentAccount = u.ParentOf(exchange.FromAccount)
		if exchange.UseAllAmount {
			exchange.FromAmount = balanceOf(exchange.FromAccount)
		}
		resolveToSide(u, &exchange, u.DefaultToCurrency(in.Currency))
		next = parameterChanged(next, exchange)

	case SetFromAccount:
		exchange.FromAccount = in.Account
		exchange.FromParentAccount = u.ParentOf(in.Account)
		if in.Account != nil {
			exchange.FromCurrency = in.Account.Currency
		}
		if exchange.UseAllAmount {
			exchange.FromAmount = balanceOf(in.Account)
		}
		if exchange.ToCurrency == nil || models.SameCurrency(exchange.ToCurrency, exchange.FromCurrency) {
			resolveToSide(u, &exchange, u.DefaultToCurrency(exchange.FromCurrency))
		}
		next = parameterChanged(next, exchange)

	case SetFromAmount:
		amount := in.Amount
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		exchange.FromAmount = amount
		exchange.UseAllAmount = false
		next = parameterChanged(next, exchange)

	case ToggleUseAllAmount:
		exchange.UseAllAmount = !exchange.UseAllAmount
		if exchange.UseAllAmount {
			exchange.FromAmount = balanceOf(exchange.FromAccount)
		}
		next = parameterChanged(next, exchange)

	case SetToCurrency:
		currency := in.Currency
		if models.SameCurrency(currency, exchange.FromCurrency) {
			currency = nil
		}
		resolveToSide(u, &exchange, currency)
		next = parameterChanged(next, exchange)

	case SetToAccount:
		exchange.ToAccount = in.Account
		exchange.ToParentAccount = u.ParentOf(in.Account)
		if in.Account != nil {
			exchange.ToCurrency = in.Account.Currency
		}
		next = parameterChanged(next, exchange)

	case FetchRates:
		next.IsLoading = true
		next.Err = nil

	case SetRate:
		rate := in.Rate
		next.ExchangeRate = &rate
		next.IsLoading = false
		next.Err = nil

	case SetError:
		next.Err = in.Err
		next.IsLoading = false

	default:
		panic(fmt.Sprintf("form: unknown intent %T", intent))
	}

	return recompute(u, next)
}

// parameterChanged installs the edited exchange, drops the quote it no longer
// matches and starts a new generation.
func parameterChanged(state FormState, exchange models.Exchange) FormState {
	state.Exchange = exchange
	state.ExchangeRate = nil
	state.IsLoading = false
	state.Err = balanceError(exchange)
	state.Generation++
	return state
}

func recompute(u *Universe, state FormState) FormState {
	state.ValidFromAccounts = u.ValidFromAccounts()
	if state.Exchange.ToCurrency != nil {
		state.ValidToAccounts = u.ToAccountsFor(state.Exchange.ToCurrency)
	} else {
		state.ValidToAccounts = nil
		for _, a := range state.ValidFromAccounts {
			if !models.SameCurrency(a.Currency, state.Exchange.FromCurrency) {
				state.ValidToAccounts = append(state.ValidToAccounts, a)
			}
		}
	}

	result := Validate(state.Exchange)
	state.CanRequestRates = result.Eligible &&
		state.ExchangeRate == nil &&
		state.Err == nil &&
		state.Exchange.FromAmount.IsPositive()
	return state
}

func resolveToSide(u *Universe, exchange *models.Exchange, currency *models.Currency) {
	exchange.ToCurrency = currency
	exchange.ToAccount = nil
	exchange.ToParentAccount = nil

	accounts := u.ToAccountsFor(currency)
	if len(accounts) > 0 {
		exchange.ToAccount = accounts[0]
		exchange.ToParentAccount = u.ParentOf(accounts[0])
	}
}

func balanceError(exchange models.Exchange) error {
	if exchange.FromAccount != nil && exchange.FromAmount.GreaterThan(exchange.FromAccount.Balance) {
		return store.ErrInsufficientBalance
	}
	return nil
}

func balanceOf(account *models.Account) decimal.Decimal {
	if account == nil {
		return decimal.Zero
	}
	return account.Balance
}
