package form

import (
	"fmt"

	"swap-exchange-go/internal/models"

	"github.com/shopspring/decimal"
)

// CurrencyStatus tells whether a selectable currency can be used as a swap source
type CurrencyStatus string

const (
	StatusOK           CurrencyStatus = "ok"
	StatusNoAccounts   CurrencyStatus = "no-accounts"
	StatusNotInstalled CurrencyStatus = "not-installed"
)

// Universe is the selectable currency universe derived from a directory snapshot.
// It is immutable once built.
type Universe struct {
	directory  *models.Directory
	selectable []*models.Currency
	statuses   map[string]CurrencyStatus
}

func NewUniverse(directory *models.Directory) *Universe {
	if directory == nil {
		directory = &models.Directory{}
	}

	u := &Universe{
		directory: directory,
		statuses:  make(map[string]CurrencyStatus),
	}
	u.selectable = selectableCurrencies(directory)
	for _, c := range u.selectable {
		u.statuses[c.Id] = u.computeStatus(c)
	}
	return u
}

// selectableCurrencies resolves the providers' supported ids against the known
// currencies. Crypto currencies come first, then tokens, without duplicates.
func selectableCurrencies(directory *models.Directory) []*models.Currency {
	seen := make(map[string]bool)
	var cryptos, tokens []*models.Currency

	for _, provider := range directory.Providers {
		for _, id := range provider.SupportedCurrencies {
			if seen[id] {
				continue
			}
			seen[id] = true

			currency := directory.CurrencyById(id)
			if currency == nil {
				continue
			}
			if currency.IsToken() {
				tokens = append(tokens, currency)
			} else {
				cryptos = append(cryptos, currency)
			}
		}
	}

	return append(cryptos, tokens...)
}

func (u *Universe) computeStatus(c *models.Currency) CurrencyStatus {
	main := c.MainCurrency()
	installed := false
	for _, app := range u.directory.InstalledApps {
		if app.Name == main.ManagerAppName && app.Updated {
			installed = true
			break
		}
	}
	if !installed {
		return StatusNotInstalled
	}

	if len(u.AccountsFor(c)) == 0 {
		return StatusNoAccounts
	}
	return StatusOK
}

func (u *Universe) Directory() *models.Directory {
	return u.directory
}

func (u *Universe) SelectableCurrencies() []*models.Currency {
	return u.selectable
}

// Status returns the status of a currency. Unknown currencies are not installed.
func (u *Universe) Status(c *models.Currency) CurrencyStatus {
	if c == nil {
		return StatusNotInstalled
	}
	if status, ok := u.statuses[c.Id]; ok {
		return status
	}
	return StatusNotInstalled
}

func (u *Universe) IsSelectable(c *models.Currency) bool {
	if c == nil {
		return false
	}
	_, ok := u.statuses[c.Id]
	return ok
}

// ToCurrencies lists the destination choices for a source currency
func (u *Universe) ToCurrencies(from *models.Currency) []*models.Currency {
	var currencies []*models.Currency
	for _, c := range u.selectable {
		if models.SameCurrency(c, from) || u.statuses[c.Id] == StatusNoAccounts {
			continue
		}
		currencies = append(currencies, c)
	}
	return currencies
}

// DefaultToCurrency is the first destination choice for a source currency
func (u *Universe) DefaultToCurrency(from *models.Currency) *models.Currency {
	currencies := u.ToCurrencies(from)
	if len(currencies) == 0 {
		return nil
	}
	return currencies[0]
}

// ValidFromAccounts lists the directory accounts whose currency is selectable
func (u *Universe) ValidFromAccounts() []*models.Account {
	var accounts []*models.Account
	for _, a := range u.directory.Accounts {
		if u.IsSelectable(a.Currency) {
			accounts = append(accounts, a)
		}
	}
	return accounts
}

// AccountsFor lists the directory accounts holding currency c
func (u *Universe) AccountsFor(c *models.Currency) []*models.Account {
	var accounts []*models.Account
	for _, a := range u.directory.Accounts {
		if models.SameCurrency(a.Currency, c) {
			accounts = append(accounts, a)
		}
	}
	return accounts
}

// DefaultFromAccount is the first account holding currency c
func (u *Universe) DefaultFromAccount(c *models.Currency) *models.Account {
	accounts := u.AccountsFor(c)
	if len(accounts) == 0 {
		return nil
	}
	return accounts[0]
}

// ToAccountsFor lists the accounts able to receive currency c. For a token,
// every base account of the parent currency contributes its token account,
// synthesized with a zero balance when the directory has none.
func (u *Universe) ToAccountsFor(c *models.Currency) []*models.Account {
	if c == nil {
		return nil
	}
	if !c.IsToken() || c.Parent == nil {
		return u.AccountsFor(c)
	}

	existing := make(map[string]*models.Account)
	var orphans []*models.Account
	for _, a := range u.AccountsFor(c) {
		if a.ParentId == "" || u.directory.AccountById(a.ParentId) == nil {
			orphans = append(orphans, a)
			continue
		}
		existing[a.ParentId] = a
	}

	var accounts []*models.Account
	for _, parent := range u.AccountsFor(c.Parent) {
		if parent.IsToken() {
			continue
		}
		if tokenAccount, ok := existing[parent.Id]; ok {
			accounts = append(accounts, tokenAccount)
			continue
		}
		accounts = append(accounts, models.NewTokenAccount(
			models.TokenAccountId(parent.Id, c.Id),
			fmt.Sprintf("%s (%s)", parent.Name, c.Ticker),
			c,
			decimal.Zero,
			parent,
		))
	}

	return append(accounts, orphans...)
}

// ParentOf resolves the parent account of a token account
func (u *Universe) ParentOf(account *models.Account) *models.Account {
	return u.directory.ParentOf(account)
}
