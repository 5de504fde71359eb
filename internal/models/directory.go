package models

// Provider is a swap provider and the currency ids it can quote
type Provider struct {
	Name                string   `json:"name" yaml:"name"`
	SupportedCurrencies []string `json:"supportedCurrencies" yaml:"supported_currencies"`
}

// InstalledApp is an application present on the signing device
type InstalledApp struct {
	Name    string `json:"name" yaml:"name"`
	Updated bool   `json:"updated" yaml:"updated"`
}

// Directory is a read-only snapshot of the account and currency universe
type Directory struct {
	Currencies    []*Currency
	Accounts      []*Account
	Providers     []Provider
	InstalledApps []InstalledApp
}

func (d *Directory) CurrencyById(id string) *Currency {
	for _, c := range d.Currencies {
		if c.Id == id {
			return c
		}
	}
	return nil
}

func (d *Directory) AccountById(id string) *Account {
	if id == "" {
		return nil
	}
	for _, a := range d.Accounts {
		if a.Id == id {
			return a
		}
	}
	return nil
}

// ParentOf returns the parent account of a token account, nil for base accounts
func (d *Directory) ParentOf(account *Account) *Account {
	if account == nil || account.ParentId == "" {
		return nil
	}
	return d.AccountById(account.ParentId)
}
