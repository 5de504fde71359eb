package models

// CurrencyKind tags the Currency variant
type CurrencyKind string

const (
	CurrencyKindCrypto CurrencyKind = "crypto"
	CurrencyKindToken  CurrencyKind = "token"
)

// Currency is either a crypto currency or a token living on a parent crypto currency.
// Magnitude is the number of decimals between the display unit and the smallest unit.
type Currency struct {
	Kind           CurrencyKind `json:"kind"`
	Id             string       `json:"id"`
	Ticker         string       `json:"ticker"`
	Name           string       `json:"name"`
	Magnitude      int32        `json:"magnitude"`
	ManagerAppName string       `json:"manager_app_name,omitempty"`
	Parent         *Currency    `json:"parent,omitempty"`
}

func NewCryptoCurrency(id, ticker, name string, magnitude int32, managerAppName string) *Currency {
	return &Currency{
		Kind:           CurrencyKindCrypto,
		Id:             id,
		Ticker:         ticker,
		Name:           name,
		Magnitude:      magnitude,
		ManagerAppName: managerAppName,
	}
}

func NewTokenCurrency(id, ticker, name string, magnitude int32, parent *Currency) *Currency {
	return &Currency{
		Kind:      CurrencyKindToken,
		Id:        id,
		Ticker:    ticker,
		Name:      name,
		Magnitude: magnitude,
		Parent:    parent,
	}
}

func (c *Currency) IsToken() bool {
	return c != nil && c.Kind == CurrencyKindToken
}

// MainCurrency returns the parent currency for tokens and the currency itself otherwise
func (c *Currency) MainCurrency() *Currency {
	if c.IsToken() && c.Parent != nil {
		return c.Parent
	}
	return c
}

// SameCurrency compares by identity, nil-safe
func SameCurrency(a, b *Currency) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Id == b.Id
}

func (c *Currency) String() string {
	if c == nil {
		return "<none>"
	}
	return c.Ticker
}
