package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyRecord is a row of the currencies table
type CurrencyRecord struct {
	Id             string    `db:"id"`
	Kind           string    `db:"kind"`
	Ticker         string    `db:"ticker"`
	Name           string    `db:"name"`
	Magnitude      int32     `db:"magnitude"`
	ManagerAppName string    `db:"manager_app_name"`
	ParentId       string    `db:"parent_id"`
	CreatedAt      time.Time `db:"created_at"`
}

// AccountRecord is a row of the accounts table
type AccountRecord struct {
	Id             string          `db:"id"`
	Kind           string          `db:"kind"`
	Name           string          `db:"name"`
	CurrencyId     string          `db:"currency_id"`
	Balance        decimal.Decimal `db:"balance"`
	ParentId       string          `db:"parent_id"`
	FreshAddress   string          `db:"fresh_address"`
	DerivationPath string          `db:"derivation_path"`
	Version        int64           `db:"version"`
	UpdatedAt      time.Time       `db:"updated_at"`
}
