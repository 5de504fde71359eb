package models

import (
	"github.com/shopspring/decimal"
)

// AccountKind tags the Account variant
type AccountKind string

const (
	AccountKindBase  AccountKind = "base"
	AccountKindToken AccountKind = "token"
)

// Account is a managed account. Token accounts live under a base account
// referenced by ParentId. Balance is expressed in the currency's smallest unit.
type Account struct {
	Kind           AccountKind     `json:"kind"`
	Id             string          `json:"id"`
	Name           string          `json:"name"`
	Currency       *Currency       `json:"currency"`
	Balance        decimal.Decimal `json:"balance"`
	ParentId       string          `json:"parent_id,omitempty"`
	FreshAddress   string          `json:"fresh_address,omitempty"`
	DerivationPath string          `json:"derivation_path,omitempty"`
}

func NewBaseAccount(id, name string, currency *Currency, balance decimal.Decimal) *Account {
	return &Account{
		Kind:     AccountKindBase,
		Id:       id,
		Name:     name,
		Currency: currency,
		Balance:  balance,
	}
}

func NewTokenAccount(id, name string, currency *Currency, balance decimal.Decimal, parent *Account) *Account {
	account := &Account{
		Kind:     AccountKindToken,
		Id:       id,
		Name:     name,
		Currency: currency,
		Balance:  balance,
	}
	if parent != nil {
		account.ParentId = parent.Id
		account.FreshAddress = parent.FreshAddress
		account.DerivationPath = parent.DerivationPath
	}
	return account
}

func (a *Account) IsToken() bool {
	return a != nil && a.Kind == AccountKindToken
}

// SameAccount compares by identity, nil-safe
func SameAccount(a, b *Account) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Id == b.Id
}

// TokenAccountId is the identifier of a synthesized token account under parentId
func TokenAccountId(parentId, tokenId string) string {
	return parentId + "+" + tokenId
}
