package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is what the device authorized and the bridge has to sign
type Transaction struct {
	Family    string          `json:"family"`
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Memo      string          `json:"memo,omitempty"`
}

// InitSwapResult is returned once the user confirmed the swap on the device
type InitSwapResult struct {
	Transaction Transaction `json:"transaction"`
	SwapId      string      `json:"swap_id"`
}

// SignEventType enumerates the events streamed during signing
type SignEventType string

const (
	SignEventSignatureRequested SignEventType = "device-signature-requested"
	SignEventSignatureGranted   SignEventType = "device-signature-granted"
	SignEventSigned             SignEventType = "signed"
)

// SignEvent is a single item of the signing stream. Err is set on failure and
// terminates the stream.
type SignEvent struct {
	Type            SignEventType
	SignedOperation *SignedOperation
	Err             error
}

type SignedOperation struct {
	OperationId string      `json:"operation_id"`
	AccountId   string      `json:"account_id"`
	Transaction Transaction `json:"transaction"`
	Digest      string      `json:"digest"`
	Signature   string      `json:"signature"`
	PublicKey   string      `json:"public_key"`
	SignedAt    time.Time   `json:"signed_at"`
}

// Operation is the confirmed broadcast record
type Operation struct {
	Id        string          `json:"id"`
	Hash      string          `json:"hash"`
	AccountId string          `json:"account_id"`
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
}
