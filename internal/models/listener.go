package models

import "time"

// Swap statuses reported by the quoting service
const (
	SwapStatusPending  = "pending"
	SwapStatusWaiting  = "waiting"
	SwapStatusExchange = "exchanging"
	SwapStatusSending  = "sending"
	SwapStatusFinished = "finished"
	SwapStatusRefunded = "refunded"
	SwapStatusFailed   = "failed"
	SwapStatusExpired  = "expired"
)

// SwapStatus is the provider-side progress of a swap after broadcast
type SwapStatus struct {
	SwapId     string    `json:"swapId"`
	Provider   string    `json:"provider"`
	Status     string    `json:"status"`
	PayinHash  string    `json:"payinHash,omitempty"`
	PayoutHash string    `json:"payoutHash,omitempty"`
	AmountFrom string    `json:"amountFrom,omitempty"`
	AmountTo   string    `json:"amountTo,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// IsTerminal reports whether the provider will not move the swap any further
func (s SwapStatus) IsTerminal() bool {
	switch s.Status {
	case SwapStatusFinished, SwapStatusRefunded, SwapStatusFailed, SwapStatusExpired:
		return true
	}
	return false
}

// TrackedSwap is a broadcast swap the status listener follows until it settles
type TrackedSwap struct {
	SwapId   string `json:"swapId"`
	Provider string `json:"provider"`
	Status   string `json:"status"`
}
