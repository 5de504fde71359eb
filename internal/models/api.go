/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import "github.com/shopspring/decimal"

// AccountBalance is an account's spendable balance in display units
type AccountBalance struct {
	AccountId string          `json:"account_id"`
	Name      string          `json:"name"`
	Currency  string          `json:"currency"`
	Ticker    string          `json:"ticker"`
	Balance   decimal.Decimal `json:"balance"`
	ParentId  string          `json:"parent_id,omitempty"`
}

// SwapResult represents the result of executing a swap
type SwapResult struct {
	Success     bool       `json:"success"`
	SwapId      string     `json:"swap_id,omitempty"`
	Provider    string     `json:"provider,omitempty"`
	Stage       string     `json:"stage"`
	FailedStage string     `json:"failed_stage,omitempty"`
	Operation   *Operation `json:"operation,omitempty"`
	Error       string     `json:"error,omitempty"`
}
