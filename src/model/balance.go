package model

import "github.com/shopspring/decimal"

// MinerBalance is one row of the miners_balance table. A miner may appear
// under multiple wallets; (MinerId, Wallet) is unique per snapshot.
type MinerBalance struct {
	MinerId       string
	Wallet        string
	Balance       decimal.Decimal
	RebateBalance decimal.Decimal
}

// WalletTotal is maintained by the payout writer independently of the
// per-miner rows, the two are not required to reconcile.
type WalletTotal struct {
	Wallet string
	Total  decimal.Decimal
}

// RebateBalance pairs a miner's KAS balance with its accrued NACHO rebate.
type RebateBalance struct {
	Balance decimal.Decimal `json:"balance"`
	Rebate  decimal.Decimal `json:"nacho_rebate_kas"`
}
