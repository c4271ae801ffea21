package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentKind string

const ( // needs to match the `payment_type` values served to the frontend
	PaymentKindKas   PaymentKind = "KAS"
	PaymentKindNacho PaymentKind = "NACHO"
)

// Payment is one logical transfer from a payout table. KAS payments may be
// batched transactions referencing several wallets; NACHO rebates are
// single-recipient. Identity is the transaction hash.
type Payment struct {
	WalletAddresses []string        `json:"wallet_address"`
	Amount          decimal.Decimal `json:"amount"`
	Timestamp       time.Time       `json:"timestamp"`
	TransactionHash string          `json:"transaction_hash"`
	Kind            PaymentKind     `json:"-"`
}

// ReportingWallet is the single wallet a payment is attributed to in grouped
// views, the first address of the batch. Empty for hash-aggregated KAS rows.
func (p *Payment) ReportingWallet() string {
	if len(p.WalletAddresses) == 0 {
		return ""
	}
	return p.WalletAddresses[0]
}

// CombinedPayout is a payment from either ledger normalized for the merged,
// time-ordered payout feed.
type CombinedPayout struct {
	WalletAddresses []string        `json:"wallet_address"`
	Amount          decimal.Decimal `json:"amount"`
	Timestamp       time.Time       `json:"timestamp"`
	TransactionHash string          `json:"transaction_hash"`
	PaymentType     PaymentKind     `json:"payment_type"`
}
