package aggregator

import (
	"sort"
	"time"

	"github.com/onemorebsmith/kaspa-pool-monitor/src/model"
	"github.com/shopspring/decimal"
)

// WalletWindowSum is one wallet's exact payout total over a trailing window,
// with the earliest payment timestamp that contributed to it.
type WalletWindowSum struct {
	Wallet            string          `json:"wallet_address"`
	Amount            decimal.Decimal `json:"amount"`
	EarliestTimestamp time.Time       `json:"timestamp"`
}

// GroupByWalletWindowed sums payments per reporting wallet over the trailing
// window ending at now. The lower bound is inclusive: a payment at exactly
// now-window counts. Wallets with no payments in the window are absent, not
// zero-filled. Output is sorted by amount descending, wallet ascending on
// equal amounts so the ordering is deterministic.
func GroupByWalletWindowed(payments []model.Payment, window time.Duration, now time.Time) []WalletWindowSum {
	cutoff := now.Add(-window)
	sums := map[string]*WalletWindowSum{}
	for i := range payments {
		p := &payments[i]
		if p.Timestamp.Before(cutoff) {
			continue
		}
		wallet := p.ReportingWallet()
		if wallet == "" {
			continue
		}
		entry, found := sums[wallet]
		if !found {
			entry = &WalletWindowSum{Wallet: wallet, EarliestTimestamp: p.Timestamp}
			sums[wallet] = entry
		}
		entry.Amount = entry.Amount.Add(p.Amount)
		if p.Timestamp.Before(entry.EarliestTimestamp) {
			entry.EarliestTimestamp = p.Timestamp
		}
	}

	grouped := make([]WalletWindowSum, 0, len(sums))
	for _, entry := range sums {
		grouped = append(grouped, *entry)
	}
	sort.Slice(grouped, func(i, j int) bool {
		if c := grouped[i].Amount.Cmp(grouped[j].Amount); c != 0 {
			return c > 0
		}
		return grouped[i].Wallet < grouped[j].Wallet
	})
	return grouped
}

// TotalWindowed is the grand total across all wallets in the window. It
// re-filters by timestamp itself instead of summing GroupByWalletWindowed
// output, so future materialization thresholds in the grouped view can't
// silently skew the total.
func TotalWindowed(payments []model.Payment, window time.Duration, now time.Time) decimal.Decimal {
	cutoff := now.Add(-window)
	total := decimal.Zero
	for i := range payments {
		if payments[i].Timestamp.Before(cutoff) {
			continue
		}
		total = total.Add(payments[i].Amount)
	}
	return total
}

// TotalAmount is the unwindowed all-time sum.
func TotalAmount(payments []model.Payment) decimal.Decimal {
	total := decimal.Zero
	for i := range payments {
		total = total.Add(payments[i].Amount)
	}
	return total
}
