package aggregator

import (
	"sort"

	"github.com/onemorebsmith/kaspa-pool-monitor/src/model"
)

// MergeCombined folds the KAS and NACHO ledgers into one payout feed sorted
// newest first. Rebates are modeled as single-recipient, so a rebate row is
// attributed to the first address of its batch. Both inputs arrive already
// sorted descending from the store; the stable sort preserves their relative
// order among equal timestamps, so no explicit tie-break is needed.
func MergeCombined(kas []model.Payment, nacho []model.Payment) []model.CombinedPayout {
	combined := make([]model.CombinedPayout, 0, len(kas)+len(nacho))
	for _, p := range kas {
		combined = append(combined, model.CombinedPayout{
			WalletAddresses: p.WalletAddresses,
			Amount:          p.Amount,
			Timestamp:       p.Timestamp,
			TransactionHash: p.TransactionHash,
			PaymentType:     model.PaymentKindKas,
		})
	}
	for _, p := range nacho {
		var wallets []string
		if w := p.ReportingWallet(); w != "" {
			wallets = []string{w}
		}
		combined = append(combined, model.CombinedPayout{
			WalletAddresses: wallets,
			Amount:          p.Amount,
			Timestamp:       p.Timestamp,
			TransactionHash: p.TransactionHash,
			PaymentType:     model.PaymentKindNacho,
		})
	}

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Timestamp.After(combined[j].Timestamp)
	})
	return combined
}

// FilterPaymentsByWallet keeps payments whose address list contains the
// wallet. The store can do this filtering in SQL; this exists for callers
// holding an already-fetched set.
func FilterPaymentsByWallet(payments []model.Payment, wallet string) []model.Payment {
	var filtered []model.Payment
	for _, p := range payments {
		for _, addr := range p.WalletAddresses {
			if addr == wallet {
				filtered = append(filtered, p)
				break
			}
		}
	}
	return filtered
}
