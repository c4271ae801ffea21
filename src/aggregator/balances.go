package aggregator

import (
	"github.com/onemorebsmith/kaspa-pool-monitor/src/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WalletBalances maps wallet -> miner id -> balance.
type WalletBalances map[string]map[string]decimal.Decimal

// AggregateBalances folds miner balance rows into a two-level wallet/miner
// mapping. Rows missing either key are incomplete ledger entries written
// mid-payout, they're logged and skipped rather than failing the snapshot.
func AggregateBalances(rows []model.MinerBalance, logger *zap.Logger) WalletBalances {
	balances := WalletBalances{}
	for _, row := range rows {
		if row.Wallet == "" || row.MinerId == "" {
			logger.Warn("skipping incomplete miner balance row",
				zap.String("miner", row.MinerId), zap.String("wallet", row.Wallet))
			continue
		}
		if _, found := balances[row.Wallet]; !found {
			balances[row.Wallet] = map[string]decimal.Decimal{}
		}
		balances[row.Wallet][row.MinerId] = row.Balance
	}
	return balances
}

// AggregateRebates is the single-wallet view pairing each miner's KAS balance
// with its NACHO rebate. Keyed by wallet for response-shape parity with
// AggregateBalances even though only one wallet can appear.
func AggregateRebates(rows []model.MinerBalance, wallet string, logger *zap.Logger) map[string]map[string]model.RebateBalance {
	balances := map[string]map[string]model.RebateBalance{}
	for _, row := range rows {
		if row.Wallet != wallet {
			continue
		}
		if row.MinerId == "" {
			logger.Warn("skipping incomplete miner balance row", zap.String("wallet", row.Wallet))
			continue
		}
		if _, found := balances[row.Wallet]; !found {
			balances[row.Wallet] = map[string]model.RebateBalance{}
		}
		balances[row.Wallet][row.MinerId] = model.RebateBalance{
			Balance: row.Balance,
			Rebate:  row.RebateBalance,
		}
	}
	return balances
}

// SumPerWallet rolls the per-miner mapping up to one exact total per wallet,
// the granularity the prometheus gauges publish at.
func SumPerWallet(balances WalletBalances) map[string]decimal.Decimal {
	totals := map[string]decimal.Decimal{}
	for wallet, miners := range balances {
		sum := decimal.Zero
		for _, balance := range miners {
			sum = sum.Add(balance)
		}
		totals[wallet] = sum
	}
	return totals
}
