package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/onemorebsmith/kaspa-pool-monitor/src/model"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Store) GetMinerBalances(ctx context.Context) ([]model.MinerBalance, error) {
	var fetched []model.MinerBalance
	return fetched, DoQuery(ctx, func(conn *pgx.Conn) error {
		res, err := conn.Query(ctx,
			`SELECT miner_id, wallet, balance::text, COALESCE(nacho_rebate_kas, 0)::text
			 FROM miners_balance`)
		if err != nil {
			return errors.Wrap(err, "failed to fetch miner balances from database")
		}
		defer res.Close()

		for res.Next() {
			var minerId, wallet, balance, rebate string
			if err := res.Scan(&minerId, &wallet, &balance, &rebate); err != nil {
				return errors.Wrap(err, "failed unmarshalling miner balance row")
			}
			parsedBalance, err := decimal.NewFromString(balance)
			if err != nil {
				s.logger.Warn("dropping miners_balance row with unparsable balance",
					zap.String("miner", minerId), zap.String("wallet", wallet), zap.Error(err))
				continue
			}
			parsedRebate, err := decimal.NewFromString(rebate)
			if err != nil {
				s.logger.Warn("dropping miners_balance row with unparsable rebate",
					zap.String("miner", minerId), zap.String("wallet", wallet), zap.Error(err))
				continue
			}
			fetched = append(fetched, model.MinerBalance{
				MinerId:       minerId,
				Wallet:        wallet,
				Balance:       parsedBalance,
				RebateBalance: parsedRebate,
			})
		}
		return res.Err()
	})
}

func (s *Store) GetWalletTotals(ctx context.Context) ([]model.WalletTotal, error) {
	var fetched []model.WalletTotal
	return fetched, DoQuery(ctx, func(conn *pgx.Conn) error {
		res, err := conn.Query(ctx, `SELECT address, total::text FROM wallet_total`)
		if err != nil {
			return errors.Wrap(err, "failed to fetch wallet totals from database")
		}
		defer res.Close()

		for res.Next() {
			var address, total string
			if err := res.Scan(&address, &total); err != nil {
				return errors.Wrap(err, "failed unmarshalling wallet total row")
			}
			parsed, err := decimal.NewFromString(total)
			if err != nil {
				s.logger.Warn("dropping wallet_total row with unparsable total",
					zap.String("wallet", address), zap.Error(err))
				continue
			}
			fetched = append(fetched, model.WalletTotal{Wallet: address, Total: parsed})
		}
		return res.Err()
	})
}
