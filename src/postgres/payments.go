package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/onemorebsmith/kaspa-pool-monitor/src/model"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// table/column layout differs between the two payout ledgers, everything
// else about reading them is identical
func paymentTable(kind model.PaymentKind) (table string, amountColumn string, err error) {
	switch kind {
	case model.PaymentKindKas:
		return "payments", "amount", nil
	case model.PaymentKindNacho:
		return "nacho_payments", "nacho_amount", nil
	default:
		return "", "", errors.Errorf("unknown payment kind %q", kind)
	}
}

func (s *Store) GetPayments(ctx context.Context, kind model.PaymentKind, q model.PaymentQuery) ([]model.Payment, error) {
	table, amountColumn, err := paymentTable(kind)
	if err != nil {
		return nil, err
	}

	where := ""
	args := []any{}
	if q.Wallet != "" {
		args = append(args, q.Wallet)
		where += fmt.Sprintf(" WHERE $%d = ANY(wallet_address)", len(args))
	}
	if !q.Since.IsZero() {
		args = append(args, q.Since.UTC())
		if where == "" {
			where = fmt.Sprintf(" WHERE timestamp >= $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND timestamp >= $%d", len(args))
		}
	}
	limit := ""
	if q.Limit > 0 {
		args = append(args, q.Limit)
		limit = fmt.Sprintf(" LIMIT $%d", len(args))
	}

	if q.GroupByTransaction && kind == model.PaymentKindKas {
		return s.getGroupedKasPayments(ctx, where, limit, args)
	}

	query := fmt.Sprintf(
		`SELECT wallet_address, %s::text, timestamp, transaction_hash FROM %s%s ORDER BY timestamp DESC%s`,
		amountColumn, table, where, limit)

	var fetched []model.Payment
	return fetched, DoQuery(ctx, func(conn *pgx.Conn) error {
		res, err := conn.Query(ctx, query, args...)
		if err != nil {
			return errors.Wrapf(err, "failed to fetch %s payments from database", kind)
		}
		defer res.Close()

		for res.Next() {
			var wallets []string
			var amount, txHash string
			var ts time.Time
			if err := res.Scan(&wallets, &amount, &ts, &txHash); err != nil {
				return errors.Wrapf(err, "failed unmarshalling %s payment row", kind)
			}
			parsed, err := decimal.NewFromString(amount)
			if err != nil {
				s.logger.Warn("dropping payment row with unparsable amount",
					zap.String("tx", txHash), zap.String("kind", string(kind)), zap.Error(err))
				continue
			}
			fetched = append(fetched, model.Payment{
				WalletAddresses: wallets,
				Amount:          parsed,
				Timestamp:       ts,
				TransactionHash: txHash,
				Kind:            kind,
			})
		}
		return res.Err()
	})
}

// getGroupedKasPayments reads the KAS ledger pre-grouped by transaction hash.
// A batched payout inserts one row per recipient wallet sharing a hash; the
// global payout feed shows the transfer once, with the summed amount and the
// latest row timestamp. Grouped rows intentionally have no wallet list.
func (s *Store) getGroupedKasPayments(ctx context.Context, where, limit string, args []any) ([]model.Payment, error) {
	query := fmt.Sprintf(
		`SELECT transaction_hash, SUM(amount)::text, MAX(timestamp) FROM payments%s
		 GROUP BY transaction_hash ORDER BY MAX(timestamp) DESC%s`, where, limit)

	var fetched []model.Payment
	return fetched, DoQuery(ctx, func(conn *pgx.Conn) error {
		res, err := conn.Query(ctx, query, args...)
		if err != nil {
			return errors.Wrap(err, "failed to fetch grouped KAS payments from database")
		}
		defer res.Close()

		for res.Next() {
			var txHash, amount string
			var ts time.Time
			if err := res.Scan(&txHash, &amount, &ts); err != nil {
				return errors.Wrap(err, "failed unmarshalling grouped KAS payment row")
			}
			parsed, err := decimal.NewFromString(amount)
			if err != nil {
				s.logger.Warn("dropping grouped payment row with unparsable amount",
					zap.String("tx", txHash), zap.Error(err))
				continue
			}
			fetched = append(fetched, model.Payment{
				Amount:          parsed,
				Timestamp:       ts,
				TransactionHash: txHash,
				Kind:            model.PaymentKindKas,
			})
		}
		return res.Err()
	})
}
