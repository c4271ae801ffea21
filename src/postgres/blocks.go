package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/onemorebsmith/kaspa-pool-monitor/src/model"
	"github.com/pkg/errors"
)

// GetBlockDetails returns mined-block rows newest first. perPage <= 0 reads
// the whole table.
func (s *Store) GetBlockDetails(ctx context.Context, page, perPage int) ([]model.BlockDetail, error) {
	query := `SELECT mined_block_hash, miner_id, pool_address, reward_block_hash,
					 wallet, daa_score, miner_reward::float8, timestamp
			  FROM block_details ORDER BY timestamp DESC`
	args := []any{}
	if perPage > 0 {
		if page < 1 {
			page = 1
		}
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, perPage, (page-1)*perPage)
	}

	var fetched []model.BlockDetail
	return fetched, DoQuery(ctx, func(conn *pgx.Conn) error {
		res, err := conn.Query(ctx, query, args...)
		if err != nil {
			return errors.Wrap(err, "failed to fetch block details from database")
		}
		defer res.Close()

		for res.Next() {
			var detail model.BlockDetail
			var daaScore int64
			if err := res.Scan(&detail.MinedBlockHash, &detail.MinerId, &detail.PoolAddress,
				&detail.RewardBlockHash, &detail.Wallet, &daaScore, &detail.MinerReward,
				&detail.Timestamp); err != nil {
				return errors.Wrap(err, "failed unmarshalling block detail row")
			}
			detail.DaaScore = uint64(daaScore)
			fetched = append(fetched, detail)
		}
		return res.Err()
	})
}

func (s *Store) GetBlockCount(ctx context.Context) (int, error) {
	count := 0
	return count, DoQuery(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `SELECT COUNT(*) FROM block_details`)
		return errors.Wrap(row.Scan(&count), "failed to fetch block count from database")
	})
}

func (s *Store) GetBlockCountSince(ctx context.Context, since time.Time) (int, error) {
	count := 0
	return count, DoQuery(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx,
			`SELECT COUNT(*) FROM block_details WHERE timestamp >= $1`, since.UTC())
		return errors.Wrap(row.Scan(&count), "failed to fetch windowed block count from database")
	})
}
