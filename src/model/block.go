package model

import "time"

// BlockDetail is one mined block as recorded by the pool, read-only here.
type BlockDetail struct {
	MinedBlockHash  string    `json:"mined_block_hash"`
	MinerId         string    `json:"miner_id"`
	PoolAddress     string    `json:"pool_address"`
	RewardBlockHash string    `json:"reward_block_hash"`
	Wallet          string    `json:"wallet"`
	DaaScore        uint64    `json:"daa_score"`
	MinerReward     float64   `json:"miner_reward"`
	Timestamp       time.Time `json:"timestamp"`
}
