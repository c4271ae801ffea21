package web

import (
	"net/http"
	"time"

	"github.com/kaspanet/kaspad/domain/consensus/utils/constants"
	"github.com/onemorebsmith/kaspa-pool-monitor/src/model"
	"go.uber.org/zap"
)

// defaults when the pool hasn't pushed its config yet
const (
	coinMined          = "KAS"
	poolName           = "katpool"
	poolUrl            = "kas.katpool.xyz"
	defaultPoolFee     = 0.75
	poolCountry        = "US"
	poolFeeType        = "PPLNS"
	advertiseImageLink = ""
)

type poolStatsResponse struct {
	CoinMined          string              `json:"coin_mined"`
	PoolName           string              `json:"pool_name"`
	Url                string              `json:"url"`
	PoolFee            float64             `json:"poolFee"`
	CurrentHashRate    string              `json:"current_hashRate,omitempty"`
	Top100Blocks       []model.BlockDetail `json:"top_100_blocks"`
	TotalBlocksCount   int                 `json:"totalBlocksCount"`
	AdvertiseImageLink string              `json:"advertise_image_link"`
	MinPay             float64             `json:"minPay,omitempty"`
	Country            string              `json:"country"`
	FeeType            string              `json:"feeType"`
	LastBlock          string              `json:"lastblock,omitempty"`
	LastBlockTime      *time.Time          `json:"lastblocktime,omitempty"`
}

// handlePoolStats is the pool-level roll-up consumed by mining-pool listing
// sites. Everything here is display data, so degraded collaborators (no
// pushed config, unreachable prometheus) downgrade fields instead of failing
// the request; only the block reads are load-bearing.
func (s *Server) handlePoolStats(w http.ResponseWriter, r *http.Request) {
	cached := poolStatsResponse{}
	if s.cache.GetJSON(r.Context(), "miningPoolStats", &cached) {
		s.writeJSON(w, http.StatusOK, cached)
		return
	}

	stats := poolStatsResponse{
		CoinMined:          coinMined,
		PoolName:           poolName,
		Url:                poolUrl,
		PoolFee:            defaultPoolFee,
		AdvertiseImageLink: advertiseImageLink,
		Country:            poolCountry,
		FeeType:            poolFeeType,
	}
	if cfg, err := s.poolCfg.Load(); err == nil {
		if cfg.Hostname != "" {
			stats.Url = cfg.Hostname
		}
		if cfg.Treasury.Fee != 0 {
			stats.PoolFee = cfg.Treasury.Fee
		}
		if cfg.ThresholdAmount != 0 {
			stats.MinPay = cfg.ThresholdAmount / float64(constants.SompiPerKaspa)
		}
	}

	if hashRate, err := s.promQuery.PoolHashRate(r.Context()); err == nil {
		stats.CurrentHashRate = hashRate
	} else {
		s.logger.Warn("failed querying pool hash rate", zap.Error(err))
	}

	blocks, err := s.assembler.BlockDetails(r.Context(), 1, 100)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve pool stats")
		return
	}
	stats.Top100Blocks = blocks.Data
	stats.TotalBlocksCount = blocks.Pagination.TotalCount
	if len(blocks.Data) > 0 {
		stats.LastBlock = blocks.Data[0].MinedBlockHash
		ts := blocks.Data[0].Timestamp
		stats.LastBlockTime = &ts
	}

	s.cache.PutJSON(r.Context(), "miningPoolStats", stats)
	s.writeJSON(w, http.StatusOK, stats)
}
