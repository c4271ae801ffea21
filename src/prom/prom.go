package prom

import (
	"context"
	"net/http"
	"time"

	"github.com/onemorebsmith/kaspa-pool-monitor/src/aggregator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var minerBalanceGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "miner_balances",
	Help: "Aggregated miner balances per wallet",
}, []string{"wallet"})

var walletTotalGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "wallet_totals",
	Help: "Total balances of wallets",
}, []string{"wallet"})

// PublishGauges replaces both gauge families from a freshly computed
// snapshot. Resetting first drops wallets that left the snapshot instead of
// letting their last sample linger. Decimal-to-float happens here, at the
// serialization boundary only.
func PublishGauges(balances, totals map[string]decimal.Decimal) {
	minerBalanceGauge.Reset()
	for wallet, balance := range balances {
		minerBalanceGauge.WithLabelValues(wallet).Set(balance.InexactFloat64())
	}
	walletTotalGauge.Reset()
	for wallet, total := range totals {
		walletTotalGauge.WithLabelValues(wallet).Set(total.InexactFloat64())
	}
}

func StartPromServer(logger *zap.Logger, port string) {
	logger.Info("serving metrics on " + port)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
}

// StartRefreshLoop recomputes the gauge snapshot on a fixed interval until
// the context is cancelled. A failed tick logs and waits for the next one;
// gauges keep their previous values rather than publishing a partial refresh.
func StartRefreshLoop(ctx context.Context, assembler *aggregator.Assembler, interval time.Duration, logger *zap.Logger) error {
	logger = logger.Named("metrics")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			balances, totals, err := assembler.GaugeSnapshot(ctx)
			if err != nil {
				logger.Error("failed refreshing gauges", zap.Error(err))
				continue
			}
			PublishGauges(balances, totals)
		case <-ctx.Done():
			logger.Info("stopping metrics refresh loop, context cancelled")
			return ctx.Err()
		}
	}
}
