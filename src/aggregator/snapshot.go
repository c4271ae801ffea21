package aggregator

import (
	"context"
	"time"

	"github.com/onemorebsmith/kaspa-pool-monitor/src/model"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LedgerReader is the read surface the assembler aggregates over, implemented
// by postgres.Store. Kept narrow so the aggregation logic tests against an
// in-memory fake instead of a live database.
type LedgerReader interface {
	GetMinerBalances(ctx context.Context) ([]model.MinerBalance, error)
	GetWalletTotals(ctx context.Context) ([]model.WalletTotal, error)
	GetPayments(ctx context.Context, kind model.PaymentKind, q model.PaymentQuery) ([]model.Payment, error)
	GetBlockDetails(ctx context.Context, page, perPage int) ([]model.BlockDetail, error)
	GetBlockCount(ctx context.Context) (int, error)
	GetBlockCountSince(ctx context.Context, since time.Time) (int, error)
}

// Assembler composes reads, aggregation, merging and pagination into the
// response shapes the reporting endpoints and gauges serve. It holds no state
// between calls; overlapping invocations are independent. Any failed read
// fails the whole call -- there is no partially-aggregated snapshot.
type Assembler struct {
	reader LedgerReader
	logger *zap.Logger
	now    func() time.Time
}

func NewAssembler(reader LedgerReader, logger *zap.Logger) *Assembler {
	return &Assembler{
		reader: reader,
		logger: logger.Named("aggregator"),
		now:    time.Now,
	}
}

func (a *Assembler) BalanceSnapshot(ctx context.Context) (WalletBalances, error) {
	rows, err := a.reader.GetMinerBalances(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed reading miner balances for snapshot")
	}
	return AggregateBalances(rows, a.logger), nil
}

func (a *Assembler) WalletBalanceSnapshot(ctx context.Context, wallet string) (map[string]map[string]model.RebateBalance, error) {
	rows, err := a.reader.GetMinerBalances(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed reading miner balances for wallet snapshot")
	}
	return AggregateRebates(rows, wallet, a.logger), nil
}

func (a *Assembler) TotalsSnapshot(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := a.reader.GetWalletTotals(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed reading wallet totals for snapshot")
	}
	totals := map[string]decimal.Decimal{}
	for _, row := range rows {
		totals[row.Wallet] = row.Total
	}
	return totals, nil
}

// readBothLedgers fans the two payout reads out concurrently and joins before
// merging; they have no data dependency on each other. First error wins and
// cancels the sibling.
func (a *Assembler) readBothLedgers(ctx context.Context, kasQuery, nachoQuery model.PaymentQuery) (kas, nacho []model.Payment, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		kas, err = a.reader.GetPayments(gctx, model.PaymentKindKas, kasQuery)
		return err
	})
	g.Go(func() error {
		var err error
		nacho, err = a.reader.GetPayments(gctx, model.PaymentKindNacho, nachoQuery)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, errors.Wrap(err, "failed reading payout ledgers")
	}
	return kas, nacho, nil
}

// CombinedPayouts is the pool-wide merged payout feed, KAS rows pre-grouped
// by transaction hash.
func (a *Assembler) CombinedPayouts(ctx context.Context, page, perPage int) (model.Page[model.CombinedPayout], error) {
	kas, nacho, err := a.readBothLedgers(ctx,
		model.PaymentQuery{GroupByTransaction: true}, model.PaymentQuery{})
	if err != nil {
		return model.Page[model.CombinedPayout]{}, err
	}
	return Paginate(MergeCombined(kas, nacho), page, perPage), nil
}

// CombinedPayoutsByWallet is the merged feed restricted to one wallet. The
// filter applies before the merge, in SQL, against each payment's full
// address list.
func (a *Assembler) CombinedPayoutsByWallet(ctx context.Context, wallet string, page, perPage int) (model.Page[model.CombinedPayout], error) {
	kas, nacho, err := a.readBothLedgers(ctx,
		model.PaymentQuery{Wallet: wallet}, model.PaymentQuery{Wallet: wallet})
	if err != nil {
		return model.Page[model.CombinedPayout]{}, err
	}
	return Paginate(MergeCombined(kas, nacho), page, perPage), nil
}

// PayoutsGroupedLast computes per-wallet sums for one ledger over a trailing
// window. The SQL since-filter bounds the fetch; the grouper re-checks the
// boundary against the same `now` so the inclusive-cutoff contract holds.
func (a *Assembler) PayoutsGroupedLast(ctx context.Context, kind model.PaymentKind, window time.Duration) ([]WalletWindowSum, error) {
	now := a.now()
	payments, err := a.reader.GetPayments(ctx, kind, model.PaymentQuery{Since: now.Add(-window)})
	if err != nil {
		return nil, errors.Wrapf(err, "failed reading %s payments for windowed grouping", kind)
	}
	return GroupByWalletWindowed(payments, window, now), nil
}

// TotalPaidLast is the scalar grand total for one ledger over a trailing
// window.
func (a *Assembler) TotalPaidLast(ctx context.Context, kind model.PaymentKind, window time.Duration) (decimal.Decimal, error) {
	now := a.now()
	payments, err := a.reader.GetPayments(ctx, kind, model.PaymentQuery{Since: now.Add(-window)})
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "failed reading %s payments for windowed total", kind)
	}
	return TotalWindowed(payments, window, now), nil
}

// TotalPaid is the all-time total for one ledger, optionally for one wallet.
func (a *Assembler) TotalPaid(ctx context.Context, kind model.PaymentKind, wallet string) (decimal.Decimal, error) {
	payments, err := a.reader.GetPayments(ctx, kind, model.PaymentQuery{Wallet: wallet})
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "failed reading %s payments for total", kind)
	}
	return TotalAmount(payments), nil
}

// BlockDetails pages the mined-block history. The data slice is limited in
// SQL; the count query supplies the pagination metadata.
func (a *Assembler) BlockDetails(ctx context.Context, page, perPage int) (model.Page[model.BlockDetail], error) {
	if page < 1 {
		page = 1
	}
	var details []model.BlockDetail
	var count int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		details, err = a.reader.GetBlockDetails(gctx, page, perPage)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = a.reader.GetBlockCount(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Page[model.BlockDetail]{}, errors.Wrap(err, "failed reading block details")
	}

	if details == nil {
		details = []model.BlockDetail{}
	}
	return model.Page[model.BlockDetail]{
		Data:       details,
		Pagination: PageMeta(count, page, perPage),
	}, nil
}

func (a *Assembler) BlockCountLast(ctx context.Context, window time.Duration) (int, error) {
	count, err := a.reader.GetBlockCountSince(ctx, a.now().Add(-window))
	if err != nil {
		return 0, errors.Wrap(err, "failed reading windowed block count")
	}
	return count, nil
}

// GaugeSnapshot is the per-wallet data the prometheus exporter publishes:
// aggregated miner balances rolled up per wallet, and the wallet totals. Both
// reads run concurrently and either failing fails the refresh.
func (a *Assembler) GaugeSnapshot(ctx context.Context) (balances, totals map[string]decimal.Decimal, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snapshot, err := a.BalanceSnapshot(gctx)
		if err != nil {
			return err
		}
		balances = SumPerWallet(snapshot)
		return nil
	})
	g.Go(func() error {
		var err error
		totals, err = a.TotalsSnapshot(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, errors.Wrap(err, "failed assembling gauge snapshot")
	}
	return balances, totals, nil
}
