package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/onemorebsmith/kaspa-pool-monitor/src/model"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// fakeLedger serves canned rows and applies the query filters the way the
// real store's SQL does, so the assembler's query construction is exercised.
type fakeLedger struct {
	balances []model.MinerBalance
	totals   []model.WalletTotal
	payments map[model.PaymentKind][]model.Payment
	blocks   []model.BlockDetail

	failKind model.PaymentKind // reads of this kind error out
}

func (f *fakeLedger) GetMinerBalances(ctx context.Context) ([]model.MinerBalance, error) {
	return f.balances, nil
}

func (f *fakeLedger) GetWalletTotals(ctx context.Context) ([]model.WalletTotal, error) {
	return f.totals, nil
}

func (f *fakeLedger) GetPayments(ctx context.Context, kind model.PaymentKind, q model.PaymentQuery) ([]model.Payment, error) {
	if kind == f.failKind {
		return nil, errors.New("connection refused")
	}
	rows := f.payments[kind]
	if q.Wallet != "" {
		rows = FilterPaymentsByWallet(rows, q.Wallet)
	}
	var out []model.Payment
	for _, p := range rows {
		if !q.Since.IsZero() && p.Timestamp.Before(q.Since) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeLedger) GetBlockDetails(ctx context.Context, page, perPage int) ([]model.BlockDetail, error) {
	if perPage <= 0 {
		return f.blocks, nil
	}
	start := (page - 1) * perPage
	if start >= len(f.blocks) {
		return nil, nil
	}
	end := start + perPage
	if end > len(f.blocks) {
		end = len(f.blocks)
	}
	return f.blocks[start:end], nil
}

func (f *fakeLedger) GetBlockCount(ctx context.Context) (int, error) {
	return len(f.blocks), nil
}

func (f *fakeLedger) GetBlockCountSince(ctx context.Context, since time.Time) (int, error) {
	count := 0
	for _, b := range f.blocks {
		if !b.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func newTestAssembler(ledger *fakeLedger, now time.Time) *Assembler {
	a := NewAssembler(ledger, zap.NewNop())
	a.now = func() time.Time { return now }
	return a
}

func TestCombinedPayoutsSnapshot(t *testing.T) {
	ledger := &fakeLedger{
		payments: map[model.PaymentKind][]model.Payment{
			model.PaymentKindKas: {
				{WalletAddresses: []string{"w1"}, Amount: d(t, "10"), Timestamp: t0.Add(2 * time.Hour), TransactionHash: "h1", Kind: model.PaymentKindKas},
			},
			model.PaymentKindNacho: {
				{WalletAddresses: []string{"w1"}, Amount: d(t, "5"), Timestamp: t0.Add(time.Hour), TransactionHash: "h2", Kind: model.PaymentKindNacho},
			},
		},
	}
	a := newTestAssembler(ledger, t0.Add(3*time.Hour))

	page, err := a.CombinedPayouts(context.Background(), 1, 500)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Data) != 2 {
		t.Fatalf("expected 2 combined entries, got %d", len(page.Data))
	}
	if page.Data[0].TransactionHash != "h1" || page.Data[0].PaymentType != model.PaymentKindKas {
		t.Fatalf("expected the newer KAS payout first, got %+v", page.Data[0])
	}
	if page.Data[1].TransactionHash != "h2" || page.Data[1].PaymentType != model.PaymentKindNacho {
		t.Fatalf("expected the older NACHO payout second, got %+v", page.Data[1])
	}
}

func TestCombinedPayoutsByWalletFilters(t *testing.T) {
	ledger := &fakeLedger{
		payments: map[model.PaymentKind][]model.Payment{
			model.PaymentKindKas: {
				{WalletAddresses: []string{"w1", "w2"}, Amount: d(t, "1"), Timestamp: t0.Add(time.Hour), TransactionHash: "k1"},
				{WalletAddresses: []string{"w3"}, Amount: d(t, "2"), Timestamp: t0, TransactionHash: "k2"},
			},
			model.PaymentKindNacho: {
				{WalletAddresses: []string{"w2"}, Amount: d(t, "3"), Timestamp: t0, TransactionHash: "n1"},
			},
		},
	}
	a := newTestAssembler(ledger, t0.Add(2*time.Hour))

	page, err := a.CombinedPayoutsByWallet(context.Background(), "w2", 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	var hashes []string
	for _, entry := range page.Data {
		hashes = append(hashes, entry.TransactionHash)
	}
	if diff := cmp.Diff([]string{"k1", "n1"}, hashes); diff != "" {
		t.Fatalf("incorrect wallet-filtered merge: %s", diff)
	}
}

// one failed ledger read fails the whole combined view, no partial snapshots
func TestCombinedPayoutsFailFast(t *testing.T) {
	ledger := &fakeLedger{
		payments: map[model.PaymentKind][]model.Payment{
			model.PaymentKindKas: {
				{WalletAddresses: []string{"w1"}, Amount: d(t, "1"), Timestamp: t0, TransactionHash: "k1"},
			},
		},
		failKind: model.PaymentKindNacho,
	}
	a := newTestAssembler(ledger, t0)

	if _, err := a.CombinedPayouts(context.Background(), 1, 10); err == nil {
		t.Fatal("expected the merge to fail when one source fails")
	}
}

func TestPayoutsGroupedLast(t *testing.T) {
	now := t0.Add(48 * time.Hour)
	ledger := &fakeLedger{
		payments: map[model.PaymentKind][]model.Payment{
			model.PaymentKindNacho: {
				{WalletAddresses: []string{"w1"}, Amount: d(t, "2"), Timestamp: now.Add(-time.Hour)},
				{WalletAddresses: []string{"w1"}, Amount: d(t, "3"), Timestamp: now.Add(-2 * time.Hour)},
				{WalletAddresses: []string{"w2"}, Amount: d(t, "100"), Timestamp: now.Add(-49 * time.Hour)}, // outside window
			},
		},
	}
	a := newTestAssembler(ledger, now)

	grouped, err := a.PayoutsGroupedLast(context.Background(), model.PaymentKindNacho, 48*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	expected := []WalletWindowSum{
		{Wallet: "w1", Amount: d(t, "5"), EarliestTimestamp: now.Add(-2 * time.Hour)},
	}
	if diff := cmp.Diff(expected, grouped, decimalComparer); diff != "" {
		t.Fatalf("incorrect grouped window: %s", diff)
	}
}

func TestTotalPaidLast(t *testing.T) {
	now := t0.Add(24 * time.Hour)
	ledger := &fakeLedger{
		payments: map[model.PaymentKind][]model.Payment{
			model.PaymentKindKas: {
				{WalletAddresses: []string{"w1"}, Amount: d(t, "0.1"), Timestamp: now.Add(-time.Minute)},
				{WalletAddresses: []string{"w2"}, Amount: d(t, "0.2"), Timestamp: now.Add(-24 * time.Hour)}, // exactly on the boundary
			},
		},
	}
	a := newTestAssembler(ledger, now)

	total, err := a.TotalPaidLast(context.Background(), model.PaymentKindKas, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if !total.Equal(d(t, "0.3")) {
		t.Fatalf("expected 0.3, got %s", total)
	}
}

func TestGaugeSnapshot(t *testing.T) {
	ledger := &fakeLedger{
		balances: []model.MinerBalance{
			{MinerId: "m1", Wallet: "w1", Balance: d(t, "1.5")},
			{MinerId: "m2", Wallet: "w1", Balance: d(t, "2.25")},
			{MinerId: "m3", Wallet: "w2", Balance: d(t, "4")},
		},
		totals: []model.WalletTotal{
			{Wallet: "w1", Total: d(t, "100")},
		},
	}
	a := newTestAssembler(ledger, t0)

	balances, totals, err := a.GaugeSnapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	expectedBalances := map[string]decimal.Decimal{"w1": d(t, "3.75"), "w2": d(t, "4")}
	if diff := cmp.Diff(expectedBalances, balances, decimalComparer); diff != "" {
		t.Fatalf("incorrect balance gauges: %s", diff)
	}
	expectedTotals := map[string]decimal.Decimal{"w1": d(t, "100")}
	if diff := cmp.Diff(expectedTotals, totals, decimalComparer); diff != "" {
		t.Fatalf("incorrect total gauges: %s", diff)
	}
}

func TestBlockDetailsPagination(t *testing.T) {
	blocks := make([]model.BlockDetail, 12)
	for i := range blocks {
		blocks[i] = model.BlockDetail{MinedBlockHash: string(rune('a' + i)), Timestamp: t0.Add(-time.Duration(i) * time.Hour)}
	}
	a := newTestAssembler(&fakeLedger{blocks: blocks}, t0)

	page, err := a.BlockDetails(context.Background(), 3, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Data) != 2 {
		t.Fatalf("expected 2 entries on the last page, got %d", len(page.Data))
	}
	expected := model.Pagination{CurrentPage: 3, PerPage: 5, TotalCount: 12, TotalPages: 3}
	if diff := cmp.Diff(expected, page.Pagination); diff != "" {
		t.Fatalf("incorrect pagination metadata: %s", diff)
	}

	empty, err := a.BlockDetails(context.Background(), 9, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty.Data) != 0 || empty.Pagination.TotalCount != 12 {
		t.Fatalf("out-of-range page mishandled: %+v", empty)
	}
}

func TestBlockCountLast(t *testing.T) {
	now := t0
	a := newTestAssembler(&fakeLedger{blocks: []model.BlockDetail{
		{MinedBlockHash: "a", Timestamp: now.Add(-time.Hour)},
		{MinedBlockHash: "b", Timestamp: now.Add(-25 * time.Hour)},
	}}, now)

	count, err := a.BlockCountLast(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 block in the last 24h, got %d", count)
	}
}
