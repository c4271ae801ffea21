package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/onemorebsmith/kaspa-pool-monitor/src/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// integration tests, expect the docker postgres from docker-compose to be up

var store *Store

func TestMain(m *testing.M) {
	ConfigureDockerConnection()
	store = NewStore(zap.NewNop())
	DoExecOrDie(context.Background(), schema)
	m.Run()
}

var schema = `
CREATE TABLE IF NOT EXISTS miners_balance (
	id SERIAL PRIMARY KEY, miner_id TEXT, wallet TEXT,
	balance NUMERIC, nacho_rebate_kas NUMERIC);
CREATE TABLE IF NOT EXISTS wallet_total (
	address TEXT PRIMARY KEY, total NUMERIC);
CREATE TABLE IF NOT EXISTS payments (
	id SERIAL PRIMARY KEY, wallet_address TEXT[], amount NUMERIC,
	timestamp TIMESTAMP, transaction_hash TEXT);
CREATE TABLE IF NOT EXISTS nacho_payments (
	id SERIAL PRIMARY KEY, wallet_address TEXT[], nacho_amount NUMERIC,
	timestamp TIMESTAMP, transaction_hash TEXT);
CREATE TABLE IF NOT EXISTS block_details (
	mined_block_hash TEXT, miner_id TEXT, pool_address TEXT, reward_block_hash TEXT,
	wallet TEXT, daa_score BIGINT, miner_reward NUMERIC, timestamp TIMESTAMP);`

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func TestGetMinerBalances(t *testing.T) {
	ctx := context.Background()
	DoExecOrDie(ctx, "DELETE FROM miners_balance")
	DoExecOrDie(ctx, `INSERT INTO miners_balance(miner_id, wallet, balance, nacho_rebate_kas) VALUES
		('m1', 'w1', 1.5, 0.25),
		('m2', 'w1', 2.25, NULL)`)

	balances, err := store.GetMinerBalances(ctx)
	if err != nil {
		t.Fatal(err)
	}
	expected := []model.MinerBalance{
		{MinerId: "m1", Wallet: "w1", Balance: decimal.RequireFromString("1.5"), RebateBalance: decimal.RequireFromString("0.25")},
		{MinerId: "m2", Wallet: "w1", Balance: decimal.RequireFromString("2.25"), RebateBalance: decimal.Zero},
	}
	if d := cmp.Diff(expected, balances, decimalComparer); d != "" {
		t.Fatalf("incorrect balances: %s", d)
	}
}

func TestGetWalletTotals(t *testing.T) {
	ctx := context.Background()
	DoExecOrDie(ctx, "DELETE FROM wallet_total")
	DoExecOrDie(ctx, `INSERT INTO wallet_total(address, total) VALUES ('w1', 123.456)`)

	totals, err := store.GetWalletTotals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	expected := []model.WalletTotal{{Wallet: "w1", Total: decimal.RequireFromString("123.456")}}
	if d := cmp.Diff(expected, totals, decimalComparer); d != "" {
		t.Fatalf("incorrect totals: %s", d)
	}
}

func TestGetPayments(t *testing.T) {
	ctx := context.Background()
	DoExecOrDie(ctx, "DELETE FROM payments")
	DoExecOrDie(ctx, `INSERT INTO payments(wallet_address, amount, timestamp, transaction_hash) VALUES
		('{"w1","w2"}', 10, '2024-06-01 12:00:00', 'h1'),
		('{"w1"}', 5, '2024-06-01 11:00:00', 'h1'),
		('{"w3"}', 7, '2024-06-01 10:00:00', 'h2')`)

	// raw rows, newest first
	all, err := store.GetPayments(ctx, model.PaymentKindKas, model.PaymentQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].TransactionHash != "h1" || all[2].TransactionHash != "h2" {
		t.Fatalf("incorrect raw payment rows: %+v", all)
	}

	// wallet filter matches against the whole address array
	filtered, err := store.GetPayments(ctx, model.PaymentKindKas, model.PaymentQuery{Wallet: "w2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 || !filtered[0].Amount.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("incorrect wallet-filtered rows: %+v", filtered)
	}

	// grouped rows collapse the shared hash, summing amounts and keeping the
	// latest timestamp
	grouped, err := store.GetPayments(ctx, model.PaymentKindKas, model.PaymentQuery{GroupByTransaction: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(grouped) != 2 {
		t.Fatalf("expected 2 grouped rows, got %d", len(grouped))
	}
	if grouped[0].TransactionHash != "h1" || !grouped[0].Amount.Equal(decimal.RequireFromString("15")) {
		t.Fatalf("incorrect grouped row: %+v", grouped[0])
	}
	if len(grouped[0].WalletAddresses) != 0 {
		t.Fatalf("grouped rows must not carry a wallet list: %+v", grouped[0])
	}

	// since filter is inclusive
	since, err := store.GetPayments(ctx, model.PaymentKindKas, model.PaymentQuery{
		Since: time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(since) != 2 {
		t.Fatalf("expected 2 rows at or after the cutoff, got %d", len(since))
	}
}

func TestGetNachoPayments(t *testing.T) {
	ctx := context.Background()
	DoExecOrDie(ctx, "DELETE FROM nacho_payments")
	DoExecOrDie(ctx, `INSERT INTO nacho_payments(wallet_address, nacho_amount, timestamp, transaction_hash) VALUES
		('{"w1"}', 2.5, '2024-06-01 12:00:00', 'n1')`)

	payments, err := store.GetPayments(ctx, model.PaymentKindNacho, model.PaymentQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(payments) != 1 || payments[0].Kind != model.PaymentKindNacho {
		t.Fatalf("incorrect nacho rows: %+v", payments)
	}
	if !payments[0].Amount.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("incorrect nacho amount: %s", payments[0].Amount)
	}
}

func TestGetBlockDetails(t *testing.T) {
	ctx := context.Background()
	DoExecOrDie(ctx, "DELETE FROM block_details")
	DoExecOrDie(ctx, `INSERT INTO block_details(mined_block_hash, miner_id, pool_address, reward_block_hash, wallet, daa_score, miner_reward, timestamp) VALUES
		('b1', 'm1', 'p1', 'r1', 'w1', 100, 73.5, '2024-06-01 12:00:00'),
		('b2', 'm1', 'p1', 'r2', 'w1', 101, 73.5, '2024-06-01 13:00:00'),
		('b3', 'm2', 'p1', 'r3', 'w2', 102, 73.5, '2024-06-01 14:00:00')`)

	page, err := store.GetBlockDetails(ctx, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].MinedBlockHash != "b3" {
		t.Fatalf("incorrect first page: %+v", page)
	}

	all, err := store.GetBlockDetails(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected the unpaginated read to return all rows, got %d", len(all))
	}

	count, err := store.GetBlockCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("expected 3 blocks, got %d", count)
	}

	windowed, err := store.GetBlockCountSince(ctx, time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if windowed != 2 {
		t.Fatalf("expected 2 blocks at or after the cutoff, got %d", windowed)
	}
}
