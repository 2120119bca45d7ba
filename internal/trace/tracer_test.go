package trace

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"

	"crypto-tracker/internal/graph"
	"crypto-tracker/internal/models"
	"crypto-tracker/internal/registry"
	"crypto-tracker/internal/watchlist"
)

// fakeSource serves canned histories and records every fetch.
type fakeSource struct {
	chain   models.BlockchainName
	history map[string][]models.RawTransaction
	errs    map[string]error

	mu    sync.Mutex
	calls map[string]int
	order []string
}

func newFakeSource(chain models.BlockchainName) *fakeSource {
	return &fakeSource{
		chain:   chain,
		history: make(map[string][]models.RawTransaction),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeSource) Chain() models.BlockchainName { return f.chain }

func (f *fakeSource) GetExplorerURL(txHash string) string { return "https://example.test/tx/" + txHash }

func (f *fakeSource) FetchTransactions(_ context.Context, address string) ([]models.RawTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[address]++
	f.order = append(f.order, address)
	if err := f.errs[address]; err != nil {
		return nil, err
	}
	return f.history[address], nil
}

func (f *fakeSource) add(address string, txs ...models.RawTransaction) {
	f.history[address] = append(f.history[address], txs...)
}

func utxo(hash, from, to string, sat int64) *models.UTXOTransaction {
	v := num(sat)
	return &models.UTXOTransaction{
		Hash:    hash,
		Inputs:  []models.UTXOInput{{Addresses: []string{from}, OutputValue: v}},
		Outputs: []models.UTXOOutput{{Addresses: []string{to}, Value: v}},
	}
}

func num(v int64) json.Number { return json.Number(strconv.FormatInt(v, 10)) }

func legendIdentifiers(t *testing.T, res *Result) []string {
	t.Helper()
	out := make([]string, 0, len(res.Legend))
	for _, e := range res.Legend {
		n, ok := res.Graph.Node(e.ID)
		if !ok {
			t.Fatalf("legend entry %d has no node", e.ID)
		}
		out = append(out, n.Identifier)
	}
	return out
}

func TestBuild_SingleTransaction(t *testing.T) {
	src := newFakeSource(models.Bitcoin)
	src.add("A", utxo("T1", "A", "B", 50000000))

	res := New(src, Options{}, nil).Build(context.Background(), "A", 2)

	if res.Graph.NodeCount() != 3 {
		t.Fatalf("NodeCount() = %d, want 3", res.Graph.NodeCount())
	}
	if res.Graph.EdgeCount() != 2 {
		t.Fatalf("EdgeCount() = %d, want 2", res.Graph.EdgeCount())
	}

	in, ok := res.Graph.Edge(1, 2)
	if !ok {
		t.Fatal("missing inflow edge A->T1")
	}
	if in.Label != "0.5000 BTC" || in.Color != graph.InflowColor || in.Role != graph.Inflow {
		t.Errorf("unexpected inflow edge %+v", in)
	}
	if in.Title != "From: A\nAmount: 0.5000 BTC" {
		t.Errorf("inflow title = %q", in.Title)
	}

	out, ok := res.Graph.Edge(2, 3)
	if !ok {
		t.Fatal("missing outflow edge T1->B")
	}
	if out.Label != "0.5000 BTC" || out.Color != graph.OutflowColor {
		t.Errorf("unexpected outflow edge %+v", out)
	}

	seed, _ := res.Graph.Node(1)
	if seed.Color != graph.SeedColor || seed.Size != graph.SeedSize || seed.Title != "Address: A" {
		t.Errorf("unexpected seed node %+v", seed)
	}
	tx, _ := res.Graph.Node(2)
	if tx.Color != graph.TransactionColor || tx.Shape != graph.TransactionShape {
		t.Errorf("unexpected tx node %+v", tx)
	}
	if tx.Title != "TX: T1\nTime: Unknown\nBlock: N/A" {
		t.Errorf("tx title = %q", tx.Title)
	}
	b, _ := res.Graph.Node(3)
	if b.Title != "Address: B" || b.Color != graph.CounterpartyColor {
		t.Errorf("B should be expanded as a counterparty, got %+v", b)
	}

	if src.calls["B"] != 1 {
		t.Errorf("B fetched %d times, want 1", src.calls["B"])
	}
	if res.Stats.Fetches != 2 || res.Stats.Expanded != 1 || res.Stats.EmptyAddresses != 1 {
		t.Errorf("unexpected stats %+v", res.Stats)
	}

	want := []registry.LegendEntry{
		{ID: 1, Label: "1: A...A", Category: registry.Address},
		{ID: 2, Label: "2: T1...T1", Category: registry.Transaction},
		{ID: 3, Label: "3: B...B", Category: registry.Address},
	}
	for i, e := range want {
		if res.Legend[i] != e {
			t.Errorf("legend[%d] = %+v, want %+v", i, res.Legend[i], e)
		}
	}
}

func TestBuild_FetchFailureKeepsEarlierNodes(t *testing.T) {
	src := newFakeSource(models.Bitcoin)
	src.add("A", &models.UTXOTransaction{
		Hash:   "T1",
		Inputs: []models.UTXOInput{{Addresses: []string{"A"}, OutputValue: num(300)}},
		Outputs: []models.UTXOOutput{
			{Addresses: []string{"B"}, Value: num(100)},
			{Addresses: []string{"C"}, Value: num(200)},
		},
	})
	src.add("B", utxo("T2", "B", "D", 50))
	src.errs["C"] = errors.New("HTTP error: 429")

	res := New(src, Options{}, nil).Build(context.Background(), "A", 2)

	got := legendIdentifiers(t, res)
	want := []string{"A", "T1", "B", "C", "T2", "D"}
	if len(got) != len(want) {
		t.Fatalf("legend = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("legend[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if res.Stats.FailedFetches != 1 {
		t.Errorf("FailedFetches = %d, want 1", res.Stats.FailedFetches)
	}
	if src.calls["C"] != 1 {
		t.Errorf("C fetched %d times", src.calls["C"])
	}
}

func TestBuild_DepthFirstIDOrder(t *testing.T) {
	src := newFakeSource(models.Bitcoin)
	src.add("A", utxo("T1", "A", "B", 1), utxo("T2", "A", "C", 1))
	src.add("B", utxo("T3", "B", "D", 1))

	res := New(src, Options{}, nil).Build(context.Background(), "A", 2)

	got := legendIdentifiers(t, res)
	want := []string{"A", "T1", "B", "T3", "D", "T2", "C"}
	if len(got) != len(want) {
		t.Fatalf("legend = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("legend[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	wantOrder := []string{"A", "B", "D", "C"}
	if len(src.order) != len(wantOrder) {
		t.Fatalf("fetch order = %v, want %v", src.order, wantOrder)
	}
	for i := range wantOrder {
		if src.order[i] != wantOrder[i] {
			t.Errorf("fetch[%d] = %s, want %s", i, src.order[i], wantOrder[i])
		}
	}
}

func TestBuild_DepthBound(t *testing.T) {
	src := newFakeSource(models.Bitcoin)
	src.add("A", utxo("TA", "A", "B", 1))
	src.add("B", utxo("TB", "B", "C", 1))
	src.add("C", utxo("TC", "C", "D", 1))

	res := New(src, Options{}, nil).Build(context.Background(), "A", 1)

	if src.calls["A"] != 1 || src.calls["B"] != 1 {
		t.Errorf("A and B should be fetched once, got %v", src.calls)
	}
	if src.calls["C"] != 0 {
		t.Error("C is beyond the depth bound and must not be fetched")
	}

	// B sits at the bound, so its transactions are drawn but not expanded.
	if _, ok := res.Graph.Node(4); !ok {
		t.Error("TB should be drawn")
	}
	c, ok := res.Graph.Node(5)
	if !ok || c.Identifier != "C" || c.Title != "Receiver: C" {
		t.Errorf("C should appear as an unexpanded receiver, got %+v", c)
	}
	if res.Graph.NodeCount() != 5 {
		t.Errorf("NodeCount() = %d, want 5", res.Graph.NodeCount())
	}
}

func TestBuild_DepthZero(t *testing.T) {
	src := newFakeSource(models.Bitcoin)
	src.add("A", utxo("T1", "A", "B", 1))

	res := New(src, Options{}, nil).Build(context.Background(), "A", 0)

	if len(src.order) != 1 {
		t.Errorf("only the seed should be fetched, got %v", src.order)
	}
	if res.Graph.NodeCount() != 3 {
		t.Errorf("NodeCount() = %d, want 3", res.Graph.NodeCount())
	}
}

func TestBuild_FanOut(t *testing.T) {
	src := newFakeSource(models.Bitcoin)
	for i := 0; i < 7; i++ {
		n := strconv.Itoa(i)
		src.add("A", utxo("T"+n, "A", "R"+n, 1))
	}

	res := New(src, Options{}, nil).Build(context.Background(), "A", 0)

	if res.Graph.Stats().Transactions != DefaultFanOut {
		t.Errorf("transactions = %d, want %d", res.Graph.Stats().Transactions, DefaultFanOut)
	}
	if len(res.Transactions) != 7 {
		t.Errorf("collected %d transactions, want all 7 fetched", len(res.Transactions))
	}
	if res.Transactions[6].Hash != "T6" {
		t.Errorf("last collected = %s, want fetch order", res.Transactions[6].Hash)
	}
	for _, id := range legendIdentifiers(t, res) {
		if id == "T5" || id == "T6" {
			t.Errorf("%s is beyond the fan-out cap and must not be drawn", id)
		}
	}

	res = New(src, Options{FanOut: 2}, nil).Build(context.Background(), "A", 0)
	if res.Graph.Stats().Transactions != 2 {
		t.Errorf("transactions = %d, want 2", res.Graph.Stats().Transactions)
	}
}

func TestBuild_ClassifiesTransactionsBeyondFanOut(t *testing.T) {
	const seed = "0x742d35cc6634c0532925a3b844bc454e4438f44e"
	src := newFakeSource(models.Ethereum)
	for i := 0; i < 5; i++ {
		src.add(seed, &models.AccountTransaction{
			Hash:  "0x" + strconv.Itoa(i),
			From:  seed,
			To:    "0x000000000000000000000000000000000000000" + strconv.Itoa(i+1),
			Value: "1",
		})
	}
	src.add(seed, &models.AccountTransaction{
		Hash:  "0xmixer",
		From:  seed,
		To:    "0x12D66f87A04A9E220743712cE6d9bB1B5616B8Fc",
		Value: "100000000000000000",
	})

	res := New(src, Options{}, nil).Build(context.Background(), seed, 0)

	if res.Graph.Stats().Transactions != DefaultFanOut {
		t.Errorf("drawn transactions = %d, want %d", res.Graph.Stats().Transactions, DefaultFanOut)
	}
	if len(res.Transactions) != 6 {
		t.Fatalf("collected %d transactions, want 6", len(res.Transactions))
	}

	matches := watchlist.Classify(res.Transactions, watchlist.Default())
	if len(matches.Mixer) != 1 || matches.Mixer[0].Transaction.Hash != "0xmixer" {
		t.Errorf("mixer payment beyond the cap not classified: %+v", matches.Mixer)
	}
}

func TestBuild_DiscoveryDepthWithinBound(t *testing.T) {
	src := newFakeSource(models.Bitcoin)
	src.add("A", utxo("TA", "A", "B", 1))
	src.add("B", utxo("TB", "B", "C", 1))
	src.add("C", utxo("TC", "C", "D", 1))

	for _, maxDepth := range []int{0, 1, 2} {
		res := New(src, Options{}, nil).Build(context.Background(), "A", maxDepth)

		for _, n := range res.Graph.Nodes() {
			if n.Depth > maxDepth {
				t.Errorf("maxDepth %d: node %s has depth %d", maxDepth, n.Identifier, n.Depth)
			}
		}
		if got := res.Graph.Stats().MaxDepth; got != maxDepth {
			t.Errorf("maxDepth %d: Stats().MaxDepth = %d", maxDepth, got)
		}
	}
}

func TestBuild_EachAddressFetchedOnce(t *testing.T) {
	src := newFakeSource(models.Bitcoin)
	src.add("A", utxo("T1", "A", "B", 1), utxo("T2", "B", "A", 1))
	src.add("B", utxo("T1", "A", "B", 1), utxo("T3", "B", "C", 1))
	src.add("C", utxo("T4", "C", "A", 1))

	res := New(src, Options{}, nil).Build(context.Background(), "A", 3)

	distinct := map[string]bool{}
	for addr, n := range src.calls {
		distinct[addr] = true
		if n != 1 {
			t.Errorf("%s fetched %d times", addr, n)
		}
	}
	if res.Stats.Fetches > len(distinct) {
		t.Errorf("Fetches = %d exceeds distinct addresses %d", res.Stats.Fetches, len(distinct))
	}

	seen := map[string]bool{}
	for _, tx := range res.Transactions {
		if seen[tx.Hash] {
			t.Errorf("transaction %s collected twice", tx.Hash)
		}
		seen[tx.Hash] = true
	}
	if len(res.Transactions) != 4 {
		t.Errorf("collected %d transactions, want 4", len(res.Transactions))
	}
}

func TestBuild_SelfTransfer(t *testing.T) {
	src := newFakeSource(models.Bitcoin)
	src.add("A", utxo("T1", "A", "A", 1000))

	res := New(src, Options{}, nil).Build(context.Background(), "A", 2)

	if res.Graph.NodeCount() != 2 {
		t.Fatalf("NodeCount() = %d, want 2", res.Graph.NodeCount())
	}
	if !res.Graph.HasEdge(1, 2) || !res.Graph.HasEdge(2, 1) {
		t.Error("expected edges in both directions")
	}
	if len(src.order) != 1 {
		t.Errorf("A fetched %d times", len(src.order))
	}
	seed, _ := res.Graph.Node(1)
	if seed.Color != graph.SeedColor {
		t.Error("seed attributes should not be replaced by the counterparty pass")
	}
}

func TestBuild_SeedFetchFails(t *testing.T) {
	src := newFakeSource(models.Bitcoin)
	src.errs["A"] = errors.New("connection refused")

	res := New(src, Options{}, nil).Build(context.Background(), "A", 2)

	if res.Graph.NodeCount() != 1 || res.Graph.EdgeCount() != 0 {
		t.Fatalf("expected seed-only graph, got %d nodes %d edges", res.Graph.NodeCount(), res.Graph.EdgeCount())
	}
	if len(res.Legend) != 1 || res.Legend[0].Label != "1: A...A" {
		t.Errorf("unexpected legend %+v", res.Legend)
	}
	if res.Stats.FailedFetches != 1 {
		t.Errorf("FailedFetches = %d, want 1", res.Stats.FailedFetches)
	}
}

func TestBuild_SkipsBadTransactions(t *testing.T) {
	src := newFakeSource(models.Bitcoin)
	src.add("A", utxo("", "A", "X", 1), utxo("T2", "A", "B", 1))

	res := New(src, Options{}, nil).Build(context.Background(), "A", 0)

	if res.Stats.SkippedTransactions != 1 {
		t.Errorf("SkippedTransactions = %d, want 1", res.Stats.SkippedTransactions)
	}
	if _, ok := res.Graph.Node(2); !ok {
		t.Error("the valid transaction should still be drawn")
	}
	for _, e := range res.Legend {
		if e.Label == "2: X...X" || e.Label == "3: X...X" {
			t.Error("counterparties of a skipped transaction must not be registered")
		}
	}
}

func TestBuild_CancelledContext(t *testing.T) {
	src := newFakeSource(models.Bitcoin)
	src.add("A", utxo("T1", "A", "B", 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(src, Options{}, nil).Build(ctx, "A", 2)

	if len(src.order) != 0 {
		t.Errorf("no fetch expected after cancellation, got %v", src.order)
	}
	if res.Graph.NodeCount() != 1 {
		t.Errorf("NodeCount() = %d, want 1", res.Graph.NodeCount())
	}
}

func TestBuild_EthereumNormalizesCase(t *testing.T) {
	const seed = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	const lower = "0x742d35cc6634c0532925a3b844bc454e4438f44e"

	src := newFakeSource(models.Ethereum)
	src.add(lower, &models.AccountTransaction{
		Hash:        "0xabc",
		TimeStamp:   "1700000000",
		BlockNumber: "18000000",
		From:        seed,
		To:          "0xBOB",
		Value:       "1000000000000000000",
	})

	res := New(src, Options{}, nil).Build(context.Background(), seed, 0)

	if res.Seed != lower {
		t.Errorf("Seed = %q, want %q", res.Seed, lower)
	}
	if res.Graph.NodeCount() != 3 {
		t.Fatalf("NodeCount() = %d, want 3 (sender must map onto the seed)", res.Graph.NodeCount())
	}
	e, ok := res.Graph.Edge(1, 2)
	if !ok || e.Label != "1.0000 ETH" {
		t.Errorf("unexpected inflow edge %+v", e)
	}
	tx, _ := res.Graph.Node(2)
	if tx.Title != "TX: 0xabc\nTime: 2023-11-14 22:13\nBlock: 18000000" {
		t.Errorf("tx title = %q", tx.Title)
	}
}
