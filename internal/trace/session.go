package trace

import (
	"crypto-tracker/internal/graph"
	"crypto-tracker/internal/models"
	"crypto-tracker/internal/registry"
)

// Stats counts what a run did against the data source.
type Stats struct {
	Fetches             int `json:"fetches"`
	Expanded            int `json:"expanded"`
	FailedFetches       int `json:"failed_fetches"`
	EmptyAddresses      int `json:"empty_addresses"`
	SkippedTransactions int `json:"skipped_transactions"`
}

// Result is the read-only outcome of one Build call.
type Result struct {
	Chain        models.BlockchainName
	Seed         string
	MaxDepth     int
	Graph        *graph.Graph
	Legend       []registry.LegendEntry
	Transactions []models.Transaction
	Stats        Stats
}

// session holds the mutable state of a single run: the registry, the graph under
// construction and the visited set. It is discarded once the Result is assembled.
type session struct {
	chain    models.BlockchainName
	seed     string
	maxDepth int

	registry *registry.Registry
	graph    *graph.Graph
	visited  map[string]struct{}

	txs    []models.Transaction
	seenTx map[string]struct{}
	stats  Stats
}

func newSession(chain models.BlockchainName, seed string, maxDepth int) *session {
	return &session{
		chain:    chain,
		seed:     seed,
		maxDepth: maxDepth,
		registry: registry.New(),
		graph:    graph.New(),
		visited:  make(map[string]struct{}),
		seenTx:   make(map[string]struct{}),
	}
}

// visit marks address as expanded and reports whether it was new.
func (s *session) visit(address string) bool {
	if _, ok := s.visited[address]; ok {
		return false
	}
	s.visited[address] = struct{}{}
	return true
}

func (s *session) collect(tx models.Transaction) {
	if _, ok := s.seenTx[tx.Hash]; ok {
		return
	}
	s.seenTx[tx.Hash] = struct{}{}
	s.txs = append(s.txs, tx)
}

func (s *session) result() *Result {
	return &Result{
		Chain:        s.chain,
		Seed:         s.seed,
		MaxDepth:     s.maxDepth,
		Graph:        s.graph,
		Legend:       s.registry.Legend(),
		Transactions: s.txs,
		Stats:        s.stats,
	}
}

// frame is one expanded address on the traversal stack.
type frame struct {
	address string
	depth   int

	txs  []models.Transaction
	next int

	children []string
	child    int
}

func (f *frame) pendingChild() (string, bool) {
	if f.child >= len(f.children) {
		return "", false
	}
	c := f.children[f.child]
	f.child++
	return c, true
}

func (f *frame) nextTransaction() (models.Transaction, bool) {
	if f.next >= len(f.txs) {
		return models.Transaction{}, false
	}
	tx := f.txs[f.next]
	f.next++
	f.children = nil
	f.child = 0
	return tx, true
}
