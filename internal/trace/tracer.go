// Package trace builds the transaction graph around a seed address by walking
// counterparties depth-first up to a fixed depth.
package trace

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"crypto-tracker/internal/graph"
	"crypto-tracker/internal/interfaces"
	"crypto-tracker/internal/models"
	"crypto-tracker/internal/normalize"
	"crypto-tracker/internal/registry"
)

const DefaultFanOut = 5

type Options struct {
	// FanOut caps the transactions processed per expanded address.
	FanOut int
}

type Tracer struct {
	source interfaces.TransactionSource
	fanOut int
	logger *zerolog.Logger
}

func New(source interfaces.TransactionSource, opts Options, logger *zerolog.Logger) *Tracer {
	if opts.FanOut <= 0 {
		opts.FanOut = DefaultFanOut
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Tracer{
		source: source,
		fanOut: opts.FanOut,
		logger: logger,
	}
}

// Build expands the seed and every counterparty reachable within maxDepth hops.
// Addresses at depth maxDepth are still fetched and their transactions drawn, but
// their counterparties are not expanded. Fetch and record failures only prune the
// affected branch, so Build always returns a result.
func (t *Tracer) Build(ctx context.Context, seed string, maxDepth int) *Result {
	chain := t.source.Chain()
	seed = chain.NormalizeAddress(seed)
	s := newSession(chain, seed, maxDepth)

	log := t.logger.With().
		Str("chain", chain.String()).
		Str("seed", seed).
		Int("maxDepth", maxDepth).
		Logger()
	log.Info().Msg("Starting transaction trace")

	var stack []*frame
	if f := t.enter(ctx, s, seed, 0, &log); f != nil {
		stack = append(stack, f)
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if child, ok := top.pendingChild(); ok {
			if f := t.enter(ctx, s, child, top.depth+1, &log); f != nil {
				stack = append(stack, f)
			}
			continue
		}

		tx, ok := top.nextTransaction()
		if !ok {
			stack = stack[:len(stack)-1]
			continue
		}
		t.addTransaction(s, tx, top.depth)

		if top.depth < maxDepth {
			top.children = counterparties(tx)
		}
	}

	log.Info().
		Int("identifiers", s.registry.Len()).
		Int("nodes", s.graph.NodeCount()).
		Int("edges", s.graph.EdgeCount()).
		Int("fetches", s.stats.Fetches).
		Int("failedFetches", s.stats.FailedFetches).
		Msg("Transaction trace finished")

	return s.result()
}

// enter registers and fetches an address, returning the frame to expand or nil when
// the branch ends here.
func (t *Tracer) enter(ctx context.Context, s *session, address string, depth int, log *zerolog.Logger) *frame {
	if depth > s.maxDepth || !s.visit(address) {
		return nil
	}

	id := s.registry.Resolve(address, registry.Address)
	node := graph.Node{
		ID:         id,
		Identifier: address,
		Label:      fmt.Sprint(id),
		Title:      "Address: " + address,
		Category:   registry.Address,
		Color:      graph.CounterpartyColor,
		Shape:      graph.AddressShape,
		Size:       graph.DefaultSize,
		Depth:      depth,
	}
	if depth == 0 {
		node.Color = graph.SeedColor
		node.Size = graph.SeedSize
	}
	s.graph.UpsertNode(node)

	if err := ctx.Err(); err != nil {
		s.stats.FailedFetches++
		log.Warn().Err(err).Str("address", address).Msg("Trace cancelled before fetch")
		return nil
	}

	s.stats.Fetches++
	raws, err := t.source.FetchTransactions(ctx, address)
	if err != nil {
		s.stats.FailedFetches++
		log.Error().
			Err(err).
			Str("address", address).
			Int("depth", depth).
			Msg("Failed to fetch address transactions")
		return nil
	}
	if len(raws) == 0 {
		s.stats.EmptyAddresses++
		log.Debug().Str("address", address).Msg("Address has no transactions")
		return nil
	}

	s.stats.Expanded++
	n := len(raws)
	if n > t.fanOut {
		n = t.fanOut
	}

	// Only the first fanOut records are drawn, but every fetched record is
	// collected for classification.
	drawn, errs := normalize.Transactions(raws[:n], s.chain)
	rest, restErrs := normalize.Transactions(raws[n:], s.chain)
	for _, err := range append(errs, restErrs...) {
		s.stats.SkippedTransactions++
		log.Warn().
			Err(err).
			Str("address", address).
			Msg("Error processing transaction")
	}
	for _, tx := range drawn {
		s.collect(tx)
	}
	for _, tx := range rest {
		s.collect(tx)
	}

	return &frame{address: address, depth: depth, txs: drawn}
}

// addTransaction draws the transaction node and its inflow and outflow edges.
// Counterparties of an address at the depth bound are recorded at the bound, since
// they are never expanded.
func (t *Tracer) addTransaction(s *session, tx models.Transaction, depth int) {
	cpDepth := depth + 1
	if cpDepth > s.maxDepth {
		cpDepth = s.maxDepth
	}

	txID := s.registry.Resolve(tx.Hash, registry.Transaction)
	s.graph.UpsertNode(graph.Node{
		ID:         txID,
		Identifier: tx.Hash,
		Label:      fmt.Sprint(txID),
		Title:      fmt.Sprintf("TX: %s\nTime: %s\nBlock: %s", tx.Hash, tx.Timestamp, tx.BlockLabel()),
		Category:   registry.Transaction,
		Color:      graph.TransactionColor,
		Shape:      graph.TransactionShape,
		Size:       graph.DefaultSize,
		Depth:      depth,
	})

	symbol := tx.Chain.Symbol()
	for _, in := range tx.Inputs {
		senderID := t.counterparty(s, in.Address, "Sender: ", cpDepth)
		amount := normalize.FormatAmount(in.Value, tx.Chain)
		s.graph.AddEdge(graph.Edge{
			From:     senderID,
			To:       txID,
			Amount:   normalize.DisplayAmount(in.Value, tx.Chain),
			Currency: symbol,
			Label:    amount + " " + symbol,
			Title:    fmt.Sprintf("From: %s\nAmount: %s %s", in.Address, amount, symbol),
			Color:    graph.InflowColor,
			Role:     graph.Inflow,
		})
	}
	for _, out := range tx.Outputs {
		receiverID := t.counterparty(s, out.Address, "Receiver: ", cpDepth)
		amount := normalize.FormatAmount(out.Value, tx.Chain)
		s.graph.AddEdge(graph.Edge{
			From:     txID,
			To:       receiverID,
			Amount:   normalize.DisplayAmount(out.Value, tx.Chain),
			Currency: symbol,
			Label:    amount + " " + symbol,
			Title:    fmt.Sprintf("To: %s\nAmount: %s %s", out.Address, amount, symbol),
			Color:    graph.OutflowColor,
			Role:     graph.Outflow,
		})
	}
}

func (t *Tracer) counterparty(s *session, address, titlePrefix string, depth int) int {
	id := s.registry.Resolve(address, registry.Address)
	s.graph.EnsureNode(graph.Node{
		ID:         id,
		Identifier: address,
		Label:      fmt.Sprint(id),
		Title:      titlePrefix + address,
		Category:   registry.Address,
		Color:      graph.CounterpartyColor,
		Shape:      graph.AddressShape,
		Size:       graph.DefaultSize,
		Depth:      depth,
	})
	return id
}

// counterparties lists the addresses to expand after tx: senders first, then receivers.
func counterparties(tx models.Transaction) []string {
	out := make([]string, 0, len(tx.Inputs)+len(tx.Outputs))
	for _, in := range tx.Inputs {
		out = append(out, in.Address)
	}
	for _, o := range tx.Outputs {
		out = append(out, o.Address)
	}
	return out
}
