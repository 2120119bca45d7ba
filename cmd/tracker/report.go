package main

import (
	"fmt"
	"io"

	"crypto-tracker/internal/events"
	"crypto-tracker/internal/models"
	"crypto-tracker/internal/registry"
	"crypto-tracker/internal/trace"
	"crypto-tracker/internal/watchlist"
)

func printLegend(w io.Writer, legend []registry.LegendEntry) {
	fmt.Fprintln(w, "\n[+] Generated Node Legend:")
	for _, item := range legend {
		fmt.Fprintf(w, "Node %d: %s (%s)\n", item.ID, item.Label, item.Category)
	}
}

func printSummary(w io.Writer, res *trace.Result, cls watchlist.Result, lists *watchlist.Set) {
	s := cls.Summary(len(res.Transactions))
	g := res.Graph.Stats()

	fmt.Fprintln(w, "\n[+] Graph Summary:")
	fmt.Fprintf(w, "Nodes: %d (%d addresses, %d transactions), edges: %d\n", g.TotalNodes, g.Addresses, g.Transactions, g.TotalEdges)
	fmt.Fprintf(w, "Explorer calls: %d (%d failed)\n", res.Stats.Fetches, res.Stats.FailedFetches)

	fmt.Fprintln(w, "\n[+] Transaction Classification:")
	if lists != nil {
		fmt.Fprintf(w, "Watchlists: %s, %s\n", describeList(lists.Mixers), describeList(lists.Exchanges))
	}
	fmt.Fprintf(w, "Total: %d, exchange: %d, mixer: %d, regular: %d\n", s.Total, s.Exchange, s.Mixer, s.Regular)

	if cls.Empty() {
		fmt.Fprintln(w, "No watchlist interactions found")
		return
	}
	printMatches(w, "Exchange", res.Chain, cls.Exchange)
	printMatches(w, "Mixer", res.Chain, cls.Mixer)
}

func describeList(l *watchlist.Watchlist) string {
	if l == nil {
		return "no lists"
	}
	return fmt.Sprintf("%d known %s addresses", l.Len(), l.Name())
}

func printMatches(w io.Writer, title string, chain models.BlockchainName, matches []watchlist.Match) {
	if len(matches) == 0 {
		return
	}
	fmt.Fprintf(w, "\n[!] %s transactions:\n", title)
	for _, m := range matches {
		fmt.Fprintf(w, "  %s -> %s (%s) %s at %s\n", m.Transaction.Hash, m.Address, m.Label, events.MatchAmount(m, chain), m.Transaction.Timestamp)
	}
}
