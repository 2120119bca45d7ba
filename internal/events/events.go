package events

import (
	"math/big"
	"strings"

	"github.com/rs/zerolog"

	"crypto-tracker/internal/interfaces"
	"crypto-tracker/internal/models"
	"crypto-tracker/internal/normalize"
	"crypto-tracker/internal/validation"
	"crypto-tracker/internal/watchlist"
)

// LogEmitter logs every match event and forwards it to the wrapped emitter
type LogEmitter struct {
	WrappedEmitter interfaces.EventEmitter
	Logger         *zerolog.Logger
}

var _ interfaces.EventEmitter = (*LogEmitter)(nil)

// EmitEvent logs the match and forwards to the wrapped emitter
func (d *LogEmitter) EmitEvent(event models.MatchEvent) error {
	if d.Logger != nil {
		d.Logger.Info().
			Str("chain", event.Chain.String()).
			Str("category", event.Category).
			Str("label", event.Label).
			Str("address", event.Address).
			Str("amount", event.Amount).
			Str("txHash", event.TxHash).
			Str("explorer", event.ExplorerURL).
			Msg("Watchlist match")
	}

	if d.WrappedEmitter != nil {
		return d.WrappedEmitter.EmitEvent(event)
	}
	return nil
}

// BuildMatchEvents turns a classification into one event per matched transaction,
// exchanges first. explorerURL may be nil; it is only applied to well-formed hashes.
func BuildMatchEvents(runID, seed string, chain models.BlockchainName, res watchlist.Result, explorerURL func(string) string) []models.MatchEvent {
	out := make([]models.MatchEvent, 0, len(res.Exchange)+len(res.Mixer))
	add := func(category string, matches []watchlist.Match) {
		for _, m := range matches {
			ev := models.MatchEvent{
				RunID:    runID,
				Chain:    chain,
				Seed:     seed,
				Category: category,
				TxHash:   m.Transaction.Hash,
				Address:  m.Address,
				Label:    m.Label,
				Amount:   MatchAmount(m, chain),
			}
			if m.Transaction.Timestamp.State == models.TimestampValid {
				ev.Timestamp = m.Transaction.Timestamp.Time
			}
			if explorerURL != nil && validation.ValidateTxHash(m.Transaction.Hash, chain) == nil {
				ev.ExplorerURL = explorerURL(m.Transaction.Hash)
			}
			out = append(out, ev)
		}
	}
	add(watchlist.CategoryExchange, res.Exchange)
	add(watchlist.CategoryMixer, res.Mixer)
	return out
}

// MatchAmount formats what the matched address received, e.g. "0.1000 ETH".
func MatchAmount(m watchlist.Match, chain models.BlockchainName) string {
	return normalize.FormatAmount(receivedBy(m), chain) + " " + chain.Symbol()
}

// receivedBy sums the outputs paid to the matched address.
func receivedBy(m watchlist.Match) *big.Int {
	total := new(big.Int)
	for _, o := range m.Transaction.Outputs {
		if strings.EqualFold(o.Address, m.Address) && o.Value != nil {
			total.Add(total, o.Value)
		}
	}
	return total
}
