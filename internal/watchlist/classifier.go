package watchlist

import "crypto-tracker/internal/models"

// Match is a transaction whose destination is on a watchlist.
type Match struct {
	Transaction models.Transaction
	Address     string
	Label       string
}

type Result struct {
	Exchange []Match
	Mixer    []Match
}

// Summary mirrors the dashboard counters.
type Summary struct {
	Total    int
	Exchange int
	Mixer    int
	Regular  int
}

func (r Result) Summary(total int) Summary {
	s := Summary{Total: total, Exchange: len(r.Exchange), Mixer: len(r.Mixer)}
	s.Regular = total - s.Exchange - s.Mixer
	if s.Regular < 0 {
		s.Regular = 0
	}
	return s
}

func (r Result) Empty() bool {
	return len(r.Exchange) == 0 && len(r.Mixer) == 0
}

// Classify checks every transaction's destination addresses against the exchange and mixer
// lists. A transaction appears at most once per list, matched on its first listed destination.
func Classify(txs []models.Transaction, lists *Set) Result {
	var res Result
	if lists == nil {
		return res
	}
	for _, tx := range txs {
		if m, ok := match(tx, lists.Exchanges); ok {
			res.Exchange = append(res.Exchange, m)
		}
		if m, ok := match(tx, lists.Mixers); ok {
			res.Mixer = append(res.Mixer, m)
		}
	}
	return res
}

func match(tx models.Transaction, w *Watchlist) (Match, bool) {
	if w == nil {
		return Match{}, false
	}
	for _, addr := range tx.Receivers() {
		if label, ok := w.Label(addr); ok {
			return Match{Transaction: tx, Address: fold(addr), Label: label}, true
		}
	}
	return Match{}, false
}
