package models

import (
	"math/big"
	"time"
)

const (
	// ConfirmedLayout is the fixed layout of BlockCypher confirmation times.
	ConfirmedLayout = "2006-01-02T15:04:05Z"
	displayLayout   = "2006-01-02 15:04"
)

type TimestampState int

const (
	TimestampUnknown TimestampState = iota
	TimestampValid
	TimestampInvalid
)

// Timestamp is a transaction time that may be missing or unparsable.
type Timestamp struct {
	Time  time.Time
	State TimestampState
}

func ValidTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC(), State: TimestampValid}
}

func InvalidTimestamp() Timestamp {
	return Timestamp{State: TimestampInvalid}
}

func (t Timestamp) String() string {
	switch t.State {
	case TimestampValid:
		return t.Time.Format(displayLayout)
	case TimestampInvalid:
		return "Invalid timestamp"
	default:
		return "Unknown"
	}
}

// Transfer is one side of a value movement, in the chain's smallest unit.
type Transfer struct {
	Address string
	Value   *big.Int
}

// Transaction is the canonical, chain-independent transaction.
type Transaction struct {
	Chain       BlockchainName
	Hash        string
	Timestamp   Timestamp
	BlockHeight *int64
	Inputs      []Transfer
	Outputs     []Transfer
}

// BlockLabel renders the block height, or "N/A" when unknown.
func (t Transaction) BlockLabel() string {
	if t.BlockHeight == nil {
		return "N/A"
	}
	return big.NewInt(*t.BlockHeight).String()
}

// Receivers returns the distinct output addresses in order.
func (t Transaction) Receivers() []string {
	seen := make(map[string]struct{}, len(t.Outputs))
	out := make([]string, 0, len(t.Outputs))
	for _, o := range t.Outputs {
		if _, ok := seen[o.Address]; ok {
			continue
		}
		seen[o.Address] = struct{}{}
		out = append(out, o.Address)
	}
	return out
}

// MatchEvent is published for every transaction that hits a watchlist.
type MatchEvent struct {
	RunID       string         `json:"run_id"`
	Chain       BlockchainName `json:"chain"`
	Seed        string         `json:"seed"`
	Category    string         `json:"category"`
	TxHash      string         `json:"tx_hash"`
	Address     string         `json:"address"`
	Label       string         `json:"label"`
	Amount      string         `json:"amount"`
	Timestamp   time.Time      `json:"timestamp"`
	ExplorerURL string         `json:"explorer_url"`
}
