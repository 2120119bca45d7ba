package interfaces

import (
	"context"

	"crypto-tracker/internal/models"
)

// TransactionSource fetches the recent transactions of an address from a chain explorer
type TransactionSource interface {
	// Chain returns the blockchain the source serves
	Chain() models.BlockchainName

	// FetchTransactions returns the most recent transactions touching address, newest first.
	// An address without history yields an empty slice and no error.
	FetchTransactions(ctx context.Context, address string) ([]models.RawTransaction, error)

	GetExplorerURL(txHash string) string
}

// EventEmitter defines the interface for emitting watchlist match events
type EventEmitter interface {
	EmitEvent(event models.MatchEvent) error
}
