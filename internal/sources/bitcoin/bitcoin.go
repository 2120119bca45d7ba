package bitcoin

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"crypto-tracker/internal/interfaces"
	"crypto-tracker/internal/models"
	"crypto-tracker/internal/sources"
)

// addressResponse is the subset of the BlockCypher full-address payload the tracer reads.
type addressResponse struct {
	NTx int                       `json:"n_tx"`
	Txs []*models.UTXOTransaction `json:"txs"`
}

type BitcoinSource struct {
	*sources.BaseSource
}

var _ interfaces.TransactionSource = (*BitcoinSource)(nil)

func NewBitcoinSource(baseSource *sources.BaseSource) *BitcoinSource {
	return &BitcoinSource{
		BaseSource: baseSource,
	}
}

func (b *BitcoinSource) GetExplorerURL(txHash string) string {
	return fmt.Sprintf("%s/transaction/%s", b.ExplorerBaseURL, txHash)
}

func (b *BitcoinSource) FetchTransactions(ctx context.Context, address string) ([]models.RawTransaction, error) {
	var resp addressResponse
	if err := b.GetJSON(ctx, b.addressURL(address), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch bitcoin address %s: %w", address, err)
	}

	txs := make([]models.RawTransaction, 0, len(resp.Txs))
	for _, tx := range resp.Txs {
		if tx == nil {
			continue
		}
		txs = append(txs, tx)
	}

	b.Logger.Debug().
		Str("address", address).
		Int("transactions", len(txs)).
		Int("totalTransactions", resp.NTx).
		Msg("Fetched bitcoin address history")

	return txs, nil
}

func (b *BitcoinSource) addressURL(address string) string {
	u := fmt.Sprintf("%s/addrs/%s/full", strings.TrimRight(b.Endpoint, "/"), url.PathEscape(address))
	if b.ApiKey != "" {
		u += "?" + url.Values{"token": {b.ApiKey}}.Encode()
	}
	return u
}
