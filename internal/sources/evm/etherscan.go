package evm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"crypto-tracker/internal/interfaces"
	"crypto-tracker/internal/models"
	"crypto-tracker/internal/sources"
)

const (
	noTransactionsMessage = "No transactions found"
	defaultPageSize       = 10
)

// ErrExplorer is returned when Etherscan answers with status "0".
var ErrExplorer = errors.New("etherscan error")

type txListResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Cacheable keeps rate-limit and key errors, which Etherscan returns with HTTP 200,
// out of the response cache.
func (r *txListResponse) Cacheable() bool {
	return r.Status == "1" || r.noTransactions()
}

func (r *txListResponse) noTransactions() bool {
	return strings.HasPrefix(r.Message, noTransactionsMessage)
}

type EthereumSource struct {
	*sources.BaseSource
	PageSize int
}

var _ interfaces.TransactionSource = (*EthereumSource)(nil)

func NewEthereumSource(baseSource *sources.BaseSource) *EthereumSource {
	return &EthereumSource{
		BaseSource: baseSource,
		PageSize:   defaultPageSize,
	}
}

func (e *EthereumSource) FetchTransactions(ctx context.Context, address string) ([]models.RawTransaction, error) {
	var resp txListResponse
	if err := e.GetJSON(ctx, e.txListURL(address), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch ethereum address %s: %w", address, err)
	}

	if resp.Status != "1" {
		if resp.noTransactions() {
			return []models.RawTransaction{}, nil
		}
		detail := resp.Message
		var reason string
		if json.Unmarshal(resp.Result, &reason) == nil && reason != "" {
			detail = fmt.Sprintf("%s (%s)", resp.Message, reason)
		}
		e.Logger.Error().
			Str("address", address).
			Str("message", detail).
			Msg("Etherscan returned an error")
		return nil, fmt.Errorf("%w: %s", ErrExplorer, detail)
	}

	var list []*models.AccountTransaction
	if err := json.Unmarshal(resp.Result, &list); err != nil {
		return nil, fmt.Errorf("failed to decode txlist result: %w", err)
	}

	txs := make([]models.RawTransaction, 0, len(list))
	for _, tx := range list {
		if tx == nil {
			continue
		}
		txs = append(txs, tx)
	}

	e.Logger.Debug().
		Str("address", address).
		Int("transactions", len(txs)).
		Msg("Fetched ethereum address history")

	return txs, nil
}

func (e *EthereumSource) txListURL(address string) string {
	pageSize := e.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	params := url.Values{
		"module":     {"account"},
		"action":     {"txlist"},
		"address":    {address},
		"startblock": {"0"},
		"endblock":   {"99999999"},
		"page":       {"1"},
		"offset":     {strconv.Itoa(pageSize)},
		"sort":       {"desc"},
	}
	if e.ApiKey != "" {
		params.Set("apikey", e.ApiKey)
	}
	return e.Endpoint + "?" + params.Encode()
}
