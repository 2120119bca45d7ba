// Package normalize converts per-chain raw transaction records into the canonical
// models.Transaction shape and converts smallest-unit values into display units.
package normalize

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"crypto-tracker/internal/models"
)

var ErrMissingHash = errors.New("transaction has no hash")

// Transaction normalizes a raw record. Individual inputs/outputs that lack an address
// or carry an unparsable value are dropped; only a missing hash fails the record.
func Transaction(raw models.RawTransaction, chain models.BlockchainName) (models.Transaction, error) {
	if raw != nil && raw.TxHash() == "" {
		return models.Transaction{}, ErrMissingHash
	}
	switch tx := raw.(type) {
	case *models.UTXOTransaction:
		return fromUTXO(tx, chain)
	case *models.AccountTransaction:
		return fromAccount(tx, chain)
	case nil:
		return models.Transaction{}, fmt.Errorf("nil raw transaction")
	default:
		return models.Transaction{}, fmt.Errorf("unsupported raw transaction type %T", raw)
	}
}

// Transactions normalizes a batch, returning the good records and the per-record errors.
func Transactions(raws []models.RawTransaction, chain models.BlockchainName) ([]models.Transaction, []error) {
	out := make([]models.Transaction, 0, len(raws))
	var errs []error
	for _, raw := range raws {
		tx, err := Transaction(raw, chain)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, tx)
	}
	return out, errs
}

func fromUTXO(raw *models.UTXOTransaction, chain models.BlockchainName) (models.Transaction, error) {
	tx := models.Transaction{
		Chain:       chain,
		Hash:        raw.Hash,
		BlockHeight: raw.BlockHeight,
		Inputs:      make([]models.Transfer, 0, len(raw.Inputs)),
		Outputs:     make([]models.Transfer, 0, len(raw.Outputs)),
	}
	if raw.Confirmed != nil {
		tx.Timestamp = parseConfirmed(*raw.Confirmed)
	}

	for _, in := range raw.Inputs {
		if t, ok := transfer(in.Addresses, string(in.OutputValue), chain); ok {
			tx.Inputs = append(tx.Inputs, t)
		}
	}
	for _, out := range raw.Outputs {
		if t, ok := transfer(out.Addresses, string(out.Value), chain); ok {
			tx.Outputs = append(tx.Outputs, t)
		}
	}

	return tx, nil
}

func fromAccount(raw *models.AccountTransaction, chain models.BlockchainName) (models.Transaction, error) {
	tx := models.Transaction{
		Chain:     chain,
		Hash:      raw.Hash,
		Timestamp: parseUnix(raw.TimeStamp),
	}
	if h, err := strconv.ParseInt(strings.TrimSpace(raw.BlockNumber), 10, 64); err == nil {
		tx.BlockHeight = &h
	}

	if from, ok := transfer([]string{raw.From}, raw.Value, chain); ok {
		tx.Inputs = []models.Transfer{from}
	}
	if to, ok := transfer([]string{raw.To}, raw.Value, chain); ok {
		tx.Outputs = []models.Transfer{to}
	}

	return tx, nil
}

// transfer takes the first address of an entry. An empty value is treated as zero.
func transfer(addresses []string, value string, chain models.BlockchainName) (models.Transfer, bool) {
	if len(addresses) == 0 {
		return models.Transfer{}, false
	}
	addr := chain.NormalizeAddress(addresses[0])
	if addr == "" {
		return models.Transfer{}, false
	}
	v, ok := parseValue(value)
	if !ok {
		return models.Transfer{}, false
	}
	return models.Transfer{Address: addr, Value: v}, true
}

func parseValue(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), true
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}

// parseConfirmed only accepts the exact layout. time.Parse alone would also take
// fractional seconds.
func parseConfirmed(s string) models.Timestamp {
	t, err := time.Parse(models.ConfirmedLayout, s)
	if err != nil || t.Format(models.ConfirmedLayout) != s {
		return models.InvalidTimestamp()
	}
	return models.ValidTimestamp(t)
}

func parseUnix(s string) models.Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Timestamp{}
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return models.InvalidTimestamp()
	}
	return models.ValidTimestamp(time.Unix(secs, 0))
}

// DisplayAmount converts a smallest-unit value into the chain's display unit.
func DisplayAmount(value *big.Int, chain models.BlockchainName) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -chain.Decimals())
}

// FormatAmount renders a display amount with four decimal places.
func FormatAmount(value *big.Int, chain models.BlockchainName) string {
	return DisplayAmount(value, chain).StringFixed(4)
}
