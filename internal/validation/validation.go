package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"

	"crypto-tracker/internal/models"
)

// MaxDepth bounds the traversal depth accepted from users. Each level multiplies the
// number of explorer calls by up to the fan-out.
const MaxDepth = 6

var (
	bitcoinTxHashRegex  = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)
	ethereumTxHashRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
	urlRegex            = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)
)

// ValidateAddress validates a blockchain address format
func ValidateAddress(address string, chain models.BlockchainName) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return errors.New("address cannot be empty")
	}

	switch chain {
	case models.Bitcoin:
		return validateBitcoinAddress(address)
	case models.Ethereum:
		return validateEthereumAddress(address)
	default:
		return fmt.Errorf("unsupported blockchain %q", chain)
	}
}

// validateBitcoinAddress accepts any mainnet P2PKH, P2SH, segwit or taproot address.
func validateBitcoinAddress(address string) error {
	decoded, err := btcutil.DecodeAddress(address, &chaincfg.MainNetParams)
	if err != nil {
		return fmt.Errorf("invalid Bitcoin address format: %w", err)
	}
	if !decoded.IsForNet(&chaincfg.MainNetParams) {
		return errors.New("bitcoin address is not a mainnet address")
	}
	return nil
}

func validateEthereumAddress(address string) error {
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return errors.New("invalid Ethereum address format: missing 0x prefix")
	}
	if !common.IsHexAddress(address) {
		return errors.New("invalid Ethereum address format")
	}
	return nil
}

// ValidateTxHash validates transaction hash format
func ValidateTxHash(txHash string, chain models.BlockchainName) error {
	if txHash == "" {
		return errors.New("transaction hash cannot be empty")
	}

	switch chain {
	case models.Bitcoin:
		if !bitcoinTxHashRegex.MatchString(txHash) {
			return errors.New("invalid Bitcoin transaction hash")
		}
	case models.Ethereum:
		if !ethereumTxHashRegex.MatchString(txHash) {
			return errors.New("invalid Ethereum transaction hash")
		}
	default:
		return fmt.Errorf("unsupported blockchain %q", chain)
	}

	return nil
}

// ValidateDepth checks a user supplied traversal depth.
func ValidateDepth(depth int) error {
	if depth < 0 {
		return errors.New("depth cannot be negative")
	}
	if depth > MaxDepth {
		return fmt.Errorf("depth %d exceeds maximum of %d", depth, MaxDepth)
	}
	return nil
}

// ValidateURL validates URL format
func ValidateURL(url string) error {
	if url == "" {
		return errors.New("URL cannot be empty")
	}

	if !urlRegex.MatchString(url) {
		return errors.New("invalid URL format")
	}

	return nil
}
