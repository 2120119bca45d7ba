package models

import (
	"fmt"
	"strings"
)

type BlockchainName string

const (
	Bitcoin  BlockchainName = "Bitcoin"
	Ethereum BlockchainName = "Ethereum"
)

func (b BlockchainName) String() string {
	return string(b)
}

// Symbol is the currency label shown on graph edges.
func (b BlockchainName) Symbol() string {
	switch b {
	case Bitcoin:
		return "BTC"
	case Ethereum:
		return "ETH"
	default:
		return strings.ToUpper(string(b))
	}
}

// Decimals is the number of decimal places between the smallest unit and the display unit.
func (b BlockchainName) Decimals() int32 {
	switch b {
	case Ethereum:
		return 18
	default:
		return 8
	}
}

// CaseInsensitive reports whether addresses on the chain compare without regard to case.
func (b BlockchainName) CaseInsensitive() bool {
	return b == Ethereum
}

// NormalizeAddress returns the canonical form of an address for the chain.
func (b BlockchainName) NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if b.CaseInsensitive() {
		return strings.ToLower(address)
	}
	return address
}

// ParseBlockchain maps the short CLI names ("btc", "eth") and full names to a chain.
func ParseBlockchain(name string) (BlockchainName, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "btc", "bitcoin":
		return Bitcoin, nil
	case "eth", "ethereum":
		return Ethereum, nil
	default:
		return "", fmt.Errorf("unsupported blockchain %q", name)
	}
}
