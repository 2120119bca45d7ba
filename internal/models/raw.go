package models

import "encoding/json"

// RawTransaction is a transaction record as returned by a chain data source, before
// normalization. The concrete type identifies the chain family.
type RawTransaction interface {
	TxHash() string
	rawTransaction()
}

// UTXOTransaction is the BlockCypher shape of a Bitcoin-style transaction.
type UTXOTransaction struct {
	Hash        string       `json:"hash"`
	BlockHeight *int64       `json:"block_height,omitempty"`
	Confirmed   *string      `json:"confirmed,omitempty"`
	Inputs      []UTXOInput  `json:"inputs"`
	Outputs     []UTXOOutput `json:"outputs"`
}

type UTXOInput struct {
	Addresses   []string    `json:"addresses"`
	OutputValue json.Number `json:"output_value"`
}

type UTXOOutput struct {
	Addresses []string    `json:"addresses"`
	Value     json.Number `json:"value"`
}

func (t *UTXOTransaction) TxHash() string { return t.Hash }
func (*UTXOTransaction) rawTransaction()  {}

// AccountTransaction is the Etherscan txlist shape of an account-based transaction.
// Every field is a string on the wire.
type AccountTransaction struct {
	Hash        string `json:"hash"`
	TimeStamp   string `json:"timeStamp"`
	BlockNumber string `json:"blockNumber"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
}

func (t *AccountTransaction) TxHash() string { return t.Hash }
func (*AccountTransaction) rawTransaction()  {}
