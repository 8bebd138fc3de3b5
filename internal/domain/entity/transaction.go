package entity

import (
	"encoding/json"
	"time"
)

// Transaction types reported by the transactions endpoint.
const (
	TransactionTypeBuy            = "buy"
	TransactionTypeSell           = "sell"
	TransactionTypeSend           = "send"
	TransactionTypeReceive        = "receive"
	TransactionTypeTrade          = "trade"
	TransactionTypeFiatDeposit    = "fiat_deposit"
	TransactionTypeFiatWithdrawal = "fiat_withdrawal"
)

// Transaction is a single entry of an account's transaction history.
type Transaction struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Status       string    `json:"status"`
	Amount       Amount    `json:"amount"`
	NativeAmount Amount    `json:"native_amount"`
	CreatedAt    time.Time `json:"created_at"`
}

// TransactionsPage is one page of GET /v2/accounts/{id}/transactions.
type TransactionsPage struct {
	Data       []Transaction `json:"data"`
	Pagination *Pagination   `json:"pagination"`
}

// NextURI returns the link to the following page, or "" on the last page.
func (p TransactionsPage) NextURI() string {
	return p.Pagination.Next()
}

// RawTransactionsPage keeps every transaction as the exact JSON the API sent.
type RawTransactionsPage struct {
	Data       []json.RawMessage `json:"data"`
	Pagination *Pagination       `json:"pagination"`
}

// NextURI returns the link to the following page, or "" on the last page.
func (p RawTransactionsPage) NextURI() string {
	return p.Pagination.Next()
}
