package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"portfolio_tracker/internal/domain/entity"
)

// fakeExchange serves canned accounts, transaction pages and prices and counts every call.
type fakeExchange struct {
	mu       sync.Mutex
	accounts []entity.Account
	listErr  error
	txPages  map[string][][]entity.Transaction
	txErr    map[string]error
	prices   map[string]string
	priceErr map[string]error

	listCalls  atomic.Int32
	txCalls    atomic.Int32
	priceCalls atomic.Int32
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		txPages:  make(map[string][][]entity.Transaction),
		txErr:    make(map[string]error),
		prices:   make(map[string]string),
		priceErr: make(map[string]error),
	}
}

func (f *fakeExchange) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *fakeExchange) ListAccounts(ctx context.Context) ([]entity.Account, error) {
	f.listCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]entity.Account(nil), f.accounts...), nil
}

func (f *fakeExchange) page(accountID, next string) ([]entity.Transaction, *entity.Pagination, error) {
	f.txCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.txErr[accountID]; err != nil {
		return nil, nil, err
	}
	idx := 0
	if next != "" {
		n, err := strconv.Atoi(next[strings.LastIndex(next, "=")+1:])
		if err != nil {
			return nil, nil, err
		}
		idx = n
	}
	pages := f.txPages[accountID]
	if idx >= len(pages) {
		return []entity.Transaction{}, &entity.Pagination{}, nil
	}
	pagination := &entity.Pagination{}
	if idx+1 < len(pages) {
		pagination.NextURI = fmt.Sprintf("/v2/accounts/%s/transactions?starting_after=%d", accountID, idx+1)
	}
	return pages[idx], pagination, nil
}

func (f *fakeExchange) TransactionsPage(ctx context.Context, accountID, next string) (entity.TransactionsPage, error) {
	txs, pagination, err := f.page(accountID, next)
	if err != nil {
		return entity.TransactionsPage{}, err
	}
	return entity.TransactionsPage{Data: txs, Pagination: pagination}, nil
}

func (f *fakeExchange) RawTransactionsPage(ctx context.Context, accountID, next string) (entity.RawTransactionsPage, error) {
	txs, pagination, err := f.page(accountID, next)
	if err != nil {
		return entity.RawTransactionsPage{}, err
	}
	raw := make([]json.RawMessage, 0, len(txs))
	for _, tx := range txs {
		b, err := json.Marshal(tx)
		if err != nil {
			return entity.RawTransactionsPage{}, err
		}
		raw = append(raw, b)
	}
	return entity.RawTransactionsPage{Data: raw, Pagination: pagination}, nil
}

func (f *fakeExchange) SpotPrice(ctx context.Context, base, quote string) (entity.SpotPrice, error) {
	f.priceCalls.Add(1)
	key := base + "-" + quote
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.priceErr[key]; err != nil {
		return entity.SpotPrice{}, err
	}
	amount, ok := f.prices[key]
	if !ok {
		return entity.SpotPrice{}, &entity.UpstreamError{Status: http.StatusNotFound, Reason: "Not Found", Path: "/v2/prices/" + key + "/spot"}
	}
	return entity.SpotPrice{Data: &entity.SpotPriceData{Amount: amount, Base: base, Currency: quote}}, nil
}

func account(id, code, balance, apy string) entity.Account {
	acc := entity.Account{
		ID:       id,
		Balance:  entity.Amount{Amount: balance, Currency: code},
		Currency: entity.CurrencyInfo{Code: code},
	}
	if apy != "" {
		acc.Currency.Rewards = &entity.RewardInfo{FormattedAPY: apy}
	}
	return acc
}

func tx(kind, native string) entity.Transaction {
	return entity.Transaction{Type: kind, NativeAmount: entity.Amount{Amount: native, Currency: "USD"}}
}

func notFound() error {
	return &entity.UpstreamError{Status: http.StatusNotFound, Reason: "Not Found"}
}

func serverError() error {
	return &entity.UpstreamError{Status: http.StatusInternalServerError, Reason: "Internal Server Error"}
}
