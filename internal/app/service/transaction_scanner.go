package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

const maxTransactionPages = 10000

// transactionScannerImpl implements port.TransactionScanner.
type transactionScannerImpl struct {
	exchange  port.ExchangeClient
	pageDelay time.Duration
	logger    port.Logger
}

// NewTransactionScanner creates a scanner that waits pageDelay between consecutive page requests.
func NewTransactionScanner(exchange port.ExchangeClient, pageDelay time.Duration, l port.Logger) port.TransactionScanner {
	return &transactionScannerImpl{
		exchange:  exchange,
		pageDelay: pageDelay,
		logger:    l,
	}
}

// SumInvested implements port.TransactionScanner.
// Buys add and sells subtract the absolute native amount; the exchange reports sells as negative.
func (s *transactionScannerImpl) SumInvested(ctx context.Context, accountID string) (entity.InvestedAmount, error) {
	total := decimal.Zero
	var (
		buys, sells int
		currency    string
	)

	err := s.walkPages(ctx, accountID, func(ctx context.Context, next string) (string, error) {
		page, err := s.exchange.TransactionsPage(ctx, accountID, next)
		if err != nil {
			return "", err
		}
		for _, tx := range page.Data {
			switch strings.ToLower(strings.TrimSpace(tx.Type)) {
			case entity.TransactionTypeBuy:
				total = total.Add(tx.NativeAmount.Value().Abs())
				buys++
			case entity.TransactionTypeSell:
				total = total.Sub(tx.NativeAmount.Value().Abs())
				sells++
			default:
				continue
			}
			if code := entity.NormalizeCurrencyCode(tx.NativeAmount.Currency); currency == "" {
				currency = code
			} else if code != "" && code != currency {
				s.logger.Warn("Transaction native currency differs within account", "account_id", accountID, "expected", currency, "got", code)
			}
		}
		return page.NextURI(), nil
	})
	if err != nil {
		var upstream *entity.UpstreamError
		if errors.As(err, &upstream) && upstream.IsPermissionOrNotFound() {
			s.logger.Warn("Transaction history not visible to key", "account_id", accountID, "status", upstream.Status)
			return entity.InvestedAmount{}, fmt.Errorf("%w for account %s: %w", entity.ErrInvestedAmountUnknown, accountID, err)
		}
		return entity.InvestedAmount{}, fmt.Errorf("failed to scan transactions of account %s: %w", accountID, err)
	}

	s.logger.Debug("Invested amount computed", "account_id", accountID, "buys", buys, "sells", sells, "invested", total.String(), "currency", currency)
	return entity.InvestedAmount{Amount: decimal.NewNullDecimal(total), Currency: currency}, nil
}

// CollectRaw implements port.TransactionScanner.
func (s *transactionScannerImpl) CollectRaw(ctx context.Context, accountID string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	err := s.walkPages(ctx, accountID, func(ctx context.Context, next string) (string, error) {
		page, err := s.exchange.RawTransactionsPage(ctx, accountID, next)
		if err != nil {
			return "", err
		}
		all = append(all, page.Data...)
		return page.NextURI(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect transactions of account %s: %w", accountID, err)
	}
	return all, nil
}

// walkPages calls fetch with an empty cursor, then with each returned next link until it is empty.
func (s *transactionScannerImpl) walkPages(
	ctx context.Context,
	accountID string,
	fetch func(ctx context.Context, next string) (string, error),
) error {
	next := ""
	for page := 0; page < maxTransactionPages; page++ {
		following, err := fetch(ctx, next)
		if err != nil {
			return err
		}
		if following == "" {
			return nil
		}
		if following == next {
			return fmt.Errorf("pagination did not advance past %q", next)
		}
		next = following

		s.logger.Debug("Following transactions page", "account_id", accountID, "page", page+1)
		if err := sleepContext(ctx, s.pageDelay); err != nil {
			return err
		}
	}
	return fmt.Errorf("transactions pagination exceeded %d pages", maxTransactionPages)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
