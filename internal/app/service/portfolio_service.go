package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/metrics"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultMaxConcurrentEnrichments = 8

// PortfolioConfig tunes the aggregator.
type PortfolioConfig struct {
	QuoteCurrency  string
	AnchorCurrency string
	// RefreshTimeout bounds one refresh, including every enrichment. Zero means no deadline.
	RefreshTimeout           time.Duration
	MaxConcurrentEnrichments int
}

// portfolioServiceImpl implements port.PortfolioService.
type portfolioServiceImpl struct {
	exchange port.ExchangeClient
	prices   port.PriceService
	scanner  port.TransactionScanner
	cache    port.SnapshotCache
	logger   port.Logger
	cfg      PortfolioConfig
}

// NewPortfolioService creates the aggregator over its collaborators.
func NewPortfolioService(
	exchange port.ExchangeClient,
	prices port.PriceService,
	scanner port.TransactionScanner,
	cache port.SnapshotCache,
	l port.Logger,
	cfg PortfolioConfig,
) port.PortfolioService {
	cfg.QuoteCurrency = entity.NormalizeCurrencyCode(cfg.QuoteCurrency)
	if cfg.QuoteCurrency == "" {
		cfg.QuoteCurrency = "USD"
	}
	cfg.AnchorCurrency = entity.NormalizeCurrencyCode(cfg.AnchorCurrency)
	if cfg.MaxConcurrentEnrichments <= 0 {
		cfg.MaxConcurrentEnrichments = defaultMaxConcurrentEnrichments
	}
	return &portfolioServiceImpl{
		exchange: exchange,
		prices:   prices,
		scanner:  scanner,
		cache:    cache,
		logger:   l,
		cfg:      cfg,
	}
}

// GetPortfolio implements port.PortfolioService.
func (s *portfolioServiceImpl) GetPortfolio(ctx context.Context, forceRefresh bool) (entity.PortfolioResult, error) {
	if !forceRefresh {
		if snap, ok := s.cache.Fresh(); ok {
			metrics.SnapshotLookups.WithLabelValues("cache").Inc()
			s.logger.Debug("Serving cached portfolio", "refresh_id", snap.RefreshID, "fetched_at", snap.FetchedAt)
			return entity.PortfolioResult{Snapshot: snap, FromCache: true}, nil
		}
	}
	metrics.SnapshotLookups.WithLabelValues("refresh").Inc()

	snap, err := s.refresh(ctx, forceRefresh)
	if err != nil {
		return entity.PortfolioResult{}, err
	}
	return entity.PortfolioResult{Snapshot: snap}, nil
}

func (s *portfolioServiceImpl) refresh(ctx context.Context, forced bool) (entity.Snapshot, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	refreshID := uuid.NewString()
	log := s.logger.With("refresh_id", refreshID)
	started := time.Now()
	log.Info("Refreshing portfolio", "forced", forced)

	if forced {
		s.prices.Invalidate()
	}

	accounts, err := s.exchange.ListAccounts(ctx)
	if err != nil {
		log.Error("Failed to list accounts, keeping previous snapshot", "error", err)
		return entity.Snapshot{}, fmt.Errorf("failed to list accounts: %w", err)
	}

	items := GroupAccounts(accounts, s.cfg.AnchorCurrency)
	log.Debug("Accounts grouped", "accounts", len(accounts), "items", len(items))

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrentEnrichments)
	for i := range items {
		item := &items[i]
		g.Go(func() error {
			s.enrich(ctx, log, item)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		log.Error("Portfolio refresh aborted before enrichment finished", "error", err)
		return entity.Snapshot{}, fmt.Errorf("portfolio refresh aborted: %w", err)
	}

	SortItems(items, s.cfg.AnchorCurrency)
	stored := s.cache.Store(entity.Snapshot{Items: items, RefreshID: refreshID})

	elapsed := time.Since(started)
	metrics.RefreshDuration.Observe(elapsed.Seconds())
	log.Info("Portfolio refreshed", "items", len(items), "duration", elapsed)
	return stored, nil
}

// enrich attaches the translated value and the invested total to item. Failures only degrade
// the item.
func (s *portfolioServiceImpl) enrich(ctx context.Context, log port.Logger, item *entity.PortfolioItem) {
	item.QuoteCurrency = s.cfg.QuoteCurrency

	price, err := s.priceOf(ctx, item.Currency)
	if err != nil {
		metrics.EnrichmentFailures.WithLabelValues("price").Inc()
		log.Warn("Spot price unavailable, leaving item unpriced", "currency", item.Currency, "error", err)
	} else {
		item.Translated = decimal.NewNullDecimal(price.Mul(item.Balance))
	}

	invested := decimal.Zero
	known := false
	currency := ""
	for _, accountID := range item.AccountIDs {
		if ctx.Err() != nil {
			break
		}
		amount, err := s.scanner.SumInvested(ctx, accountID)
		if err != nil {
			metrics.EnrichmentFailures.WithLabelValues("invested").Inc()
			if errors.Is(err, entity.ErrInvestedAmountUnknown) {
				log.Info("Invested amount unknown for account", "currency", item.Currency, "account_id", accountID)
			} else {
				log.Warn("Invested amount scan failed", "currency", item.Currency, "account_id", accountID, "error", err)
			}
			continue
		}
		if amount.Amount.Valid {
			invested = invested.Add(amount.Amount.Decimal)
			known = true
			if currency == "" {
				currency = amount.Currency
			}
		}
	}
	item.Invested = invested
	item.InvestedCurrency = currency
	item.InvestedKnown = known
}

func (s *portfolioServiceImpl) priceOf(ctx context.Context, currency string) (decimal.Decimal, error) {
	if currency == s.cfg.QuoteCurrency {
		return decimal.NewFromInt(1), nil
	}
	return s.prices.SpotPrice(ctx, currency, s.cfg.QuoteCurrency)
}

// GetAllTransactions implements port.PortfolioService. It bypasses the snapshot cache.
func (s *portfolioServiceImpl) GetAllTransactions(ctx context.Context, currency string) (json.RawMessage, error) {
	code := entity.NormalizeCurrencyCode(currency)
	if code == "" {
		return nil, fmt.Errorf("%w: empty currency code", entity.ErrCurrencyNotFound)
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	accounts, err := s.exchange.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	var accountIDs []string
	for _, acc := range accounts {
		if acc.CurrencyCode() == code {
			accountIDs = append(accountIDs, acc.ID)
		}
	}
	if len(accountIDs) == 0 {
		return nil, fmt.Errorf("%w: %s", entity.ErrCurrencyNotFound, code)
	}

	all := make([]json.RawMessage, 0)
	for _, accountID := range accountIDs {
		txs, err := s.scanner.CollectRaw(ctx, accountID)
		if err != nil {
			return nil, err
		}
		all = append(all, txs...)
	}

	out, err := jsonAPI.Marshal(all)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transactions of %s: %w", code, err)
	}
	s.logger.Debug("Collected transactions", "currency", code, "accounts", len(accountIDs), "transactions", len(all))
	return out, nil
}

func (s *portfolioServiceImpl) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RefreshTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.RefreshTimeout)
	}
	return context.WithCancel(ctx)
}
