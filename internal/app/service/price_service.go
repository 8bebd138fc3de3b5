package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/utils"
)

// priceServiceImpl implements port.PriceService.
type priceServiceImpl struct {
	exchange port.ExchangeClient
	logger   port.Logger
	quotes   *cache.Cache
}

// NewPriceService creates a price service. Quotes are memoized for ttl; ttl <= 0 disables memoization.
func NewPriceService(exchange port.ExchangeClient, ttl time.Duration, l port.Logger) port.PriceService {
	s := &priceServiceImpl{
		exchange: exchange,
		logger:   l,
	}
	if ttl > 0 {
		s.quotes = cache.New(ttl, 2*ttl)
	}
	return s
}

// SpotPrice implements port.PriceService.
func (s *priceServiceImpl) SpotPrice(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	base = entity.NormalizeCurrencyCode(base)
	quote = entity.NormalizeCurrencyCode(quote)
	key := base + "-" + quote

	if s.quotes != nil {
		if cached, ok := s.quotes.Get(key); ok {
			return cached.(decimal.Decimal), nil
		}
	}

	resp, err := s.exchange.SpotPrice(ctx, base, quote)
	if err != nil {
		return decimal.Zero, &entity.PriceUnavailableError{Base: base, Quote: quote, Err: err}
	}

	if resp.Data == nil {
		return decimal.Zero, &entity.PriceUnavailableError{Base: base, Quote: quote, Err: errors.New("response carries no data")}
	}
	price, ok := utils.ParseDecimal(resp.Data.Amount)
	if !ok {
		return decimal.Zero, &entity.PriceUnavailableError{
			Base:  base,
			Quote: quote,
			Err:   fmt.Errorf("amount %q is not numeric", resp.Data.Amount),
		}
	}
	if price.IsNegative() {
		return decimal.Zero, &entity.PriceUnavailableError{Base: base, Quote: quote, Err: errors.New("negative price")}
	}

	if s.quotes != nil {
		s.quotes.SetDefault(key, price)
	}
	s.logger.Debug("Spot price fetched", "pair", key, "price", price.String())
	return price, nil
}

// Invalidate implements port.PriceService.
func (s *priceServiceImpl) Invalidate() {
	if s.quotes != nil {
		s.quotes.Flush()
	}
}
