// Package coinbase maps the exchange's v2 REST endpoints onto port.ExchangeClient.
package coinbase

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/httpclient"
)

const (
	accountsPath     = "/v2/accounts"
	transactionsPath = "/v2/accounts/%s/transactions"
	spotPricePath    = "/v2/prices/%s-%s/spot"

	maxAccountPages = 1000
)

// Config holds page sizes for list endpoints.
type Config struct {
	AccountsPageSize     int
	TransactionsPageSize int
}

type clientImpl struct {
	executor *httpclient.Executor
	cfg      Config
	logger   *zap.Logger
}

// NewClient creates a port.ExchangeClient backed by executor.
func NewClient(executor *httpclient.Executor, cfg Config, logger *zap.Logger) port.ExchangeClient {
	if cfg.AccountsPageSize <= 0 {
		cfg.AccountsPageSize = 100
	}
	if cfg.TransactionsPageSize <= 0 {
		cfg.TransactionsPageSize = 100
	}
	return &clientImpl{
		executor: executor,
		cfg:      cfg,
		logger:   logger.Named("CoinbaseClient"),
	}
}

// ListAccounts implements port.ExchangeClient.
func (c *clientImpl) ListAccounts(ctx context.Context) ([]entity.Account, error) {
	var (
		accounts []entity.Account
		next     string
	)
	for page := 0; page < maxAccountPages; page++ {
		req, err := c.pageRequest(accountsPath, next, c.cfg.AccountsPageSize, "accounts")
		if err != nil {
			return nil, err
		}
		resp, err := httpclient.Execute[entity.AccountsPage](ctx, c.executor, req)
		if err != nil {
			return nil, err
		}
		if resp.Data == nil {
			return nil, &entity.DecodeError{TargetType: "entity.AccountsPage", Err: fmt.Errorf("missing data array")}
		}
		accounts = append(accounts, resp.Data...)

		following := resp.NextURI()
		if following == "" {
			c.logger.Debug("Listed accounts", zap.Int("count", len(accounts)), zap.Int("pages", page+1))
			return accounts, nil
		}
		if following == next {
			return nil, fmt.Errorf("accounts pagination did not advance past %q", next)
		}
		next = following
	}
	return nil, fmt.Errorf("accounts pagination exceeded %d pages", maxAccountPages)
}

// TransactionsPage implements port.ExchangeClient.
func (c *clientImpl) TransactionsPage(ctx context.Context, accountID, nextURI string) (entity.TransactionsPage, error) {
	req, err := c.transactionsRequest(accountID, nextURI)
	if err != nil {
		return entity.TransactionsPage{}, err
	}
	page, err := httpclient.Execute[entity.TransactionsPage](ctx, c.executor, req)
	if err != nil {
		return entity.TransactionsPage{}, err
	}
	if page.Data == nil {
		return entity.TransactionsPage{}, &entity.DecodeError{TargetType: "entity.TransactionsPage", Err: fmt.Errorf("missing data array")}
	}
	return page, nil
}

// RawTransactionsPage implements port.ExchangeClient.
func (c *clientImpl) RawTransactionsPage(ctx context.Context, accountID, nextURI string) (entity.RawTransactionsPage, error) {
	req, err := c.transactionsRequest(accountID, nextURI)
	if err != nil {
		return entity.RawTransactionsPage{}, err
	}
	page, err := httpclient.Execute[entity.RawTransactionsPage](ctx, c.executor, req)
	if err != nil {
		return entity.RawTransactionsPage{}, err
	}
	if page.Data == nil {
		return entity.RawTransactionsPage{}, &entity.DecodeError{TargetType: "entity.RawTransactionsPage", Err: fmt.Errorf("missing data array")}
	}
	return page, nil
}

// SpotPrice implements port.ExchangeClient. The endpoint is public and is called without a token.
func (c *clientImpl) SpotPrice(ctx context.Context, base, quote string) (entity.SpotPrice, error) {
	base = entity.NormalizeCurrencyCode(base)
	quote = entity.NormalizeCurrencyCode(quote)
	if base == "" || quote == "" {
		return entity.SpotPrice{}, fmt.Errorf("spot price requires base and quote, got %q-%q", base, quote)
	}
	price, err := httpclient.Execute[entity.SpotPrice](ctx, c.executor, httpclient.Request{
		Method: "GET",
		Path:   fmt.Sprintf(spotPricePath, url.PathEscape(base), url.PathEscape(quote)),
		Route:  "spot_price",
	})
	if err != nil {
		return entity.SpotPrice{}, err
	}
	if price.Data == nil {
		return entity.SpotPrice{}, &entity.DecodeError{TargetType: "entity.SpotPrice", Err: fmt.Errorf("missing data object")}
	}
	return price, nil
}

func (c *clientImpl) transactionsRequest(accountID, nextURI string) (httpclient.Request, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return httpclient.Request{}, fmt.Errorf("account id is required")
	}
	return c.pageRequest(fmt.Sprintf(transactionsPath, url.PathEscape(accountID)), nextURI, c.cfg.TransactionsPageSize, "transactions")
}

// pageRequest builds the first-page request for path, or the request for a server supplied
// next_uri. A next link replaces both path and query so the cursor is followed verbatim.
func (c *clientImpl) pageRequest(path, nextURI string, pageSize int, route string) (httpclient.Request, error) {
	req := httpclient.Request{Method: "GET", RequiresAuth: true, Route: route}
	if nextURI == "" {
		req.Path = path
		req.Query = url.Values{"limit": {strconv.Itoa(pageSize)}}
		return req, nil
	}

	link, err := url.Parse(nextURI)
	if err != nil {
		return httpclient.Request{}, fmt.Errorf("invalid pagination link %q: %w", nextURI, err)
	}
	if link.Host != "" && link.Host != c.executor.Host() {
		return httpclient.Request{}, fmt.Errorf("pagination link %q points at foreign host", nextURI)
	}
	if !strings.HasPrefix(link.Path, "/") {
		return httpclient.Request{}, fmt.Errorf("pagination link %q has no absolute path", nextURI)
	}
	req.Path = link.Path
	req.Query = link.Query()
	return req, nil
}
