package port

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/domain/entity"
)

// PortfolioService is what the display layer consumes.
type PortfolioService interface {
	// GetPortfolio returns the aggregated, enriched and ordered holdings. Unless forceRefresh is
	// set, a snapshot younger than the cache TTL is returned without touching the network.
	GetPortfolio(ctx context.Context, forceRefresh bool) (entity.PortfolioResult, error)

	// GetAllTransactions returns the raw transaction JSON of every account holding currency.
	GetAllTransactions(ctx context.Context, currency string) (json.RawMessage, error)
}

// PriceService resolves spot conversion rates.
type PriceService interface {
	SpotPrice(ctx context.Context, base, quote string) (decimal.Decimal, error)
	// Invalidate drops any memoized quotes.
	Invalidate()
}

// TransactionScanner reduces an account's transaction history.
type TransactionScanner interface {
	// SumInvested returns buys minus sells in the account's native currency. When the account's
	// history is not visible to the key the amount is invalid and the error wraps
	// entity.ErrInvestedAmountUnknown.
	SumInvested(ctx context.Context, accountID string) (entity.InvestedAmount, error)

	// CollectRaw returns every transaction of the account as raw JSON, oldest page first.
	CollectRaw(ctx context.Context, accountID string) ([]json.RawMessage, error)
}

// SnapshotCache holds the most recent portfolio snapshot.
type SnapshotCache interface {
	// Fresh returns the cached snapshot only while it is younger than the TTL.
	Fresh() (entity.Snapshot, bool)
	// Store stamps snap with the current time, replaces the slot and returns the stored value.
	Store(snap entity.Snapshot) entity.Snapshot
}
