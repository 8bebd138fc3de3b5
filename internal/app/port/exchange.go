package port

import (
	"context"

	"portfolio_tracker/internal/domain/entity"
)

// ExchangeClient is the typed view over the upstream exchange API.
type ExchangeClient interface {
	// ListAccounts returns every account, following pagination to the end.
	ListAccounts(ctx context.Context) ([]entity.Account, error)

	// TransactionsPage fetches one page of an account's transactions. An empty nextURI requests
	// the first page; otherwise the link from the previous page is followed verbatim.
	TransactionsPage(ctx context.Context, accountID, nextURI string) (entity.TransactionsPage, error)

	// RawTransactionsPage is TransactionsPage without decoding the individual entries.
	RawTransactionsPage(ctx context.Context, accountID, nextURI string) (entity.RawTransactionsPage, error)

	// SpotPrice queries the public spot price for base-quote.
	SpotPrice(ctx context.Context, base, quote string) (entity.SpotPrice, error)
}
