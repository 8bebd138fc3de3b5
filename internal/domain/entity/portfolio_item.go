package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioItem is the per-currency aggregate shown to the user.
type PortfolioItem struct {
	Currency      string              `json:"currency"`
	Balance       decimal.Decimal     `json:"balance"`
	APY           string              `json:"apy"`
	Translated    decimal.NullDecimal `json:"translated"`
	QuoteCurrency string              `json:"quoteCurrency"`
	// Invested is the net amount put into the currency, in InvestedCurrency (the native
	// currency the exchange reports transactions in). It stays zero when no account could be
	// scanned; InvestedKnown tells the two apart.
	Invested         decimal.Decimal `json:"invested"`
	InvestedCurrency string          `json:"investedCurrency"`
	InvestedKnown    bool            `json:"investedKnown"`
	AccountIDs       []string        `json:"-"`
}

// InvestedAmount is one account's buys minus sells. Currency is the native currency of the
// scanned transactions, empty when the history held no buys or sells.
type InvestedAmount struct {
	Amount   decimal.NullDecimal
	Currency string
}

// TranslatedOrZero is the priced value, with unpriced items counting as zero.
func (p PortfolioItem) TranslatedOrZero() decimal.Decimal {
	if !p.Translated.Valid {
		return decimal.Zero
	}
	return p.Translated.Decimal
}

// Snapshot is a fully enriched portfolio plus the moment it was fetched.
// Items are shared with every reader and must not be modified.
type Snapshot struct {
	Items     []PortfolioItem
	FetchedAt time.Time
	RefreshID string
}

// PortfolioResult is what the aggregator hands to the display layer.
type PortfolioResult struct {
	Snapshot
	FromCache bool
}
