package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NotAvailableAPY is shown when none of a currency's accounts report a reward rate.
const NotAvailableAPY = "N/A"

// Account represents a single custody account returned by GET /v2/accounts.
type Account struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Primary          bool         `json:"primary"`
	Active           bool         `json:"active"`
	Type             string       `json:"type"`
	Balance          Amount       `json:"balance"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
	Resource         string       `json:"resource"`
	ResourcePath     string       `json:"resource_path"`
	Currency         CurrencyInfo `json:"currency"`
	AllowDeposits    bool         `json:"allow_deposits"`
	AllowWithdrawals bool         `json:"allow_withdrawals"`
	PortfolioID      string       `json:"portfolio_id,omitempty"`
}

// Amount is the string-encoded decimal + currency pair the API uses for every monetary field.
type Amount struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Value parses the amount. Unparseable or empty amounts count as zero.
func (a Amount) Value() decimal.Decimal {
	v, err := decimal.NewFromString(strings.TrimSpace(a.Amount))
	if err != nil {
		return decimal.Zero
	}
	return v
}

// CurrencyInfo describes the asset held in an account.
type CurrencyInfo struct {
	AssetID  string      `json:"asset_id,omitempty"`
	Code     string      `json:"code"`
	Color    string      `json:"color,omitempty"`
	Exponent int         `json:"exponent"`
	Name     string      `json:"name"`
	Slug     string      `json:"slug,omitempty"`
	Type     string      `json:"type"`
	Rewards  *RewardInfo `json:"rewards,omitempty"`
}

// RewardInfo carries staking/reward rates for a currency.
type RewardInfo struct {
	APY          string `json:"apy"`
	FormattedAPY string `json:"formatted_apy"`
	Label        string `json:"label"`
}

// BalanceValue is the parsed account balance.
func (a Account) BalanceValue() decimal.Decimal {
	return a.Balance.Value()
}

// CurrencyCode returns the normalized (upper-case, trimmed) currency code.
func (a Account) CurrencyCode() string {
	return NormalizeCurrencyCode(a.Currency.Code)
}

// FormattedAPY returns the reward rate label, or "" when the account reports none.
func (a Account) FormattedAPY() string {
	if a.Currency.Rewards == nil {
		return ""
	}
	apy := strings.TrimSpace(a.Currency.Rewards.FormattedAPY)
	if apy == NotAvailableAPY {
		return ""
	}
	return apy
}

// NormalizeCurrencyCode upper-cases and trims a currency code.
func NormalizeCurrencyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AccountsPage is one page of GET /v2/accounts.
type AccountsPage struct {
	Data       []Account   `json:"data"`
	Pagination *Pagination `json:"pagination"`
}

// NextURI returns the link to the following page, or "" on the last page.
func (p AccountsPage) NextURI() string {
	return p.Pagination.Next()
}
