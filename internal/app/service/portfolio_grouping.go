package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/domain/entity"
)

// GroupAccounts folds accounts into one item per currency code. Groups with a non-positive
// total are dropped unless they are the anchor, which is synthesized at zero when missing.
// Output order follows the first appearance of each code.
func GroupAccounts(accounts []entity.Account, anchor string) []entity.PortfolioItem {
	anchor = entity.NormalizeCurrencyCode(anchor)

	index := make(map[string]int)
	var groups []entity.PortfolioItem
	for _, acc := range accounts {
		code := acc.CurrencyCode()
		if code == "" {
			continue
		}
		i, ok := index[code]
		if !ok {
			i = len(groups)
			index[code] = i
			groups = append(groups, entity.PortfolioItem{Currency: code, Balance: decimal.Zero})
		}
		g := &groups[i]
		g.Balance = g.Balance.Add(acc.BalanceValue())
		g.AccountIDs = append(g.AccountIDs, acc.ID)
		if g.APY == "" {
			g.APY = acc.FormattedAPY()
		}
	}

	items := make([]entity.PortfolioItem, 0, len(groups)+1)
	anchorSeen := false
	for _, g := range groups {
		isAnchor := anchor != "" && g.Currency == anchor
		if !g.Balance.IsPositive() && !isAnchor {
			continue
		}
		if g.APY == "" {
			g.APY = entity.NotAvailableAPY
		}
		anchorSeen = anchorSeen || isAnchor
		items = append(items, g)
	}

	if anchor != "" && !anchorSeen {
		items = append(items, entity.PortfolioItem{
			Currency: anchor,
			Balance:  decimal.Zero,
			APY:      entity.NotAvailableAPY,
		})
	}
	return items
}

// SortItems orders items in place: anchor first, then by translated value descending
// (unpriced counts as zero), then by currency code so the result does not depend on input order.
func SortItems(items []entity.PortfolioItem, anchor string) {
	anchor = entity.NormalizeCurrencyCode(anchor)
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		aAnchor, bAnchor := a.Currency == anchor, b.Currency == anchor
		if aAnchor != bAnchor {
			return aAnchor
		}
		if c := a.TranslatedOrZero().Cmp(b.TranslatedOrZero()); c != 0 {
			return c > 0
		}
		return a.Currency < b.Currency
	})
}
