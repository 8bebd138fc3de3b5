package restapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/utils"
)

// PortfolioItemResponse is one holding as served to the display client. Amounts are decimal strings.
type PortfolioItemResponse struct {
	Currency          string  `json:"currency"`
	Balance           string  `json:"balance"`
	APY               string  `json:"apy"`
	QuoteCurrency     string  `json:"quote_currency"`
	Translated        *string `json:"translated"`
	TranslatedDisplay string  `json:"translated_display,omitempty"`
	Invested          string  `json:"invested"`
	InvestedCurrency  string  `json:"invested_currency"`
	InvestedKnown     bool    `json:"invested_known"`
	InvestedDisplay   string  `json:"invested_display"`
}

// PortfolioResponse is the body of GET /api/v1/portfolio.
type PortfolioResponse struct {
	Items         []PortfolioItemResponse `json:"items"`
	Total         string                  `json:"total"`
	TotalDisplay  string                  `json:"total_display"`
	QuoteCurrency string                  `json:"quote_currency"`
	FetchedAt     time.Time               `json:"fetched_at"`
	RefreshID     string                  `json:"refresh_id"`
	FromCache     bool                    `json:"from_cache"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PortfolioHandler serves portfolio reads over HTTP.
type PortfolioHandler struct {
	portfolioService port.PortfolioService
	quoteCurrency    string
	logger           *zap.Logger
}

// NewPortfolioHandler creates a PortfolioHandler. quoteCurrency labels totals when the portfolio is empty.
func NewPortfolioHandler(ps port.PortfolioService, quoteCurrency string, logger *zap.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: ps,
		quoteCurrency:    entity.NormalizeCurrencyCode(quoteCurrency),
		logger:           logger.Named("PortfolioHandler"),
	}
}

// GetPortfolioHandler handles GET /api/v1/portfolio?refresh=true|false.
func (h *PortfolioHandler) GetPortfolioHandler(c *gin.Context) {
	forceRefresh := false
	if raw := c.Query("refresh"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "refresh must be a boolean"})
			return
		}
		forceRefresh = v
	}

	result, err := h.portfolioService.GetPortfolio(c.Request.Context(), forceRefresh)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toResponse(result))
}

// GetTransactionsHandler handles GET /api/v1/transactions/:currency and returns the raw JSON array.
func (h *PortfolioHandler) GetTransactionsHandler(c *gin.Context) {
	currency := c.Param("currency")
	raw, err := h.portfolioService.GetAllTransactions(c.Request.Context(), currency)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (h *PortfolioHandler) toResponse(result entity.PortfolioResult) PortfolioResponse {
	quote := h.quoteCurrency
	if len(result.Items) > 0 && result.Items[0].QuoteCurrency != "" {
		quote = result.Items[0].QuoteCurrency
	}

	total := decimal.Zero
	items := make([]PortfolioItemResponse, 0, len(result.Items))
	for _, it := range result.Items {
		resp := PortfolioItemResponse{
			Currency:         it.Currency,
			Balance:          it.Balance.String(),
			APY:              it.APY,
			QuoteCurrency:    it.QuoteCurrency,
			Invested:         it.Invested.String(),
			InvestedCurrency: investedCurrency(it),
			InvestedKnown:    it.InvestedKnown,
			InvestedDisplay:  utils.FormatMoney(it.Invested, investedCurrency(it)),
		}
		if it.Translated.Valid {
			v := it.Translated.Decimal.String()
			resp.Translated = &v
			resp.TranslatedDisplay = utils.FormatMoney(it.Translated.Decimal, it.QuoteCurrency)
			total = total.Add(it.Translated.Decimal)
		}
		items = append(items, resp)
	}

	return PortfolioResponse{
		Items:         items,
		Total:         total.String(),
		TotalDisplay:  utils.FormatMoney(total, quote),
		QuoteCurrency: quote,
		FetchedAt:     result.FetchedAt,
		RefreshID:     result.RefreshID,
		FromCache:     result.FromCache,
	}
}

func (h *PortfolioHandler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Portfolio request failed", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var (
		upstream  *entity.UpstreamError
		transport *entity.TransportError
	)
	switch {
	case errors.Is(err, entity.ErrCurrencyNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &transport):
		return http.StatusGatewayTimeout
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// investedCurrency labels an item's invested figure. Items without scanned buys or sells
// fall back to the quote currency.
func investedCurrency(it entity.PortfolioItem) string {
	if it.InvestedCurrency != "" {
		return it.InvestedCurrency
	}
	return it.QuoteCurrency
}
