package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/stockpulse/internal/domain/dto"
	"github.com/guttosm/stockpulse/internal/middleware"
	"github.com/guttosm/stockpulse/internal/service"
)

// Handler maps HTTP requests onto service.StocksService.
//
// Responsibilities:
//   - Validate path parameters and request bodies
//   - Call the service with the request context
//   - Translate results into response DTOs and status codes
type Handler struct {
	svc service.StocksService
}

// NewHandler constructs a new Handler instance.
func NewHandler(svc service.StocksService) *Handler {
	return &Handler{svc: svc}
}

// AddSymbol godoc
// @Summary      Add a symbol
// @Description  Registers the symbol and loads its recent daily history. Ingestion failures are reported in the body with success=false.
// @Tags         symbols
// @Accept       json
// @Produce      json
// @Param        request  body      dto.AddSymbolRequest   true  "Symbol to add"
// @Success      200      {object}  dto.AddSymbolResponse  "Outcome"
// @Failure      400      {object}  dto.ErrorResponse      "Bad Request"
// @Router       /api/v1/symbols [post]
func (h *Handler) AddSymbol(c *gin.Context) {
	var req dto.AddSymbolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "symbol is required", err)
		return
	}

	res := h.svc.AddSymbol(c.Request.Context(), req.Symbol)
	c.JSON(http.StatusOK, dto.AddSymbolResponse{Success: res.Success, Message: res.Message})
}

// ListSymbols godoc
// @Summary      List symbols
// @Description  Returns every registered symbol ordered by ticker
// @Tags         symbols
// @Produce      json
// @Success      200  {object}  dto.StockListResponse  "Success"
// @Failure      500  {object}  dto.ErrorResponse      "Internal Error"
// @Router       /api/v1/symbols [get]
func (h *Handler) ListSymbols(c *gin.Context) {
	stocks, err := h.svc.ListSymbols(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "failed to list symbols", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewStockListResponse(stocks))
}

// GetAnalytics godoc
// @Summary      Get analytics by symbol
// @Description  Returns price change, high/low, average volume and the chart series over the recent window
// @Tags         analytics
// @Produce      json
// @Param        symbol  path      string  true  "Ticker symbol" example(AAPL)
// @Success      200     {object}  dto.AnalyticsResponse  "Success"
// @Failure      404     {object}  map[string]string      "No data"
// @Failure      500     {object}  dto.ErrorResponse      "Internal Error"
// @Router       /api/v1/analytics/{symbol} [get]
func (h *Handler) GetAnalytics(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))

	a, err := h.svc.GetAnalytics(c.Request.Context(), symbol)
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "failed to compute analytics", err)
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data"})
		return
	}

	c.JSON(http.StatusOK, dto.NewAnalyticsResponse(a))
}
