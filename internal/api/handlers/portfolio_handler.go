package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/saalabs/saa-portfolio/internal/services"
	"github.com/saalabs/saa-portfolio/internal/utils"
)

type PortfolioHandler struct {
	svc      services.PortfolioService
	analyses services.AnalysisService // nil when the archive is disabled
}

func NewPortfolioHandler(svc services.PortfolioService, analyses services.AnalysisService) *PortfolioHandler {
	return &PortfolioHandler{svc: svc, analyses: analyses}
}

type portfolioSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	TotalValue    string `json:"total_value"`
	Currency      string `json:"currency"`
	HoldingsCount int    `json:"holdings_count"`
}

func (h *PortfolioHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rows, err := h.svc.ListByUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]portfolioSummary, 0, len(rows))
	for _, p := range rows {
		out = append(out, portfolioSummary{
			ID:            p.ID,
			Name:          p.Name,
			TotalValue:    p.TotalValue.String(),
			Currency:      p.Currency,
			HoldingsCount: len(p.Holdings),
		})
	}
	c.JSON(http.StatusOK, gin.H{"portfolios": out})
}

func (h *PortfolioHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.CreatePortfolioInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "PortfolioHandler.Create", "invalid request body", err))
		return
	}

	p, err := h.svc.Create(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"portfolio_id": p.ID,
		"message":      "Portfolio created successfully",
	})
}

func (h *PortfolioHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	p, err := h.svc.Get(c.Request.Context(), c.Param("portfolio_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if p.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "PortfolioHandler.Get", "forbidden", nil))
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PortfolioHandler) ListHoldings(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	p, err := h.svc.Get(c.Request.Context(), c.Param("portfolio_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if p.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "PortfolioHandler.ListHoldings", "forbidden", nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{"holdings": p.Holdings})
}

func (h *PortfolioHandler) AddHolding(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	portfolioID := c.Param("portfolio_id")
	p, err := h.svc.Get(c.Request.Context(), portfolioID)
	if err != nil {
		writeError(c, err)
		return
	}
	if p.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "PortfolioHandler.AddHolding", "forbidden", nil))
		return
	}

	var req services.AddHoldingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "PortfolioHandler.AddHolding", "invalid request body", err))
		return
	}

	holding, err := h.svc.AddHolding(c.Request.Context(), portfolioID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"holding_id": holding.ID,
		"message":    "Holding added successfully",
	})
}

// ListAnalyses returns archived assistant results for a portfolio, newest
// first. Empty list when archiving is disabled.
func (h *PortfolioHandler) ListAnalyses(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	portfolioID := c.Param("portfolio_id")
	p, err := h.svc.Get(c.Request.Context(), portfolioID)
	if err != nil {
		writeError(c, err)
		return
	}
	if p.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "PortfolioHandler.ListAnalyses", "forbidden", nil))
		return
	}

	if h.analyses == nil {
		c.JSON(http.StatusOK, gin.H{"analyses": []any{}})
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	rows, err := h.analyses.ListByPortfolio(c.Request.Context(), portfolioID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": rows})
}
