package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saalabs/saa-portfolio/internal/services"
	"github.com/saalabs/saa-portfolio/internal/utils"
)

type MarketHandler struct {
	svc services.MarketDataService
}

func NewMarketHandler(svc services.MarketDataService) *MarketHandler {
	return &MarketHandler{svc: svc}
}

func (h *MarketHandler) Price(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	aq, err := h.svc.GetQuote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, aq)
}

func (h *MarketHandler) Search(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	q := c.Query("q")
	if q == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "MarketHandler.Search", "q is required", nil))
		return
	}

	results, err := h.svc.SearchAssets(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *MarketHandler) Indicators(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	ind, err := h.svc.Indicators(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ind)
}
