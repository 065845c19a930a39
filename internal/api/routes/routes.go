package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/saalabs/saa-portfolio/internal/api/handlers"
	"github.com/saalabs/saa-portfolio/internal/api/middleware"
)

type Deps struct {
	Auth         *handlers.AuthHandler
	Portfolio    *handlers.PortfolioHandler
	Market       *handlers.MarketHandler
	Conversation *handlers.ConversationHandler
	WS           *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.HandleMethodNotAllowed = true

	// Health-ish
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public auth endpoints
	r.POST("/api/auth/guest", d.Auth.Guest)
	r.POST("/api/auth/register", d.Auth.Register)
	r.POST("/api/auth/login", d.Auth.Login)

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.GET("/api/portfolios", d.Portfolio.List)
	auth.POST("/api/portfolios", d.Portfolio.Create)
	auth.GET("/api/portfolios/:portfolio_id", d.Portfolio.Get)
	auth.GET("/api/portfolios/:portfolio_id/holdings", d.Portfolio.ListHoldings)
	auth.POST("/api/portfolios/:portfolio_id/holdings", d.Portfolio.AddHolding)
	auth.GET("/api/portfolios/:portfolio_id/analyses", d.Portfolio.ListAnalyses)

	auth.GET("/api/market/price/:symbol", d.Market.Price)
	auth.GET("/api/market/search", d.Market.Search)
	auth.GET("/api/market/indicators", d.Market.Indicators)

	auth.GET("/api/conversations/history", d.Conversation.History)

	// WebSocket
	auth.GET("/ws/chat", d.WS.ChatWS)
}
