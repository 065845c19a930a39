package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/saalabs/saa-portfolio/config"
	"github.com/saalabs/saa-portfolio/internal/api/handlers"
	"github.com/saalabs/saa-portfolio/internal/api/middleware"
	"github.com/saalabs/saa-portfolio/internal/api/routes"
	"github.com/saalabs/saa-portfolio/internal/assistants"
	"github.com/saalabs/saa-portfolio/internal/cache"
	"github.com/saalabs/saa-portfolio/internal/chat"
	"github.com/saalabs/saa-portfolio/internal/logger"
	mongorepo "github.com/saalabs/saa-portfolio/internal/repositories/mongo"
	pgrepo "github.com/saalabs/saa-portfolio/internal/repositories/postgres"
	"github.com/saalabs/saa-portfolio/internal/services"
)

func main() {
	_ = godotenv.Load()

	logg := logger.New()

	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	logg.Info("PostgreSQL connected")

	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	logg.Info("Redis connected")

	// Archive is optional: without MONGO_URI the chat still works, analyses
	// are just not retained.
	var analysisSvc services.AnalysisService
	if os.Getenv("MONGO_URI") != "" {
		if err := config.InitMongo(); err != nil {
			log.Fatalf("MongoDB init error: %v", err)
		}
		if err := config.EnsureMongoIndexes(); err != nil {
			log.Fatalf("MongoDB index error: %v", err)
		}
		logg.Info("MongoDB connected")
		analysisSvc = services.NewAnalysisService(mongorepo.NewAnalysisRepo(config.MongoDatabase()))
	} else {
		logg.Warn("MONGO_URI not set; analysis archive disabled")
	}

	redisCache := cache.NewRedisCache(config.RedisClient)

	// Each assistant carries its own credential.
	assistantCfg := func(key string) assistants.Config {
		return assistants.Config{
			APIKey:      os.Getenv(key),
			Model:       os.Getenv("CLAUDE_MODEL"),
			Cache:       redisCache,
			CacheTTL:    envDuration("ASSISTANT_CACHE_TTL", time.Hour),
			Temperature: envFloat("ASSISTANT_TEMPERATURE", 0.7),
		}
	}

	analystCfg := assistantCfg("CLAUDE_API_KEY_ANALYST")
	analystCfg.PromptPath = os.Getenv("PORTFOLIO_ANALYST_PROMPT")
	analyst, err := assistants.NewAnalyst(analystCfg)
	if err != nil {
		log.Fatalf("analyst init error: %v", err)
	}

	optimizerCfg := assistantCfg("CLAUDE_API_KEY_OPTIMIZER")
	optimizerCfg.PromptPath = os.Getenv("PORTFOLIO_OPTIMIZER_PROMPT")
	optimizer, err := assistants.NewOptimizer(optimizerCfg)
	if err != nil {
		log.Fatalf("optimizer init error: %v", err)
	}

	userRepo := pgrepo.NewUserRepo(config.PostgresDB)
	portfolioRepo := pgrepo.NewPortfolioRepo(config.PostgresDB)
	conversationRepo := pgrepo.NewConversationRepo(config.PostgresDB)

	authSvc, err := services.NewAuthService(userRepo, os.Getenv("JWT_SECRET"), envDuration("JWT_TTL", 24*time.Hour))
	if err != nil {
		log.Fatalf("auth init error: %v", err)
	}
	portfolioSvc := services.NewPortfolioService(portfolioRepo)
	conversationSvc := services.NewConversationService(conversationRepo)
	marketSvc := services.NewMarketDataService(redisCache, os.Getenv("ALPHA_VANTAGE_API_KEY"), logg)

	broadcaster := chat.NewRedisBroadcaster(config.RedisClient)
	registry := chat.NewRegistry(chat.NewMemoryStore())

	var archive chat.AnalysisArchive
	if analysisSvc != nil {
		archive = analysisSvc
	}
	dispatcher := chat.NewDispatcher(
		[]assistants.Assistant{analyst, optimizer},
		broadcaster,
		conversationSvc,
		archive,
		logg,
		envDuration("ASSISTANT_TIMEOUT", 45*time.Second),
	)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logg))

	routes.RegisterRoutes(r, routes.Deps{
		Auth:         handlers.NewAuthHandler(authSvc),
		Portfolio:    handlers.NewPortfolioHandler(portfolioSvc, analysisSvc),
		Market:       handlers.NewMarketHandler(marketSvc),
		Conversation: handlers.NewConversationHandler(conversationSvc),
		WS:           handlers.NewWSHandler(registry, dispatcher, portfolioSvc, config.RedisClient, logg),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logg.WithField("port", port).Info("starting server")
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
