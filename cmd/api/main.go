package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"skinbet-backend/internal/config"
	"skinbet-backend/internal/handlers"
	"skinbet-backend/internal/middleware"
	"skinbet-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)

	pool := services.NewHashPool(redisService, logger)
	if err := pool.Refill(cfg.PoolLowWater, cfg.PoolBatchSize); err != nil {
		logger.Fatal("failed to seed commitment pool", zap.Error(err))
	}

	executor := services.NewBotExecutor(cfg.TradeBotURL, cfg.TradeBotTimeout)
	settler := services.NewSettlementEngine(redisService, executor, logger,
		cfg.PayoutMaxAttempts, cfg.PayoutBackoff)
	stats := services.NewStatsService(redisService, logger)

	wsHandler := handlers.NewWebSocketHandler(logger)

	engine := services.NewGameEngine(redisService, pool, settler, stats, wsHandler, cfg, logger)

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			if err := pool.Refill(cfg.PoolLowWater, cfg.PoolBatchSize); err != nil {
				logger.Error("commitment pool refill failed", zap.Error(err))
			}
			engine.ReapStaleGames(cfg.JoinTimeout)
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			settler.SettlePending(context.Background())
		}
	}()

	authHandler := handlers.NewAuthHandler(jwtService, stats)
	playerHandler := handlers.NewPlayerHandler(stats)
	gameHandler := handlers.NewGameHandler(engine, pool, redisService)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.POST("/auth/login", authHandler.Login)
	router.POST("/verify", gameHandler.Verify)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(redisService))
	{
		protected.GET("/me", playerHandler.GetCurrentPlayer)
		protected.PUT("/me/tradeurl", playerHandler.UpdateTradeURL)
		protected.GET("/ranks", playerHandler.Ranks)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		games := protected.Group("/games")
		{
			games.POST("", gameHandler.OpenGame)
			games.GET("", gameHandler.ListOpenGames)
			games.GET("/history", gameHandler.History)
			games.GET("/:id", gameHandler.GetGame)
			games.POST("/:id/join", gameHandler.JoinGame)
			games.POST("/:id/close", gameHandler.CloseGame)
			games.POST("/:id/cancel", gameHandler.CancelGame)
			games.GET("/:id/audit", gameHandler.Audit)
		}

		protected.POST("/hashes/refill", gameHandler.RefillHashes)
	}

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
