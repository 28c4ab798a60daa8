package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/subosito/gotenv"

	"github.com/kalastudio/concierge/adapters/broker"
	"github.com/kalastudio/concierge/adapters/http"
	"github.com/kalastudio/concierge/adapters/llm"
	"github.com/kalastudio/concierge/adapters/websocket"
	"github.com/kalastudio/concierge/config"
	"github.com/kalastudio/concierge/usecase"
)

func main() {
	gotenv.Load()

	cfg, err := config.Parse()
	if err != nil {
		log.Fatal(err)
	}

	geminiLlm, err := llm.NewGeminiClient(context.Background(), cfg.GeminiModel)
	if err != nil {
		log.Fatal(err)
	}

	composer := usecase.NewPromptComposer(usecase.DefaultBasePrompt, usecase.DefaultPromptRules())
	classifier := usecase.NewIntentClassifier(usecase.DefaultIntentRules())
	resolver := usecase.NewContactResolver(cfg.WhatsAppNumber)
	svc := usecase.NewChatService(geminiLlm, composer)
	eventBroker := broker.NewChannelBroker()

	server := websocket.NewServer(svc, classifier, resolver, eventBroker)
	go server.RunWebsocketHub()

	chatHandler := http.NewChatHandler(svc, cfg.GeminiModel, []byte(cfg.JWTSecret))

	e := echo.New()

	// Security middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20))) // 20 requests per minute

	// CORS configuration for the marketing site widget
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"}, // In production, specify exact origins
		AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"Content-Length",
		},
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Request size limit
	e.Use(middleware.BodyLimit("1MB"))

	// Session token auth for WebSocket (same as HTTP)
	wsGroup := e.Group("/ws")
	wsGroup.Use(chatHandler.JWTMiddleware)
	wsGroup.GET("", server.Handler)

	// HTTP API routes
	api := e.Group("/api/v1")

	// Public endpoints (no auth required)
	api.GET("/health", chatHandler.HealthCheck)
	api.POST("/auth/token", chatHandler.GenerateToken)

	// Chat endpoint (session token required)
	chat := api.Group("/chat")
	chat.Use(chatHandler.JWTMiddleware)
	chat.Use(chatHandler.RateLimitMiddleware)
	chat.POST("", chatHandler.Chat)

	log.Println("Starting server on", cfg.Addr)
	log.Println("Available endpoints:")
	log.Println("  GET  /api/v1/health       - Health check")
	log.Println("  POST /api/v1/auth/token   - Get session token")
	log.Println("  POST /api/v1/chat         - Streamed chat turn (token required)")
	log.Println("  GET  /ws                  - WebSocket session (token required)")
	log.Fatal(e.Start(cfg.Addr))
}
