package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chanmujie/ner-using-llms/internal/config"
	"github.com/chanmujie/ner-using-llms/internal/gemini"
	"github.com/chanmujie/ner-using-llms/internal/handler"
	"github.com/chanmujie/ner-using-llms/internal/llm"
	"github.com/chanmujie/ner-using-llms/internal/repository"
	"github.com/chanmujie/ner-using-llms/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting NER Evaluation Service...")

	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Initialize completion client (multi-provider with rate limiting)
	var client service.CompletionClient

	// Try to use multi-provider if providers are configured
	if len(cfg.Providers) > 0 {
		multiClient, err := llm.NewMultiProviderClient(llm.MultiProviderConfig{
			Providers:   cfg.Providers,
			MaxFailures: cfg.MaxFailuresBeforeSwitch,
		}, logger)
		if err != nil {
			logger.Warn("Failed to initialize multi-provider client, falling back to single provider",
				zap.Error(err))
		} else {
			client = multiClient
			defer multiClient.Close()
			logger.Info("Multi-provider client initialized",
				zap.Int("provider_count", len(cfg.Providers)))
		}
	}

	// Fallback to single Gemini client if multi-provider failed or not configured
	if client == nil {
		if cfg.Gemini.APIKey == "" || cfg.Gemini.APIKey == "YOUR_API_KEY_HERE" {
			logger.Fatal("Gemini API key not configured. Please set it in configs/config.yml or environment variable")
		}

		geminiClient, err := gemini.NewClient(gemini.Config{
			APIKey:     cfg.Gemini.APIKey,
			ModelName:  cfg.Gemini.ModelName,
			MaxRetries: cfg.Gemini.MaxRetries,
			RetryDelay: 2 * time.Second,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Gemini client", zap.Error(err))
		}
		defer geminiClient.Close()

		// Wrap with rate limiting
		client = llm.NewRateLimitedProvider(geminiClient, 8, logger)
		logger.Info("Single provider client initialized with rate limiting")
	}

	// Initialize repository
	os.MkdirAll("./data", 0755)

	repo, err := repository.NewRunRepository(cfg.Database.Path, logger)
	if err != nil {
		logger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	// Initialize service
	pipeline := service.NewPipeline(client, repo, logger,
		cfg.Evaluation.BatchSize, cfg.Evaluation.Labels)

	// Initialize HTTP handler
	apiHandler := handler.NewHandler(pipeline, logger)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	// Add CORS middleware
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

	// Register routes
	apiHandler.RegisterRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("Server starting", zap.String("address", serverAddr))

	// Graceful shutdown
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Get model info for logging
	modelInfo := client.GetModelInfo()
	modelName := "unknown"
	if m, ok := modelInfo["model"].(string); ok {
		modelName = m
	}

	logger.Info("NER Evaluation Service is running",
		zap.String("port", cfg.Server.Port),
		zap.String("model", modelName))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
