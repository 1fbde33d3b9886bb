package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/chanmujie/ner-using-llms/internal/gemini"
	"github.com/chanmujie/ner-using-llms/internal/groq"
	"github.com/chanmujie/ner-using-llms/internal/openrouter"

	"go.uber.org/zap"
)

// MultiProviderClient manages multiple completion providers with fallback.
type MultiProviderClient struct {
	providers    []*RateLimitedProvider
	currentIndex int
	mu           sync.RWMutex
	logger       *zap.Logger
	failureCount map[int]int
	maxFailures  int
}

// MultiProviderConfig holds configuration for multiple providers.
type MultiProviderConfig struct {
	Providers   []ProviderConfig
	MaxFailures int // Max consecutive failures before switching provider
}

// NewMultiProviderClient builds the configured providers and chains them.
func NewMultiProviderClient(cfg MultiProviderConfig, logger *zap.Logger) (*MultiProviderClient, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}

	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}

	providers := make([]*RateLimitedProvider, 0, len(cfg.Providers))

	for i, providerCfg := range cfg.Providers {
		var provider Provider
		var err error

		switch providerCfg.Type {
		case ProviderGemini:
			provider, err = gemini.NewClient(gemini.Config{
				APIKey:     providerCfg.APIKey,
				ModelName:  providerCfg.ModelName,
				MaxRetries: providerCfg.MaxRetries,
				RetryDelay: providerCfg.RetryDelay,
			}, logger)
		case ProviderGroq:
			provider, err = groq.NewClient(groq.Config{
				APIKey:     providerCfg.APIKey,
				ModelName:  providerCfg.ModelName,
				MaxRetries: providerCfg.MaxRetries,
				RetryDelay: providerCfg.RetryDelay,
			}, logger)
		case ProviderOpenRouter:
			provider, err = openrouter.NewClient(openrouter.Config{
				APIKey:     providerCfg.APIKey,
				ModelName:  providerCfg.ModelName,
				MaxRetries: providerCfg.MaxRetries,
				RetryDelay: providerCfg.RetryDelay,
			}, logger)
		default:
			logger.Warn("Unknown provider type, skipping",
				zap.String("type", string(providerCfg.Type)),
				zap.Int("index", i))
			continue
		}

		if err != nil {
			logger.Error("Failed to create provider",
				zap.String("type", string(providerCfg.Type)),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}

		// Set default rate limit if not specified
		rateLimit := providerCfg.RequestsPerMinute
		if rateLimit == 0 {
			rateLimit = 8 // Conservative default for free tier
		}

		providers = append(providers, NewRateLimitedProvider(provider, rateLimit, logger))

		logger.Info("Provider initialized",
			zap.String("type", string(providerCfg.Type)),
			zap.String("model", providerCfg.ModelName),
			zap.Int("rate_limit", rateLimit),
			zap.Int("index", i))
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers could be initialized")
	}

	return &MultiProviderClient{
		providers:    providers,
		currentIndex: 0,
		logger:       logger,
		failureCount: make(map[int]int),
		maxFailures:  cfg.MaxFailures,
	}, nil
}

func (c *MultiProviderClient) getCurrentProvider() (*RateLimitedProvider, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.providers[c.currentIndex], c.currentIndex
}

func (c *MultiProviderClient) switchToNextProvider() {
	c.mu.Lock()
	defer c.mu.Unlock()

	oldIndex := c.currentIndex
	c.currentIndex = (c.currentIndex + 1) % len(c.providers)

	c.logger.Info("Switching provider",
		zap.Int("from_index", oldIndex),
		zap.Int("to_index", c.currentIndex),
		zap.Int("total_providers", len(c.providers)))
}

// recordFailure returns true when the provider hit its failure budget.
func (c *MultiProviderClient) recordFailure(providerIndex int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount[providerIndex]++

	if c.failureCount[providerIndex] >= c.maxFailures {
		c.logger.Warn("Provider reached max failures",
			zap.Int("provider_index", providerIndex),
			zap.Int("failures", c.failureCount[providerIndex]))
		return true
	}

	return false
}

func (c *MultiProviderClient) resetFailureCount(providerIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount[providerIndex] = 0
}

// Complete tries the current provider and falls back to the next on failure.
func (c *MultiProviderClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	for attempts := 0; attempts < len(c.providers); attempts++ {
		provider, providerIndex := c.getCurrentProvider()

		c.logger.Debug("Attempting completion",
			zap.Int("provider_index", providerIndex),
			zap.Int("attempt", attempts+1))

		result, err := provider.Complete(ctx, systemPrompt, userPrompt)

		if err == nil {
			c.resetFailureCount(providerIndex)
			return result, nil
		}

		c.logger.Error("Provider failed",
			zap.Int("provider_index", providerIndex),
			zap.Error(err))

		shouldSwitch := c.recordFailure(providerIndex)

		// Rate limit errors switch immediately, no point retrying the
		// same provider inside its quota window.
		if shouldSwitch || isRateLimitError(err) {
			c.switchToNextProvider()
		}
	}

	return "", fmt.Errorf("all providers failed")
}

// Close closes all providers.
func (c *MultiProviderClient) Close() error {
	var lastErr error
	for i, provider := range c.providers {
		if err := provider.Close(); err != nil {
			c.logger.Error("Failed to close provider",
				zap.Int("index", i),
				zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}

// GetModelInfo returns information about the current provider.
func (c *MultiProviderClient) GetModelInfo() map[string]interface{} {
	provider, index := c.getCurrentProvider()
	info := provider.GetModelInfo()
	info["is_current"] = true
	info["provider_index"] = index
	info["total_providers"] = len(c.providers)
	info["failure_count"] = c.failureCount[index]
	return info
}

// GetProvidersInfo returns information about all configured providers.
func (c *MultiProviderClient) GetProvidersInfo() []map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := make([]map[string]interface{}, len(c.providers))
	for i, provider := range c.providers {
		providerInfo := provider.GetModelInfo()
		providerInfo["is_current"] = (i == c.currentIndex)
		providerInfo["failure_count"] = c.failureCount[i]
		info[i] = providerInfo
	}
	return info
}
