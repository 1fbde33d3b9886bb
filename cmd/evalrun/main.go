// Command evalrun performs one extraction-and-evaluation pass from the
// command line and writes the report artifacts. With -predictions it
// scores a saved prediction file instead of calling any model.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chanmujie/ner-using-llms/internal/config"
	"github.com/chanmujie/ner-using-llms/internal/dataset"
	"github.com/chanmujie/ner-using-llms/internal/evaluation"
	"github.com/chanmujie/ner-using-llms/internal/gemini"
	"github.com/chanmujie/ner-using-llms/internal/llm"
	"github.com/chanmujie/ner-using-llms/internal/models"
	"github.com/chanmujie/ner-using-llms/internal/service"

	"go.uber.org/zap"
)

func main() {
	var (
		configPath  = flag.String("config", "configs/config.yml", "path to config file")
		datasetPath = flag.String("dataset", "", "path to gold JSONL corpus (required)")
		promptTag   = flag.String("prompt", "", "prompt template tag (default from config)")
		outDir      = flag.String("out", "results", "directory for report artifacts")
		predictions = flag.String("predictions", "", "score this prediction file instead of calling the model")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if *datasetPath == "" {
		fmt.Fprintln(os.Stderr, "usage: evalrun -dataset gold.jsonl [-config configs/config.yml] [-prompt p1] [-out results] [-predictions preds.json]")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	tag := *promptTag
	if tag == "" {
		tag = cfg.Evaluation.PromptTag
	}

	if *predictions != "" {
		evaluateOnly(logger, cfg, *datasetPath, *predictions)
		return
	}

	client := buildClient(cfg, logger)
	defer client.Close()

	pipeline := service.NewPipeline(client, nil, logger,
		cfg.Evaluation.BatchSize, cfg.Evaluation.Labels)

	result, err := pipeline.RunSync(context.Background(), *datasetPath, tag, *outDir)
	if err != nil {
		logger.Fatal("Run failed", zap.Error(err))
	}

	printSummary(result)
	fmt.Printf("Artifacts written to %s\n", *outDir)
}

// evaluateOnly scores a saved prediction file against the gold corpus.
func evaluateOnly(logger *zap.Logger, cfg *config.Config, datasetPath, predictionsPath string) {
	preds, err := dataset.LoadPredictions(predictionsPath)
	if err != nil {
		logger.Fatal("Failed to load predictions", zap.Error(err))
	}

	pipeline := service.NewPipeline(nil, nil, logger,
		cfg.Evaluation.BatchSize, cfg.Evaluation.Labels)

	result, err := pipeline.EvaluateOnly(models.EvaluateRequest{
		DatasetPath: datasetPath,
		Predictions: preds,
	})
	if err != nil {
		logger.Fatal("Evaluation failed", zap.Error(err))
	}

	printSummary(result)
}

// buildClient mirrors the server's provider setup: multi-provider when
// configured, single Gemini otherwise.
func buildClient(cfg *config.Config, logger *zap.Logger) service.CompletionClient {
	if len(cfg.Providers) > 0 {
		multiClient, err := llm.NewMultiProviderClient(llm.MultiProviderConfig{
			Providers:   cfg.Providers,
			MaxFailures: cfg.MaxFailuresBeforeSwitch,
		}, logger)
		if err == nil {
			return multiClient
		}
		logger.Warn("Failed to initialize multi-provider client, falling back to single provider",
			zap.Error(err))
	}

	if cfg.Gemini.APIKey == "" || cfg.Gemini.APIKey == "YOUR_API_KEY_HERE" {
		logger.Fatal("No provider configured. Set providers or gemini.api_key in the config")
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

	return llm.NewRateLimitedProvider(geminiClient, 8, logger)
}

func printSummary(result *evaluation.Result) {
	fmt.Printf("micro precision: %.4f\n", result.MicroPrecision)
	fmt.Printf("micro recall:    %.4f\n", result.MicroRecall)
	fmt.Printf("micro f1:        %.4f\n", result.MicroF1)
	fmt.Printf("instances:       %d\n", len(result.PerInstance))
	fmt.Println("precision buckets:")
	for _, bucket := range []string{
		evaluation.Bucket100, evaluation.Bucket70, evaluation.Bucket30, evaluation.Bucket0,
	} {
		fmt.Printf("  %-6s %d\n", bucket, result.PrecisionBuckets[bucket])
	}
	fmt.Println("recall buckets:")
	for _, bucket := range []string{
		evaluation.Bucket100, evaluation.Bucket70, evaluation.Bucket30, evaluation.Bucket0,
	} {
		fmt.Printf("  %-6s %d\n", bucket, result.RecallBuckets[bucket])
	}
}
