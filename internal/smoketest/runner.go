package smoketest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/smellovision/scentd/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// settleDelay gives in-flight push deliveries time to land before the
// received count is read.
const settleDelay = 2 * time.Second

// Run executes the complete smoke flow: health check, live subscription,
// screenshot generation, concurrent submission, and verification.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting scentd smoke run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("screens", config.NumScreens),
		logger.Int("repeats", config.Repeats),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	client := newHTTPClient(config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config, client); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Subscribe to the live channel before submitting anything
	listener, err := startPushListener(ctx, config)
	if err != nil {
		return fmt.Errorf("live subscription failed: %w", err)
	}
	defer listener.Close()

	// Step 3: Generate synthetic screenshots
	screens, err := generateScreenshots(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("screenshot generation failed: %w", err)
	}

	// Step 4: Submit screenshots concurrently
	predictions, err := submitScreenshots(ctx, config, client, screens, stats)
	if err != nil {
		return fmt.Errorf("screenshot submission failed: %w", err)
	}

	// Step 5: Let in-flight push deliveries settle
	logger.Get().Info(ctx, "waiting for live deliveries to settle")
	time.Sleep(settleDelay)
	stats.PushReceived = listener.Received()

	// Step 6: Verify results
	if err := verifyResults(config, predictions, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 7: Save predictions to file
	if err := savePredictionsToFile(ctx, config, predictions); err != nil {
		logger.Get().Warn(ctx, "failed to save predictions to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "smoke run completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config, client *resty.Client) error {
	logger.Get().Info(ctx, "checking service health")

	resp, err := client.R().
		SetContext(ctx).
		Get(config.BaseURL + "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.IsError() {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode())
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// savePredictionsToFile saves the computed predictions to a JSON file.
func savePredictionsToFile(ctx context.Context, config *Config, predictions []Prediction) error {
	if len(predictions) == 0 {
		return fmt.Errorf("no predictions to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "predictions_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(predictions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal predictions: %w", err)
	}
	if err := os.WriteFile(filename, data, logFilePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "predictions saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final smoke run statistics.
func displayFinalStats(stats *Stats) {
	var cacheHitRate, requestsPerSecond float64

	if stats.RequestsSubmitted > 0 {
		cacheHitRate = float64(stats.RequestsCached) / float64(stats.RequestsSubmitted) * 100
	}

	if stats.Duration > 0 {
		requestsPerSecond = float64(stats.RequestsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("screensGenerated", stats.ScreensGenerated),
		logger.Int("requestsSubmitted", stats.RequestsSubmitted),
		logger.Int("requestsComputed", stats.RequestsSuccessful),
		logger.Int("requestsCached", stats.RequestsCached),
		logger.Int("requestsFailed", stats.RequestsFailed),
		logger.Int("pushReceived", stats.PushReceived),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("cacheHitRate", cacheHitRate),
		logger.Float64("requestsPerSecond", requestsPerSecond))
}
