package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/smellovision/scentd/internal/smoketest"
)

// Default configuration constants.
const (
	defaultNumScreens   = 50
	defaultRepeats      = 2
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultSmokeTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numScreens = flag.Int("screens", defaultNumScreens, "Number of unique screenshots to generate")
		repeats    = flag.Int("repeats", defaultRepeats, "Times each screenshot is submitted")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for received predictions (default: predictions_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for smoke output (default: smoke_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoketest.ShowHelp()
		return
	}

	// Setup logging
	if err := smoketest.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultSmokeTimeout)
	defer cancel()

	// Create smoke configuration
	config := &smoketest.Config{
		BaseURL:    *baseURL,
		NumScreens: *numScreens,
		Repeats:    *repeats,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	// Run the smoke flow
	if err := smoketest.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Smoke run failed: " + err.Error() + "\n")
		return
	}
}
