package smoketest

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/smellovision/scentd/pkg/logger"
)

// Synthetic screenshot sizing constants.
const (
	minImageBytes  = 4 << 10  // small enough to keep runs fast
	maxImageBytes  = 64 << 10 // large enough to exercise base64 handling
	imageSizeSteps = 16
)

// jpegHeader makes the synthetic payloads look like real captures to any
// content sniffing along the way. The body is random, which guarantees
// unique fingerprints across screenshots.
var jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

// generateScreenshots creates the specified number of unique synthetic
// screenshots. Uniqueness comes from the random body, so every screenshot
// maps to a distinct fingerprint on the service side.
func generateScreenshots(ctx context.Context, config *Config, stats *Stats) ([]Screenshot, error) {
	logger.Get().Info(ctx, "generating synthetic screenshots", logger.Int("numScreens", config.NumScreens))

	screens := make([]Screenshot, config.NumScreens)

	type screenResult struct {
		index  int
		screen Screenshot
		err    error
	}

	resultChan := make(chan screenResult, config.NumScreens)

	// Use worker pool for generation
	workerCount := minInt(config.Workers, config.NumScreens)
	screensPerWorker := config.NumScreens / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * screensPerWorker
		end := start + screensPerWorker
		if worker == workerCount-1 {
			end = config.NumScreens // Last worker gets the remainder
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- screenResult{index: i, err: ctx.Err()}
					return
				default:
					screen, err := generateSingleScreenshot(i)
					resultChan <- screenResult{index: i, screen: screen, err: err}
				}
			}
		}(start, end)
	}

	// Collect results
	for i := 0; i < config.NumScreens; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during screenshot generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate screenshot %d: %w", result.index, result.err)
			}
			screens[result.index] = result.screen
		}
	}

	stats.ScreensGenerated = len(screens)
	logger.Get().Info(ctx, "generated screenshots successfully", logger.Int("count", len(screens)))

	return screens, nil
}

// generateSingleScreenshot creates one synthetic capture. Sizes vary in
// steps so runs cover a spread of payload sizes.
func generateSingleScreenshot(index int) (Screenshot, error) {
	step := (maxImageBytes - minImageBytes) / imageSizeSteps
	size := minImageBytes + (index%imageSizeSteps)*step

	body := make([]byte, size)
	if _, err := rand.Read(body); err != nil {
		return Screenshot{}, fmt.Errorf("failed to generate image body: %w", err)
	}

	image := make([]byte, 0, len(jpegHeader)+len(body))
	image = append(image, jpegHeader...)
	image = append(image, body...)

	return Screenshot{Index: index, Image: image}, nil
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
