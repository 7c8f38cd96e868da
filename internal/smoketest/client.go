package smoketest

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"

	"github.com/smellovision/scentd/pkg/logger"
)

// newHTTPClient creates a resty client with the run's timeout.
func newHTTPClient(timeout time.Duration) *resty.Client {
	return resty.New().SetTimeout(timeout)
}

// submitScreenshots submits every screenshot config.Repeats times using a
// worker pool. First submissions should compute; repeats should come back
// from the cache.
func submitScreenshots(ctx context.Context, config *Config, client *resty.Client, screens []Screenshot, stats *Stats) ([]Prediction, error) {
	total := len(screens) * config.Repeats
	log.Printf("📤 Submitting %d requests (%d screenshots x %d) with %d workers...",
		total, len(screens), config.Repeats, config.Workers)

	url := config.BaseURL + "/predict"

	// Counters for statistics
	var (
		successful int64
		cached     int64
		failed     int64
		submitted  int64
	)

	var (
		mu          sync.Mutex
		predictions []Prediction
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	screenChan := make(chan Screenshot, config.Workers*2)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for screen := range screenChan {
				select {
				case <-ctx.Done():
					return
				default:
					pred, result := submitSingleScreenshot(ctx, client, url, screen)

					// Update counters
					atomic.AddInt64(&submitted, 1)
					switch result {
					case "success":
						atomic.AddInt64(&successful, 1)
						mu.Lock()
						predictions = append(predictions, pred)
						mu.Unlock()
					case "cached":
						atomic.AddInt64(&cached, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						done := atomic.LoadInt64(&submitted)
						succ := atomic.LoadInt64(&successful)
						hit := atomic.LoadInt64(&cached)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Progress: %d/%d submitted (computed: %d, cached: %d, failed: %d)",
								done, total, succ, hit, fail)
						} else {
							fmt.Printf("\r📤 Submitted: %d/%d (computed: %d, cached: %d, failed: %d)",
								done, total, succ, hit, fail)
						}
					}
				}
			}
		}()
	}

	// Feed the workers. Rounds are submitted in order so the first round
	// populates the cache and later rounds read from it.
	go func() {
		defer close(screenChan)
		for round := 0; round < config.Repeats; round++ {
			for _, screen := range screens {
				select {
				case <-ctx.Done():
					return
				case screenChan <- screen:
				}
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Update stats
	stats.RequestsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.RequestsSuccessful = int(atomic.LoadInt64(&successful))
	stats.RequestsCached = int(atomic.LoadInt64(&cached))
	stats.RequestsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Submission completed:
   Computed: %d
   Cached: %d
   Failed: %d
`, stats.RequestsSuccessful, stats.RequestsCached, stats.RequestsFailed)

	return predictions, nil
}

// submitSingleScreenshot submits one screenshot and classifies the outcome.
func submitSingleScreenshot(ctx context.Context, client *resty.Client, url string, screen Screenshot) (Prediction, string) {
	body := PredictRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(screen.Image),
		SessionID:   fmt.Sprintf("smoke-%d", screen.Index),
	}

	var out PredictResponse
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		Post(url)
	if err != nil || resp.IsError() {
		return Prediction{}, "failed"
	}

	if out.Cached {
		return out.Prediction, "cached"
	}
	return out.Prediction, "success"
}

// pushListener subscribes to /live and counts received predictions.
type pushListener struct {
	conn     *websocket.Conn
	received atomic.Int64
	done     chan struct{}
}

// startPushListener connects to the live channel and starts counting.
func startPushListener(ctx context.Context, config *Config) (*pushListener, error) {
	wsURL := strings.Replace(config.BaseURL, "http", "ws", 1) + "/live"

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	l := &pushListener{conn: conn, done: make(chan struct{})}
	go func() {
		defer close(l.done)
		for {
			var pred Prediction
			if err := conn.ReadJSON(&pred); err != nil {
				return
			}
			l.received.Add(1)
		}
	}()

	logger.Get().Info(ctx, "subscribed to live channel", logger.String("url", wsURL))
	return l, nil
}

// Received returns the number of predictions seen so far.
func (l *pushListener) Received() int {
	return int(l.received.Load())
}

// Close tears down the subscription.
func (l *pushListener) Close() {
	_ = l.conn.Close()
	<-l.done
}
