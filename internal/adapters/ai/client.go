package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/semaphore"

	"github.com/smellovision/scentd/internal/domain/fingerprint"
	"github.com/smellovision/scentd/internal/domain/model"
	"github.com/smellovision/scentd/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultTimeout       = 10 * time.Second
	defaultMaxConcurrent = 3
	maxCompletionTokens  = 20 // vision models chat too much; cap output hard
)

// promptInstruction asks the model for the bare wire format the parser
// expects: "scent proportion [scent proportion]" in lowercase, or "none".
const promptInstruction = `based on the image you will be given and a list of human scents: Fragrant (e.g., florals, perfumes), Woody (e.g., pine, fresh cut grass), Fruity (non-citrus), Chemical (e.g., ammonia, bleach), Minty (e.g., eucalyptus, camphor), Sweet (e.g., chocolate, vanilla, caramel), Popcorn (or toasted/nutty), Lemon (or citrus), Pungent (e.g., blue cheese, cigar smoke, sweat), Decayed (e.g., rotting meat, sour milk), generate a plain string with the scent characterization of the image in lowercase, attribute to the image the most accurate smell it will have, keeping in mind its intensity and distance from the image perspective. if it is an image of a digital interface or any other situation that does not have smell return none. you are allowed to mix odors but the maximum number of odors is 2; each should have a proportion as a decimal number and the proportions should sum to 1. the final format must be: "scent number scent number" for 2 distinct scents or "scent number" for one. no other text.`

// chat completion request/response shapes (OpenAI-compatible).
type chatRequest struct {
	Model               string        `json:"model"`
	Temperature         float64       `json:"temperature"`
	MaxCompletionTokens int           `json:"max_completion_tokens"`
	Messages            []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Client implements Predictor against an OpenAI-compatible vision chat
// endpoint. A weighted semaphore bounds in-flight calls so a burst of
// unique screenshots cannot stampede the upstream rate limit.
type Client struct {
	http     *resty.Client
	endpoint string
	apiKey   string
	model    string
	timeout  time.Duration
	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

// NewClient creates a vision model client with configuration options.
func NewClient(endpoint, apiKey, modelName string, opts ...Option) *Client {
	c := &Client{
		http:     resty.New(),
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    modelName,
		timeout:  defaultTimeout,
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	if c.sem == nil {
		c.sem = semaphore.NewWeighted(defaultMaxConcurrent)
	}
	c.http.SetTimeout(c.timeout)

	return c
}

// Predict implements Predictor.
func (c *Client) Predict(ctx context.Context, fp fingerprint.Fingerprint, image []byte) (model.ScentPrediction, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return model.ScentPrediction{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	metrics.UpdateAIInFlight(int(c.inFlight.Add(1)))
	defer func() {
		metrics.UpdateAIInFlight(int(c.inFlight.Add(-1)))
		c.sem.Release(1)
	}()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := chatRequest{
		Model:               c.model,
		Temperature:         0,
		MaxCompletionTokens: maxCompletionTokens,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: promptInstruction},
				{Type: "image_url", ImageURL: &imageURL{
					URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
	}

	metrics.RecordAIRequest()
	start := time.Now()

	var out chatResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(callCtx).
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post(c.endpoint)

	metrics.RecordAILatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordAIError("unavailable")
		return model.ScentPrediction{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if resp.IsError() {
		metrics.RecordAIError("unavailable")
		if apiErr.Error.Message != "" {
			return model.ScentPrediction{}, fmt.Errorf("%w: upstream status %d: %s", ErrUnavailable, resp.StatusCode(), apiErr.Error.Message)
		}
		return model.ScentPrediction{}, fmt.Errorf("%w: upstream status %d", ErrUnavailable, resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		metrics.RecordAIError("parse")
		return model.ScentPrediction{}, fmt.Errorf("%w: response carried no choices", ErrParse)
	}

	pred, err := parsePrediction(fp, c.model, out.Choices[0].Message.Content)
	if err != nil {
		metrics.RecordAIError("parse")
		return model.ScentPrediction{}, err
	}
	return pred, nil
}
