// Package ai adapts the external vision model behind the Predictor
// interface. The adapter performs no retries; retry policy belongs to the
// orchestrator.
package ai

import (
	"context"

	"github.com/smellovision/scentd/internal/domain/fingerprint"
	"github.com/smellovision/scentd/internal/domain/model"
)

// Predictor computes a scent prediction for a screenshot.
type Predictor interface {
	// Predict submits the image to the model and returns a validated
	// prediction stamped with fp. Transport failures and timeouts wrap
	// ErrUnavailable; responses that cannot be parsed into the scent
	// vocabulary wrap ErrParse.
	Predict(ctx context.Context, fp fingerprint.Fingerprint, image []byte) (model.ScentPrediction, error)
}
