package smoketest

import (
	"fmt"
	"log"
	"math"
)

// proportionTolerance allows for rounding in reported scent mixes.
const proportionTolerance = 0.05

// knownScents mirrors the service's scent vocabulary.
var knownScents = map[string]struct{}{
	"fragrant": {}, "woody": {}, "fruity": {}, "chemical": {}, "minty": {},
	"sweet": {}, "popcorn": {}, "lemon": {}, "pungent": {}, "decayed": {},
	"none": {},
}

// verifyResults checks the predictions and cache behavior of the run.
func verifyResults(config *Config, predictions []Prediction, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	if len(predictions) == 0 {
		return fmt.Errorf("no predictions to verify")
	}

	for i, pred := range predictions {
		if err := verifyPrediction(pred); err != nil {
			return fmt.Errorf("prediction %d (%s) invalid: %w", i, pred.Fingerprint, err)
		}
	}
	log.Printf("✅ All %d predictions are well formed", len(predictions))

	if err := verifyCacheBehavior(config, stats); err != nil {
		log.Printf("⚠️  Cache behavior warning: %v", err)
	} else {
		log.Println("✅ Cache behavior verified")
	}

	if stats.PushReceived == 0 {
		log.Println("⚠️  No predictions arrived on the live channel")
	} else {
		log.Printf("✅ Live channel delivered %d predictions", stats.PushReceived)
	}

	log.Println("✅ Result verification completed")
	return nil
}

// verifyPrediction checks one prediction against the wire contract.
func verifyPrediction(pred Prediction) error {
	if pred.Fingerprint == "" {
		return fmt.Errorf("missing fingerprint")
	}
	if len(pred.Scents) == 0 {
		return fmt.Errorf("no scent components")
	}
	if len(pred.Scents) > 2 {
		return fmt.Errorf("too many scent components: %d", len(pred.Scents))
	}

	sum := 0.0
	for _, c := range pred.Scents {
		if _, ok := knownScents[c.Label]; !ok {
			return fmt.Errorf("unknown scent label %q", c.Label)
		}
		if c.Proportion <= 0 || c.Proportion > 1 {
			return fmt.Errorf("proportion out of range: %f", c.Proportion)
		}
		sum += c.Proportion
	}
	if math.Abs(sum-1) > proportionTolerance {
		return fmt.Errorf("proportions sum to %f", sum)
	}

	if pred.Confidence < 0 || pred.Confidence > 1 {
		return fmt.Errorf("confidence out of range: %f", pred.Confidence)
	}
	return nil
}

// verifyCacheBehavior checks that repeated submissions were served from
// cache. The first round computes; every later round of the same
// screenshot should hit.
func verifyCacheBehavior(config *Config, stats *Stats) error {
	if config.Repeats < 2 {
		return nil
	}

	expectedComputed := stats.ScreensGenerated
	expectedCached := stats.ScreensGenerated * (config.Repeats - 1)

	// Concurrent first-round submissions of distinct screenshots never
	// share a fingerprint, so computed counts should match exactly unless
	// requests failed outright.
	if stats.RequestsFailed > 0 {
		return fmt.Errorf("%d requests failed; cache accounting unreliable", stats.RequestsFailed)
	}
	if stats.RequestsSuccessful != expectedComputed {
		return fmt.Errorf("expected %d computed predictions, got %d", expectedComputed, stats.RequestsSuccessful)
	}
	if stats.RequestsCached != expectedCached {
		return fmt.Errorf("expected %d cache hits, got %d", expectedCached, stats.RequestsCached)
	}
	return nil
}
