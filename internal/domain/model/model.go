// Package model contains domain values passed between layers.
package model

import "time"

// Scent labels the vision model is allowed to emit. The vocabulary follows
// the ten odor families used by the actuator firmware, plus "none" for
// images that have no plausible smell (e.g. a screenshot of a terminal).
const (
	ScentFragrant = "fragrant"
	ScentWoody    = "woody"
	ScentFruity   = "fruity"
	ScentChemical = "chemical"
	ScentMinty    = "minty"
	ScentSweet    = "sweet"
	ScentPopcorn  = "popcorn"
	ScentLemon    = "lemon"
	ScentPungent  = "pungent"
	ScentDecayed  = "decayed"
	ScentNone     = "none"
)

// MaxComponents bounds how many scents a single prediction may mix.
const MaxComponents = 2

// knownScents is the closed set of labels accepted from the model.
var knownScents = map[string]struct{}{
	ScentFragrant: {},
	ScentWoody:    {},
	ScentFruity:   {},
	ScentChemical: {},
	ScentMinty:    {},
	ScentSweet:    {},
	ScentPopcorn:  {},
	ScentLemon:    {},
	ScentPungent:  {},
	ScentDecayed:  {},
	ScentNone:     {},
}

// KnownScent reports whether label belongs to the scent vocabulary.
func KnownScent(label string) bool {
	_, ok := knownScents[label]
	return ok
}

// ScentComponent is one odor in a mixed prediction. Proportions across a
// prediction's components sum to 1.
type ScentComponent struct {
	Label      string  `json:"label"`
	Proportion float64 `json:"proportion"`
}

// ScentPrediction is the immutable output of the prediction pipeline.
type ScentPrediction struct {
	// Fingerprint identifies the screenshot the prediction was derived from.
	Fingerprint string `json:"fingerprint"`

	// Scents holds up to MaxComponents odor components, strongest first.
	Scents []ScentComponent `json:"scents"`

	// Confidence is the adapter's confidence in the prediction, in [0,1].
	Confidence float64 `json:"confidence"`

	// Model names the upstream model that produced the prediction.
	Model string `json:"model"`

	// CreatedAt is when the prediction was computed (not when it was served
	// from cache).
	CreatedAt time.Time `json:"created_at"`
}

// Primary returns the dominant scent label, or "none" for an empty mix.
func (p ScentPrediction) Primary() string {
	if len(p.Scents) == 0 {
		return ScentNone
	}
	best := p.Scents[0]
	for _, c := range p.Scents[1:] {
		if c.Proportion > best.Proportion {
			best = c
		}
	}
	return best.Label
}

// IsNone reports whether the prediction carries no actionable scent.
func (p ScentPrediction) IsNone() bool {
	return p.Primary() == ScentNone
}

// ScreenshotRequest is a captured frame submitted for prediction. The image
// bytes are only needed until fingerprinting and the model call complete.
type ScreenshotRequest struct {
	Image      []byte    // raw image payload (already base64-decoded)
	SessionID  string    // optional frontend session identifier
	ReceivedAt time.Time // ingestion timestamp
}
