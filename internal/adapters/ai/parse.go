package ai

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/smellovision/scentd/internal/domain/fingerprint"
	"github.com/smellovision/scentd/internal/domain/model"
)

// proportionTolerance allows for rounding in model output ("0.7 0.3" vs
// "0.67 0.33").
const proportionTolerance = 0.05

// parsePrediction turns the model's wire format into a validated
// prediction. Accepted shapes:
//
//	"none"
//	"woody 1"
//	"woody 0.7 minty 0.3"
//
// Anything else - unknown labels, more than two components, proportions
// that do not sum to 1 - wraps ErrParse. The parser is strict on purpose:
// loosely-typed model output must not leak past this boundary.
func parsePrediction(fp fingerprint.Fingerprint, modelName, raw string) (model.ScentPrediction, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	if len(fields) == 0 {
		return model.ScentPrediction{}, fmt.Errorf("%w: empty content", ErrParse)
	}

	// Bare "none" carries no proportion.
	if len(fields) == 1 && fields[0] == model.ScentNone {
		return model.ScentPrediction{
			Fingerprint: fp.String(),
			Scents:      []model.ScentComponent{{Label: model.ScentNone, Proportion: 1}},
			Confidence:  1,
			Model:       modelName,
			CreatedAt:   time.Now().UTC(),
		}, nil
	}

	if len(fields)%2 != 0 || len(fields)/2 > model.MaxComponents {
		return model.ScentPrediction{}, fmt.Errorf("%w: unexpected token count %d in %q", ErrParse, len(fields), raw)
	}

	var (
		components []model.ScentComponent
		sum        float64
	)
	for i := 0; i < len(fields); i += 2 {
		label := fields[i]
		if !model.KnownScent(label) {
			return model.ScentPrediction{}, fmt.Errorf("%w: unknown scent %q", ErrParse, label)
		}
		prop, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return model.ScentPrediction{}, fmt.Errorf("%w: bad proportion %q: %w", ErrParse, fields[i+1], err)
		}
		if prop <= 0 || prop > 1 {
			return model.ScentPrediction{}, fmt.Errorf("%w: proportion %v out of range", ErrParse, prop)
		}
		components = append(components, model.ScentComponent{Label: label, Proportion: prop})
		sum += prop
	}

	if math.Abs(sum-1) > proportionTolerance {
		return model.ScentPrediction{}, fmt.Errorf("%w: proportions sum to %v", ErrParse, sum)
	}

	// Strongest first.
	if len(components) == 2 && components[1].Proportion > components[0].Proportion {
		components[0], components[1] = components[1], components[0]
	}

	return model.ScentPrediction{
		Fingerprint: fp.String(),
		Scents:      components,
		Confidence:  components[0].Proportion,
		Model:       modelName,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
