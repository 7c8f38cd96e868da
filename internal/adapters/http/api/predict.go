// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/smellovision/scentd/internal/domain/fingerprint"
)

// base64Overhead covers the encoding blowup plus JSON envelope when
// limiting the request body against the decoded image budget.
const base64Overhead = 2

// predictRequest mirrors the JSON schema for POST /predict.
type predictRequest struct {
	ImageBase64 string `json:"image_base64"`
	SessionID   string `json:"session_id"`
}

func (p predictRequest) validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ImageBase64, validation.Required, is.Base64),
		validation.Field(&p.SessionID, validation.Length(0, 128)),
	)
}

// predictResponse is the synchronous answer to POST /predict. The same
// prediction is also pushed to /live subscribers.
type predictResponse struct {
	Cached     bool       `json:"cached"`
	Prediction Prediction `json:"prediction"`
}

// PredictHandler handles screenshot prediction requests.
type PredictHandler struct {
	deps          Dependencies
	maxImageBytes int64
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps Dependencies, maxImageBytes int64) *PredictHandler {
	return &PredictHandler{deps: deps, maxImageBytes: maxImageBytes}
}

// HandlePredict handles POST /predict requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes*base64Overhead)

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large",
				WrapKind(op, ErrBadRequest, fingerprint.ErrImageTooLarge))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	pred, cached, err := h.deps.Handle(r.Context(), ScreenshotRequest{
		Image:      image,
		SessionID:  req.SessionID,
		ReceivedAt: time.Now(),
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, predictResponse{Cached: cached, Prediction: pred})
	case errors.Is(err, fingerprint.ErrImageTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, fingerprint.ErrEmptyImage):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	default:
		writeError(w, http.StatusBadGateway, "prediction_failed", WrapKind(op, ErrPrediction, err))
	}
}
