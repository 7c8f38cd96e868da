package smoketest

import "time"

// Config holds configuration for the smoke run
type Config struct {
	BaseURL    string        // Base URL of the service
	NumScreens int           // Number of unique screenshots to generate
	Repeats    int           // How many times each screenshot is submitted
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for received predictions
	LogFile    string        // Log file for smoke output
	Verbose    bool          // Enable verbose logging
}

// Screenshot is one synthetic frame to submit
type Screenshot struct {
	Index int
	Image []byte
}

// PredictRequest mirrors the wire shape for POST /predict
type PredictRequest struct {
	ImageBase64 string `json:"image_base64"`
	SessionID   string `json:"session_id"`
}

// ScentComponent mirrors one odor in a prediction
type ScentComponent struct {
	Label      string  `json:"label"`
	Proportion float64 `json:"proportion"`
}

// Prediction mirrors the prediction payload returned by the service
type Prediction struct {
	Fingerprint string           `json:"fingerprint"`
	Scents      []ScentComponent `json:"scents"`
	Confidence  float64          `json:"confidence"`
	Model       string           `json:"model"`
	CreatedAt   time.Time        `json:"created_at"`
}

// PredictResponse mirrors the response from POST /predict
type PredictResponse struct {
	Cached     bool       `json:"cached"`
	Prediction Prediction `json:"prediction"`
}

// Stats holds smoke run statistics
type Stats struct {
	ScreensGenerated   int
	RequestsSubmitted  int
	RequestsSuccessful int
	RequestsCached     int
	RequestsFailed     int
	PushReceived       int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
