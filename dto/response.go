package dto

// OCRDetail is one recognized text span with its confidence and the
// bounding polygon emitted by the engine, as an ordered list of [x,y]
// vertices.
type OCRDetail struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	BBox       [][]int `json:"bbox"`
}

// OCRResponse is the final response structure
type OCRResponse struct {
	Success    bool        `json:"success"`
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	RecTexts   []string    `json:"rec_texts"`
	RecScores  []float64   `json:"rec_scores"`
	Details    []OCRDetail `json:"details"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	Version    string `json:"version"`
	Engine     string `json:"engine"`
	GPUEnabled bool   `json:"gpu_enabled"`
}
