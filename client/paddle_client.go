package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// PaddleClient runs OCR through a PaddleOCR serving endpoint
// (hub serving ocr_system). The image is shipped base64-encoded in a
// JSON body and the recognized lines come back with confidence scores
// and quadrilateral text regions.
type PaddleClient struct {
	apiURL     string
	httpClient *http.Client
}

func NewPaddleClient(apiURL string) *PaddleClient {
	return &PaddleClient{
		apiURL:     apiURL,
		httpClient: http.DefaultClient,
	}
}

// Name reports the engine identifier used in the health endpoint.
func (p *PaddleClient) Name() string {
	return "paddle"
}

// Recognize sends the image at filePath to the PaddleOCR API and
// returns the recognized line spans.
func (p *PaddleClient) Recognize(ctx context.Context, filePath string) ([]TextSpan, error) {
	imgBytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	payload := map[string]interface{}{
		"images": []string{base64.StdEncoding.EncodeToString(imgBytes)},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call PaddleOCR API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("PaddleOCR API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Results [][]struct {
			Text       string  `json:"text"`
			Confidence float64 `json:"confidence"`
			TextRegion [][]int `json:"text_region"`
		} `json:"results"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode PaddleOCR response: %w", err)
	}

	spans := []TextSpan{}
	for _, page := range result.Results {
		for _, line := range page {
			if line.Text == "" {
				continue
			}
			polygon := make([]Point, 0, len(line.TextRegion))
			for _, vertex := range line.TextRegion {
				if len(vertex) < 2 {
					continue
				}
				polygon = append(polygon, Point{X: vertex[0], Y: vertex[1]})
			}
			spans = append(spans, TextSpan{
				Text:       line.Text,
				Confidence: line.Confidence,
				Polygon:    polygon,
			})
		}
	}

	return spans, nil
}
