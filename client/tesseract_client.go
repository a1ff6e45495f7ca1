package client

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TextSpan is one recognized word or line: its text, a confidence in
// [0,1], and the polygon delimiting it in the source image. Polygon may
// be empty when the engine could not produce geometry.
type TextSpan struct {
	Text       string
	Confidence float64
	Polygon    []Point
}

// Point is a pixel coordinate in the source image.
type Point struct {
	X int
	Y int
}

// TesseractClient runs OCR through the Tesseract C API via gosseract.
type TesseractClient struct {
	tessdataPrefix string
	language       string
}

func NewTesseractClient(tessdataPrefix, language string) *TesseractClient {
	return &TesseractClient{
		tessdataPrefix: tessdataPrefix,
		language:       language,
	}
}

// Name reports the engine identifier used in the health endpoint.
func (tc *TesseractClient) Name() string {
	return "tesseract"
}

// Recognize extracts word-level text spans from the image at filePath.
// A fresh gosseract client is created per call; the underlying CGo
// handle is not safe to share between requests.
func (tc *TesseractClient) Recognize(ctx context.Context, filePath string) ([]TextSpan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	client.SetTessdataPrefix(tc.tessdataPrefix)

	if err := client.SetLanguage(tc.language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	if err := client.SetImage(filePath); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		// Geometry is best effort. Fall back to the full text as a
		// single span without a polygon.
		if text == "" {
			return []TextSpan{}, nil
		}
		return []TextSpan{{Text: text, Confidence: 0, Polygon: []Point{}}}, nil
	}

	spans := make([]TextSpan, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		// Tesseract reports confidence on a 0-100 scale.
		spans = append(spans, TextSpan{
			Text:       box.Word,
			Confidence: box.Confidence / 100.0,
			Polygon: []Point{
				{X: box.Box.Min.X, Y: box.Box.Min.Y},
				{X: box.Box.Max.X, Y: box.Box.Min.Y},
				{X: box.Box.Max.X, Y: box.Box.Max.Y},
				{X: box.Box.Min.X, Y: box.Box.Max.Y},
			},
		})
	}

	return spans, nil
}
