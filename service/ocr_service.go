package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/plateocr/ocr-api/client"
	"github.com/plateocr/ocr-api/dto"
	"github.com/plateocr/ocr-api/utils/imageutil"
)

// OCREngine is the single call of consequence: image path in,
// recognized text spans out.
type OCREngine interface {
	Name() string
	Recognize(ctx context.Context, filePath string) ([]client.TextSpan, error)
}

// Allowed upload extensions, lower case.
var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tiff": true,
	".webp": true,
	".pdf":  true,
}

// OCRService validates uploads, normalizes them into files the engine
// can read, and flattens the engine result into the response envelope.
type OCRService struct {
	engine       OCREngine
	pdfProcessor PDFProcessor
	maxBytes     int64
	logger       zerolog.Logger
}

func NewOCRService(engine OCREngine, pdfProcessor PDFProcessor, maxBytes int64, logger zerolog.Logger) *OCRService {
	return &OCRService{
		engine:       engine,
		pdfProcessor: pdfProcessor,
		maxBytes:     maxBytes,
		logger:       logger,
	}
}

// Engine exposes the configured engine for the health endpoint.
func (s *OCRService) Engine() OCREngine {
	return s.engine
}

// MaxBytes is the configured upload ceiling.
func (s *OCRService) MaxBytes() int64 {
	return s.maxBytes
}

// ValidateFilename checks the upload name against the extension
// allow-list.
func (s *OCRService) ValidateFilename(filename string) error {
	if filename == "" {
		return dto.ErrNoFile
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return dto.ErrUnsupportedFileType
	}
	return nil
}

// ExtractFromUpload runs OCR on an uploaded file's bytes.
func (s *OCRService) ExtractFromUpload(ctx context.Context, data []byte, filename string) (*dto.OCRResponse, error) {
	if err := s.ValidateFilename(filename); err != nil {
		return nil, err
	}
	if int64(len(data)) > s.maxBytes {
		return nil, dto.ErrFileTooLarge
	}

	if strings.ToLower(filepath.Ext(filename)) == ".pdf" {
		return s.extractFromPDF(ctx, data)
	}
	return s.extractFromImage(ctx, data)
}

// ExtractFromBase64 runs OCR on a base64-encoded image from a JSON
// body. A data URI prefix is tolerated.
func (s *OCRService) ExtractFromBase64(ctx context.Context, encoded string) (*dto.OCRResponse, error) {
	if idx := strings.Index(encoded, ";base64,"); idx >= 0 {
		encoded = encoded[idx+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, dto.ErrInvalidBase64
	}
	if int64(len(data)) > s.maxBytes {
		return nil, dto.ErrFileTooLarge
	}

	return s.extractFromImage(ctx, data)
}

func (s *OCRService) extractFromImage(ctx context.Context, data []byte) (*dto.OCRResponse, error) {
	img, err := imageutil.Decode(data)
	if err != nil {
		return nil, dto.ErrInvalidImage
	}

	spans, err := s.recognizeImage(ctx, img)
	if err != nil {
		return nil, err
	}
	return buildResponse(spans), nil
}

// recognizeImage flattens the image onto white, hands it to the engine
// through a temp file, and removes the file before returning.
func (s *OCRService) recognizeImage(ctx context.Context, img image.Image) ([]client.TextSpan, error) {
	flattened := imageutil.FlattenToWhite(img)

	tempPath, err := imageutil.WriteTempPNG(flattened)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tempPath)

	s.logger.Info().Str("path", tempPath).Msg("running OCR on image")

	spans, err := s.engine.Recognize(ctx, tempPath)
	if err != nil {
		return nil, fmt.Errorf("OCR processing failed: %w", err)
	}
	return spans, nil
}

// extractFromPDF prefers the embedded text layer; scanned documents
// without one fall back to OCR over the extracted page images.
func (s *OCRService) extractFromPDF(ctx context.Context, data []byte) (*dto.OCRResponse, error) {
	text, err := s.pdfProcessor.ExtractText(data)
	if err == nil && strings.TrimSpace(text) != "" {
		return textLayerResponse(text), nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("PDF text layer extraction failed, trying embedded images")
	}

	images, err := s.pdfProcessor.ExtractImages(data)
	if err != nil {
		return nil, fmt.Errorf("OCR processing failed: %w", err)
	}

	var spans []client.TextSpan
	for _, img := range images {
		pageSpans, err := s.recognizeImage(ctx, img)
		if err != nil {
			return nil, err
		}
		spans = append(spans, pageSpans...)
	}
	return buildResponse(spans), nil
}

// buildResponse flattens engine spans into the response envelope:
// space-joined text, per-span details, and the arithmetic mean of the
// span confidences (0.0 when there are none).
func buildResponse(spans []client.TextSpan) *dto.OCRResponse {
	resp := &dto.OCRResponse{
		Success:   true,
		RecTexts:  []string{},
		RecScores: []float64{},
		Details:   []dto.OCRDetail{},
	}

	var total float64
	for _, span := range spans {
		bbox := make([][]int, 0, len(span.Polygon))
		for _, pt := range span.Polygon {
			bbox = append(bbox, []int{pt.X, pt.Y})
		}

		resp.RecTexts = append(resp.RecTexts, span.Text)
		resp.RecScores = append(resp.RecScores, span.Confidence)
		resp.Details = append(resp.Details, dto.OCRDetail{
			Text:       span.Text,
			Confidence: span.Confidence,
			BBox:       bbox,
		})
		total += span.Confidence
	}

	resp.Text = strings.Join(resp.RecTexts, " ")
	if len(spans) > 0 {
		resp.Confidence = total / float64(len(spans))
	}
	return resp
}

// textLayerResponse wraps a PDF's embedded text layer in the response
// envelope. The layer is exact, so every line carries confidence 1.0
// and no geometry.
func textLayerResponse(text string) *dto.OCRResponse {
	spans := []client.TextSpan{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		spans = append(spans, client.TextSpan{Text: line, Confidence: 1.0, Polygon: []client.Point{}})
	}
	return buildResponse(spans)
}
