package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plateocr/ocr-api/client"
	"github.com/plateocr/ocr-api/dto"
	"github.com/plateocr/ocr-api/service"
)

type fakeEngine struct {
	spans []client.TextSpan
	err   error
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Recognize(ctx context.Context, filePath string) ([]client.TextSpan, error) {
	return e.spans, e.err
}

func newTestRouter(engine service.OCREngine, maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zerolog.Nop()
	svc := service.NewOCRService(engine, service.NewPDFProcessor(), maxBytes, logger)
	h := NewOCRHandler(svc, logger, "1.0.0", false)

	router := gin.New()
	router.Use(RequestLogger(logger))
	router.GET("/health", h.Health)
	router.POST("/ocr", h.Extract)
	return router
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 30, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 30; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func doMultipart(t *testing.T, router *gin.Engine, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, data)
	req := httptest.NewRequest(http.MethodPost, "/ocr", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doBase64(t *testing.T, router *gin.Engine, encoded string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(dto.Base64Request{Image: encoded})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/ocr", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&fakeEngine{}, 20*1024*1024)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body dto.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "ocr-api", body.Service)
	assert.Equal(t, "1.0.0", body.Version)
	assert.Equal(t, "fake", body.Engine)
	assert.False(t, body.GPUEnabled)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestExtractMultipart(t *testing.T) {
	engine := &fakeEngine{spans: []client.TextSpan{
		{Text: "ABC", Confidence: 0.9, Polygon: []client.Point{{X: 1, Y: 1}, {X: 9, Y: 1}, {X: 9, Y: 5}, {X: 1, Y: 5}}},
		{Text: "123", Confidence: 0.5, Polygon: []client.Point{{X: 11, Y: 1}, {X: 19, Y: 1}, {X: 19, Y: 5}, {X: 11, Y: 5}}},
	}}
	router := newTestRouter(engine, 20*1024*1024)

	w := doMultipart(t, router, "plate.png", testPNG(t))

	require.Equal(t, http.StatusOK, w.Code)

	var body dto.OCRResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "ABC 123", body.Text)
	assert.InDelta(t, 0.7, body.Confidence, 1e-9)
	require.Len(t, body.Details, 2)
	assert.Equal(t, "ABC", body.Details[0].Text)
	assert.Equal(t, [][]int{{1, 1}, {9, 1}, {9, 5}, {1, 5}}, body.Details[0].BBox)
}

func TestExtractMultipartDisallowedExtension(t *testing.T) {
	router := newTestRouter(&fakeEngine{}, 20*1024*1024)

	w := doMultipart(t, router, "notes.txt", []byte("plain text"))

	require.Equal(t, http.StatusBadRequest, w.Code)

	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.NotEmpty(t, body.Error)
}

func TestExtractMultipartMissingFile(t *testing.T) {
	router := newTestRouter(&fakeEngine{}, 20*1024*1024)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/ocr", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtractMultipartTooLarge(t *testing.T) {
	router := newTestRouter(&fakeEngine{}, 16)

	w := doMultipart(t, router, "plate.png", testPNG(t))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestExtractBase64TooLarge(t *testing.T) {
	router := newTestRouter(&fakeEngine{}, 16)

	w := doBase64(t, router, base64.StdEncoding.EncodeToString(testPNG(t)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestExtractBase64Malformed(t *testing.T) {
	router := newTestRouter(&fakeEngine{}, 20*1024*1024)

	w := doBase64(t, router, "@@not base64@@")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtractMalformedImageBytes(t *testing.T) {
	router := newTestRouter(&fakeEngine{}, 20*1024*1024)

	w := doMultipart(t, router, "plate.png", []byte("definitely not a png"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtractNoDetectableText(t *testing.T) {
	router := newTestRouter(&fakeEngine{spans: []client.TextSpan{}}, 20*1024*1024)

	w := doMultipart(t, router, "blank.png", testPNG(t))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"success": true,
		"text": "",
		"confidence": 0,
		"rec_texts": [],
		"rec_scores": [],
		"details": []
	}`, w.Body.String())
}

func TestExtractEngineFailure(t *testing.T) {
	router := newTestRouter(&fakeEngine{err: errors.New("inference crashed")}, 20*1024*1024)

	w := doMultipart(t, router, "plate.png", testPNG(t))

	// Engine failures keep HTTP 200 and report through the envelope.
	require.Equal(t, http.StatusOK, w.Code)

	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "inference crashed")
}

func TestMultipartAndBase64Equivalent(t *testing.T) {
	engine := &fakeEngine{spans: []client.TextSpan{
		{Text: "XYZ", Confidence: 0.8, Polygon: []client.Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 5, Y: 5}, {X: 0, Y: 5}}},
	}}
	router := newTestRouter(engine, 20*1024*1024)
	data := testPNG(t)

	fromMultipart := doMultipart(t, router, "plate.png", data)
	fromBase64 := doBase64(t, router, base64.StdEncoding.EncodeToString(data))

	require.Equal(t, http.StatusOK, fromMultipart.Code)
	require.Equal(t, http.StatusOK, fromBase64.Code)

	var a, b dto.OCRResponse
	require.NoError(t, json.Unmarshal(fromMultipart.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(fromBase64.Body.Bytes(), &b))
	assert.Equal(t, a.Text, b.Text)
	assert.Equal(t, a.Details, b.Details)
}
