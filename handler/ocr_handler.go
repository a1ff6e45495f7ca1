package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/plateocr/ocr-api/dto"
	"github.com/plateocr/ocr-api/service"
)

type OCRHandler struct {
	ocrService *service.OCRService
	logger     zerolog.Logger
	version    string
	gpuEnabled bool
}

func NewOCRHandler(ocrService *service.OCRService, logger zerolog.Logger, version string, gpuEnabled bool) *OCRHandler {
	return &OCRHandler{
		ocrService: ocrService,
		logger:     logger,
		version:    version,
		gpuEnabled: gpuEnabled,
	}
}

// Health handles GET /health
func (h *OCRHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:     "healthy",
		Service:    "ocr-api",
		Version:    h.version,
		Engine:     h.ocrService.Engine().Name(),
		GPUEnabled: h.gpuEnabled,
	})
}

// Extract handles POST /ocr. The image arrives either as the multipart
// file field "image" or as a JSON body {"image": "<base64>"}.
func (h *OCRHandler) Extract(c *gin.Context) {
	h.logger.Info().Str("content_type", c.ContentType()).Msg("received OCR request")

	var (
		response *dto.OCRResponse
		err      error
	)

	if strings.HasPrefix(c.ContentType(), "application/json") {
		response, err = h.extractFromJSON(c)
	} else {
		response, err = h.extractFromMultipart(c)
	}

	if err != nil {
		h.sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *OCRHandler) extractFromJSON(c *gin.Context) (*dto.OCRResponse, error) {
	var req dto.Base64Request
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, dto.ErrInvalidBase64
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return h.ocrService.ExtractFromBase64(c.Request.Context(), req.Image)
}

func (h *OCRHandler) extractFromMultipart(c *gin.Context) (*dto.OCRResponse, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return nil, dto.ErrNoFile
	}

	if err := h.ocrService.ValidateFilename(fileHeader.Filename); err != nil {
		return nil, err
	}
	// Reject oversized uploads before reading them into memory.
	if fileHeader.Size > h.ocrService.MaxBytes() {
		return nil, dto.ErrFileTooLarge
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, dto.ErrNoFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, dto.ErrNoFile
	}

	return h.ocrService.ExtractFromUpload(c.Request.Context(), data, fileHeader.Filename)
}

// sendError maps input errors to 4xx and engine failures to the
// success:false envelope the original API reports with HTTP 200.
func (h *OCRHandler) sendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, dto.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Success: false, Error: err.Error()})
	case errors.Is(err, dto.ErrNoFile),
		errors.Is(err, dto.ErrUnsupportedFileType),
		errors.Is(err, dto.ErrInvalidBase64),
		errors.Is(err, dto.ErrInvalidImage):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Success: false, Error: err.Error()})
	default:
		h.logger.Error().Err(err).Msg("OCR processing error")
		c.JSON(http.StatusOK, dto.ErrorResponse{Success: false, Error: err.Error()})
	}
}
