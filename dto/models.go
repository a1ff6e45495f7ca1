package dto

import "errors"

// Custom errors
var (
	ErrNoFile              = errors.New("no file selected")
	ErrUnsupportedFileType = errors.New("unsupported file type. Use PNG, JPG, JPEG, BMP, TIFF, WEBP or PDF")
	ErrFileTooLarge        = errors.New("file too large")
	ErrInvalidBase64       = errors.New("invalid base64 image data")
	ErrInvalidImage        = errors.New("unable to decode image")
)
