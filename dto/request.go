package dto

// Base64Request is the JSON body variant of the OCR request.
type Base64Request struct {
	Image string `json:"image" binding:"required"`
}

// Validate performs basic validation on the request
func (r *Base64Request) Validate() error {
	if r.Image == "" {
		return ErrInvalidBase64
	}
	return nil
}
