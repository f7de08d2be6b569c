package extraction

import "fmt"

// MaxImageSize is the upload ceiling for a single receipt image.
const MaxImageSize = 10 << 20 // 10MB

// acceptedTypes are the image formats the pipeline accepts directly.
// PDF is additionally accepted and rendered to an image before upload.
var acceptedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/heic":      true,
	"application/pdf": true,
}

// ValidateImage runs the local, synchronous checks on a selected file.
// No network call happens here; a rejected file never reaches the service.
func ValidateImage(contentType string, size int64) error {
	if !acceptedTypes[contentType] {
		return &ValidationError{Reason: fmt.Sprintf("unsupported file type %q: accepted types are JPEG, PNG, WebP, HEIC and PDF", contentType)}
	}
	if size > MaxImageSize {
		return &ValidationError{Reason: fmt.Sprintf("file is too large (%d bytes): maximum size is 10MB", size)}
	}
	return nil
}
