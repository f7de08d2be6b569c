package extraction

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// prepareImage converts an uploaded file into a payload the vision service
// accepts. JPEG, PNG and WebP pass through untouched; HEIC (common on
// iPhones, unsupported by the service) is decoded and re-encoded as PNG;
// PDF receipts have their first page rendered to PNG. Returns the payload
// and the format suffix (e.g. "png") the service expects.
func prepareImage(data []byte, contentType string) ([]byte, string, error) {
	switch contentType {
	case "image/jpeg":
		return data, "jpeg", nil
	case "image/png":
		return data, "png", nil
	case "image/webp":
		return data, "webp", nil
	}

	if contentType == "application/pdf" {
		converted, err := pdfToImage(data)
		if err != nil {
			return nil, "", err
		}
		return converted, "png", nil
	}

	if contentType == "image/heic" || isHEICFormat(data) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, "", fmt.Errorf("decoding HEIC image: %w", err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("encoding PNG: %w", err)
		}
		return buf.Bytes(), "png", nil
	}

	return nil, "", fmt.Errorf("unsupported content type: %s", contentType)
}

// pdfToImage renders the first page of a PDF to a PNG image. Receipts are
// almost always single page.
func pdfToImage(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// isHEICFormat checks the ftyp box brand for the HEIC/HEIF signatures, since
// declared content types from phone uploads are not always trustworthy.
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	if string(data[4:8]) != "ftyp" {
		return false
	}
	brand := strings.ToLower(string(data[8:12]))
	return brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1"
}
