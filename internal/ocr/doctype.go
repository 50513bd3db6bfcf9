// Package ocr converts uploaded documents to markdown through a hosted OCR provider.
package ocr

import (
	"strings"

	"github.com/docextract/docextract/internal/model"
)

// Resource kinds understood by the provider.
const (
	ResourceDocument = "document_url"
	ResourceImage    = "image_url"
)

// Accepted lists every extension the upload surface recognises.
// "jpeg" is accepted here but has no mime mapping, so Convert rejects it.
var Accepted = []string{"pdf", "jpg", "jpeg", "png"}

// DocTypeFromFilename returns the text after the last dot, or the whole
// name when it has none.
func DocTypeFromFilename(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		return filename[i+1:]
	}
	return filename
}

// resourceFor maps an extension to the provider resource kind and mime type.
func resourceFor(ext string) (kind, mime string, err error) {
	switch ext {
	case "pdf":
		return ResourceDocument, "application/pdf", nil
	case "jpg":
		return ResourceImage, "image/jpeg", nil
	case "png":
		return ResourceImage, "image/png", nil
	default:
		return "", "", &model.UnsupportedTypeError{Kind: model.KindDocument, Value: ext}
	}
}
