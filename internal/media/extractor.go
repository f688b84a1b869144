// Package media turns uploaded files into plain text. Text files decode
// directly, PDFs are read page by page, and images go through the external
// vision service.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedInput marks uploads with a disallowed extension. The
// pipeline continues without that evidence.
var ErrUnsupportedInput = errors.New("unsupported file type")

// File is an uploaded document or image.
type File struct {
	Name string
	Data []byte
}

// IsImage reports whether the file is one of the accepted image types.
func (f File) IsImage() bool {
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// MIMEType returns the MIME type for the file's extension.
func (f File) MIMEType() string {
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	default:
		return "text/plain"
	}
}

// Describer is the external vision-description capability.
type Describer interface {
	Describe(ctx context.Context, image []byte, mimeType, instruction string) (string, error)
}

const (
	// ocrInstruction asks for bilingual extraction; ocrInstructionFallback
	// is used when the first call fails.
	ocrInstruction         = "Transcris tout le texte visible sur cette image, en français et en anglais."
	ocrInstructionFallback = "Transcris tout le texte visible sur cette image, en français."

	// LabelInstruction requests the constrained field set a wine label must
	// yield for the clarification gate.
	LabelInstruction = "Analyse cette étiquette de vin et indique : le nom du vin, " +
		"la couleur (rouge, blanc ou rosé), le millésime, l'appellation et le degré d'alcool. " +
		"Réponds uniquement avec les informations visibles."
)

// Extractor converts uploaded files to text.
type Extractor struct {
	describer Describer
	logger    *slog.Logger
}

func NewExtractor(describer Describer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{describer: describer, logger: logger}
}

// ExtractText returns the plain text of f. Partial extraction failures
// (single PDF pages, the bilingual OCR pass) degrade to whatever text was
// recovered; only a fully failed extraction is an error.
func (e *Extractor) ExtractText(ctx context.Context, f File) (string, error) {
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".txt":
		if !utf8.Valid(f.Data) {
			return "", fmt.Errorf("%s: text file is not valid UTF-8", f.Name)
		}
		return string(f.Data), nil
	case ".pdf":
		return e.extractPDF(f)
	case ".jpg", ".jpeg", ".png":
		return e.extractImage(ctx, f)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedInput, f.Name)
	}
}

// extractPDF concatenates per-page text in page order. A page that fails
// to extract is skipped.
func (e *Extractor) extractPDF(f File) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(f.Data), int64(len(f.Data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF %s: %w", f.Name, err)
	}

	var sb strings.Builder
	failed := 0
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			failed++
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("pdf page extraction failed", "file", f.Name, "page", i, "error", err)
			failed++
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	if failed > 0 {
		e.logger.Warn("partial pdf extraction", "file", f.Name, "failed_pages", failed)
	}
	return strings.TrimSpace(sb.String()), nil
}

// extractImage asks the vision service for a bilingual transcription,
// falling back to French-only when the first pass fails.
func (e *Extractor) extractImage(ctx context.Context, f File) (string, error) {
	text, err := e.describer.Describe(ctx, f.Data, f.MIMEType(), ocrInstruction)
	if err == nil {
		return text, nil
	}

	e.logger.Warn("bilingual extraction failed, retrying single-language",
		"file", f.Name, "error", err)
	text, err = e.describer.Describe(ctx, f.Data, f.MIMEType(), ocrInstructionFallback)
	if err != nil {
		return "", fmt.Errorf("image extraction failed for %s: %w", f.Name, err)
	}
	return text, nil
}

// DescribeLabel runs the constrained wine-label field extraction. Failures
// are reported, not swallowed, because the clarification gate depends on
// the detected fields.
func (e *Extractor) DescribeLabel(ctx context.Context, f File) (string, error) {
	if !f.IsImage() {
		return "", fmt.Errorf("%w: label detection needs an image, got %s", ErrUnsupportedInput, f.Name)
	}
	return e.describer.Describe(ctx, f.Data, f.MIMEType(), LabelInstruction)
}
