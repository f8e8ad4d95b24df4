// Package ocr extracts text from ticket attachments. The engine itself is an
// external collaborator; this package routes by MIME type and degrades to
// empty output on any extraction failure so the pipeline never stalls on a
// bad attachment.
package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Extractor turns attachment bytes into text.
type Extractor interface {
	ExtractText(ctx context.Context, data []byte, mimeType string) string
}

// Service is the default extractor: tesseract for images (when installed),
// embedded-text extraction for PDFs, lossy UTF-8 decoding for everything
// else.
type Service struct {
	// tesseractPath is resolved once; empty means image OCR is unavailable.
	tesseractPath string
}

// NewService creates an extractor, probing for a tesseract binary.
func NewService() *Service {
	path, err := exec.LookPath("tesseract")
	if err != nil {
		slog.Info("tesseract not found, image OCR disabled")
		path = ""
	}
	return &Service{tesseractPath: path}
}

// ExtractText routes the content to the right extraction method. It never
// fails: unreadable content yields an empty string.
func (s *Service) ExtractText(ctx context.Context, data []byte, mimeType string) string {
	switch {
	case strings.Contains(mimeType, "pdf"):
		return extractPDFText(data)
	case strings.HasPrefix(mimeType, "image/"):
		return s.extractImageText(ctx, data)
	default:
		return decodeLossyText(data)
	}
}

// extractImageText shells out to tesseract reading from stdin.
func (s *Service) extractImageText(ctx context.Context, data []byte) string {
	if s.tesseractPath == "" {
		return ""
	}

	cmd := exec.CommandContext(ctx, s.tesseractPath, "stdin", "stdout")
	cmd.Stdin = bytes.NewReader(data)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		slog.Warn("Image OCR failed", "error", err)
		return ""
	}
	return strings.TrimSpace(out.String())
}

// pdfTextRE pulls parenthesized string operands out of uncompressed PDF
// content streams. Scanned PDFs carry no embedded text and yield nothing —
// a deliberate limitation; the heavy rasterize-then-OCR path belongs to the
// external engine.
var pdfTextRE = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj`)

func extractPDFText(data []byte) string {
	matches := pdfTextRE.FindAllSubmatch(data, -1)
	if len(matches) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, m := range matches {
		sb.WriteString(unescapePDFString(string(m[1])))
		sb.WriteByte('\n')
	}
	return strings.TrimSpace(sb.String())
}

func unescapePDFString(s string) string {
	replacer := strings.NewReplacer(`\(`, "(", `\)`, ")", `\\`, `\`, `\n`, "\n", `\t`, "\t")
	return replacer.Replace(s)
}

// decodeLossyText treats the bytes as UTF-8 text, dropping invalid runes.
func decodeLossyText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "")
}
