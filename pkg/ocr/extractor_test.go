package ocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractText_PlainText(t *testing.T) {
	s := &Service{}
	got := s.ExtractText(context.Background(), []byte("Invoice ID: INV-1"), "text/plain")
	assert.Equal(t, "Invoice ID: INV-1", got)
}

func TestExtractText_InvalidUTF8Dropped(t *testing.T) {
	s := &Service{}
	got := s.ExtractText(context.Background(), []byte{0xff, 'o', 'k', 0xfe}, "text/plain")
	assert.Equal(t, "ok", got)
}

func TestExtractText_PDFEmbeddedText(t *testing.T) {
	s := &Service{}
	pdf := []byte("%PDF-1.4\nBT (Invoice Date: 2024-03-15) Tj ET\nBT (Amount: 1,250.00) Tj ET")
	got := s.ExtractText(context.Background(), pdf, "application/pdf")
	assert.Contains(t, got, "Invoice Date: 2024-03-15")
	assert.Contains(t, got, "Amount: 1,250.00")
}

func TestExtractText_ScannedPDFYieldsEmpty(t *testing.T) {
	s := &Service{}
	got := s.ExtractText(context.Background(), []byte("%PDF-1.4\nbinary image stream only"), "application/pdf")
	assert.Empty(t, got)
}

func TestExtractText_ImageWithoutTesseract(t *testing.T) {
	s := &Service{tesseractPath: ""}
	got := s.ExtractText(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "image/png")
	assert.Empty(t, got)
}
