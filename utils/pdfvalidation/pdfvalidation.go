// Package pdfvalidation inspects uploaded PDFs before they are stored.
package pdfvalidation

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ErrMissingHeader is returned for content that does not start with %PDF-
var ErrMissingHeader = errors.New("invalid PDF file: missing PDF header")

// PDFLimits defines the validation limits for PDF uploads
type PDFLimits struct {
	MaxFileSizeMB    int // Maximum file size in MB
	MaxPages         int // Maximum number of pages, 0 for unlimited
	DocumentTypeName string
}

// DocumentLimits applies to shared study documents
var DocumentLimits = PDFLimits{
	MaxFileSizeMB:    16,
	MaxPages:         2000,
	DocumentTypeName: "document",
}

// ValidationResult contains the result of PDF validation
type ValidationResult struct {
	Valid     bool
	PageCount int
	FileSize  int64
	Error     string
}

// ValidatePDFBytes validates PDF content bytes against the given limits.
// A nil error with Valid=false means the content was rejected; Error says why.
func ValidatePDFBytes(content []byte, limits PDFLimits) (*ValidationResult, error) {
	result := &ValidationResult{
		FileSize: int64(len(content)),
	}

	maxSize := int64(limits.MaxFileSizeMB) * 1024 * 1024
	if limits.MaxFileSizeMB > 0 && result.FileSize > maxSize {
		result.Error = fmt.Sprintf("File size exceeds maximum allowed size of %dMB", limits.MaxFileSizeMB)
		return result, nil
	}

	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		result.Error = "Invalid PDF file: missing PDF header"
		return result, nil
	}

	pageCount, err := PageCount(content)
	if err != nil {
		result.Error = fmt.Sprintf("Failed to read PDF: %v", err)
		return result, nil
	}

	result.PageCount = pageCount

	if limits.MaxPages > 0 && pageCount > limits.MaxPages {
		result.Error = fmt.Sprintf("PDF has %d pages, which exceeds the maximum of %d pages for %s",
			pageCount, limits.MaxPages, limits.DocumentTypeName)
		return result, nil
	}

	if pageCount == 0 {
		result.Error = "PDF has no pages"
		return result, nil
	}

	result.Valid = true
	return result, nil
}

// sanitizePDF removes trailing garbage data from PDFs
func sanitizePDF(content []byte) []byte {
	if len(content) == 0 {
		return content
	}

	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return content
	}

	eofMarker := []byte("%%EOF")
	lastEOF := bytes.LastIndex(content, eofMarker)

	if lastEOF == -1 {
		return content
	}

	pdfEnd := lastEOF + len(eofMarker)

	for pdfEnd < len(content) && (content[pdfEnd] == '\n' || content[pdfEnd] == '\r') {
		pdfEnd++
	}

	if pdfEnd < len(content) {
		return content[:pdfEnd]
	}

	return content
}

// PageCount returns the number of pages in a PDF
func PageCount(content []byte) (count int, err error) {
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return 0, ErrMissingHeader
	}

	// the parser panics on some truncated cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			count, err = 0, fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	content = sanitizePDF(content)
	pdfReader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse PDF: %w", err)
	}

	return pdfReader.NumPage(), nil
}
