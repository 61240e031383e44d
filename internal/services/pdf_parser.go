package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"alfredoptarigan/voice-interview/internal/apperrors"
)

const (
	MIMETypePDF      = "application/pdf"
	MIMETypeText     = "text/plain"
	MIMETypeMarkdown = "text/markdown"
)

var extensionMIMETypes = map[string]string{
	".pdf": MIMETypePDF,
	".txt": MIMETypeText,
	".md":  MIMETypeMarkdown,
}

type DocumentParserService interface {
	// ExtractText returns the cleaned text of the file at path.
	ExtractText(filePath, mimeType string) (string, error)
}

type documentParserService struct{}

func NewDocumentParserService() DocumentParserService {
	return &documentParserService{}
}

// DetectMIMEType resolves the document type from the declared MIME type,
// falling back to the file extension for generic uploads.
func DetectMIMEType(fileName, declared string) string {
	base := baseMIMEType(declared)
	switch base {
	case MIMETypePDF, MIMETypeText, MIMETypeMarkdown:
		return base
	}
	if byExt, ok := extensionMIMETypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return byExt
	}
	return base
}

func (p *documentParserService) ExtractText(filePath, mimeType string) (string, error) {
	var (
		text string
		err  error
	)

	switch DetectMIMEType(filePath, mimeType) {
	case MIMETypePDF:
		text, err = extractPDFText(filePath)
	case MIMETypeText, MIMETypeMarkdown:
		text, err = extractPlainText(filePath)
	default:
		return "", apperrors.New(apperrors.ErrUnsupportedFormat, "ExtractText",
			"document type %q; use PDF, plain text, or markdown", mimeType)
	}
	if err != nil {
		return "", err
	}

	text = CleanText(text)
	if text == "" {
		return "", fmt.Errorf("no text content found in document")
	}
	return text, nil
}

func extractPDFText(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// skip unreadable pages
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	return textBuilder.String(), nil
}

func extractPlainText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	return string(data), nil
}

// CleanText trims every line and drops blank ones.
func CleanText(text string) string {
	text = strings.TrimSpace(text)

	lines := strings.Split(text, "\n")
	var cleanedLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}
