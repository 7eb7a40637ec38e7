package ingestion_engine

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"
)

// Per-format size ceilings, enforced before extraction begins.
const (
	maxPdfBytes      = 50 << 20
	maxTextBytes     = 10 << 20
	maxRichTextBytes = 25 << 20
	maxImageBytes    = 15 << 20
)

// ExtractText pulls raw text and a unit count (pages for PDFs, 1 otherwise)
// out of the file bytes. The declared type is validated against the bytes'
// magic signature before any format library touches them.
func ExtractText(data []byte, ft FileType) (string, int, error) {
	switch ft {
	case FileTypePdf:
		return extractPdf(data)
	case FileTypeText:
		return extractPlainText(data)
	case FileTypeRichText:
		return extractRichText(data)
	case FileTypeImage:
		return extractImage(data)
	default:
		return "", 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ft)
	}
}

func extractPdf(data []byte) (string, int, error) {
	if len(data) > maxPdfBytes {
		return "", 0, fmt.Errorf("%w: pdf larger than %d bytes", ErrFileTooLarge, maxPdfBytes)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return "", 0, fmt.Errorf("%w: missing PDF signature", ErrCorruptFile)
	}

	res, err := docconv.Convert(bytes.NewReader(data), "application/pdf", false)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	text := res.Body
	if strings.TrimSpace(text) == "" {
		return "", 0, ErrNoExtractableText
	}

	// pdftotext separates pages with form feeds.
	pages := strings.Count(text, "\f") + 1
	return text, pages, nil
}

func extractPlainText(data []byte) (string, int, error) {
	if len(data) > maxTextBytes {
		return "", 0, fmt.Errorf("%w: text file larger than %d bytes", ErrFileTooLarge, maxTextBytes)
	}
	if !utf8.Valid(data) {
		return "", 0, fmt.Errorf("%w: not valid UTF-8 text", ErrCorruptFile)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", 0, ErrNoExtractableText
	}
	return text, 1, nil
}

func extractRichText(data []byte) (string, int, error) {
	if len(data) > maxRichTextBytes {
		return "", 0, fmt.Errorf("%w: document larger than %d bytes", ErrFileTooLarge, maxRichTextBytes)
	}

	// Resolve the real container from the magic bytes rather than trusting
	// the declared MIME type: a renamed non-archive claiming to be a
	// zip-based document format is rejected here.
	var mime string
	switch {
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		mime = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case bytes.HasPrefix(data, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}):
		mime = "application/msword"
	case bytes.HasPrefix(data, []byte("{\\rtf")):
		mime = "application/rtf"
	default:
		return "", 0, fmt.Errorf("%w: unrecognized rich-text container", ErrCorruptFile)
	}

	res, err := docconv.Convert(bytes.NewReader(data), mime, false)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	if strings.TrimSpace(res.Body) == "" {
		return "", 0, ErrNoExtractableText
	}
	return res.Body, 1, nil
}

func extractImage(data []byte) (string, int, error) {
	if len(data) > maxImageBytes {
		return "", 0, fmt.Errorf("%w: image larger than %d bytes", ErrFileTooLarge, maxImageBytes)
	}

	var mime string
	switch {
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}):
		mime = "image/png"
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		mime = "image/jpeg"
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		mime = "image/tiff"
	default:
		return "", 0, fmt.Errorf("%w: unrecognized image signature", ErrCorruptFile)
	}

	// docconv routes image MIME types through tesseract OCR.
	res, err := docconv.Convert(bytes.NewReader(data), mime, false)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	if strings.TrimSpace(res.Body) == "" {
		return "", 0, ErrNoExtractableText
	}
	return res.Body, 1, nil
}
