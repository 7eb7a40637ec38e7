package ingestion_engine

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileType is the closed set of formats the pipeline ingests. Extraction is
// dispatched through a single switch on this type; there is no open-ended
// runtime lookup.
type FileType string

const (
	FileTypePdf      FileType = "pdf"
	FileTypeText     FileType = "text"
	FileTypeRichText FileType = "richtext"
	FileTypeImage    FileType = "image"
)

func (t FileType) Valid() bool {
	switch t {
	case FileTypePdf, FileTypeText, FileTypeRichText, FileTypeImage:
		return true
	}
	return false
}

// DetectFileType resolves the declared MIME type, falling back to the file
// extension. The declared type is a hint only; extractors still validate the
// bytes against a structural signature before trusting it.
func DetectFileType(fileName, contentType string) (FileType, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}

	switch ct {
	case "application/pdf":
		return FileTypePdf, nil
	case "text/plain", "text/markdown", "text/csv":
		return FileTypeText, nil
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/msword",
		"application/rtf", "text/rtf":
		return FileTypeRichText, nil
	case "image/png", "image/jpeg", "image/tiff":
		return FileTypeImage, nil
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return FileTypePdf, nil
	case ".txt", ".md", ".csv", ".log":
		return FileTypeText, nil
	case ".docx", ".doc", ".rtf":
		return FileTypeRichText, nil
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		return FileTypeImage, nil
	}

	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, fileName, contentType)
}
