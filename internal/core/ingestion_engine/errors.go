package ingestion_engine

import "errors"

// Error taxonomy for the ingestion pipeline. InvalidID is rejected before any
// I/O; the extraction-stage errors are fatal and surfaced to the uploader;
// persistence failures trigger a rollback of the document's passages.
var (
	ErrInvalidID          = errors.New("invalid identifier")
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrNoExtractableText  = errors.New("no extractable text in file")
	ErrCorruptFile        = errors.New("file is corrupt or does not match its declared format")
	ErrFileTooLarge       = errors.New("file exceeds the size limit for its format")
	ErrNoContentExtracted = errors.New("no content extracted from document")
)
