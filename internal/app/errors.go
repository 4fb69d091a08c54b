package app

import "errors"

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrFileTooLarge         = errors.New("file too large")
	ErrNoExtractableContent = errors.New("no extractable content")
	ErrPersistenceFailed    = errors.New("persistence failed")
	ErrStorageUploadFailed  = errors.New("storage upload failed")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrOriginalNotStored    = errors.New("original file not stored")
	ErrSummaryNotFound      = errors.New("corpus summary not generated yet")
	ErrSearchUnavailable    = errors.New("search unavailable")
	ErrUnknownJob           = errors.New("unknown job kind")
)
