package docmap

import (
	"errors"
)

var (
	// ErrClosed is returned when an operation is submitted to a closed DB.
	ErrClosed = errors.New("docmap: closed")

	// ErrUnknownDocType is returned when an operation names a document type
	// that was never added.
	ErrUnknownDocType = errors.New("docmap: unknown document type")

	// ErrDocTypeExists is returned when a document type is added twice.
	ErrDocTypeExists = errors.New("docmap: document type already exists")
)
