// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"
)

// DocumentRepository gives access to the Markdown file being updated
type DocumentRepository interface {
	// Path returns the location of the document
	Path() string

	// ReadDocument returns the full document text
	ReadDocument(ctx context.Context) (string, error)

	// WriteDocument replaces the document content atomically
	WriteDocument(ctx context.Context, content string) error

	// WriteSidecar writes data next to the document as <path><suffix>
	// and returns the written path
	WriteSidecar(ctx context.Context, suffix string, data []byte) (string, error)
}
