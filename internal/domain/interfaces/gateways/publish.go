package gateways

import (
	"context"

	"github.com/ochairo/threatfeed/internal/domain/entities"
)

// Notifier announces a finished update
type Notifier interface {
	NotifyUpdate(ctx context.Context, snapshot *entities.Snapshot) error
}

// SnapshotArchiver stores a run snapshot and returns its location
type SnapshotArchiver interface {
	ArchiveSnapshot(ctx context.Context, snapshot *entities.Snapshot) (string, error)
}

// DocumentSigner produces a detached signature over document content
type DocumentSigner interface {
	SignDetached(ctx context.Context, content []byte) ([]byte, error)
}
