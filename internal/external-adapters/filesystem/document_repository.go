// Package filesystem provides file-backed repository implementations.
package filesystem

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"github.com/ochairo/threatfeed/internal/domain/entities"
)

const defaultFileMode os.FileMode = 0o644

// DocumentRepository implements repositories.DocumentRepository on an afero filesystem
type DocumentRepository struct {
	fs   afero.Fs
	path string
}

// NewDocumentRepository creates a repository for the document at path
func NewDocumentRepository(fs afero.Fs, path string) *DocumentRepository {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &DocumentRepository{fs: fs, path: filepath.Clean(path)}
}

// Path returns the location of the document
func (r *DocumentRepository) Path() string {
	return r.path
}

// ReadDocument returns the full document text
func (r *DocumentRepository) ReadDocument(_ context.Context) (string, error) {
	data, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrapf(entities.ErrDocumentNotFound, "%s", r.path)
		}
		return "", errors.Wrapf(err, "failed to read %s", r.path)
	}
	return string(data), nil
}

// WriteDocument replaces the document through a temporary file in the same
// directory followed by a rename. The existing file mode is kept.
func (r *DocumentRepository) WriteDocument(ctx context.Context, content string) error {
	info, err := r.fs.Stat(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(entities.ErrDocumentNotFound, "%s", r.path)
		}
		return errors.Wrapf(err, "failed to stat %s", r.path)
	}
	return r.writeAtomic(ctx, r.path, []byte(content), info.Mode().Perm())
}

// WriteSidecar writes data to <path><suffix> and returns that path
func (r *DocumentRepository) WriteSidecar(ctx context.Context, suffix string, data []byte) (string, error) {
	if suffix == "" {
		return "", errors.New("sidecar suffix is empty")
	}
	target := r.path + suffix
	if err := r.writeAtomic(ctx, target, data, defaultFileMode); err != nil {
		return "", err
	}
	return target, nil
}

func (r *DocumentRepository) writeAtomic(ctx context.Context, target string, data []byte, mode os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, base := filepath.Split(target)
	if dir == "" {
		dir = "."
	}

	tmp, err := afero.TempFile(r.fs, dir, "."+base+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary file")
	}
	tmpName := tmp.Name()

	cleanup := func() {
		//nolint:errcheck,gosec // G104: Best effort removal of the temporary file
		r.fs.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		//nolint:errcheck,gosec // G104: Closing after failed write
		tmp.Close()
		cleanup()
		return errors.Wrap(err, "failed to write temporary file")
	}
	if err := tmp.Sync(); err != nil {
		//nolint:errcheck,gosec // G104: Closing after failed sync
		tmp.Close()
		cleanup()
		return errors.Wrap(err, "failed to sync temporary file")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrap(err, "failed to close temporary file")
	}
	if err := r.fs.Chmod(tmpName, mode); err != nil {
		cleanup()
		return errors.Wrap(err, "failed to set file mode")
	}
	if err := r.fs.Rename(tmpName, target); err != nil {
		cleanup()
		return errors.Wrapf(err, "failed to replace %s", target)
	}
	return nil
}
