package gateways

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// ErrChecksumMismatch is returned when a document digest differs from the expected one
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ChecksumVerifier computes and checks SHA-256 digests of documents
type ChecksumVerifier struct {
	fs afero.Fs
}

// NewChecksumVerifier creates a new checksum verifier over fs
func NewChecksumVerifier(fs afero.Fs) *ChecksumVerifier {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &ChecksumVerifier{fs: fs}
}

// SumBytes returns the hex SHA-256 digest of data
func SumBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CalculateChecksum calculates the SHA256 checksum of a file
func (v *ChecksumVerifier) CalculateChecksum(filePath string) (string, error) {
	f, err := v.fs.Open(filePath)
	if err != nil {
		return "", errors.Wrap(err, "failed to open file")
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(err, "failed to hash file")
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyChecksum verifies a file's SHA256 checksum. The expected value is
// compared case-insensitively and may carry a "sha256:" prefix.
func (v *ChecksumVerifier) VerifyChecksum(_ context.Context, filePath, expectedSum string) error {
	actualSum, err := v.CalculateChecksum(filePath)
	if err != nil {
		return err
	}

	expected := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(expectedSum), "sha256:"))
	if actualSum != expected {
		return errors.Wrapf(ErrChecksumMismatch, "expected %s, got %s", expected, actualSum)
	}

	return nil
}
