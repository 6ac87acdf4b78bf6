package gateways

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/ochairo/threatfeed/internal/external-adapters/gpg"
)

// gpgSigner wraps the external GPG adapter to implement the domain DocumentSigner interface
type gpgSigner struct {
	signer *gpg.Signer
}

// NewGPGSigner loads the signing key at keyPath
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewGPGSigner(keyPath string, passphrase []byte) (*gpgSigner, error) {
	signer, err := gpg.LoadSigner(keyPath, passphrase)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load signing key")
	}
	return &gpgSigner{signer: signer}, nil
}

// SignDetached returns an armored detached signature over content
func (g *gpgSigner) SignDetached(ctx context.Context, content []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sig, err := g.signer.Sign(content)
	if err != nil {
		return nil, errors.Wrap(err, "GPG signing failed")
	}
	return sig, nil
}

// Fingerprint identifies the signing key
func (g *gpgSigner) Fingerprint() string {
	return g.signer.Fingerprint()
}
