// Package gpg provides detached OpenPGP signing and verification of documents.
package gpg

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/cockroachdb/errors"
)

// armorHeader prefixes ASCII-armored signatures
const armorHeader = "-----BEGIN PGP SIGNATURE---"

// Verifier checks detached signatures using ProtonMail's go-crypto
// This is in external-adapters to isolate the external dependency
type Verifier struct {
	keyring    openpgp.EntityList
	httpClient *http.Client
}

// NewVerifier creates a new GPG verifier
func NewVerifier() *Verifier {
	return &Verifier{
		keyring: make(openpgp.EntityList, 0),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ImportKeysFromURL imports all public keys published at keysURL
func (v *Verifier) ImportKeysFromURL(ctx context.Context, keysURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, keysURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to download keys")
	}
	//nolint:errcheck // Defer close
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf("key download failed with status %d", resp.StatusCode)
	}

	// Keyrings above 10MB are not expected
	return v.importArmored(io.LimitReader(resp.Body, 10*1024*1024))
}

// ImportKeyFromFile imports an armored or binary public key from a file
func (v *Verifier) ImportKeyFromFile(keyPath string) error {
	//nolint:gosec // G304: keyPath is user-provided for key import
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return errors.Wrap(err, "failed to open key file")
	}

	entities, err := readKeyRing(data)
	if err != nil {
		return err
	}
	v.keyring = append(v.keyring, entities...)
	return nil
}

func (v *Verifier) importArmored(r io.Reader) error {
	entities, err := openpgp.ReadArmoredKeyRing(r)
	if err != nil {
		return errors.Wrap(err, "failed to parse keys")
	}
	if len(entities) == 0 {
		return errors.New("no keys found")
	}
	v.keyring = append(v.keyring, entities...)
	return nil
}

// VerifyDetached checks signature over data and returns the signer's
// fingerprint. Armored and binary signatures are both accepted.
func (v *Verifier) VerifyDetached(data, signature []byte) (string, error) {
	if len(v.keyring) == 0 {
		return "", errors.New("no GPG keys imported")
	}
	if len(signature) < 10 {
		return "", errors.New("signature too small to be valid")
	}

	var (
		signer *openpgp.Entity
		err    error
	)
	if bytes.HasPrefix(signature, []byte(armorHeader)) {
		signer, err = openpgp.CheckArmoredDetachedSignature(v.keyring, bytes.NewReader(data), bytes.NewReader(signature), nil)
	} else {
		signer, err = openpgp.CheckDetachedSignature(v.keyring, bytes.NewReader(data), bytes.NewReader(signature), nil)
	}
	if err != nil {
		return "", errors.Wrap(err, "signature verification failed")
	}
	return fingerprint(signer), nil
}

// VerifySignatureFromFile verifies a detached signature stored next to a file
func (v *Verifier) VerifySignatureFromFile(filePath, sigPath string) (string, error) {
	//nolint:gosec // G304: sigPath is user-provided for verification
	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to open signature file")
	}
	//nolint:gosec // G304: filePath is user-provided for verification
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", errors.Wrap(err, "failed to open data file")
	}
	return v.VerifyDetached(data, sig)
}

// GetKeyringSize returns the number of keys in the keyring
func (v *Verifier) GetKeyringSize() int {
	return len(v.keyring)
}

// readKeyRing accepts armored or binary key material
func readKeyRing(data []byte) (openpgp.EntityList, error) {
	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(err, "failed to read key")
		}
	}
	if len(entities) == 0 {
		return nil, errors.New("no keys found in file")
	}
	return entities, nil
}
