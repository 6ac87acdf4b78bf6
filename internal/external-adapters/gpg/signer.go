package gpg

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/cockroachdb/errors"
)

// Signer produces armored detached signatures with a private key
type Signer struct {
	entity *openpgp.Entity
}

// NewSigner builds a signer from an entity that holds a decrypted private key
func NewSigner(entity *openpgp.Entity) (*Signer, error) {
	if entity == nil || entity.PrivateKey == nil {
		return nil, errors.New("entity has no private key")
	}
	if entity.PrivateKey.Encrypted {
		return nil, errors.New("private key is encrypted")
	}
	return &Signer{entity: entity}, nil
}

// LoadSigner reads the first private key of an armored or binary keyring file
// and decrypts it with passphrase when it is protected.
func LoadSigner(keyPath string, passphrase []byte) (*Signer, error) {
	//nolint:gosec // G304: keyPath is user-provided signing key
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open key file")
	}

	entities, err := readKeyRing(data)
	if err != nil {
		return nil, err
	}

	for _, entity := range entities {
		if entity.PrivateKey == nil {
			continue
		}
		if entity.PrivateKey.Encrypted {
			if len(passphrase) == 0 {
				return nil, errors.New("private key is encrypted and no passphrase was given")
			}
			if err := entity.DecryptPrivateKeys(passphrase); err != nil {
				return nil, errors.Wrap(err, "failed to decrypt private key")
			}
		}
		return NewSigner(entity)
	}
	return nil, errors.Newf("no private key found in %s", keyPath)
}

// Sign returns an ASCII-armored detached signature over data
func (s *Signer) Sign(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&buf, s.entity, bytes.NewReader(data), nil); err != nil {
		return nil, errors.Wrap(err, "failed to sign")
	}
	return buf.Bytes(), nil
}

// Fingerprint returns the signing key fingerprint in upper-case hex
func (s *Signer) Fingerprint() string {
	return fingerprint(s.entity)
}

func fingerprint(e *openpgp.Entity) string {
	return fmt.Sprintf("%X", e.PrimaryKey.Fingerprint)
}
