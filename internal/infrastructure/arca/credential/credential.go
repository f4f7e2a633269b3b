// Package credential extracts signing material from opaque PKCS#12 bundles.
// Extraction is purely in-memory: Go's crypto stack signs without the
// temporary-file round-trip an external signing tool would require, so no
// decrypted key material ever touches disk.
package credential

import (
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/pkcs12"

	"github.com/eudyespinoza/MyPOS/internal/core/apperror"
)

// Bundle is an opaque credential container plus its password.
// Owned by configuration storage; read-only here.
type Bundle struct {
	Data     []byte
	Password string
}

// Identity derives a stable identifier for the bundle, used to key the
// ticket cache. A replaced certificate naturally gets a fresh identity.
func (b Bundle) Identity() string {
	sum := sha256.Sum256(b.Data)
	return hex.EncodeToString(sum[:16])
}

// Material is the extracted signing material. Transient, per-call; callers
// must not retain it beyond the signing operation.
type Material struct {
	Certificate *x509.Certificate
	PrivateKey  crypto.PrivateKey
}

// Extract decodes the PKCS#12 bundle into certificate and private key.
// Fails with a CERTIFICATE_ERROR when the bundle is missing, malformed or
// the password is wrong.
func Extract(bundle Bundle) (*Material, error) {
	if len(bundle.Data) == 0 {
		return nil, apperror.NewCertificate("credential bundle is empty", nil)
	}

	key, cert, err := pkcs12.Decode(bundle.Data, bundle.Password)
	if err != nil {
		return nil, apperror.NewCertificate("failed to decode credential bundle", err)
	}
	if cert == nil {
		return nil, apperror.NewCertificate("credential bundle contains no certificate", nil)
	}

	return &Material{Certificate: cert, PrivateKey: key}, nil
}

// CertificatePEM renders the certificate in PEM form.
func (m *Material) CertificatePEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: m.Certificate.Raw})
}

// PrivateKeyPEM renders the private key in PKCS#8 PEM form.
func (m *Material) PrivateKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(m.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
