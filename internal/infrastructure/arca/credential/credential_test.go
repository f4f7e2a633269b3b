package credential

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/eudyespinoza/MyPOS/internal/core/apperror"
)

// testdata/bundle.pfx: self-signed RSA certificate, password "testpass".
const testPassword = "testpass"

func loadTestBundle(t *testing.T) Bundle {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "bundle.pfx"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return Bundle{Data: data, Password: testPassword}
}

func TestExtract_Valid(t *testing.T) {
	mat, err := Extract(loadTestBundle(t))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if mat.Certificate == nil {
		t.Fatal("expected certificate")
	}
	if mat.PrivateKey == nil {
		t.Fatal("expected private key")
	}

	certPEM := mat.CertificatePEM()
	if len(certPEM) == 0 {
		t.Error("empty certificate PEM")
	}
	keyPEM, err := mat.PrivateKeyPEM()
	if err != nil {
		t.Fatalf("key PEM failed: %v", err)
	}
	if len(keyPEM) == 0 {
		t.Error("empty key PEM")
	}
}

func TestExtract_WrongPassword(t *testing.T) {
	bundle := loadTestBundle(t)
	bundle.Password = "not-the-password"

	_, err := Extract(bundle)
	if !apperror.HasCode(err, apperror.CodeCertificate) {
		t.Errorf("expected CERTIFICATE_ERROR, got %v", err)
	}
}

func TestExtract_EmptyBundle(t *testing.T) {
	_, err := Extract(Bundle{})
	if !apperror.HasCode(err, apperror.CodeCertificate) {
		t.Errorf("expected CERTIFICATE_ERROR, got %v", err)
	}
}

func TestExtract_Malformed(t *testing.T) {
	_, err := Extract(Bundle{Data: []byte("definitely not pkcs12"), Password: "x"})
	if !apperror.HasCode(err, apperror.CodeCertificate) {
		t.Errorf("expected CERTIFICATE_ERROR, got %v", err)
	}
}

func TestIdentity_StablePerBundle(t *testing.T) {
	a := Bundle{Data: []byte("bundle-a")}
	b := Bundle{Data: []byte("bundle-b")}

	if a.Identity() != a.Identity() {
		t.Error("identity not stable")
	}
	if a.Identity() == b.Identity() {
		t.Error("distinct bundles share an identity")
	}
}
