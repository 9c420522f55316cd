//go:build unit

package keystore

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
)

func writeTestCredential(t *testing.T, dir, name string) (keyFile, certFile string, key *rsa.PrivateKey, cert *x509.Certificate) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "Test Certificate"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	cert, err = x509.ParseCertificate(certDER)
	if err != nil {
		t.Fatal(err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	keyFile = filepath.Join(dir, name+"-key.pem")
	certFile = filepath.Join(dir, name+"-cert.pem")
	writePEM(t, keyFile, "PRIVATE KEY", keyDER)
	writePEM(t, certFile, "CERTIFICATE", certDER)
	return keyFile, certFile, key, cert
}

func writePEM(t *testing.T, path, blockType string, der []byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_SigningOnly(t *testing.T) {
	dir := t.TempDir()
	keyFile, certFile, key, cert := writeTestCredential(t, dir, "signing")

	ks, err := Load(Files{SigningKeyFile: keyFile, SigningCertFile: certFile})
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}

	gotKey, gotCert, err := ks.SigningKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	rsaKey, ok := gotKey.(*rsa.PrivateKey)
	if !ok || !rsaKey.Equal(key) {
		t.Error("signing key does not round-trip")
	}
	if !gotCert.Equal(cert) {
		t.Error("signing certificate does not round-trip")
	}

	decKey, decCert, err := ks.DecryptionKeyPair()
	if err != nil || decKey != nil || decCert != nil {
		t.Error("no decryption credential was configured")
	}
	if ks.TrustAnchors() != nil {
		t.Error("no trust anchors were configured")
	}
}

func TestLoad_FullCredentialSet(t *testing.T) {
	dir := t.TempDir()
	signKey, signCert, _, _ := writeTestCredential(t, dir, "signing")
	decKey, decCert, _, wantDecCert := writeTestCredential(t, dir, "decryption")
	_, anchorsFile, _, anchorCert := writeTestCredential(t, dir, "anchor")

	ks, err := Load(Files{
		SigningKeyFile:     signKey,
		SigningCertFile:    signCert,
		DecryptionKeyFile:  decKey,
		DecryptionCertFile: decCert,
		TrustAnchorsFile:   anchorsFile,
	})
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}

	gotKey, gotCert, err := ks.DecryptionKeyPair()
	if err != nil || gotKey == nil {
		t.Fatal("decryption credential missing")
	}
	if !gotCert.Equal(wantDecCert) {
		t.Error("decryption certificate does not round-trip")
	}
	anchors := ks.TrustAnchors()
	if len(anchors) != 1 || !anchors[0].Equal(anchorCert) {
		t.Errorf("trust anchors = %d", len(anchors))
	}
}

func TestLoad_MultipleTrustAnchors(t *testing.T) {
	dir := t.TempDir()
	signKey, signCert, _, _ := writeTestCredential(t, dir, "signing")
	_, firstFile, _, _ := writeTestCredential(t, dir, "first")
	_, secondFile, _, _ := writeTestCredential(t, dir, "second")

	// Two certificates concatenated in one file, as during rotation.
	first, err := os.ReadFile(firstFile)
	if err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(secondFile)
	if err != nil {
		t.Fatal(err)
	}
	anchorsFile := filepath.Join(dir, "anchors.pem")
	if err := os.WriteFile(anchorsFile, append(first, second...), 0o600); err != nil {
		t.Fatal(err)
	}

	ks, err := Load(Files{
		SigningKeyFile:   signKey,
		SigningCertFile:  signCert,
		TrustAnchorsFile: anchorsFile,
	})
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if len(ks.TrustAnchors()) != 2 {
		t.Errorf("trust anchors = %d, want 2", len(ks.TrustAnchors()))
	}
}

func TestLoad_ECKey(t *testing.T) {
	dir := t.TempDir()
	_, certFile, _, _ := writeTestCredential(t, dir, "signing")

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalECPrivateKey(ecKey)
	if err != nil {
		t.Fatal(err)
	}
	keyFile := filepath.Join(dir, "ec-key.pem")
	writePEM(t, keyFile, "EC PRIVATE KEY", der)

	ks, err := Load(Files{SigningKeyFile: keyFile, SigningCertFile: certFile})
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	key, _, _ := ks.SigningKeyPair()
	if _, ok := key.(*ecdsa.PrivateKey); !ok {
		t.Errorf("key type = %T, want *ecdsa.PrivateKey", key)
	}
}

func TestLoad_Failures(t *testing.T) {
	dir := t.TempDir()
	keyFile, certFile, _, _ := writeTestCredential(t, dir, "signing")

	garbage := filepath.Join(dir, "garbage.pem")
	if err := os.WriteFile(garbage, []byte("not pem at all"), 0o600); err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name  string
		files Files
	}{
		{"missing key file", Files{SigningKeyFile: filepath.Join(dir, "absent.pem"), SigningCertFile: certFile}},
		{"missing cert file", Files{SigningKeyFile: keyFile, SigningCertFile: filepath.Join(dir, "absent.pem")}},
		{"garbage key file", Files{SigningKeyFile: garbage, SigningCertFile: certFile}},
		{"garbage cert file", Files{SigningKeyFile: keyFile, SigningCertFile: garbage}},
		{"garbage anchors file", Files{SigningKeyFile: keyFile, SigningCertFile: certFile, TrustAnchorsFile: garbage}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.files)
			if err == nil {
				t.Fatal("want configuration error")
			}
			if domain.CodeOf(err) != domain.ErrCodeConfiguration {
				t.Errorf("error code = %q, want configuration_error", domain.CodeOf(err))
			}
		})
	}
}
