// Package keystore loads PEM credential files into the KeyStore port.
package keystore

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/ports"
)

// FileKeyStore loads credentials once at construction and serves them
// read-only thereafter.
type FileKeyStore struct {
	signingKey     crypto.PrivateKey
	signingCert    *x509.Certificate
	decryptionKey  crypto.PrivateKey
	decryptionCert *x509.Certificate
	trustAnchors   []*x509.Certificate
}

// Files names the PEM files a key store is built from. DecryptionKeyFile
// may be empty for engines that never receive encrypted assertions;
// TrustAnchorsFile may be empty when metadata signature verification is
// disabled.
type Files struct {
	SigningKeyFile     string
	SigningCertFile    string
	DecryptionKeyFile  string
	DecryptionCertFile string
	TrustAnchorsFile   string
}

// Load reads and parses the credential files. Any unreadable or
// unparseable file is a configuration error.
func Load(files Files) (*FileKeyStore, error) {
	ks := &FileKeyStore{}

	key, err := loadPrivateKey(files.SigningKeyFile)
	if err != nil {
		return nil, err
	}
	cert, err := loadCertificate(files.SigningCertFile)
	if err != nil {
		return nil, err
	}
	ks.signingKey = key
	ks.signingCert = cert

	if files.DecryptionKeyFile != "" {
		ks.decryptionKey, err = loadPrivateKey(files.DecryptionKeyFile)
		if err != nil {
			return nil, err
		}
		if files.DecryptionCertFile != "" {
			ks.decryptionCert, err = loadCertificate(files.DecryptionCertFile)
			if err != nil {
				return nil, err
			}
		}
	}

	if files.TrustAnchorsFile != "" {
		ks.trustAnchors, err = loadCertificates(files.TrustAnchorsFile)
		if err != nil {
			return nil, err
		}
	}
	return ks, nil
}

// SigningKeyPair returns the message-signing credential.
func (ks *FileKeyStore) SigningKeyPair() (crypto.PrivateKey, *x509.Certificate, error) {
	return ks.signingKey, ks.signingCert, nil
}

// DecryptionKeyPair returns the assertion-decryption credential. Both
// values are nil when no decryption credential is configured.
func (ks *FileKeyStore) DecryptionKeyPair() (crypto.PrivateKey, *x509.Certificate, error) {
	return ks.decryptionKey, ks.decryptionCert, nil
}

// TrustAnchors returns the metadata-verification certificates.
func (ks *FileKeyStore) TrustAnchors() []*x509.Certificate {
	return ks.trustAnchors
}

func loadPrivateKey(path string) (crypto.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ConfigurationError("read key file: " + err.Error())
	}
	for {
		block, rest := pem.Decode(data)
		if block == nil {
			break
		}
		switch block.Type {
		case "PRIVATE KEY":
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, domain.ConfigurationError("parse private key: " + err.Error())
			}
			return key, nil
		case "RSA PRIVATE KEY":
			key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, domain.ConfigurationError("parse RSA private key: " + err.Error())
			}
			return key, nil
		case "EC PRIVATE KEY":
			key, err := x509.ParseECPrivateKey(block.Bytes)
			if err != nil {
				return nil, domain.ConfigurationError("parse EC private key: " + err.Error())
			}
			return key, nil
		}
		data = rest
	}
	return nil, domain.ConfigurationError("no private key found in " + path)
}

func loadCertificate(path string) (*x509.Certificate, error) {
	certs, err := loadCertificates(path)
	if err != nil {
		return nil, err
	}
	return certs[0], nil
}

// loadCertificates reads all certificates in a PEM file. Multiple
// certificates in one file support rotation scenarios.
func loadCertificates(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ConfigurationError("read certificate file: " + err.Error())
	}
	var certs []*x509.Certificate
	for {
		block, rest := pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, domain.ConfigurationError("parse certificate: " + err.Error())
			}
			certs = append(certs, cert)
		}
		data = rest
	}
	if len(certs) == 0 {
		return nil, domain.ConfigurationError("no certificates found in " + path)
	}
	return certs, nil
}

var _ ports.KeyStore = (*FileKeyStore)(nil)
