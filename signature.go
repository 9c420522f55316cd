package eidasnode

import (
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/adapters/driven/codec"
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/adapters/driven/keystore"
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/ports"
)

// Re-export the signature and encryption policy surface
type SignaturePolicy = codec.SignaturePolicy
type EncryptionPolicy = codec.EncryptionPolicy
type XMLSigner = ports.XMLSigner
type SignatureVerifier = ports.SignatureVerifier
type KeyStore = ports.KeyStore
type FileKeyStore = keystore.FileKeyStore
type KeyStoreFiles = keystore.Files

// Re-export the default policies and adapters
var (
	DefaultSignaturePolicy  = codec.DefaultSignaturePolicy
	DefaultEncryptionPolicy = codec.DefaultEncryptionPolicy
	NewSigner               = codec.NewSigner
	NewVerifier             = codec.NewVerifier
	LoadKeyStore            = keystore.Load
)

// Re-export the algorithm URI constants
const (
	SignatureRSASHA256   = codec.SignatureRSASHA256
	SignatureRSASHA384   = codec.SignatureRSASHA384
	SignatureRSASHA512   = codec.SignatureRSASHA512
	SignatureECDSASHA256 = codec.SignatureECDSASHA256
	EncryptionAES128GCM  = codec.EncryptionAES128GCM
	EncryptionAES192GCM  = codec.EncryptionAES192GCM
	EncryptionAES256GCM  = codec.EncryptionAES256GCM
)
