// Package correlation implements the light-protocol handover between the
// generic node and a country-specific module: opaque binary tokens that
// redeem cached light requests and responses exactly once, the XML and
// JSON payload codecs, and the anti-replay guard.
package correlation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
)

// tokenSeparator splits the fields of the decoded token string. Ids and
// issuers must not contain it.
const tokenSeparator = "|"

// tokenTimeLayout is the wire form of the token creation instant.
const tokenTimeLayout = "2006-01-02 15:04:05.000"

// TokenCodec encodes and decodes binary light tokens. The token carries
// issuer, id, creation instant, and a keyed digest over all three; the
// shared secret never travels.
type TokenCodec struct {
	issuer string
	secret []byte
}

// NewTokenCodec creates a token codec for the given issuer name and shared
// secret. Both are startup configuration; an empty value is a
// configuration error.
func NewTokenCodec(issuer, secret string) (*TokenCodec, error) {
	if strings.TrimSpace(issuer) == "" {
		return nil, domain.ConfigurationError("token issuer is empty")
	}
	if strings.Contains(issuer, tokenSeparator) {
		return nil, domain.ConfigurationError("token issuer contains the field separator")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, domain.ConfigurationError("token secret is empty")
	}
	return &TokenCodec{issuer: issuer, secret: []byte(secret)}, nil
}

// Encode renders a token as BASE64(issuer|id|createdOn|digest) where the
// digest binds all three fields to the shared secret.
func (c *TokenCodec) Encode(token domain.BinaryLightToken) (string, error) {
	if strings.TrimSpace(token.ID) == "" {
		return "", domain.ValidationError("token id is empty")
	}
	if strings.Contains(token.ID, tokenSeparator) {
		return "", domain.ValidationError("token id contains the field separator")
	}
	createdOn := token.CreatedOn.UTC().Format(tokenTimeLayout)
	digest := c.digest(token.ID, token.Issuer, createdOn)
	raw := strings.Join([]string{token.Issuer, token.ID, createdOn, digest}, tokenSeparator)
	return base64.StdEncoding.EncodeToString([]byte(raw)), nil
}

// Decode parses and authenticates a received token. Any malformed or
// tampered token fails with a communication error carrying no detail about
// which part was wrong.
func (c *TokenCodec) Decode(encoded string) (domain.BinaryLightToken, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return domain.BinaryLightToken{}, domain.CommunicationError("invalid token encoding", err)
	}
	parts := strings.Split(string(raw), tokenSeparator)
	if len(parts) != 4 {
		return domain.BinaryLightToken{}, domain.CommunicationError("invalid token format", nil)
	}
	issuer, id, createdOn, digest := parts[0], parts[1], parts[2], parts[3]

	expected := c.digest(id, issuer, createdOn)
	if !hmac.Equal([]byte(expected), []byte(digest)) {
		return domain.BinaryLightToken{}, domain.CommunicationError("token digest mismatch", nil)
	}
	if issuer != c.issuer {
		return domain.BinaryLightToken{}, domain.CommunicationError("token issuer mismatch", nil)
	}
	created, err := time.Parse(tokenTimeLayout, createdOn)
	if err != nil {
		return domain.BinaryLightToken{}, domain.CommunicationError("invalid token timestamp", err)
	}
	return domain.BinaryLightToken{ID: id, Issuer: issuer, CreatedOn: created}, nil
}

// digest computes BASE64(SHA256(id|issuer|createdOn|secret)).
func (c *TokenCodec) digest(id, issuer, createdOn string) string {
	h := sha256.New()
	h.Write([]byte(id))
	h.Write([]byte(tokenSeparator))
	h.Write([]byte(issuer))
	h.Write([]byte(tokenSeparator))
	h.Write([]byte(createdOn))
	h.Write([]byte(tokenSeparator))
	h.Write(c.secret)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// CacheKey derives the cache key for a token id. Only this irreversible
// digest is used against the store, never the id itself.
func CacheKey(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
