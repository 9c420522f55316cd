//go:build unit

package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestProtocolError_CodeOf(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{"validation", ValidationError("bad"), ErrCodeValidation},
		{"configuration", ConfigurationError("bad"), ErrCodeConfiguration},
		{"metadata", MetadataError("bad", nil), ErrCodeMetadata},
		{"untrusted issuer", UntrustedIssuerError("x"), ErrCodeUntrustedIssuer},
		{"encryption", EncryptionError("bad", nil), ErrCodeEncryption},
		{"signature", SignatureError("bad", nil), ErrCodeSignature},
		{"communication", CommunicationError("bad", nil), ErrCodeCommunication},
		{"replay", ReplayError("m1", "SE"), ErrCodeReplayDetected},
		{"plain error", fmt.Errorf("plain"), ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeOf(tc.err); got != tc.code {
				t.Errorf("CodeOf() = %q, want %q", got, tc.code)
			}
		})
	}
}

func TestProtocolError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := MetadataError("fetch failed", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is must find the wrapped cause")
	}
	if err.Error() != "fetch failed: root cause" {
		t.Errorf("Error() = %q", err.Error())
	}

	bare := ValidationError("bad value")
	if bare.Error() != "bad value" {
		t.Errorf("Error() = %q", bare.Error())
	}
}
