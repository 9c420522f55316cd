//go:build unit

package domain

import (
	"strings"
	"testing"
)

func TestIsInvalidPayload_SizeBound(t *testing.T) {
	const max = 64

	testCases := []struct {
		name    string
		payload []byte
		invalid bool
	}{
		{"nil is always invalid", nil, true},
		{"empty", []byte{}, false},
		{"exactly max accepted", []byte(strings.Repeat("a", max)), false},
		{"max plus one rejected", []byte(strings.Repeat("a", max+1)), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsInvalidPayload(tc.payload, max); got != tc.invalid {
				t.Errorf("IsInvalidPayload(len=%d) = %v, want %v", len(tc.payload), got, tc.invalid)
			}
		})
	}
}

func TestCheckPayloadSize(t *testing.T) {
	if err := CheckPayloadSize(nil, 10); err == nil {
		t.Error("nil payload must be rejected")
	}
	if err := CheckPayloadSize([]byte("12345678901"), 10); err == nil {
		t.Error("oversized payload must be rejected")
	}
	if err := CheckPayloadSize([]byte("1234567890"), 10); err != nil {
		t.Errorf("payload of exactly max must be accepted: %v", err)
	}
}

func TestLightRequest_Validate(t *testing.T) {
	valid := LightRequest{
		ID:             "req-1",
		Issuer:         "specific-connector",
		CitizenCountry: "SE",
		RequestedLoA:   LoAHigh,
		Comparison:     ComparisonMinimum,
	}

	t.Run("valid", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})

	mutations := []struct {
		name   string
		mutate func(*LightRequest)
	}{
		{"empty id", func(r *LightRequest) { r.ID = "" }},
		{"empty issuer", func(r *LightRequest) { r.Issuer = " " }},
		{"lowercase country", func(r *LightRequest) { r.CitizenCountry = "se" }},
		{"three-letter country", func(r *LightRequest) { r.CitizenCountry = "SWE" }},
		{"empty loa", func(r *LightRequest) { r.RequestedLoA = "" }},
		{"bad comparison", func(r *LightRequest) { r.Comparison = "sometimes" }},
	}

	for _, tc := range mutations {
		t.Run(tc.name, func(t *testing.T) {
			r := valid
			tc.mutate(&r)
			if err := r.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestLightResponse_Validate(t *testing.T) {
	valid := LightResponse{
		ID:           "resp-1",
		InResponseTo: "req-1",
		Issuer:       "specific-proxy",
		Status:       SuccessStatus(),
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	missing := valid
	missing.InResponseTo = ""
	if err := missing.Validate(); err == nil {
		t.Error("missing in-response-to must be rejected")
	}

	badStatus := valid
	badStatus.Status = Status{Code: "urn:bogus", Failure: true}
	if err := badStatus.Validate(); err == nil {
		t.Error("unknown status code must be rejected")
	}
}
