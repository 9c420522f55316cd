//go:build unit

package domain

import "testing"

func validRequest() AuthenticationRequest {
	attrs := NewAttributeSet()
	registry := StandardRegistry()
	def, _ := registry.ByFriendlyName("FamilyName")
	attrs.Add(def)

	return AuthenticationRequest{
		ID:                  "req-1",
		Issuer:              "https://connector.example.eu/metadata",
		Destination:         "https://proxy.example.eu/sso",
		CitizenCountry:      "SE",
		RequestedLoA:        LoASubstantial,
		Comparison:          ComparisonMinimum,
		RequestedAttributes: attrs,
		Version:             ProtocolVersion12,
	}
}

func TestAuthenticationRequest_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		r := validRequest()
		if err := r.Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})

	mutations := []struct {
		name   string
		mutate func(*AuthenticationRequest)
	}{
		{"empty id", func(r *AuthenticationRequest) { r.ID = "" }},
		{"relative issuer", func(r *AuthenticationRequest) { r.Issuer = "connector/metadata" }},
		{"empty destination", func(r *AuthenticationRequest) { r.Destination = "" }},
		{"bad country", func(r *AuthenticationRequest) { r.CitizenCountry = "Sweden" }},
		{"empty loa", func(r *AuthenticationRequest) { r.RequestedLoA = "" }},
		{"unknown notified loa", func(r *AuthenticationRequest) { r.RequestedLoA = NotifiedLoAPrefix + "extreme" }},
		{"bad comparison", func(r *AuthenticationRequest) { r.Comparison = "roughly" }},
		{"bad sp type", func(r *AuthenticationRequest) { r.SPType = "governmental" }},
		{"no attributes", func(r *AuthenticationRequest) { r.RequestedAttributes = NewAttributeSet() }},
	}

	for _, tc := range mutations {
		t.Run(tc.name, func(t *testing.T) {
			r := validRequest()
			tc.mutate(&r)
			if err := r.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
			if _, err := NewAuthenticationRequest(r); err == nil {
				t.Error("NewAuthenticationRequest must reject an invalid request")
			}
		})
	}
}

func TestAuthenticationResponse_Validate(t *testing.T) {
	policy := ResponseValidationPolicy{}

	success := AuthenticationResponse{
		ID:           "resp-1",
		InResponseTo: "req-1",
		Issuer:       "https://proxy.example.eu/metadata",
		Status:       SuccessStatus(),
		GrantedLoA:   LoAHigh,
		Attributes:   NewAttributeSet(),
	}
	if err := success.Validate(policy); err != nil {
		t.Errorf("success response: Validate() = %v, want nil", err)
	}

	// On failure the LoA and attributes may be absent.
	failure := AuthenticationResponse{
		ID:           "resp-2",
		InResponseTo: "req-1",
		Issuer:       "https://proxy.example.eu/metadata",
		Status:       FailureStatus(StatusResponder, SubStatusAuthnFailed, "authentication failed"),
	}
	if err := failure.Validate(policy); err != nil {
		t.Errorf("failure response: Validate() = %v, want nil", err)
	}

	noLoA := success
	noLoA.GrantedLoA = ""
	if err := noLoA.Validate(policy); err == nil {
		t.Error("success without granted LoA must be rejected")
	}

	badLoA := success
	badLoA.GrantedLoA = NotifiedLoAPrefix + "extreme"
	if err := badLoA.Validate(policy); err == nil {
		t.Error("unknown value under the notified prefix must be rejected, not passed through")
	}
}

func TestProtocolVersion_CompatibleWith(t *testing.T) {
	testCases := []struct {
		name  string
		ours  ProtocolVersion
		other ProtocolVersion
		want  bool
	}{
		{"same version", ProtocolVersion12, ProtocolVersion12, true},
		{"older minor", ProtocolVersion12, ProtocolVersion11, true},
		{"newer minor", ProtocolVersion11, ProtocolVersion12, false},
		{"different major", ProtocolVersion{Major: 2, Minor: 0}, ProtocolVersion12, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ours.CompatibleWith(tc.other); got != tc.want {
				t.Errorf("%s.CompatibleWith(%s) = %v, want %v", tc.ours, tc.other, got, tc.want)
			}
		})
	}
}

func TestParseProtocolVersion(t *testing.T) {
	v, err := ParseProtocolVersion(" 1.2 ")
	if err != nil || v != ProtocolVersion12 {
		t.Errorf("ParseProtocolVersion = (%v, %v)", v, err)
	}
	for _, bad := range []string{"", "1", "1.2.3", "a.b", "-1.0"} {
		if _, err := ParseProtocolVersion(bad); err == nil {
			t.Errorf("ParseProtocolVersion(%q) must fail", bad)
		}
	}
}
