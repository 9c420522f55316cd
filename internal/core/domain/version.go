package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ProtocolVersion identifies the eIDAS protocol version advertised by a
// node. Versions with different major numbers do not interoperate.
type ProtocolVersion struct {
	Major int
	Minor int
}

// Known protocol versions.
var (
	ProtocolVersion11 = ProtocolVersion{Major: 1, Minor: 1}
	ProtocolVersion12 = ProtocolVersion{Major: 1, Minor: 2}
)

// ParseProtocolVersion parses a "major.minor" version string.
func ParseProtocolVersion(s string) (ProtocolVersion, error) {
	trimmed := strings.TrimSpace(s)
	parts := strings.Split(trimmed, ".")
	if len(parts) != 2 {
		return ProtocolVersion{}, ValidationErrorf("invalid protocol version %q", trimmed)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil || major < 0 {
		return ProtocolVersion{}, ValidationErrorf("invalid protocol version %q", trimmed)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil || minor < 0 {
		return ProtocolVersion{}, ValidationErrorf("invalid protocol version %q", trimmed)
	}
	return ProtocolVersion{Major: major, Minor: minor}, nil
}

// String returns the "major.minor" form.
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// IsZero reports whether the version is unset.
func (v ProtocolVersion) IsZero() bool {
	return v.Major == 0 && v.Minor == 0
}

// CompatibleWith reports whether a message carrying version other can be
// processed by a node speaking version v: the major versions must match
// exactly, and the message's minor version must not exceed ours.
func (v ProtocolVersion) CompatibleWith(other ProtocolVersion) bool {
	if v.Major != other.Major {
		return false
	}
	return other.Minor <= v.Minor
}
