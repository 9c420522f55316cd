package domain

import "strings"

// NotifiedLoAPrefix is the URI prefix of the three notified eIDAS levels
// of assurance. Any URI under this prefix that does not resolve to one of
// the notified levels is a validation error, never a silent pass-through.
const NotifiedLoAPrefix = "http://eidas.europa.eu/LoA/"

// LevelOfAssurance is the ordinal trust strength of an authentication
// event, expressed as a URI. Notified values are {low, substantial, high};
// everything else is a non-notified level compared only by exact string
// membership, never numerically.
type LevelOfAssurance string

// The three notified levels of assurance.
const (
	LoALow         LevelOfAssurance = NotifiedLoAPrefix + "low"
	LoASubstantial LevelOfAssurance = NotifiedLoAPrefix + "substantial"
	LoAHigh        LevelOfAssurance = NotifiedLoAPrefix + "high"
)

// notifiedOrdinals is the closed lookup table for notified levels, keyed by
// lower-cased trimmed URI. Built once; read-only thereafter.
var notifiedOrdinals = map[string]int{
	strings.ToLower(string(LoALow)):         1,
	strings.ToLower(string(LoASubstantial)): 2,
	strings.ToLower(string(LoAHigh)):        3,
}

// String returns the LoA URI.
func (l LevelOfAssurance) String() string {
	return string(l)
}

// Notified reports whether the LoA URI is under the notified prefix.
// A URI under the prefix may still fail to resolve to a notified level;
// use Ordinal to distinguish.
func (l LevelOfAssurance) Notified() bool {
	return strings.HasPrefix(strings.TrimSpace(string(l)), NotifiedLoAPrefix)
}

// Ordinal returns the numeric rank of a notified LoA (low=1, substantial=2,
// high=3) and true, or 0 and false for any other value.
func (l LevelOfAssurance) Ordinal() (int, bool) {
	ord, ok := notifiedOrdinals[strings.ToLower(strings.TrimSpace(string(l)))]
	return ord, ok
}

// ComparisonMode specifies how a granted LoA must relate to the requested
// LoA. The set is closed; unknown strings do not parse.
type ComparisonMode string

const (
	ComparisonMinimum ComparisonMode = "minimum"
	ComparisonExact   ComparisonMode = "exact"
	ComparisonMaximum ComparisonMode = "maximum"
	ComparisonBetter  ComparisonMode = "better"
)

var comparisonModes = map[string]ComparisonMode{
	"minimum": ComparisonMinimum,
	"exact":   ComparisonExact,
	"maximum": ComparisonMaximum,
	"better":  ComparisonBetter,
}

// ParseComparisonMode looks up a comparison mode from its wire string,
// case-insensitive and trimmed. Returns false for unknown values.
func ParseComparisonMode(s string) (ComparisonMode, bool) {
	m, ok := comparisonModes[strings.ToLower(strings.TrimSpace(s))]
	return m, ok
}

// String returns the wire form of the comparison mode.
func (m ComparisonMode) String() string {
	return string(m)
}

// IsLoASatisfied reports whether the granted LoA satisfies the requested
// LoA under the given comparison mode.
//
// Notified levels compare numerically (low=1 < substantial=2 < high=3):
// minimum requires requested <= granted, exact requires equality, maximum
// requires granted <= requested, better requires granted > requested.
// If either side is non-notified, only exact string equality can satisfy
// the comparison, regardless of mode.
func IsLoASatisfied(requested, granted LevelOfAssurance, mode ComparisonMode) bool {
	reqOrd, reqNotified := requested.Ordinal()
	grantOrd, grantNotified := granted.Ordinal()

	if !reqNotified || !grantNotified {
		// Non-notified levels have no ordering.
		if mode == ComparisonBetter {
			return false
		}
		return strings.TrimSpace(string(requested)) == strings.TrimSpace(string(granted))
	}

	switch mode {
	case ComparisonMinimum:
		return reqOrd <= grantOrd
	case ComparisonExact:
		return reqOrd == grantOrd
	case ComparisonMaximum:
		return grantOrd <= reqOrd
	case ComparisonBetter:
		return grantOrd > reqOrd
	default:
		return false
	}
}

// ValidateGrantedLoA checks a LoA granted on a successful response.
// A value under the notified prefix must resolve to one of the three
// notified levels. A non-notified value must be an exact member of the
// configured allow-list; an empty allow-list rejects all non-notified
// values. This is an operator policy decision, not an engine guess.
func ValidateGrantedLoA(granted LevelOfAssurance, allowedNonNotified []string) error {
	trimmed := strings.TrimSpace(string(granted))
	if trimmed == "" {
		return ValidationError("granted level of assurance is empty")
	}
	if granted.Notified() {
		if _, ok := granted.Ordinal(); !ok {
			return ValidationErrorf("unknown notified level of assurance %q", trimmed)
		}
		return nil
	}
	for _, allowed := range allowedNonNotified {
		if trimmed == allowed {
			return nil
		}
	}
	return ValidationErrorf("non-notified level of assurance %q is not allowed", trimmed)
}
