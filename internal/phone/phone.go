package phone

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Target is the validated, canonical form of one input phone number.
// It is produced once by a Validator and never mutated afterwards.
type Target struct {
	// Raw is the input string exactly as provided.
	Raw string `json:"raw"`
	// E164 is the canonical +<country><number> form, empty if invalid.
	E164 string `json:"e164"`
	// International is the human-readable international format, empty if invalid.
	International string `json:"international"`
	// Region is the ISO 3166-1 alpha-2 region code, empty if invalid.
	Region string `json:"region"`
	// Valid reports whether the number parsed as a real, diallable number.
	Valid bool `json:"valid"`
}

// Validator parses raw phone numbers into Targets. Numbers without a leading
// "+" are interpreted against DefaultRegion.
type Validator struct {
	defaultRegion string
}

// NewValidator creates a validator. An empty region defaults to "ES".
func NewValidator(defaultRegion string) *Validator {
	if defaultRegion == "" {
		defaultRegion = "ES"
	}
	return &Validator{defaultRegion: strings.ToUpper(defaultRegion)}
}

// Validate parses raw into a Target. Unparsable or invalid numbers yield a
// Target with Valid=false and the raw input preserved; the error describes
// why. Callers deciding per-number flow should branch on Target.Valid.
func (v *Validator) Validate(raw string) (Target, error) {
	t := Target{Raw: raw}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return t, fmt.Errorf("phone: empty number")
	}

	parsed, err := phonenumbers.Parse(trimmed, v.defaultRegion)
	if err != nil {
		return t, fmt.Errorf("phone: parse %q: %w", raw, err)
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return t, fmt.Errorf("phone: %q is not a valid number", raw)
	}

	t.E164 = phonenumbers.Format(parsed, phonenumbers.E164)
	t.International = phonenumbers.Format(parsed, phonenumbers.INTERNATIONAL)
	t.Region = phonenumbers.GetRegionCodeForNumber(parsed)
	t.Valid = true
	return t, nil
}
