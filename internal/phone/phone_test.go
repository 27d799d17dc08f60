package phone

import (
	"strings"
	"testing"
)

func TestValidate_E164Input(t *testing.T) {
	v := NewValidator("ES")

	target, err := v.Validate("+34911234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !target.Valid {
		t.Fatal("expected valid target")
	}
	if target.E164 != "+34911234567" {
		t.Errorf("expected E164 +34911234567, got %s", target.E164)
	}
	if target.Region != "ES" {
		t.Errorf("expected region ES, got %s", target.Region)
	}
	if !strings.HasPrefix(target.International, "+34 ") {
		t.Errorf("expected international format with +34 prefix, got %s", target.International)
	}
	if target.Raw != "+34911234567" {
		t.Errorf("raw input should be preserved, got %s", target.Raw)
	}
}

func TestValidate_NationalInputUsesDefaultRegion(t *testing.T) {
	v := NewValidator("ES")

	target, err := v.Validate("911234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if target.E164 != "+34911234567" {
		t.Errorf("expected +34911234567 via default region, got %s", target.E164)
	}
}

func TestValidate_ForeignNumberKeepsItsRegion(t *testing.T) {
	v := NewValidator("ES")

	target, err := v.Validate("+442079460000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if target.Region != "GB" {
		t.Errorf("expected region GB, got %s", target.Region)
	}
}

func TestValidate_Invalid(t *testing.T) {
	v := NewValidator("ES")

	tests := []string{
		"",
		"   ",
		"not-a-number",
		"+3412",
	}

	for _, raw := range tests {
		target, err := v.Validate(raw)
		if err == nil {
			t.Errorf("Validate(%q): expected error", raw)
		}
		if target.Valid {
			t.Errorf("Validate(%q): expected invalid target", raw)
		}
		if target.Raw != raw {
			t.Errorf("Validate(%q): raw not preserved, got %q", raw, target.Raw)
		}
	}
}

func TestNewValidator_EmptyRegionDefaults(t *testing.T) {
	v := NewValidator("")

	target, err := v.Validate("911234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Region != "ES" {
		t.Errorf("expected ES default region, got %s", target.Region)
	}
}
