package utils

import "testing"

func TestNormalizePhoneNumber_FormatsToE164(t *testing.T) {
	cases := map[string]string{
		"(650) 253-0000":  "+16502530000",
		"650-253-0000":    "+16502530000",
		"+1 650 253 0000": "+16502530000",
	}
	for input, want := range cases {
		got, err := NormalizePhoneNumber(input, "US")
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", input, err)
		}
		if got != want {
			t.Fatalf("%q: expected %s, got %s", input, want, got)
		}
	}
}

func TestNormalizePhoneNumber_BlankPassesThrough(t *testing.T) {
	got, err := NormalizePhoneNumber("   ", "US")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestNormalizePhoneNumber_RejectsInvalidNumber(t *testing.T) {
	if _, err := NormalizePhoneNumber("12345", "US"); err == nil {
		t.Fatal("expected an error for a too-short number")
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	if err := ValidatePhoneNumber("+16502530000", "US"); err != nil {
		t.Fatalf("valid number rejected: %v", err)
	}
	if err := ValidatePhoneNumber("000", "US"); err == nil {
		t.Fatal("expected an error for an invalid number")
	}
}
