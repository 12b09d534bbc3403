package utils

import (
	"reflect"
	"testing"
)

func TestParseMultiValueInput_DedupesCaseInsensitively(t *testing.T) {
	got := ParseMultiValueInput("abc,ABC, Abc")
	want := []string{"abc"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParseMultiValueInput_DropsPlaceholders(t *testing.T) {
	got := ParseMultiValueInput("N/A, --, null, foo")
	want := []string{"foo"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParseMultiValueInput_QuotedValuesKeepDelimiters(t *testing.T) {
	got := ParseMultiValueInput(`A,"B, C";D`)
	want := []string{"A", "B, C", "D"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParseMultiValueInput_SplitsOnNewlines(t *testing.T) {
	got := ParseMultiValueInput("ACC-1\nACC-2;ACC-3")
	want := []string{"ACC-1", "ACC-2", "ACC-3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCanonicalizeMultiValue(t *testing.T) {
	got := CanonicalizeMultiValue(" x ;y,, X ")
	if got != "x, y" {
		t.Fatalf("expected %q, got %q", "x, y", got)
	}
}

func TestIsEmptyMultiValue(t *testing.T) {
	cases := map[string]bool{
		"":            true,
		"  ":          true,
		"n/a, --":     true,
		"none":        true,
		"real-value":  false,
		"n/a, ACC-55": false,
	}
	for input, want := range cases {
		if got := IsEmptyMultiValue(input); got != want {
			t.Fatalf("IsEmptyMultiValue(%q) = %v, want %v", input, got, want)
		}
	}
}
