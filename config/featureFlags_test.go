package config

import "testing"

func TestOutboxDispatchDisabled(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"false": false,
		"0":     false,
		"true":  true,
		"TRUE":  true,
		" yes ": true,
		"1":     true,
	}
	for value, want := range cases {
		t.Setenv("OUTBOX_DISPATCH_DISABLED", value)
		if got := OutboxDispatchDisabled(); got != want {
			t.Fatalf("OUTBOX_DISPATCH_DISABLED=%q: expected %v, got %v", value, want, got)
		}
	}
}

func TestAutoFillDisabled(t *testing.T) {
	t.Setenv("AUTO_FILL_DISABLED", "true")
	if !AutoFillDisabled() {
		t.Fatal("expected auto fill disabled")
	}
	t.Setenv("AUTO_FILL_DISABLED", "")
	if AutoFillDisabled() {
		t.Fatal("expected auto fill enabled by default")
	}
}
