package utils

import "testing"

func TestHashPassword_RoundTrip(t *testing.T) {
	hashed, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hashed == "s3cret-pass" {
		t.Fatal("hash must not equal the plaintext")
	}
	if err := ComparePassword(hashed, "s3cret-pass"); err != nil {
		t.Fatalf("compare with correct password: %v", err)
	}
	if err := ComparePassword(hashed, "wrong-pass"); err == nil {
		t.Fatal("expected an error for a wrong password")
	}
}
