package password

import "testing"

func TestHashAndCompare(t *testing.T) {
	hash, err := Hash("correct horse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "correct horse" {
		t.Fatalf("expected hash to differ from the plain password")
	}
	if err := Compare(hash, "correct horse"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := Compare(hash, "wrong horse"); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestHash_RejectsShortPasswords(t *testing.T) {
	if _, err := Hash("short"); err != ErrTooShort {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
}
