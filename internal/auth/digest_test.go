package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestDigest_Deterministic(t *testing.T) {
	t.Parallel()

	d := NewDigester("pepper")
	a, err := d.Digest("secret-key")
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}
	b, err := d.Digest("secret-key")
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}
	if a != b {
		t.Error("same key and pepper should produce same digest")
	}
	if len(a) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(a))
	}
}

func TestDigest_PepperChangesOutput(t *testing.T) {
	t.Parallel()

	plain, _ := NewDigester("").Digest("secret-key")
	peppered, _ := NewDigester("pepper").Digest("secret-key")
	other, _ := NewDigester("other").Digest("secret-key")

	if plain == peppered || peppered == other {
		t.Error("different peppers should produce different digests")
	}
}

func TestDigest_LongPepper(t *testing.T) {
	t.Parallel()

	d := NewDigester(strings.Repeat("p", 200))
	if _, err := d.Digest("secret-key"); err != nil {
		t.Fatalf("Digest with long pepper failed: %v", err)
	}
}

func TestDigest_EmptyKey(t *testing.T) {
	t.Parallel()

	_, err := NewDigester("pepper").Digest("")
	if !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
}
