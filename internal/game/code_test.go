package game

import (
	"strings"
	"testing"
)

func TestNewCodeShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := NewCode()
		if len(code) != CodeLength {
			t.Fatalf("expected %d chars, got %q", CodeLength, code)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q contains %q outside alphabet", code, r)
			}
		}
	}
}

func TestNewCodeVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[NewCode()] = true
	}
	// 36^6 combinations; 50 draws colliding down to a single value would
	// mean the generator is broken.
	if len(seen) < 2 {
		t.Fatalf("expected varied codes, got %d distinct", len(seen))
	}
}
