package giftcard

import (
	"strings"
	"testing"
)

func TestGenerateShape(t *testing.T) {
	gen := NewGenerator("nova", 12)

	code, err := gen.Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if !strings.HasPrefix(code, "NOVA-") {
		t.Fatalf("expected uppercase prefix, got %q", code)
	}

	// NOVA + 3 groups of 4 with separators
	if len(code) != len("NOVA")+3+12 {
		t.Fatalf("unexpected code length: %q", code)
	}

	for _, part := range strings.Split(code, "-")[1:] {
		if len(part) != codeGroupSize {
			t.Fatalf("unexpected group size in %q", code)
		}
		for i := 0; i < len(part); i++ {
			if !strings.ContainsRune(codeAlphabet, rune(part[i])) {
				t.Fatalf("character %q outside alphabet in %q", part[i], code)
			}
		}
	}
}

func TestGenerateMinimumLength(t *testing.T) {
	gen := NewGenerator("NOVA", 2)

	code, err := gen.Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	// length below 8 is bumped to 8
	if len(code) != len("NOVA")+2+8 {
		t.Fatalf("expected 8-character suffix, got %q", code)
	}
}

func TestGenerateCharacterDistribution(t *testing.T) {
	gen := NewGenerator("NOVA", 31)

	counts := make(map[byte]int, len(codeAlphabet))
	const rounds = 2000
	for i := 0; i < rounds; i++ {
		code, err := gen.Generate()
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		for j := len("NOVA"); j < len(code); j++ {
			if code[j] == '-' {
				continue
			}
			counts[code[j]]++
		}
	}

	// 31*2000 samples over 31 characters: expect ~2000 each. A wide
	// tolerance still catches a skewed sampler.
	mean := rounds
	for i := 0; i < len(codeAlphabet); i++ {
		c := counts[codeAlphabet[i]]
		if c < mean*7/10 || c > mean*13/10 {
			t.Fatalf("character %q drawn %d times, expected around %d", codeAlphabet[i], c, mean)
		}
	}
}

func TestGenerateUniqueness(t *testing.T) {
	gen := NewGenerator("NOVA", 12)

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		code, err := gen.Generate()
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate code generated: %q", code)
		}
		seen[code] = struct{}{}
	}
}
