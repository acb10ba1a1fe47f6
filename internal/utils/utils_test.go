package utils

import (
	"strings"
	"testing"
)

func TestRandomCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code := RandomCode(6)
		if len(code) != 6 {
			t.Fatalf("expected 6 characters, got %q", code)
		}
		if code != strings.ToUpper(code) {
			t.Fatalf("expected uppercase code, got %q", code)
		}
		for _, c := range code {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Fatalf("character %q outside alphabet", c)
			}
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 90 {
		t.Fatalf("expected mostly unique codes, got %d distinct of 100", len(seen))
	}
}

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		name     string
		amount   float64
		expected int64
	}{
		{"plain decimal", 25.50, 2550},
		{"whole amount", 12, 1200},
		{"float noise rounds", 0.1 + 0.2, 30},
		{"sub-cent rounds", 9.999, 1000},
		{"zero", 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MinorUnits(tc.amount); got != tc.expected {
				t.Fatalf("expected %d, got %d", tc.expected, got)
			}
		})
	}
}
