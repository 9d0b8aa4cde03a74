package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLifetime(t *testing.T) {
	valid := map[string]time.Duration{
		"3600":                time.Hour,
		"24 * 60 * 60":        24 * time.Hour,
		"(2 * 30) * 60":       time.Hour,
		"  7 *\t(24*60*60)  ": 7 * 24 * time.Hour,
		"1":                   time.Second,
	}
	for expr, want := range valid {
		got, err := ParseLifetime(expr)
		require.NoErrorf(t, err, "expr %q", expr)
		assert.Equal(t, want, got, expr)
	}

	invalid := []string{
		"",
		"   ",
		"0",
		"60 + 60",
		"60 / 2",
		"2 ** 40",
		"1e9",
		"os.Exit(1)",
		"60; 70",
		"(60",
		"60)",
		"999999999999",
		"-60",
	}
	for _, expr := range invalid {
		_, err := ParseLifetime(expr)
		assert.ErrorIsf(t, err, ErrInvalidLifetime, "expr %q", expr)
	}
}

func FuzzParseLifetime(f *testing.F) {
	for _, seed := range []string{"3600", "24 * 60 * 60", "(1)", "1*(2*(3))", "a", "1+1", "**", "((((", "0*5", "9999999999"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, expr string) {
		d, err := ParseLifetime(expr)
		if err != nil {
			if !errors.Is(err, ErrInvalidLifetime) {
				t.Fatalf("unexpected error type for %q: %v", expr, err)
			}
			return
		}
		for _, r := range expr {
			switch {
			case r >= '0' && r <= '9', r == '*', r == '(', r == ')', r == ' ', r == '\t', r == '\n', r == '\r':
			default:
				t.Fatalf("accepted forbidden rune %q in %q", r, expr)
			}
		}
		if d < time.Second || d > maxLifetimeSeconds*time.Second {
			t.Fatalf("out of range lifetime %v for %q", d, expr)
		}
	})
}
