package request

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/domain/match"
)

func TestNew_Normalizes(t *testing.T) {
	r, err := New("  Energetic\tURBAN  chic ", 3, match.DefaultThresholds(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Query() != "energetic urban chic" {
		t.Errorf("Query() = %q", r.Query())
	}
	if len(r.Tokens()) != 3 {
		t.Errorf("Tokens() = %v", r.Tokens())
	}
	if r.TopK() != 3 {
		t.Errorf("TopK() = %d", r.TopK())
	}
	if r.Thresholds() != match.DefaultThresholds() {
		t.Errorf("Thresholds() = %+v", r.Thresholds())
	}
}

func TestNew_MaxTopKAccepted(t *testing.T) {
	r, err := New("cozy soft", MaxTopK, match.DefaultThresholds(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TopK() != MaxTopK {
		t.Errorf("TopK() = %d, want %d", r.TopK(), MaxTopK)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		topK       int
		thresholds match.Thresholds
		maxLen     int
		want       error
	}{
		{"empty", "", 3, match.DefaultThresholds(), 0, domain.ErrEmptyQuery},
		{"whitespace only", " \t\n", 3, match.DefaultThresholds(), 0, domain.ErrEmptyQuery},
		{"one word", "boho", 3, match.DefaultThresholds(), 0, domain.ErrQueryTooShort},
		{"one word padded", "  boho\x00 ", 3, match.DefaultThresholds(), 0, domain.ErrQueryTooShort},
		{"too long", strings.Repeat("ab ", 20), 3, match.DefaultThresholds(), 10, domain.ErrQueryTooLong},
		{"zero top k", "cozy soft", 0, match.DefaultThresholds(), 0, domain.ErrInvalidTopK},
		{"negative top k", "cozy soft", -1, match.DefaultThresholds(), 0, domain.ErrInvalidTopK},
		{"top k above max", "energetic urban", 500, match.DefaultThresholds(), 0, domain.ErrInvalidTopK},
		{"nan threshold", "cozy soft", 3, match.Thresholds{Fallback: math.NaN(), GoodHit: 0.7}, 0, domain.ErrInvalidThresholds},
		{"inverted thresholds", "cozy soft", 3, match.Thresholds{Fallback: 0.9, GoodHit: 0.1}, 0, domain.ErrInvalidThresholds},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.query, tc.topK, tc.thresholds, tc.maxLen)
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("error %v does not wrap ErrInvalidInput", err)
			}
		})
	}
}

func TestNew_LengthCountsRunes(t *testing.T) {
	// 10 runes, 12 bytes
	q := "café crème"
	if _, err := New(q, 3, match.DefaultThresholds(), 9); !errors.Is(err, domain.ErrQueryTooLong) {
		t.Fatalf("expected ErrQueryTooLong, got %v", err)
	}
	if _, err := New(q, 3, match.DefaultThresholds(), 10); err != nil {
		t.Fatalf("unexpected error at exact limit: %v", err)
	}
}

func TestNew_LengthMeasuredAfterNormalize(t *testing.T) {
	q := "   cozy      soft   "
	if _, err := New(q, 3, match.DefaultThresholds(), 9); err != nil {
		t.Fatalf("padding should not count toward the limit: %v", err)
	}
}
