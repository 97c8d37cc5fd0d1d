package domain_test

import (
	"errors"
	"testing"

	"github.com/samirrijal/busticket/internal/core/domain"
)

func TestNewSegment_RejectsEmptyAndReversed(t *testing.T) {
	for _, tc := range []struct{ from, to int }{{3, 3}, {5, 2}, {0, 0}} {
		if _, err := domain.NewSegment(tc.from, tc.to); !errors.Is(err, domain.ErrInvalidSegment) {
			t.Errorf("NewSegment(%d,%d): expected ErrInvalidSegment, got %v", tc.from, tc.to, err)
		}
	}
	s, err := domain.NewSegment(1, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.From != 1 || s.To != 4 {
		t.Errorf("expected [1,4), got %s", s)
	}
}

func TestSegment_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b domain.Segment
		want bool
	}{
		{"identical", domain.Segment{From: 1, To: 3}, domain.Segment{From: 1, To: 3}, true},
		{"contained", domain.Segment{From: 0, To: 10}, domain.Segment{From: 4, To: 5}, true},
		{"partial left", domain.Segment{From: 2, To: 5}, domain.Segment{From: 0, To: 3}, true},
		{"partial right", domain.Segment{From: 2, To: 5}, domain.Segment{From: 4, To: 8}, true},
		{"touching after", domain.Segment{From: 1, To: 3}, domain.Segment{From: 3, To: 6}, false},
		{"touching before", domain.Segment{From: 3, To: 6}, domain.Segment{From: 1, To: 3}, false},
		{"disjoint", domain.Segment{From: 1, To: 2}, domain.Segment{From: 5, To: 7}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("%s overlaps %s = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("overlap not symmetric for %s and %s", tt.a, tt.b)
			}
		})
	}
}
