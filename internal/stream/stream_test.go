package stream

import (
	"errors"
	"io"
	"testing"

	"github.com/five82/rdsweep/internal/frame"
)

func drain(t *testing.T, r *PairReader) []Pair {
	t.Helper()
	var pairs []Pair
	for {
		p, err := r.Next()
		if errors.Is(err, io.EOF) {
			return pairs
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		pairs = append(pairs, p)
	}
}

func TestPairReaderTruncates(t *testing.T) {
	tests := []struct {
		name      string
		refLen    int
		candLen   int
		wantPairs int
	}{
		{"longer reference", 5, 3, 3},
		{"longer candidate", 2, 6, 2},
		{"equal", 4, 4, 4},
		{"empty reference", 0, 3, 0},
		{"empty candidate", 3, 0, 0},
	}

	f := frame.Solid(8, 8, 1, 2, 3)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := Repeat(f, tt.refLen)
			cand := Repeat(f, tt.candLen)
			r := NewPairReader(ref, cand)

			pairs := drain(t, r)
			if len(pairs) != tt.wantPairs {
				t.Errorf("got %d pairs, want %d", len(pairs), tt.wantPairs)
			}
			if r.Count() != tt.wantPairs {
				t.Errorf("Count() = %d, want %d", r.Count(), tt.wantPairs)
			}
			for i, p := range pairs {
				if p.Index != i {
					t.Errorf("pairs[%d].Index = %d", i, p.Index)
				}
			}

			// Exhausted reader keeps returning EOF.
			if _, err := r.Next(); !errors.Is(err, io.EOF) {
				t.Errorf("Next() after end = %v, want io.EOF", err)
			}
		})
	}
}

func TestPairReaderPreservesOrder(t *testing.T) {
	refs := []*frame.Frame{frame.Solid(8, 8, 1, 1, 1), frame.Solid(8, 8, 2, 2, 2)}
	cands := []*frame.Frame{frame.Solid(4, 4, 9, 9, 9), frame.Solid(4, 4, 8, 8, 8)}
	r := NewPairReader(NewSliceSource(refs...), NewSliceSource(cands...))

	pairs := drain(t, r)
	for i, p := range pairs {
		if p.Reference != refs[i] || p.Candidate != cands[i] {
			t.Errorf("pair %d is not reference[%d] with candidate[%d]", i, i, i)
		}
	}
}

type failingSource struct {
	after int
	n     int
}

func (s *failingSource) Next() (*frame.Frame, error) {
	if s.n >= s.after {
		return nil, errors.New("decoder died")
	}
	s.n++
	return frame.Solid(8, 8, 0, 0, 0), nil
}

func (s *failingSource) Close() error { return nil }

func TestPairReaderStickyError(t *testing.T) {
	r := NewPairReader(Repeat(frame.Solid(8, 8, 0, 0, 0), 5), &failingSource{after: 2})

	for i := 0; i < 2; i++ {
		if _, err := r.Next(); err != nil {
			t.Fatalf("Next() #%d error = %v", i, err)
		}
	}
	_, err := r.Next()
	if err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("Next() error = %v, want decoder error", err)
	}
	if _, again := r.Next(); again != err {
		t.Errorf("second Next() error = %v, want sticky %v", again, err)
	}
}

func TestSliceSourceClose(t *testing.T) {
	s := NewSliceSource(frame.Solid(8, 8, 0, 0, 0))
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if !s.Closed() {
		t.Error("Closed() = false after Close")
	}
	if _, err := s.Next(); err == nil {
		t.Error("Next() on closed source should fail")
	}
}
