// Package stream pairs frames from a reference and a candidate source.
package stream

import (
	"errors"
	"io"

	"github.com/five82/rdsweep/internal/frame"
)

// Source yields frames in decode order. Next returns io.EOF once the stream
// is exhausted. Close releases any decoder state and is safe to call twice.
type Source interface {
	Next() (*frame.Frame, error)
	Close() error
}

// Pair is the Nth reference frame matched with the Nth candidate frame.
type Pair struct {
	Index     int
	Reference *frame.Frame
	Candidate *frame.Frame
}

// PairReader pulls one frame from each source per step. It stops at the first
// end-of-stream on either side; leftover frames of the longer stream are
// never read.
type PairReader struct {
	ref, cand Source
	index     int
	done      bool
	err       error
}

// NewPairReader creates a reader over two sources. The reader does not own
// the sources; callers close them.
func NewPairReader(ref, cand Source) *PairReader {
	return &PairReader{ref: ref, cand: cand}
}

// Next returns the next pair, or io.EOF when either source ends. Any other
// error is sticky and returned on every later call.
func (r *PairReader) Next() (Pair, error) {
	if r.done {
		if r.err != nil {
			return Pair{}, r.err
		}
		return Pair{}, io.EOF
	}

	ref, err := r.ref.Next()
	if err != nil {
		return Pair{}, r.finish(err)
	}
	cand, err := r.cand.Next()
	if err != nil {
		return Pair{}, r.finish(err)
	}

	p := Pair{Index: r.index, Reference: ref, Candidate: cand}
	r.index++
	return p, nil
}

// Count returns how many pairs have been yielded so far.
func (r *PairReader) Count() int {
	return r.index
}

func (r *PairReader) finish(err error) error {
	r.done = true
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	r.err = err
	return err
}

// SliceSource serves frames from memory.
type SliceSource struct {
	frames []*frame.Frame
	pos    int
	closed bool
}

// NewSliceSource creates a source over the given frames.
func NewSliceSource(frames ...*frame.Frame) *SliceSource {
	return &SliceSource{frames: frames}
}

// Repeat creates a source that yields f n times.
func Repeat(f *frame.Frame, n int) *SliceSource {
	frames := make([]*frame.Frame, n)
	for i := range frames {
		frames[i] = f
	}
	return NewSliceSource(frames...)
}

// Next implements Source.
func (s *SliceSource) Next() (*frame.Frame, error) {
	if s.closed {
		return nil, errors.New("read from closed source")
	}
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// Close implements Source.
func (s *SliceSource) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *SliceSource) Closed() bool {
	return s.closed
}

// Consumed returns how many frames have been read.
func (s *SliceSource) Consumed() int {
	return s.pos
}
