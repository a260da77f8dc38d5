package bulletproofs

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bwesterb/go-ristretto"
)

// msmTermSize is the bookkeeping cost charged against scratch space for
// each term of a multi-scalar multiplication: one scalar, one point, and
// slot overhead.
const msmTermSize = 96

// Scratch is a caller-owned bounded memory arena. Verification sizes its
// single multi-scalar multiplication against the arena and fails cleanly,
// rather than growing it, when the arena is too small. A Scratch is owned
// by at most one in-flight verification at a time; concurrent verifies
// need independent instances.
type Scratch struct {
	size  uint64
	inUse atomic.Bool
}

func NewScratch(maxBytes uint64) *Scratch {
	return &Scratch{size: maxBytes}
}

// checkout claims exclusive use of the arena for one verification.
func (s *Scratch) checkout() error {
	if s == nil {
		return errors.New("nil scratch space")
	}
	if !s.inUse.CompareAndSwap(false, true) {
		return errors.New("scratch space already in use")
	}
	return nil
}

func (s *Scratch) release() {
	s.inUse.Store(false)
}

// reserve checks that a multi-scalar multiplication with the given number
// of terms fits in the arena.
func (s *Scratch) reserve(terms int) error {
	need := uint64(terms) * msmTermSize
	if need > s.size {
		return fmt.Errorf("insufficient scratch: need %d bytes, have %d", need, s.size)
	}
	return nil
}

func multiscalarMul(scalars []*ristretto.Scalar, points []*ristretto.Point) *ristretto.Point {
	var p ristretto.Point
	p.SetZero()
	for i := range scalars {
		var t ristretto.Point
		t.ScalarMult(points[i], scalars[i])
		p.Add(&p, &t)
	}
	return &p
}

// scratchMultiscalarMul is the scratch-accounted MSM every verifier goes
// through.
func scratchMultiscalarMul(s *Scratch, scalars []*ristretto.Scalar, points []*ristretto.Point) (*ristretto.Point, error) {
	if len(scalars) != len(points) {
		return nil, fmt.Errorf("multiscalar mul lengths do not match %d, %d", len(scalars), len(points))
	}
	if err := s.reserve(len(scalars)); err != nil {
		return nil, err
	}
	return multiscalarMul(scalars, points), nil
}
