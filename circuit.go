package bulletproofs

import (
	"bytes"
	"fmt"

	"github.com/bwesterb/go-ristretto"
)

// A Circuit is a set of multiplication gates with three wires each
// (O = L * R) plus linear constraints over the wire values. Constraint q
// means
//
//	sum(coeff * wire) + Constants[q] = 0
//
// where the per-gate rows WL/WR/WO list, for each gate, the constraints
// its left/right/output wire participates in. The first NBits gates are
// implicitly bit-constrained: the protocol forces R = L - 1 and O = 0 on
// them, which together with the gate relation pins L to {0,1} without
// spending explicit constraint rows. External Pedersen commitment j binds
// the output wire of gate NBits + j.
//
// A circuit is immutable once built and freely shareable; two circuits
// are equal only when structurally identical, not merely equivalent.
type Circuit struct {
	NGates       int
	NBits        int
	NCommits     int
	NConstraints int

	WL, WR, WO [][]Term
	Constants  []*ristretto.Scalar
}

// Term is one participation of a wire in a linear constraint.
type Term struct {
	Constraint uint64
	Coeff      *ristretto.Scalar
}

type WireFamily int

const (
	WireLeft WireFamily = iota
	WireRight
	WireOutput
)

func NewCircuit(nGates, nBits, nCommits, nConstraints int) (*Circuit, error) {
	if nGates <= 0 {
		return nil, fmt.Errorf("circuit needs at least one gate, got %d", nGates)
	}
	if nGates > 1<<32 {
		return nil, fmt.Errorf("circuit gate count %d too large", nGates)
	}
	if nBits < 0 || nCommits < 0 || nConstraints < 0 {
		return nil, fmt.Errorf("negative circuit dimension")
	}
	if nBits+nCommits > nGates {
		return nil, fmt.Errorf("%d bit gates + %d commitments exceed %d gates", nBits, nCommits, nGates)
	}

	c := &Circuit{
		NGates:       nGates,
		NBits:        nBits,
		NCommits:     nCommits,
		NConstraints: nConstraints,
		WL:           make([][]Term, nGates),
		WR:           make([][]Term, nGates),
		WO:           make([][]Term, nGates),
		Constants:    make([]*ristretto.Scalar, nConstraints),
	}
	for q := 0; q < nConstraints; q++ {
		var zero ristretto.Scalar
		zero.SetZero()
		c.Constants[q] = &zero
	}
	return c, nil
}

// AddTerm adds coeff * wire to constraint's left-hand side, where wire is
// the family wire of the given gate.
func (c *Circuit) AddTerm(family WireFamily, gate, constraint int, coeff *ristretto.Scalar) error {
	if gate < 0 || gate >= c.NGates {
		return fmt.Errorf("gate %d out of range [0,%d)", gate, c.NGates)
	}
	if constraint < 0 || constraint >= c.NConstraints {
		return fmt.Errorf("constraint %d out of range [0,%d)", constraint, c.NConstraints)
	}
	term := Term{Constraint: uint64(constraint), Coeff: cloneScalar(coeff)}
	switch family {
	case WireLeft:
		c.WL[gate] = append(c.WL[gate], term)
	case WireRight:
		c.WR[gate] = append(c.WR[gate], term)
	case WireOutput:
		c.WO[gate] = append(c.WO[gate], term)
	default:
		return fmt.Errorf("unknown wire family %d", family)
	}
	return nil
}

// SetConstant sets the additive constant of a constraint.
func (c *Circuit) SetConstant(constraint int, k *ristretto.Scalar) error {
	if constraint < 0 || constraint >= c.NConstraints {
		return fmt.Errorf("constraint %d out of range [0,%d)", constraint, c.NConstraints)
	}
	c.Constants[constraint] = cloneScalar(k)
	return nil
}

// Pad returns a copy with trivial 0*0=0 gates appended up to a power-of-two
// gate count. Circuit proofs demand power-of-two circuits and never pad on
// the caller's behalf.
func (c *Circuit) Pad() *Circuit {
	n := nextPowerOfTwo(c.NGates)
	out := &Circuit{
		NGates:       n,
		NBits:        c.NBits,
		NCommits:     c.NCommits,
		NConstraints: c.NConstraints,
		WL:           make([][]Term, n),
		WR:           make([][]Term, n),
		WO:           make([][]Term, n),
		Constants:    make([]*ristretto.Scalar, c.NConstraints),
	}
	for i := 0; i < c.NGates; i++ {
		out.WL[i] = append([]Term(nil), c.WL[i]...)
		out.WR[i] = append([]Term(nil), c.WR[i]...)
		out.WO[i] = append([]Term(nil), c.WO[i]...)
	}
	for q := range c.Constants {
		out.Constants[q] = cloneScalar(c.Constants[q])
	}
	return out
}

// Destroy releases the circuit. No-op on nil.
func (c *Circuit) Destroy() {
	if c == nil {
		return
	}
	c.WL, c.WR, c.WO = nil, nil, nil
	c.Constants = nil
}

// CircuitEq reports structural equality: identical dimensions, identical
// rows in identical order, identical constants. Semantically equivalent
// but differently laid out circuits are not equal.
func CircuitEq(c0, c1 *Circuit) bool {
	if c0 == nil || c1 == nil {
		return c0 == c1
	}
	if c0.NGates != c1.NGates || c0.NBits != c1.NBits ||
		c0.NCommits != c1.NCommits || c0.NConstraints != c1.NConstraints {
		return false
	}
	families := [][2][][]Term{
		{c0.WL, c1.WL},
		{c0.WR, c1.WR},
		{c0.WO, c1.WO},
	}
	for _, f := range families {
		for i := 0; i < c0.NGates; i++ {
			if len(f[0][i]) != len(f[1][i]) {
				return false
			}
			for j := range f[0][i] {
				t0, t1 := f[0][i][j], f[1][i][j]
				if t0.Constraint != t1.Constraint {
					return false
				}
				if !bytes.Equal(t0.Coeff.Bytes(), t1.Coeff.Bytes()) {
					return false
				}
			}
		}
	}
	for q := range c0.Constants {
		if !bytes.Equal(c0.Constants[q].Bytes(), c1.Constants[q].Bytes()) {
			return false
		}
	}
	return true
}

// CircuitAssignment is a concrete value for every wire. Committed values
// are read off the bound output wires, so they carry no separate storage.
type CircuitAssignment struct {
	AL []*ristretto.Scalar
	AR []*ristretto.Scalar
	AO []*ristretto.Scalar
}

func NewCircuitAssignment(aL, aR, aO []*ristretto.Scalar) (*CircuitAssignment, error) {
	if len(aL) != len(aR) || len(aL) != len(aO) {
		return nil, fmt.Errorf("wire vectors disagree: %d, %d, %d", len(aL), len(aR), len(aO))
	}
	return &CircuitAssignment{AL: aL, AR: aR, AO: aO}, nil
}

// Destroy releases the assignment. No-op on nil.
func (a *CircuitAssignment) Destroy() {
	if a == nil {
		return
	}
	a.AL, a.AR, a.AO = nil, nil, nil
}

// committedValues returns the values bound to the external commitments.
func (c *Circuit) committedValues(assn *CircuitAssignment) []*ristretto.Scalar {
	out := make([]*ristretto.Scalar, c.NCommits)
	for j := 0; j < c.NCommits; j++ {
		out[j] = assn.AO[c.NBits+j]
	}
	return out
}

// EvaluateCircuit reports whether assn satisfies circ: every gate product,
// every linear constraint, every implicit bit constraint. A wire-count
// mismatch is a hard false, never a partial evaluation. Pure function; used
// as the prove-time precondition and as a standalone sanity check.
func EvaluateCircuit(circ *Circuit, assn *CircuitAssignment) bool {
	if circ == nil || assn == nil {
		return false
	}
	if len(assn.AL) != circ.NGates || len(assn.AR) != circ.NGates || len(assn.AO) != circ.NGates {
		return false
	}

	var zero, one ristretto.Scalar
	zero.SetZero()
	one.SetOne()

	for i := 0; i < circ.NGates; i++ {
		var prod ristretto.Scalar
		prod.Mul(assn.AL[i], assn.AR[i])
		if !prod.Equals(assn.AO[i]) {
			return false
		}
	}

	for i := 0; i < circ.NBits; i++ {
		if !assn.AL[i].Equals(&zero) && !assn.AL[i].Equals(&one) {
			return false
		}
		var rWant ristretto.Scalar
		rWant.Sub(assn.AL[i], &one)
		if !assn.AR[i].Equals(&rWant) {
			return false
		}
		if !assn.AO[i].Equals(&zero) {
			return false
		}
	}

	acc := zeroVec(circ.NConstraints)
	families := []struct {
		rows  [][]Term
		wires []*ristretto.Scalar
	}{
		{circ.WL, assn.AL},
		{circ.WR, assn.AR},
		{circ.WO, assn.AO},
	}
	for _, f := range families {
		for i, row := range f.rows {
			for _, t := range row {
				var r ristretto.Scalar
				r.Mul(t.Coeff, f.wires[i])
				acc[t.Constraint].Add(acc[t.Constraint], &r)
			}
		}
	}
	for q := 0; q < circ.NConstraints; q++ {
		var sum ristretto.Scalar
		sum.Add(acc[q], circ.Constants[q])
		if !sum.Equals(&zero) {
			return false
		}
	}
	return true
}

// totalConstraints counts the explicit rows plus the implicit rows the
// protocol appends: two per bit gate and one per external commitment.
func (c *Circuit) totalConstraints() int {
	return c.NConstraints + 2*c.NBits + c.NCommits
}

// foldedWeights collapses the full constraint system under the challenge z
// into per-wire weight vectors, per-commitment weights, and the folded
// constant. Constraint q is weighted by z^(q+1); implicit rows follow the
// explicit ones in a fixed order, so prover and verifier always fold the
// same system.
func (c *Circuit) foldedWeights(z *ristretto.Scalar) (wL, wR, wO, wV []*ristretto.Scalar, wc *ristretto.Scalar) {
	n := c.NGates
	qTotal := c.totalConstraints()
	zQ := powersOf(z, qTotal+1) // zQ[q+1] weights constraint q

	wL = zeroVec(n)
	wR = zeroVec(n)
	wO = zeroVec(n)
	wV = zeroVec(c.NCommits)
	var wcAcc ristretto.Scalar
	wcAcc.SetZero()

	families := []struct {
		rows [][]Term
		out  []*ristretto.Scalar
	}{
		{c.WL, wL},
		{c.WR, wR},
		{c.WO, wO},
	}
	for _, f := range families {
		for i, row := range f.rows {
			for _, t := range row {
				var r ristretto.Scalar
				r.Mul(zQ[t.Constraint+1], t.Coeff)
				f.out[i].Add(f.out[i], &r)
			}
		}
	}
	// Explicit constraint q demands sum(terms) = -Constants[q].
	for q := 0; q < c.NConstraints; q++ {
		var r ristretto.Scalar
		r.Mul(zQ[q+1], c.Constants[q])
		wcAcc.Sub(&wcAcc, &r)
	}

	// Bit rows: L - R = 1 and O = 0 per bit gate.
	for i := 0; i < c.NBits; i++ {
		q1 := c.NConstraints + 2*i
		q2 := q1 + 1
		wL[i].Add(wL[i], zQ[q1+1])
		wR[i].Sub(wR[i], zQ[q1+1])
		wcAcc.Add(&wcAcc, zQ[q1+1])
		wO[i].Add(wO[i], zQ[q2+1])
	}

	// Commitment rows: O_{NBits+j} - v_j = 0.
	for j := 0; j < c.NCommits; j++ {
		qj := c.NConstraints + 2*c.NBits + j
		wO[c.NBits+j].Add(wO[c.NBits+j], zQ[qj+1])
		wV[j] = cloneScalar(zQ[qj+1])
	}

	return wL, wR, wO, wV, &wcAcc
}

// RangeCircuit builds the canonical bit-decomposition circuit proving that
// one committed value lies in [0, 2^nbits): nbits bit gates, one binding
// gate whose output wire carries the committed value, and a single explicit
// constraint equating the value with its bit expansion. The returned
// circuit is already padded to a power-of-two gate count.
func RangeCircuit(nbits int) (*Circuit, error) {
	if nbits < 1 || nbits > 64 {
		return nil, fmt.Errorf("range circuit nbits %d outside 1..64", nbits)
	}
	c, err := NewCircuit(nbits+1, nbits, 1, 1)
	if err != nil {
		return nil, err
	}
	// sum(2^i * L_i) - O_value = 0
	two := uint64ToScalar(2)
	for i, coeff := 0, uint64ToScalar(1); i < nbits; i++ {
		if err := c.AddTerm(WireLeft, i, 0, coeff); err != nil {
			return nil, err
		}
		var next ristretto.Scalar
		next.Mul(coeff, two)
		coeff = &next
	}
	var one ristretto.Scalar
	one.SetOne()
	if err := c.AddTerm(WireOutput, nbits, 0, negScalar(&one)); err != nil {
		return nil, err
	}
	return c.Pad(), nil
}

// RangeAssignment builds the satisfying assignment of RangeCircuit(nbits)
// for a value, or fails when the value does not fit in nbits bits.
func RangeAssignment(nbits int, value uint64) (*CircuitAssignment, error) {
	if nbits < 1 || nbits > 64 {
		return nil, fmt.Errorf("range assignment nbits %d outside 1..64", nbits)
	}
	if nbits < 64 && value >= uint64(1)<<nbits {
		return nil, fmt.Errorf("value %d does not fit in %d bits", value, nbits)
	}
	n := nextPowerOfTwo(nbits + 1)
	aL := zeroVec(n)
	aR := zeroVec(n)
	aO := zeroVec(n)

	var one ristretto.Scalar
	one.SetOne()
	for i := 0; i < nbits; i++ {
		bit := (value >> i) & 1
		aL[i] = uint64ToScalar(bit)
		var r ristretto.Scalar
		aR[i] = r.Sub(aL[i], &one)
	}
	aL[nbits] = uint64ToScalar(value)
	aR[nbits] = cloneScalar(&one)
	aO[nbits] = uint64ToScalar(value)

	return &CircuitAssignment{AL: aL, AR: aR, AO: aO}, nil
}
