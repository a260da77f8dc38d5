package bulletproofs

import (
	"errors"
	"fmt"

	"github.com/bwesterb/go-ristretto"
	"golang.org/x/crypto/sha3"
)

// GeneratorSet is an ordered sequence of NUMS generators plus the blinding
// generator they were derived against. The sequence is deterministic: two
// creations from the same blinding generator and count produce bit-identical
// generators, so provers and verifiers agree without coordination.
//
// The first half of the sequence serves as the G vector and the second half
// as the H vector of the inner-product argument. A set is immutable after
// creation and safe to share across concurrent prove/verify calls.
type GeneratorSet struct {
	Gens     []*ristretto.Point
	Blinding *ristretto.Point
}

// NewGeneratorSet derives n NUMS generators from a SHAKE256 chain seeded
// with the domain tag and the blinding generator's encoding. precompN is
// validated only: no precomputation tables are kept, multiples are always
// computed on the fly.
func NewGeneratorSet(blindingGen *ristretto.Point, n, precompN int) (*GeneratorSet, error) {
	if blindingGen == nil {
		return nil, errors.New("NewGeneratorSet nil blinding generator")
	}
	if n <= 0 {
		return nil, fmt.Errorf("NewGeneratorSet invalid generator count %d", n)
	}
	if precompN < 1 {
		return nil, fmt.Errorf("NewGeneratorSet invalid precomp count %d", precompN)
	}

	chain := NewGeneratorsChain(append([]byte(GENERATORS_DOMAIN_TAG), blindingGen.Bytes()...))
	gens := make([]*ristretto.Point, n)
	for i := 0; i < n; i++ {
		gens[i] = chain.Next()
	}

	var blinding ristretto.Point
	blinding.SetZero()
	blinding.Add(&blinding, blindingGen)

	return &GeneratorSet{
		Gens:     gens,
		Blinding: &blinding,
	}, nil
}

// Capacity returns the number of NUMS generators in the set.
func (g *GeneratorSet) Capacity() int {
	if g == nil {
		return 0
	}
	return len(g.Gens)
}

// Destroy releases the set. No-op on nil. The set must not be used by any
// in-flight proof when destroyed.
func (g *GeneratorSet) Destroy() {
	if g == nil {
		return
	}
	g.Gens = nil
	g.Blinding = nil
}

// vectorG returns the first count generators, the G basis of the IPA.
func (g *GeneratorSet) vectorG(count int) ([]*ristretto.Point, error) {
	if 2*count > len(g.Gens) {
		return nil, fmt.Errorf("generator set capacity %d below 2*%d", len(g.Gens), count)
	}
	return g.Gens[:count], nil
}

// vectorH returns count generators from the second half, the H basis.
func (g *GeneratorSet) vectorH(count int) ([]*ristretto.Point, error) {
	if 2*count > len(g.Gens) {
		return nil, fmt.Errorf("generator set capacity %d below 2*%d", len(g.Gens), count)
	}
	half := len(g.Gens) / 2
	return g.Gens[half : half+count], nil
}

// PedersenGens pairs the value generator of a Pedersen commitment with the
// blinding generator of a GeneratorSet.
type PedersenGens struct {
	B         *ristretto.Point
	BBlinding *ristretto.Point
}

func NewPedersenGens(valueGen, blindingGen *ristretto.Point) *PedersenGens {
	return &PedersenGens{
		B:         valueGen,
		BBlinding: blindingGen,
	}
}

// DefaultValueGen returns the ristretto base point, the conventional value
// generator.
func DefaultValueGen() *ristretto.Point {
	var base ristretto.Point
	base.SetBase()
	return &base
}

// DefaultBlindingGen derives a blinding generator with no known discrete-log
// relation to the base point.
func DefaultBlindingGen() *ristretto.Point {
	var base ristretto.Point
	base.SetBase()

	h := sha3.New512()
	h.Write(base.Bytes())
	return pointFromUniformBytes(h.Sum(nil))
}

// Commit computes value*B + blinding*BBlinding.
func (pg *PedersenGens) Commit(value, blinding *ristretto.Scalar) *ristretto.Point {
	return multiscalarMul([]*ristretto.Scalar{value, blinding}, []*ristretto.Point{pg.B, pg.BBlinding})
}

type GeneratorsChain struct {
	sha3.ShakeHash
}

func NewGeneratorsChain(label []byte) *GeneratorsChain {
	h := sha3.NewShake256()
	h.Write([]byte("GeneratorsChain"))
	h.Write(label)
	return &GeneratorsChain{h}
}

func (c *GeneratorsChain) Next() *ristretto.Point {
	var data [64]byte
	c.Read(data[:])
	return pointFromUniformBytes(data[:])
}

func pointFromUniformBytes(key []byte) *ristretto.Point {
	var r1Bytes, r2Bytes [32]byte
	copy(r1Bytes[:], key[:32])
	copy(r2Bytes[:], key[32:])
	var r, r1, r2 ristretto.Point
	return r.Add(r1.SetElligator(&r1Bytes), r2.SetElligator(&r2Bytes))
}
