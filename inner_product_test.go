package bulletproofs

import (
	"bytes"
	"testing"

	"github.com/bwesterb/go-ristretto"
	"github.com/stretchr/testify/assert"
)

func TestInnerProductProof(t *testing.T) {
	assert := assert.New(t)
	n := 8

	gens, err := NewGeneratorSet(DefaultBlindingGen(), 2*n, 1)
	assert.Nil(err)
	G, err := gens.vectorG(n)
	assert.Nil(err)
	H, err := gens.vectorH(n)
	assert.Nil(err)

	a := make([]*ristretto.Scalar, n)
	b := make([]*ristretto.Scalar, n)
	gFactors := make([]*ristretto.Scalar, n)
	hFactors := make([]*ristretto.Scalar, n)
	for i := 0; i < n; i++ {
		var ra, rb, one1, one2 ristretto.Scalar
		a[i] = ra.Rand()
		b[i] = rb.Rand()
		gFactors[i] = one1.SetOne()
		hFactors[i] = one2.SetOne()
	}

	var q ristretto.Scalar
	q.Rand()
	var Q ristretto.Point
	Q.ScalarMultBase(&q)

	// P = <a, G> + <b, H> + <a, b>*Q
	chainS := append([]*ristretto.Scalar{}, a...)
	chainS = append(chainS, b...)
	chainS = append(chainS, innerProduct(a, b))
	chainP := append([]*ristretto.Point{}, G...)
	chainP = append(chainP, H...)
	chainP = append(chainP, &Q)
	P := multiscalarMul(chainS, chainP)

	// The prover folds its vectors in place, so it gets clones.
	aClone := make([]*ristretto.Scalar, n)
	bClone := make([]*ristretto.Scalar, n)
	gClone := make([]*ristretto.Point, n)
	hClone := make([]*ristretto.Point, n)
	for i := 0; i < n; i++ {
		aClone[i] = cloneScalar(a[i])
		bClone[i] = cloneScalar(b[i])
		gClone[i] = clonePoint(G[i])
		hClone[i] = clonePoint(H[i])
	}

	tp := InitialTranscript("ipp test")
	proof := CreateInnerProductProof(tp, &Q, gFactors, hFactors, gClone, hClone, aClone, bClone)
	assert.Len(proof.LVec, log2(n))

	parsed, err := innerProductProofFromBytes(log2(n), proof.ToBytes())
	assert.Nil(err)
	assert.True(bytes.Equal(proof.ToBytes(), parsed.ToBytes()))

	tv := InitialTranscript("ipp test")
	uSq, uInvSq, s, err := verificationScalars(parsed, n, tv)
	assert.Nil(err)

	// a*<s, G> + b*<1/s, H> + a*b*Q == P + sum(u^2 L + u^-2 R)
	var scalars []*ristretto.Scalar
	var points []*ristretto.Point
	for i := 0; i < n; i++ {
		var gs, sInv, hs ristretto.Scalar
		gs.Mul(parsed.A, s[i])
		scalars = append(scalars, &gs)
		points = append(points, G[i])
		sInv.Inverse(s[i])
		hs.Mul(parsed.B, &sInv)
		scalars = append(scalars, &hs)
		points = append(points, H[i])
	}
	var ab ristretto.Scalar
	ab.Mul(parsed.A, parsed.B)
	scalars = append(scalars, &ab)
	points = append(points, &Q)

	var one ristretto.Scalar
	one.SetOne()
	scalars = append(scalars, negScalar(&one))
	points = append(points, P)
	for j := range uSq {
		scalars = append(scalars, negScalar(uSq[j]), negScalar(uInvSq[j]))
		points = append(points, parsed.LVec[j], parsed.RVec[j])
	}

	sum := multiscalarMul(scalars, points)
	var identity ristretto.Point
	identity.SetZero()
	assert.True(bytes.Equal(identity.Bytes(), sum.Bytes()))
}

func TestInnerProductProofParsing(t *testing.T) {
	assert := assert.New(t)

	_, err := innerProductProofFromBytes(3, make([]byte, 100))
	assert.NotNil(err)

	// An all-ones buffer is not a valid point encoding.
	junk := make([]byte, (2*3+2)*32)
	for i := range junk {
		junk[i] = 0xff
	}
	_, err = innerProductProofFromBytes(3, junk)
	assert.NotNil(err)

	// A closing scalar with a high bit set reduces to the same value under
	// a different encoding; only the canonical form parses.
	var s ristretto.Scalar
	s.Rand()
	closing := append(s.Bytes(), s.Bytes()...)
	_, err = innerProductProofFromBytes(0, closing)
	assert.Nil(err)
	closing[31] ^= 0x80
	_, err = innerProductProofFromBytes(0, closing)
	assert.NotNil(err)
}

func TestVerificationScalarsRejects(t *testing.T) {
	assert := assert.New(t)

	p := &InnerProductProof{}
	var a, b ristretto.Scalar
	p.A = a.Rand()
	p.B = b.Rand()

	// Zero rounds demands dimension 1.
	tt := InitialTranscript("ipp test")
	_, _, s, err := verificationScalars(p, 1, tt)
	assert.Nil(err)
	assert.Len(s, 1)

	tt = InitialTranscript("ipp test")
	_, _, _, err = verificationScalars(p, 2, tt)
	assert.NotNil(err)

	// Depth above MaxDepth is rejected before any allocation.
	deep := &InnerProductProof{A: &a, B: &b}
	for i := 0; i <= MaxDepth; i++ {
		var l, r ristretto.Point
		l.SetZero()
		r.SetZero()
		deep.LVec = append(deep.LVec, &l)
		deep.RVec = append(deep.RVec, &r)
	}
	tt = InitialTranscript("ipp test")
	_, _, _, err = verificationScalars(deep, 1<<62, tt)
	assert.NotNil(err)
}
