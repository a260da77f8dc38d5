package bulletproofs

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/bwesterb/go-ristretto"
	"github.com/gtank/merlin"
)

// InnerProductProof argues that two committed vectors a, b satisfy
// <a, b> = c in log2(n) rounds. It is the shared core of rangeproofs and
// circuit proofs; the two differ only in how they build the vectors and
// the public commitment fed into it.
type InnerProductProof struct {
	LVec []*ristretto.Point
	RVec []*ristretto.Point
	A, B *ristretto.Scalar
}

func CreateInnerProductProof(transcript *merlin.Transcript, Q *ristretto.Point, gFactors, hFactors []*ristretto.Scalar, gVec, hVec []*ristretto.Point, aVec, bVec []*ristretto.Scalar) *InnerProductProof {
	n := len(gVec)

	if len(hVec) != n ||
		len(aVec) != n ||
		len(bVec) != n ||
		len(gFactors) != n ||
		len(hFactors) != n {
		panic(fmt.Sprintf("invalid input vectors %d, %d, %d, %d, %d, %d", len(gVec), len(hVec), len(aVec), len(bVec), len(gFactors), len(hFactors)))
	}

	G := gVec
	H := hVec
	a := aVec
	b := bVec

	if bits.OnesCount32(uint32(n)) > 1 {
		panic(fmt.Sprintf("CreateInnerProductProof invalid n %d", n))
	}

	InnerproductDomainSep(uint64(n), transcript)

	var LVec, RVec []*ristretto.Point

	// The first round folds the g/h factors into the bases, so it is
	// unrolled from the loop below.
	if n != 1 {
		n = n / 2
		aL, aR := a[:n], a[n:]
		bL, bR := b[:n], b[n:]
		gL, gR := G[:n], G[n:]
		hL, hR := H[:n], H[n:]

		cL := innerProduct(aL, bR)
		cR := innerProduct(aR, bL)

		chainAL := make([]*ristretto.Scalar, n)
		for i := range aL {
			var r ristretto.Scalar
			chainAL[i] = r.Mul(aL[i], gFactors[n+i])
		}
		for i := range bR {
			var r ristretto.Scalar
			chainAL = append(chainAL, r.Mul(bR[i], hFactors[i]))
		}
		chainAL = append(chainAL, cL)

		chainGR := make([]*ristretto.Point, 0)
		chainGR = append(chainGR, gR...)
		chainGR = append(chainGR, hL...)
		chainGR = append(chainGR, Q)
		L := multiscalarMul(chainAL, chainGR)

		chainAR := make([]*ristretto.Scalar, n)
		for i := range aR {
			var r ristretto.Scalar
			chainAR[i] = r.Mul(aR[i], gFactors[i])
		}
		for i := range bL {
			var r ristretto.Scalar
			chainAR = append(chainAR, r.Mul(bL[i], hFactors[n+i]))
		}
		chainAR = append(chainAR, cR)

		chainGL := make([]*ristretto.Point, 0)
		chainGL = append(chainGL, gL...)
		chainGL = append(chainGL, hR...)
		chainGL = append(chainGL, Q)
		R := multiscalarMul(chainAR, chainGL)

		LVec = append(LVec, L)
		RVec = append(RVec, R)

		AppendPoint("L", L, transcript)
		AppendPoint("R", R, transcript)

		u := ChallengeScalar("u", transcript)
		var uInv ristretto.Scalar
		uInv.Inverse(u)

		for i := 0; i < n; i++ {
			var r1, r2 ristretto.Scalar
			aL[i].Add(r1.Mul(aL[i], u), r2.Mul(&uInv, aR[i]))
			var r3, r4 ristretto.Scalar
			bL[i].Add(r3.Mul(bL[i], &uInv), r4.Mul(u, bR[i]))
			var r5, r6 ristretto.Scalar
			r5.Mul(&uInv, gFactors[i])
			r6.Mul(u, gFactors[n+i])
			gL[i] = multiscalarMul([]*ristretto.Scalar{&r5, &r6}, []*ristretto.Point{gL[i], gR[i]})
			var r7, r8 ristretto.Scalar
			r7.Mul(u, hFactors[i])
			r8.Mul(&uInv, hFactors[n+i])
			hL[i] = multiscalarMul([]*ristretto.Scalar{&r7, &r8}, []*ristretto.Point{hL[i], hR[i]})
		}

		a = aL
		b = bL
		G = gL
		H = hL
	}

	for n != 1 {
		n = n / 2

		aL, aR := a[:n], a[n:]
		bL, bR := b[:n], b[n:]
		gL, gR := G[:n], G[n:]
		hL, hR := H[:n], H[n:]

		cL := innerProduct(aL, bR)
		cR := innerProduct(aR, bL)

		chainAL := make([]*ristretto.Scalar, 0)
		chainAL = append(chainAL, aL...)
		chainAL = append(chainAL, bR...)
		chainAL = append(chainAL, cL)
		chainGR := make([]*ristretto.Point, 0)
		chainGR = append(chainGR, gR...)
		chainGR = append(chainGR, hL...)
		chainGR = append(chainGR, Q)
		L := multiscalarMul(chainAL, chainGR)

		chainAR := make([]*ristretto.Scalar, 0)
		chainAR = append(chainAR, aR...)
		chainAR = append(chainAR, bL...)
		chainAR = append(chainAR, cR)
		chainGL := make([]*ristretto.Point, 0)
		chainGL = append(chainGL, gL...)
		chainGL = append(chainGL, hR...)
		chainGL = append(chainGL, Q)
		R := multiscalarMul(chainAR, chainGL)

		LVec = append(LVec, L)
		RVec = append(RVec, R)
		AppendPoint("L", L, transcript)
		AppendPoint("R", R, transcript)

		u := ChallengeScalar("u", transcript)
		var uInv ristretto.Scalar
		uInv.Inverse(u)

		for i := 0; i < n; i++ {
			var r1, r2 ristretto.Scalar
			aL[i].Add(r1.Mul(aL[i], u), r2.Mul(&uInv, aR[i]))
			var r3, r4 ristretto.Scalar
			bL[i].Add(r3.Mul(bL[i], &uInv), r4.Mul(u, bR[i]))
			gL[i] = multiscalarMul([]*ristretto.Scalar{&uInv, u}, []*ristretto.Point{gL[i], gR[i]})
			hL[i] = multiscalarMul([]*ristretto.Scalar{u, &uInv}, []*ristretto.Point{hL[i], hR[i]})
		}

		a = aL
		b = bL
		G = gL
		H = hL
	}

	return &InnerProductProof{
		LVec: LVec,
		RVec: RVec,
		A:    a[0],
		B:    b[0],
	}
}

func (p *InnerProductProof) ToBytes() []byte {
	var buf []byte

	for i := range p.LVec {
		buf = append(buf, p.LVec[i].Bytes()...)
		buf = append(buf, p.RVec[i].Bytes()...)
	}
	buf = append(buf, p.A.Bytes()...)
	buf = append(buf, p.B.Bytes()...)

	return buf
}

// innerProductProofFromBytes parses exactly rounds L/R pairs followed by
// the two closing scalars. Any malformed point or non-canonical scalar
// rejects the whole proof.
func innerProductProofFromBytes(rounds int, data []byte) (*InnerProductProof, error) {
	if len(data) != (2*rounds+2)*32 {
		return nil, fmt.Errorf("inner product proof length %d, want %d", len(data), (2*rounds+2)*32)
	}

	p := &InnerProductProof{}
	off := 0
	for i := 0; i < rounds; i++ {
		var l, r ristretto.Point
		if err := l.UnmarshalBinary(data[off : off+32]); err != nil {
			return nil, err
		}
		if err := r.UnmarshalBinary(data[off+32 : off+64]); err != nil {
			return nil, err
		}
		p.LVec = append(p.LVec, &l)
		p.RVec = append(p.RVec, &r)
		off += 64
	}

	var err error
	if p.A, err = scalarFromCanonicalBytes(data[off : off+32]); err != nil {
		return nil, err
	}
	if p.B, err = scalarFromCanonicalBytes(data[off+32 : off+64]); err != nil {
		return nil, err
	}
	return p, nil
}

// verificationScalars replays the round challenges from the proof's L/R
// points and expands them into the folded per-generator scalars for the
// verifier's single multi-scalar multiplication. n is the (power of two)
// dimension the proof claims to argue over.
func verificationScalars(p *InnerProductProof, n int, transcript *merlin.Transcript) (uSq, uInvSq, s []*ristretto.Scalar, err error) {
	k := len(p.LVec)
	if k != len(p.RVec) {
		return nil, nil, nil, errors.New("mismatched L/R vectors")
	}
	if k > MaxDepth {
		return nil, nil, nil, fmt.Errorf("proof depth %d exceeds %d", k, MaxDepth)
	}
	if n != 1<<k {
		return nil, nil, nil, fmt.Errorf("proof has %d rounds for dimension %d", k, n)
	}

	InnerproductDomainSep(uint64(n), transcript)

	u := make([]*ristretto.Scalar, k)
	uInv := make([]*ristretto.Scalar, k)
	uSq = make([]*ristretto.Scalar, k)
	uInvSq = make([]*ristretto.Scalar, k)
	for j := 0; j < k; j++ {
		AppendPoint("L", p.LVec[j], transcript)
		AppendPoint("R", p.RVec[j], transcript)

		u[j] = ChallengeScalar("u", transcript)
		var inv, sq, invSq ristretto.Scalar
		uInv[j] = inv.Inverse(u[j])
		uSq[j] = sq.Mul(u[j], u[j])
		uInvSq[j] = invSq.Mul(uInv[j], uInv[j])
	}

	// s_i = prod_j u_j^{+1 or -1}: +1 when bit (k-1-j) of i is set, which
	// mirrors how round j split the vectors into low and high halves.
	s = make([]*ristretto.Scalar, n)
	for i := 0; i < n; i++ {
		var acc ristretto.Scalar
		acc.SetOne()
		for j := 0; j < k; j++ {
			if i&(1<<(k-1-j)) != 0 {
				acc.Mul(&acc, u[j])
			} else {
				acc.Mul(&acc, uInv[j])
			}
		}
		s[i] = cloneScalar(&acc)
	}
	return uSq, uInvSq, s, nil
}
