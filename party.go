package bulletproofs

import (
	"errors"
	"fmt"

	"github.com/bwesterb/go-ristretto"
)

// A party proves one commitment of an aggregated rangeproof. The dealer
// drives m parties through the bit-commitment, poly-commitment and
// proof-share rounds and merges their outputs.
//
// All per-party randomness is derived from the prover's nonce through a
// BlindGenerator, and the proven value is folded into the A commitment's
// blinding, so a holder of the nonce can later rewind the proof.

type PartyAwaitingPosition struct {
	Gens      *GeneratorSet
	PCGens    *PedersenGens
	Blinds    *BlindGenerator
	N         int
	Value     uint64
	MinValue  uint64
	VBlinding *ristretto.Scalar
	V         *ristretto.Point
}

func NewParty(gens *GeneratorSet, pg *PedersenGens, blinds *BlindGenerator, value, minValue uint64, blinding *ristretto.Scalar, n int) (*PartyAwaitingPosition, error) {
	if n < 1 || n > 64 || !isPowerOfTwo(n) {
		return nil, fmt.Errorf("invalid bitsize %d", n)
	}
	if value < minValue {
		return nil, fmt.Errorf("value %d below minimum %d", value, minValue)
	}
	if n < 64 && value-minValue >= 1<<n {
		return nil, fmt.Errorf("value %d does not fit %d bits above minimum %d", value, n, minValue)
	}

	V := pg.Commit(uint64ToScalar(value), blinding)

	return &PartyAwaitingPosition{
		Gens:      gens,
		PCGens:    pg,
		Blinds:    blinds,
		N:         n,
		Value:     value,
		MinValue:  minValue,
		VBlinding: blinding,
		V:         V,
	}, nil
}

type PartyAwaitingBitChallenge struct {
	N         int
	V         uint64
	VBlinding *ristretto.Scalar
	J         int
	PCGens    *PedersenGens
	Blinds    *BlindGenerator
	ABlinding *ristretto.Scalar
	SBlinding *ristretto.Scalar
	SL        []*ristretto.Scalar
	SR        []*ristretto.Scalar
}

// AssignPosition places the party at aggregation slot j and produces its
// bit commitments. The A blinding is derive("alpha", j) plus the proven
// value, which is what makes the proof rewindable.
func (p *PartyAwaitingPosition) AssignPosition(j int) (*PartyAwaitingBitChallenge, *BitCommitment, error) {
	Gs, err := p.Gens.vectorG((j + 1) * p.N)
	if err != nil {
		return nil, nil, err
	}
	Hs, err := p.Gens.vectorH((j + 1) * p.N)
	if err != nil {
		return nil, nil, err
	}
	Gs = Gs[j*p.N:]
	Hs = Hs[j*p.N:]

	proven := p.Value - p.MinValue

	var aBlinding ristretto.Scalar
	aBlinding.Add(p.Blinds.Derive("alpha", uint64(j)), uint64ToScalar(proven))
	var A ristretto.Point
	A.ScalarMult(p.PCGens.BBlinding, &aBlinding)

	// If v_i = 0, we add a_L[i] * G[i] + a_R[i] * H[i] = - H[i]
	// If v_i = 1, we add a_L[i] * G[i] + a_R[i] * H[i] =   G[i]
	for i := range Gs {
		var point ristretto.Point
		point.Neg(Hs[i])

		v_i := (proven >> i) & 1
		if v_i == 1 {
			point = *Gs[i]
		}
		A.Add(&A, &point)
	}

	sBlinding := p.Blinds.Derive("rho", uint64(j))

	sL := make([]*ristretto.Scalar, p.N)
	sR := make([]*ristretto.Scalar, p.N)
	for i := 0; i < p.N; i++ {
		sL[i] = p.Blinds.Derive("s_L", uint64(j*p.N+i))
		sR[i] = p.Blinds.Derive("s_R", uint64(j*p.N+i))
	}

	// Compute S = <s_L, G> + <s_R, H> + s_blinding * B_blinding
	s1 := append([]*ristretto.Scalar{sBlinding}, sL...)
	s1 = append(s1, sR...)
	s2 := append([]*ristretto.Point{p.PCGens.BBlinding}, Gs...)
	s2 = append(s2, Hs...)
	S := multiscalarMul(s1, s2)

	bitCommitment := &BitCommitment{
		VJ: p.V,
		AJ: &A,
		SJ: S,
	}

	nextState := &PartyAwaitingBitChallenge{
		N:         p.N,
		V:         proven,
		VBlinding: p.VBlinding,
		PCGens:    p.PCGens,
		Blinds:    p.Blinds,
		J:         j,
		ABlinding: &aBlinding,
		SBlinding: sBlinding,
		SL:        sL,
		SR:        sR,
	}
	return nextState, bitCommitment, nil
}

func (p *PartyAwaitingBitChallenge) ApplyChallenge(vc *BitChallenge) (*PartyAwaitingPolyChallenge, *PolyCommitment) {
	OffsetY := ScalarExpVartime(vc.Y, uint64(p.J*p.N))
	OffsetZ := ScalarExpVartime(vc.Z, uint64(p.J))

	LPoly := ZeroVecPoly1(int64(p.N))
	RPoly := ZeroVecPoly1(int64(p.N))

	var OffsetZZ ristretto.Scalar
	OffsetZZ.Mul(vc.Z, vc.Z)
	OffsetZZ.Mul(&OffsetZZ, OffsetZ)

	expY := OffsetY
	var exp2 ristretto.Scalar
	exp2.SetOne()

	for i := 0; i < p.N; i++ {
		a_L_i := uint64ToScalar((p.V >> i) & 1)
		var one, a_R_i ristretto.Scalar
		one.SetOne()
		a_R_i.Sub(a_L_i, &one)

		LPoly.As[i].Sub(a_L_i, vc.Z)
		LPoly.Bs[i] = p.SL[i]

		var tmp1, tmp2 ristretto.Scalar
		tmp1.Add(&a_R_i, vc.Z)
		tmp1.Mul(expY, &tmp1)
		tmp2.Mul(&OffsetZZ, &exp2)
		RPoly.As[i].Add(&tmp1, &tmp2)
		RPoly.Bs[i].Mul(expY, p.SR[i])

		expY.Mul(expY, vc.Y)
		exp2.Add(&exp2, &exp2)
	}

	tPoly := LPoly.InnerProduct(RPoly)

	t1blinding := p.Blinds.Derive("tau_1", uint64(p.J))
	t2blinding := p.Blinds.Derive("tau_2", uint64(p.J))

	T1 := p.PCGens.Commit(tPoly.B, t1blinding)
	T2 := p.PCGens.Commit(tPoly.C, t2blinding)

	polyCommitment := &PolyCommitment{
		T1j: T1,
		T2j: T2,
	}

	papc := &PartyAwaitingPolyChallenge{
		OffsetZZ:   &OffsetZZ,
		LPoly:      LPoly,
		RPoly:      RPoly,
		TPoly:      tPoly,
		T1Blinding: t1blinding,
		T2Blinding: t2blinding,
		VBlinding:  p.VBlinding,
		ABlinding:  p.ABlinding,
		SBlinding:  p.SBlinding,
	}
	return papc, polyCommitment
}

type PartyAwaitingPolyChallenge struct {
	OffsetZZ   *ristretto.Scalar
	LPoly      *VecPoly1
	RPoly      *VecPoly1
	TPoly      *Poly2
	VBlinding  *ristretto.Scalar
	ABlinding  *ristretto.Scalar
	SBlinding  *ristretto.Scalar
	T1Blinding *ristretto.Scalar
	T2Blinding *ristretto.Scalar
}

func (p *PartyAwaitingPolyChallenge) ApplyChallenge(pc *PolyChallenge) (*ProofShare, error) {
	var zero ristretto.Scalar
	zero.SetZero()
	if zero.Equals(pc.X) {
		return nil, errors.New("MaliciousDealer")
	}

	var a ristretto.Scalar
	a.Mul(p.OffsetZZ, p.VBlinding)
	tBlindingPoly := Poly2{
		A: &a,
		B: p.T1Blinding,
		C: p.T2Blinding,
	}

	tx := p.TPoly.Eval(pc.X)
	txBlinding := tBlindingPoly.Eval(pc.X)
	var eBlinding ristretto.Scalar
	eBlinding.Mul(p.SBlinding, pc.X)
	eBlinding.Add(p.ABlinding, &eBlinding)
	lVec := p.LPoly.Eval(pc.X)
	rVec := p.RPoly.Eval(pc.X)

	return &ProofShare{
		TXBlinding: txBlinding,
		TX:         tx,
		EBlinding:  &eBlinding,
		LVec:       lVec,
		RVec:       rVec,
	}, nil
}
