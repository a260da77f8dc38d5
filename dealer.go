package bulletproofs

import (
	"fmt"

	"github.com/bwesterb/go-ristretto"
	"github.com/gtank/merlin"
)

// The dealer aggregates m parties into one rangeproof over n-bit values.
// It owns the transcript: parties never touch it, they only answer the
// dealer's challenges.
type DealerAwaitingBitCommitments struct {
	Gens       *GeneratorSet
	PCGens     *PedersenGens
	Transcript *merlin.Transcript
	N, M       int
}

func NewDealer(gens *GeneratorSet, pg *PedersenGens, t *merlin.Transcript, n, m int) (*DealerAwaitingBitCommitments, error) {
	if n < 1 || n > 64 || !isPowerOfTwo(n) {
		return nil, fmt.Errorf("invalid bitsize %d", n)
	}
	if !isPowerOfTwo(m) {
		return nil, fmt.Errorf("invalid aggregation size %d", m)
	}
	if gens.Capacity() < 2*n*m {
		return nil, fmt.Errorf("generator set capacity %d below %d", gens.Capacity(), 2*n*m)
	}

	t = RangeproofDomainSep(int64(n), int64(m), t)

	return &DealerAwaitingBitCommitments{
		Gens:       gens,
		PCGens:     pg,
		Transcript: t,
		N:          n,
		M:          m,
	}, nil
}

type DealerAwaitingPolyCommitments struct {
	N, M           int
	Transcript     *merlin.Transcript
	Gens           *GeneratorSet
	PCGens         *PedersenGens
	BitChallenge   *BitChallenge
	BitCommitments []*BitCommitment
	A              *ristretto.Point
	S              *ristretto.Point
}

func (d *DealerAwaitingBitCommitments) ReceiveBitCommitments(commitments []*BitCommitment) (*DealerAwaitingPolyCommitments, *BitChallenge, error) {
	if d.M != len(commitments) {
		return nil, nil, fmt.Errorf("wrong number of bit commitments %d, want %d", len(commitments), d.M)
	}

	var A, S ristretto.Point
	A.SetZero()
	S.SetZero()
	for i := range commitments {
		d.Transcript.AppendMessage([]byte("V"), commitments[i].VJ.Bytes())
		A.Add(&A, commitments[i].AJ)
		S.Add(&S, commitments[i].SJ)
	}
	d.Transcript.AppendMessage([]byte("A"), A.Bytes())
	d.Transcript.AppendMessage([]byte("S"), S.Bytes())

	y := ChallengeScalar("y", d.Transcript)
	z := ChallengeScalar("z", d.Transcript)
	challenge := &BitChallenge{Y: y, Z: z}

	return &DealerAwaitingPolyCommitments{
		N:              d.N,
		M:              d.M,
		Transcript:     d.Transcript,
		Gens:           d.Gens,
		PCGens:         d.PCGens,
		BitChallenge:   challenge,
		BitCommitments: commitments,
		A:              &A,
		S:              &S,
	}, challenge, nil
}

func (p *DealerAwaitingPolyCommitments) ReceivePolyCommitments(commitments []*PolyCommitment) (*DealerAwaitingProofShares, *PolyChallenge, error) {
	if p.M != len(commitments) {
		return nil, nil, fmt.Errorf("wrong number of poly commitments %d, want %d", len(commitments), p.M)
	}

	var T1, T2 ristretto.Point
	T1.SetZero()
	T2.SetZero()
	for i := range commitments {
		T1.Add(&T1, commitments[i].T1j)
		T2.Add(&T2, commitments[i].T2j)
	}
	p.Transcript.AppendMessage([]byte("T_1"), T1.Bytes())
	p.Transcript.AppendMessage([]byte("T_2"), T2.Bytes())

	x := ChallengeScalar("x", p.Transcript)
	polyChallenge := &PolyChallenge{X: x}
	share := &DealerAwaitingProofShares{
		N:              p.N,
		M:              p.M,
		Transcript:     p.Transcript,
		Gens:           p.Gens,
		PCGens:         p.PCGens,
		BitChallenge:   p.BitChallenge,
		BitCommitments: p.BitCommitments,
		A:              p.A,
		S:              p.S,
		PolyChallenge:  polyChallenge,
		T1:             &T1,
		T2:             &T2,
	}
	return share, polyChallenge, nil
}

type DealerAwaitingProofShares struct {
	N, M           int
	Transcript     *merlin.Transcript
	Gens           *GeneratorSet
	PCGens         *PedersenGens
	BitChallenge   *BitChallenge
	BitCommitments []*BitCommitment
	A              *ristretto.Point
	S              *ristretto.Point
	PolyChallenge  *PolyChallenge
	T1, T2         *ristretto.Point
}

func (ps *ProofShare) checkSize(n int) error {
	if len(ps.LVec) != n {
		return fmt.Errorf("proof share l vector length %d, want %d", len(ps.LVec), n)
	}
	if len(ps.RVec) != n {
		return fmt.Errorf("proof share r vector length %d, want %d", len(ps.RVec), n)
	}
	return nil
}

// AssembleShares merges the per-party shares into the final proof and runs
// the inner-product argument. The IPA's first round absorbs gFactors of 1
// and hFactors of inverse powers of y, matching the verifier's basis.
func (d *DealerAwaitingProofShares) AssembleShares(proofs []*ProofShare) (*RangeProof, error) {
	if d.M != len(proofs) {
		return nil, fmt.Errorf("wrong number of proof shares %d, want %d", len(proofs), d.M)
	}
	for i, p := range proofs {
		if err := p.checkSize(d.N); err != nil {
			return nil, fmt.Errorf("share %d: %w", i, err)
		}
	}

	var tx, txBlinding, eBlinding ristretto.Scalar
	tx.SetZero()
	txBlinding.SetZero()
	eBlinding.SetZero()
	for i := range proofs {
		tx.Add(&tx, proofs[i].TX)
		txBlinding.Add(&txBlinding, proofs[i].TXBlinding)
		eBlinding.Add(&eBlinding, proofs[i].EBlinding)
	}

	AppendScalar("t_x", &tx, d.Transcript)
	AppendScalar("t_x_blinding", &txBlinding, d.Transcript)
	AppendScalar("e_blinding", &eBlinding, d.Transcript)

	w := ChallengeScalar("w", d.Transcript)
	var Q ristretto.Point
	Q.ScalarMult(d.PCGens.B, w)

	nm := d.N * d.M
	gFactors := make([]*ristretto.Scalar, nm)
	hFactors := make([]*ristretto.Scalar, nm)
	var inverseY ristretto.Scalar
	inverseY.Inverse(d.BitChallenge.Y)
	scalarExp := NewScalarExp(&inverseY)
	for i := 0; i < nm; i++ {
		var one ristretto.Scalar
		gFactors[i] = one.SetOne()
		hFactors[i] = scalarExp.Next()
	}

	var lVec, rVec []*ristretto.Scalar
	for i := range proofs {
		for j := range proofs[i].LVec {
			lVec = append(lVec, cloneScalar(proofs[i].LVec[j]))
		}
		for j := range proofs[i].RVec {
			rVec = append(rVec, cloneScalar(proofs[i].RVec[j]))
		}
	}

	G, err := d.Gens.vectorG(nm)
	if err != nil {
		return nil, err
	}
	H, err := d.Gens.vectorH(nm)
	if err != nil {
		return nil, err
	}
	gVec := make([]*ristretto.Point, nm)
	hVec := make([]*ristretto.Point, nm)
	for i := 0; i < nm; i++ {
		gVec[i] = clonePoint(G[i])
		hVec[i] = clonePoint(H[i])
	}
	ippProof := CreateInnerProductProof(d.Transcript, &Q, gFactors, hFactors, gVec, hVec, lVec, rVec)

	return &RangeProof{
		A:          d.A,
		S:          d.S,
		T1:         d.T1,
		T2:         d.T2,
		TX:         &tx,
		TXBlinding: &txBlinding,
		EBlinding:  &eBlinding,
		IPPProof:   ippProof,
	}, nil
}
