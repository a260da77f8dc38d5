package bulletproofs

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bwesterb/go-ristretto"
	"github.com/gtank/merlin"
)

// RangeProof shows that each of m committed values lies in [min, min+2^n)
// without revealing the values. Proofs over multiple commitments share one
// inner-product argument, so an aggregated proof is much smaller than m
// separate ones.
type RangeProof struct {
	A          *ristretto.Point
	S          *ristretto.Point
	T1         *ristretto.Point
	T2         *ristretto.Point
	TX         *ristretto.Scalar
	TXBlinding *ristretto.Scalar
	EBlinding  *ristretto.Scalar
	IPPProof   *InnerProductProof
}

func (p *RangeProof) ToBytes() []byte {
	var buf []byte
	buf = append(buf, p.A.Bytes()...)
	buf = append(buf, p.S.Bytes()...)
	buf = append(buf, p.T1.Bytes()...)
	buf = append(buf, p.T2.Bytes()...)
	buf = append(buf, p.TX.Bytes()...)
	buf = append(buf, p.TXBlinding.Bytes()...)
	buf = append(buf, p.EBlinding.Bytes()...)
	buf = append(buf, p.IPPProof.ToBytes()...)
	return buf
}

// rangeProofFromBytes parses a proof over nm = n*m (a power of two) total
// bits. The wire layout is A | S | T1 | T2 | t_x | t_x_blinding |
// e_blinding | (L_i R_i)*k | a | b with k = log2(nm).
func rangeProofFromBytes(data []byte, nm int) (*RangeProof, error) {
	if len(data) > MaxProof {
		return nil, fmt.Errorf("proof length %d exceeds cap %d", len(data), MaxProof)
	}
	rounds := log2(nm)
	want := (9 + 2*rounds) * 32
	if len(data) != want {
		return nil, fmt.Errorf("rangeproof length %d, want %d", len(data), want)
	}

	p := &RangeProof{}
	points := []**ristretto.Point{&p.A, &p.S, &p.T1, &p.T2}
	off := 0
	for _, dst := range points {
		var pt ristretto.Point
		if err := pt.UnmarshalBinary(data[off : off+32]); err != nil {
			return nil, err
		}
		*dst = &pt
		off += 32
	}
	scalars := []**ristretto.Scalar{&p.TX, &p.TXBlinding, &p.EBlinding}
	for _, dst := range scalars {
		s, err := scalarFromCanonicalBytes(data[off : off+32])
		if err != nil {
			return nil, err
		}
		*dst = s
		off += 32
	}

	ipp, err := innerProductProofFromBytes(rounds, data[off:])
	if err != nil {
		return nil, err
	}
	p.IPPProof = ipp
	return p, nil
}

// rangeTranscript seeds a fresh transcript with everything the statement
// binds beyond the commitments themselves: the value generator, the
// per-commitment minimum values, and the caller's extra commitment data.
func rangeTranscript(valueGen *ristretto.Point, minValues []uint64, extraCommit []byte) *merlin.Transcript {
	t := InitialTranscript(BULLETPROOF_DOMAIN_TAG)
	AppendPoint("value_gen", valueGen, t)
	appendInt64("n_min_values", uint64(len(minValues)), t)
	for _, min := range minValues {
		appendInt64("min_value", min, t)
	}
	appendBytes([]byte("extra_commit"), extraCommit, t)
	return t
}

// ProveRange proves that values[i] lies in [minValues[i], minValues[i]+2^nbits)
// for every i, under Pedersen commitments with the given blinds. All
// protocol randomness is derived from nonce; a caller who keeps the nonce
// can later recover value and blind from the proof with RewindRange.
//
// minValues may be nil, meaning zero minimums. The commitment count is
// padded internally to a power of two by repeating the last entry; the
// returned commitments are the caller's, unpadded.
func ProveRange(gens *GeneratorSet, valueGen *ristretto.Point, nbits int, values, minValues []uint64, blinds []*ristretto.Scalar, nonce, extraCommit []byte) ([]byte, []*ristretto.Point, error) {
	if len(values) == 0 {
		return nil, nil, errors.New("no values to prove")
	}
	if len(blinds) != len(values) {
		return nil, nil, fmt.Errorf("%d blinds for %d values", len(blinds), len(values))
	}
	if minValues == nil {
		minValues = make([]uint64, len(values))
	}
	if len(minValues) != len(values) {
		return nil, nil, fmt.Errorf("%d min values for %d values", len(minValues), len(values))
	}
	if gens == nil || valueGen == nil {
		return nil, nil, errors.New("nil generator set or value generator")
	}
	for i, blind := range blinds {
		if blind == nil {
			return nil, nil, fmt.Errorf("nil blind at index %d", i)
		}
	}

	paddedValues := resizeUint64ToPow2(append([]uint64(nil), values...))
	paddedMins := resizeUint64ToPow2(append([]uint64(nil), minValues...))
	paddedBlinds := resizeScalarToPow2(append([]*ristretto.Scalar(nil), blinds...))
	m := len(paddedValues)

	pg := NewPedersenGens(valueGen, gens.Blinding)
	blindGen := NewBlindGenerator(nonce)

	t := rangeTranscript(valueGen, minValues, extraCommit)
	dealer, err := NewDealer(gens, pg, t, nbits, m)
	if err != nil {
		return nil, nil, err
	}

	parties := make([]*PartyAwaitingBitChallenge, m)
	bitCommitments := make([]*BitCommitment, m)
	for j := 0; j < m; j++ {
		party, err := NewParty(gens, pg, blindGen, paddedValues[j], paddedMins[j], paddedBlinds[j], nbits)
		if err != nil {
			return nil, nil, err
		}
		next, bc, err := party.AssignPosition(j)
		if err != nil {
			return nil, nil, err
		}
		parties[j] = next
		bitCommitments[j] = bc
	}

	polyDealer, bitChallenge, err := dealer.ReceiveBitCommitments(bitCommitments)
	if err != nil {
		return nil, nil, err
	}

	polyParties := make([]*PartyAwaitingPolyChallenge, m)
	polyCommitments := make([]*PolyCommitment, m)
	for j := range parties {
		next, pc := parties[j].ApplyChallenge(bitChallenge)
		polyParties[j] = next
		polyCommitments[j] = pc
	}

	shareDealer, polyChallenge, err := polyDealer.ReceivePolyCommitments(polyCommitments)
	if err != nil {
		return nil, nil, err
	}

	shares := make([]*ProofShare, m)
	for j := range polyParties {
		share, err := polyParties[j].ApplyChallenge(polyChallenge)
		if err != nil {
			return nil, nil, err
		}
		shares[j] = share
	}

	proof, err := shareDealer.AssembleShares(shares)
	if err != nil {
		return nil, nil, err
	}

	commits := make([]*ristretto.Point, len(values))
	for i := range values {
		commits[i] = pg.Commit(uint64ToScalar(values[i]), blinds[i])
	}
	return proof.ToBytes(), commits, nil
}

// delta(y, z) = (z - z^2) * sum(y^i, i < nm) - z^3 * sum(z^j, j < m) * sum(2^i, i < n)
func delta(n, m int, y, z *ristretto.Scalar) *ristretto.Scalar {
	sumY := sumOfPowers(y, n*m)
	sumZ := sumOfPowers(z, m)
	two := uint64ToScalar(2)
	sum2 := sumOfPowers(two, n)

	var zz, left, right ristretto.Scalar
	zz.Mul(z, z)
	left.Sub(z, &zz)
	left.Mul(&left, sumY)
	right.Mul(z, &zz)
	right.Mul(&right, sum2)
	right.Mul(&right, sumZ)
	return left.Sub(&left, &right)
}

// applyRangeProof replays one proof's transcript, derives its statement
// weight c, and folds its two verification equations, each scaled by the
// batch weight bw, into the accumulator. It returns false on any
// structural defect; algebraic failures surface in the final MSM.
func applyRangeProof(b *batchVerifier, bw *ristretto.Scalar, proofBytes []byte, nbits int, commits []*ristretto.Point, minValues []uint64, valueGen *ristretto.Point, extraCommit []byte) bool {
	if len(commits) == 0 {
		return false
	}
	if nbits < 1 || nbits > 64 || !isPowerOfTwo(nbits) {
		return false
	}
	if minValues == nil {
		minValues = make([]uint64, len(commits))
	}
	if len(minValues) != len(commits) {
		return false
	}
	for _, V := range commits {
		if V == nil {
			return false
		}
	}

	paddedCommits := resizePointToPow2(append([]*ristretto.Point(nil), commits...))
	paddedMins := resizeUint64ToPow2(append([]uint64(nil), minValues...))
	m := len(paddedCommits)
	nm := nbits * m
	if nm != b.nm {
		return false
	}

	proof, err := rangeProofFromBytes(proofBytes, nm)
	if err != nil {
		return false
	}

	t := rangeTranscript(valueGen, minValues, extraCommit)
	RangeproofDomainSep(int64(nbits), int64(m), t)
	for _, V := range paddedCommits {
		t.AppendMessage([]byte("V"), V.Bytes())
	}
	t.AppendMessage([]byte("A"), proof.A.Bytes())
	t.AppendMessage([]byte("S"), proof.S.Bytes())
	y := ChallengeScalar("y", t)
	z := ChallengeScalar("z", t)
	t.AppendMessage([]byte("T_1"), proof.T1.Bytes())
	t.AppendMessage([]byte("T_2"), proof.T2.Bytes())
	x := ChallengeScalar("x", t)
	AppendScalar("t_x", proof.TX, t)
	AppendScalar("t_x_blinding", proof.TXBlinding, t)
	AppendScalar("e_blinding", proof.EBlinding, t)
	w := ChallengeScalar("w", t)

	uSq, uInvSq, s, err := verificationScalars(proof.IPPProof, nm, t)
	if err != nil {
		return false
	}

	// The statement weight folds the t_x equation into the P equation.
	// It is squeezed after the whole proof has been absorbed.
	c := ChallengeScalar("c", t)

	var zz ristretto.Scalar
	zz.Mul(z, z)
	minusZ := negScalar(z)
	a, bScalar := proof.IPPProof.A, proof.IPPProof.B

	// A, S and the IPA rounds.
	b.addTerm(cloneScalar(bw), proof.A)
	var xw ristretto.Scalar
	xw.Mul(x, bw)
	b.addTerm(cloneScalar(&xw), proof.S)
	for j := range uSq {
		var ls, rs ristretto.Scalar
		ls.Mul(uSq[j], bw)
		rs.Mul(uInvSq[j], bw)
		b.addTerm(&ls, proof.IPPProof.LVec[j])
		b.addTerm(&rs, proof.IPPProof.RVec[j])
	}

	// T1, T2 and the commitments carry the statement weight.
	var cx, cxx ristretto.Scalar
	cx.Mul(c, x)
	cxx.Mul(&cx, x)
	cx.Mul(&cx, bw)
	cxx.Mul(&cxx, bw)
	b.addTerm(&cx, proof.T1)
	b.addTerm(&cxx, proof.T2)

	// V_j coefficient c*z^2*z^j; the minimum value shifts each commitment
	// by min_j * valueGen, which folds into the basepoint scalar below.
	var czz ristretto.Scalar
	czz.Mul(c, &zz)
	var minFold ristretto.Scalar
	minFold.SetZero()
	zExp := NewScalarExp(z)
	for j := 0; j < m; j++ {
		var vs ristretto.Scalar
		vs.Mul(&czz, zExp.Next())
		var fold ristretto.Scalar
		fold.Mul(&vs, uint64ToScalar(paddedMins[j]))
		minFold.Add(&minFold, &fold)
		vs.Mul(&vs, bw)
		b.addTerm(&vs, paddedCommits[j])
	}

	// Blinding generator: -e_blinding - c*t_x_blinding.
	var bb ristretto.Scalar
	bb.Mul(c, proof.TXBlinding)
	bb.Add(&bb, proof.EBlinding)
	bb = *negScalar(&bb)
	bb.Mul(&bb, bw)
	b.addBBlinding(&bb)

	// Value generator: w*(t_x - a*b) + c*(delta - t_x) - sum_j c*zz*z^j*min_j.
	var ab, base, cdelta ristretto.Scalar
	ab.Mul(a, bScalar)
	base.Sub(proof.TX, &ab)
	base.Mul(w, &base)
	cdelta.Sub(delta(nbits, m, y, z), proof.TX)
	cdelta.Mul(c, &cdelta)
	base.Add(&base, &cdelta)
	base.Sub(&base, &minFold)
	base.Mul(&base, bw)
	b.addB(&base)

	// Per-generator scalars.
	var yInv ristretto.Scalar
	yInv.Inverse(y)
	expYInv := NewScalarExp(&yInv)
	zExp2 := NewScalarExp(z)
	var zExpJ *ristretto.Scalar
	var exp2 ristretto.Scalar
	for i := 0; i < nm; i++ {
		if i%nbits == 0 {
			zExpJ = zExp2.Next()
			exp2.SetOne()
		}

		var g ristretto.Scalar
		g.Mul(a, s[i])
		g.Sub(minusZ, &g)
		g.Mul(&g, bw)
		b.addG(i, &g)

		// z + y^-i * (zz * z^j * 2^(i mod n) - b / s_i)
		var sInv ristretto.Scalar
		sInv.Inverse(s[i])
		var h, tmp ristretto.Scalar
		h.Mul(&zz, zExpJ)
		h.Mul(&h, &exp2)
		tmp.Mul(bScalar, &sInv)
		h.Sub(&h, &tmp)
		h.Mul(expYInv.Next(), &h)
		h.Add(z, &h)
		h.Mul(&h, bw)
		b.addH(i, &h)

		exp2.Add(&exp2, &exp2)
	}
	return true
}

// VerifyRange checks a single rangeproof. Rejection is indistinguishable
// across causes: malformed encodings, wrong statements and wrong algebra
// all return false.
func VerifyRange(scratch *Scratch, gens *GeneratorSet, proof []byte, nbits int, commits []*ristretto.Point, minValues []uint64, valueGen *ristretto.Point, extraCommit []byte) bool {
	if scratch == nil || gens == nil || valueGen == nil {
		return false
	}
	if nbits < 1 || nbits > 64 || !isPowerOfTwo(nbits) || len(commits) == 0 {
		return false
	}
	nm := nbits * nextPowerOfTwo(len(commits))
	b, err := newBatchVerifier(scratch, gens, nm, valueGen)
	if err != nil {
		return false
	}
	var one ristretto.Scalar
	one.SetOne()
	if !applyRangeProof(b, &one, proof, nbits, commits, minValues, valueGen, extraCommit) {
		return false
	}
	return b.verify()
}

// VerifyRangeMulti checks a batch of rangeproofs in one multi-scalar
// multiplication. All proofs must share nbits, commitment count and
// generators. Each proof gets a Fiat-Shamir weight derived after the
// whole batch is fixed, so no subset of invalid proofs can cancel.
func VerifyRangeMulti(scratch *Scratch, gens *GeneratorSet, proofs [][]byte, nbits int, commits [][]*ristretto.Point, minValues [][]uint64, valueGen *ristretto.Point, extraCommits [][]byte) bool {
	if scratch == nil || gens == nil || valueGen == nil {
		return false
	}
	if len(proofs) == 0 {
		return false
	}
	if len(commits) != len(proofs) {
		return false
	}
	if minValues != nil && len(minValues) != len(proofs) {
		return false
	}
	if extraCommits != nil && len(extraCommits) != len(proofs) {
		return false
	}
	if nbits < 1 || nbits > 64 || !isPowerOfTwo(nbits) || len(commits[0]) == 0 {
		return false
	}
	nCommits := len(commits[0])
	for i := range commits {
		if len(commits[i]) != nCommits {
			return false
		}
	}

	nm := nbits * nextPowerOfTwo(nCommits)
	b, err := newBatchVerifier(scratch, gens, nm, valueGen)
	if err != nil {
		return false
	}

	bt := newBatchTranscript(proofs)
	for i := range proofs {
		var mins []uint64
		if minValues != nil {
			mins = minValues[i]
		}
		var extra []byte
		if extraCommits != nil {
			extra = extraCommits[i]
		}
		bw := batchWeight(bt, i)
		if !applyRangeProof(b, bw, proofs[i], nbits, commits[i], mins, valueGen, extra) {
			return false
		}
	}
	return b.verify()
}

// RewindRange recovers the value and blinding factor of a single-commitment
// rangeproof, given the nonce its prover derived the protocol randomness
// from. It returns false if the nonce, minimum value or commitment do not
// match the proof.
func RewindRange(gens *GeneratorSet, proof []byte, nbits int, commit *ristretto.Point, minValue uint64, valueGen *ristretto.Point, nonce, extraCommit []byte) (uint64, *ristretto.Scalar, bool) {
	if gens == nil || valueGen == nil || commit == nil {
		return 0, nil, false
	}
	if nbits < 1 || nbits > 64 || !isPowerOfTwo(nbits) {
		return 0, nil, false
	}
	p, err := rangeProofFromBytes(proof, nbits)
	if err != nil {
		return 0, nil, false
	}

	t := rangeTranscript(valueGen, []uint64{minValue}, extraCommit)
	RangeproofDomainSep(int64(nbits), 1, t)
	t.AppendMessage([]byte("V"), commit.Bytes())
	t.AppendMessage([]byte("A"), p.A.Bytes())
	t.AppendMessage([]byte("S"), p.S.Bytes())
	ChallengeScalar("y", t)
	z := ChallengeScalar("z", t)
	t.AppendMessage([]byte("T_1"), p.T1.Bytes())
	t.AppendMessage([]byte("T_2"), p.T2.Bytes())
	x := ChallengeScalar("x", t)

	blindGen := NewBlindGenerator(nonce)
	alpha := blindGen.Derive("alpha", 0)
	rho := blindGen.Derive("rho", 0)

	// e_blinding = (alpha + v') + x*rho, so v' falls out once the derived
	// parts are stripped.
	var proven ristretto.Scalar
	proven.Mul(x, rho)
	proven.Add(alpha, &proven)
	proven.Sub(p.EBlinding, &proven)
	provenValue, ok := scalarToUint64(&proven)
	if !ok {
		return 0, nil, false
	}
	if nbits < 64 && provenValue >= 1<<nbits {
		return 0, nil, false
	}
	value := minValue + provenValue

	// t_x_blinding = z^2*gamma + x*tau_1 + x^2*tau_2.
	tau1 := blindGen.Derive("tau_1", 0)
	tau2 := blindGen.Derive("tau_2", 0)
	var gamma, tmp ristretto.Scalar
	gamma.Mul(x, tau1)
	gamma.Sub(p.TXBlinding, &gamma)
	tmp.Mul(x, x)
	tmp.Mul(&tmp, tau2)
	gamma.Sub(&gamma, &tmp)
	var zzInv ristretto.Scalar
	zzInv.Mul(z, z)
	zzInv.Inverse(&zzInv)
	gamma.Mul(&gamma, &zzInv)

	pg := NewPedersenGens(valueGen, gens.Blinding)
	expect := pg.Commit(uint64ToScalar(value), &gamma)
	if !bytes.Equal(expect.Bytes(), commit.Bytes()) {
		return 0, nil, false
	}
	return value, &gamma, true
}
