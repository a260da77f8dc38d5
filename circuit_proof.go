package bulletproofs

import (
	"errors"
	"fmt"

	"github.com/bwesterb/go-ristretto"
	"github.com/gtank/merlin"
)

// CircuitProof shows that a prover knows a wire assignment satisfying an
// arithmetic circuit, with selected output wires bound to Pedersen
// commitments. The argument commits to the wire vectors, reduces all
// constraints to one polynomial identity t(x) = <l(x), r(x)>, and closes
// with the inner-product argument over l(x) and r(x).
type CircuitProof struct {
	AI *ristretto.Point
	AO *ristretto.Point
	S  *ristretto.Point
	T1 *ristretto.Point
	T3 *ristretto.Point
	T4 *ristretto.Point
	T5 *ristretto.Point
	T6 *ristretto.Point

	THat     *ristretto.Scalar
	TauX     *ristretto.Scalar
	Mu       *ristretto.Scalar
	IPPProof *InnerProductProof
}

func (p *CircuitProof) ToBytes() []byte {
	var buf []byte
	for _, pt := range []*ristretto.Point{p.AI, p.AO, p.S, p.T1, p.T3, p.T4, p.T5, p.T6} {
		buf = append(buf, pt.Bytes()...)
	}
	buf = append(buf, p.THat.Bytes()...)
	buf = append(buf, p.TauX.Bytes()...)
	buf = append(buf, p.Mu.Bytes()...)
	buf = append(buf, p.IPPProof.ToBytes()...)
	return buf
}

// circuitProofFromBytes parses a proof over n gates (a power of two). The
// layout is AI | AO | S | T1 | T3 | T4 | T5 | T6 | t_hat | tau_x | mu |
// (L_i R_i)*k | a | b with k = log2(n).
func circuitProofFromBytes(data []byte, n int) (*CircuitProof, error) {
	if len(data) > MaxProof {
		return nil, fmt.Errorf("proof length %d exceeds cap %d", len(data), MaxProof)
	}
	rounds := log2(n)
	want := (13 + 2*rounds) * 32
	if len(data) != want {
		return nil, fmt.Errorf("circuit proof length %d, want %d", len(data), want)
	}

	p := &CircuitProof{}
	points := []**ristretto.Point{&p.AI, &p.AO, &p.S, &p.T1, &p.T3, &p.T4, &p.T5, &p.T6}
	off := 0
	for _, dst := range points {
		var pt ristretto.Point
		if err := pt.UnmarshalBinary(data[off : off+32]); err != nil {
			return nil, err
		}
		*dst = &pt
		off += 32
	}
	scalars := []**ristretto.Scalar{&p.THat, &p.TauX, &p.Mu}
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

// circuitTranscript binds the statement: the circuit itself (by hash), the
// value generator and the caller's extra commitment data.
func circuitTranscript(circ *Circuit, valueGen *ristretto.Point, extraCommit []byte) (*merlin.Transcript, error) {
	hash, err := circuitHash(circ)
	if err != nil {
		return nil, err
	}
	t := InitialTranscript(BULLETPROOF_DOMAIN_TAG)
	AppendPoint("value_gen", valueGen, t)
	appendBytes([]byte("circuit_hash"), hash, t)
	appendBytes([]byte("extra_commit"), extraCommit, t)
	return t, nil
}

// ProveCircuit proves that the assignment satisfies the circuit. The
// circuit's committed wires are bound to Pedersen commitments under the
// returned blinds; all protocol randomness is derived from nonce.
//
// The gate count must already be a power of two; use (*Circuit).Pad.
func ProveCircuit(gens *GeneratorSet, circ *Circuit, assn *CircuitAssignment, blinds []*ristretto.Scalar, nonce []byte, valueGen *ristretto.Point, extraCommit []byte) ([]byte, []*ristretto.Point, error) {
	if circ == nil || assn == nil {
		return nil, nil, errors.New("nil circuit or assignment")
	}
	if gens == nil || valueGen == nil {
		return nil, nil, errors.New("nil generator set or value generator")
	}
	n := circ.NGates
	if !isPowerOfTwo(n) {
		return nil, nil, fmt.Errorf("gate count %d is not a power of two", n)
	}
	if circ.totalConstraints() == 0 {
		return nil, nil, errors.New("circuit has no constraints")
	}
	if len(blinds) != circ.NCommits {
		return nil, nil, fmt.Errorf("%d blinds for %d commitments", len(blinds), circ.NCommits)
	}
	var zero ristretto.Scalar
	zero.SetZero()
	for i, blind := range blinds {
		if blind == nil || zero.Equals(blind) {
			return nil, nil, fmt.Errorf("zero blind at index %d", i)
		}
	}
	if !EvaluateCircuit(circ, assn) {
		return nil, nil, errors.New("assignment does not satisfy circuit")
	}
	if gens.Capacity() < 2*n {
		return nil, nil, fmt.Errorf("generator set capacity %d below %d", gens.Capacity(), 2*n)
	}

	pg := NewPedersenGens(valueGen, gens.Blinding)
	blindGen := NewBlindGenerator(nonce)

	values := circ.committedValues(assn)
	commits := make([]*ristretto.Point, circ.NCommits)
	for j := 0; j < circ.NCommits; j++ {
		commits[j] = pg.Commit(values[j], blinds[j])
	}

	t, err := circuitTranscript(circ, valueGen, extraCommit)
	if err != nil {
		return nil, nil, err
	}
	CircuitDomainSep(uint64(n), uint64(circ.totalConstraints()), t)
	for _, V := range commits {
		t.AppendMessage([]byte("V"), V.Bytes())
	}

	G, err := gens.vectorG(n)
	if err != nil {
		return nil, nil, err
	}
	H, err := gens.vectorH(n)
	if err != nil {
		return nil, nil, err
	}

	alpha := blindGen.Derive("alpha", 0)
	beta := blindGen.Derive("beta", 0)
	rho := blindGen.Derive("rho", 0)

	sL := make([]*ristretto.Scalar, n)
	sR := make([]*ristretto.Scalar, n)
	for i := 0; i < n; i++ {
		sL[i] = blindGen.Derive("s_L", uint64(i))
		sR[i] = blindGen.Derive("s_R", uint64(i))
	}

	// A_I = alpha*B_blinding + <a_L, G> + <a_R, H>
	chainS := append([]*ristretto.Scalar{alpha}, assn.AL...)
	chainS = append(chainS, assn.AR...)
	chainP := append([]*ristretto.Point{gens.Blinding}, G...)
	chainP = append(chainP, H...)
	AI := multiscalarMul(chainS, chainP)

	// A_O = beta*B_blinding + <a_O, G>
	chainS = append([]*ristretto.Scalar{beta}, assn.AO...)
	chainP = append([]*ristretto.Point{gens.Blinding}, G...)
	AO := multiscalarMul(chainS, chainP)

	// S = rho*B_blinding + <s_L, G> + <s_R, H>
	chainS = append([]*ristretto.Scalar{rho}, sL...)
	chainS = append(chainS, sR...)
	chainP = append([]*ristretto.Point{gens.Blinding}, G...)
	chainP = append(chainP, H...)
	S := multiscalarMul(chainS, chainP)

	t.AppendMessage([]byte("A_I"), AI.Bytes())
	t.AppendMessage([]byte("A_O"), AO.Bytes())
	t.AppendMessage([]byte("S"), S.Bytes())
	y := ChallengeScalar("y", t)
	z := ChallengeScalar("z", t)

	wL, wR, wO, wV, _ := circ.foldedWeights(z)

	yN := powersOf(y, n)
	var yInv ristretto.Scalar
	yInv.Inverse(y)
	yInvN := powersOf(&yInv, n)

	// l(X) = (a_L + y^-n o w_R)*X + a_O*X^2 + s_L*X^3
	// r(X) = (w_O - y^n) + (y^n o a_R + w_L)*X + (y^n o s_R)*X^3
	l := ZeroVecPoly3(n)
	r := ZeroVecPoly3(n)
	for i := 0; i < n; i++ {
		var li ristretto.Scalar
		li.Mul(yInvN[i], wR[i])
		l.T1[i].Add(assn.AL[i], &li)
		l.T2[i] = cloneScalar(assn.AO[i])
		l.T3[i] = cloneScalar(sL[i])

		r.T0[i].Sub(wO[i], yN[i])
		var ri ristretto.Scalar
		ri.Mul(yN[i], assn.AR[i])
		r.T1[i].Add(&ri, wL[i])
		r.T3[i].Mul(yN[i], sR[i])
	}

	tPoly := l.InnerProduct(r)

	tau1 := blindGen.Derive("tau", 1)
	tau3 := blindGen.Derive("tau", 3)
	tau4 := blindGen.Derive("tau", 4)
	tau5 := blindGen.Derive("tau", 5)
	tau6 := blindGen.Derive("tau", 6)

	T1 := pg.Commit(tPoly.T1, tau1)
	T3 := pg.Commit(tPoly.T3, tau3)
	T4 := pg.Commit(tPoly.T4, tau4)
	T5 := pg.Commit(tPoly.T5, tau5)
	T6 := pg.Commit(tPoly.T6, tau6)

	t.AppendMessage([]byte("T_1"), T1.Bytes())
	t.AppendMessage([]byte("T_3"), T3.Bytes())
	t.AppendMessage([]byte("T_4"), T4.Bytes())
	t.AppendMessage([]byte("T_5"), T5.Bytes())
	t.AppendMessage([]byte("T_6"), T6.Bytes())
	x := ChallengeScalar("x", t)

	lVec := l.Eval(x)
	rVec := r.Eval(x)
	tHat := innerProduct(lVec, rVec)

	// tau_x = sum(tau_i * x^i) + x^2 * <w_V, gamma>
	var tauX ristretto.Scalar
	tauX.SetZero()
	xExp := cloneScalar(x)
	for _, tau := range []*ristretto.Scalar{tau1, nil, tau3, tau4, tau5, tau6} {
		if tau != nil {
			var term ristretto.Scalar
			term.Mul(tau, xExp)
			tauX.Add(&tauX, &term)
		}
		xExp.Mul(xExp, x)
	}
	var xx ristretto.Scalar
	xx.Mul(x, x)
	for j := 0; j < circ.NCommits; j++ {
		var term ristretto.Scalar
		term.Mul(wV[j], blinds[j])
		term.Mul(&term, &xx)
		tauX.Add(&tauX, &term)
	}

	// mu = alpha*x + beta*x^2 + rho*x^3
	var mu ristretto.Scalar
	mu.Mul(rho, x)
	mu.Add(&mu, beta)
	mu.Mul(&mu, x)
	mu.Add(&mu, alpha)
	mu.Mul(&mu, x)

	AppendScalar("t_x", tHat, t)
	AppendScalar("t_x_blinding", &tauX, t)
	AppendScalar("e_blinding", &mu, t)
	w := ChallengeScalar("w", t)

	var Q ristretto.Point
	Q.ScalarMult(valueGen, w)

	gFactors := make([]*ristretto.Scalar, n)
	hFactors := make([]*ristretto.Scalar, n)
	gVec := make([]*ristretto.Point, n)
	hVec := make([]*ristretto.Point, n)
	for i := 0; i < n; i++ {
		var one ristretto.Scalar
		gFactors[i] = one.SetOne()
		hFactors[i] = cloneScalar(yInvN[i])
		gVec[i] = clonePoint(G[i])
		hVec[i] = clonePoint(H[i])
	}
	ipp := CreateInnerProductProof(t, &Q, gFactors, hFactors, gVec, hVec, lVec, rVec)

	proof := &CircuitProof{
		AI: AI, AO: AO, S: S,
		T1: T1, T3: T3, T4: T4, T5: T5, T6: T6,
		THat: tHat, TauX: &tauX, Mu: &mu,
		IPPProof: ipp,
	}
	return proof.ToBytes(), commits, nil
}

// applyCircuitProof replays one proof's transcript and folds its
// verification equations, scaled by the batch weight bw, into the
// accumulator.
func applyCircuitProof(b *batchVerifier, bw *ristretto.Scalar, circ *Circuit, proofBytes []byte, commits []*ristretto.Point, valueGen *ristretto.Point, extraCommit []byte) bool {
	if circ == nil {
		return false
	}
	n := circ.NGates
	if !isPowerOfTwo(n) || n != b.nm {
		return false
	}
	if circ.totalConstraints() == 0 {
		return false
	}
	if len(commits) != circ.NCommits {
		return false
	}
	for _, V := range commits {
		if V == nil {
			return false
		}
	}

	proof, err := circuitProofFromBytes(proofBytes, n)
	if err != nil {
		return false
	}

	t, err := circuitTranscript(circ, valueGen, extraCommit)
	if err != nil {
		return false
	}
	CircuitDomainSep(uint64(n), uint64(circ.totalConstraints()), t)
	for _, V := range commits {
		t.AppendMessage([]byte("V"), V.Bytes())
	}
	t.AppendMessage([]byte("A_I"), proof.AI.Bytes())
	t.AppendMessage([]byte("A_O"), proof.AO.Bytes())
	t.AppendMessage([]byte("S"), proof.S.Bytes())
	y := ChallengeScalar("y", t)
	z := ChallengeScalar("z", t)
	t.AppendMessage([]byte("T_1"), proof.T1.Bytes())
	t.AppendMessage([]byte("T_3"), proof.T3.Bytes())
	t.AppendMessage([]byte("T_4"), proof.T4.Bytes())
	t.AppendMessage([]byte("T_5"), proof.T5.Bytes())
	t.AppendMessage([]byte("T_6"), proof.T6.Bytes())
	x := ChallengeScalar("x", t)
	AppendScalar("t_x", proof.THat, t)
	AppendScalar("t_x_blinding", proof.TauX, t)
	AppendScalar("e_blinding", proof.Mu, t)
	w := ChallengeScalar("w", t)

	uSq, uInvSq, s, err := verificationScalars(proof.IPPProof, n, t)
	if err != nil {
		return false
	}
	c := ChallengeScalar("c", t)

	wL, wR, wO, wV, wc := circ.foldedWeights(z)

	var yInv ristretto.Scalar
	yInv.Inverse(y)
	yInvN := powersOf(&yInv, n)

	// delta = <y^-n o w_R, w_L>
	var deltaC ristretto.Scalar
	deltaC.SetZero()
	for i := 0; i < n; i++ {
		var term ristretto.Scalar
		term.Mul(yInvN[i], wR[i])
		term.Mul(&term, wL[i])
		deltaC.Add(&deltaC, &term)
	}

	a, bScalar := proof.IPPProof.A, proof.IPPProof.B

	// A_I, A_O, S and the IPA rounds.
	var xs, xxs, xxxs ristretto.Scalar
	xs.Mul(x, bw)
	xxs.Mul(x, x)
	xxxs.Mul(&xxs, x)
	xxxs.Mul(&xxxs, bw)
	xxs.Mul(&xxs, bw)
	b.addTerm(&xs, proof.AI)
	b.addTerm(&xxs, proof.AO)
	b.addTerm(&xxxs, proof.S)
	for j := range uSq {
		var ls, rs ristretto.Scalar
		ls.Mul(uSq[j], bw)
		rs.Mul(uInvSq[j], bw)
		b.addTerm(&ls, proof.IPPProof.LVec[j])
		b.addTerm(&rs, proof.IPPProof.RVec[j])
	}

	// T_i carry the statement weight; T_2 is absent, its coefficient is
	// fixed by the statement.
	xExp := cloneScalar(x)
	for _, T := range []*ristretto.Point{proof.T1, nil, proof.T3, proof.T4, proof.T5, proof.T6} {
		if T != nil {
			var ts ristretto.Scalar
			ts.Mul(c, xExp)
			ts.Mul(&ts, bw)
			b.addTerm(&ts, T)
		}
		xExp.Mul(xExp, x)
	}

	// V_j: c * x^2 * w_V_j.
	var cxx ristretto.Scalar
	cxx.Mul(x, x)
	cxx.Mul(&cxx, c)
	for j := 0; j < circ.NCommits; j++ {
		var vs ristretto.Scalar
		vs.Mul(&cxx, wV[j])
		vs.Mul(&vs, bw)
		b.addTerm(&vs, commits[j])
	}

	// Blinding generator: -mu - c*tau_x.
	var bb ristretto.Scalar
	bb.Mul(c, proof.TauX)
	bb.Add(&bb, proof.Mu)
	bb = *negScalar(&bb)
	bb.Mul(&bb, bw)
	b.addBBlinding(&bb)

	// Value generator: w*(t_hat - a*b) + c*(x^2*(delta + w_c) - t_hat).
	var ab, base, stmt ristretto.Scalar
	ab.Mul(a, bScalar)
	base.Sub(proof.THat, &ab)
	base.Mul(w, &base)
	stmt.Add(&deltaC, wc)
	var xx ristretto.Scalar
	xx.Mul(x, x)
	stmt.Mul(&stmt, &xx)
	stmt.Sub(&stmt, proof.THat)
	stmt.Mul(c, &stmt)
	base.Add(&base, &stmt)
	base.Mul(&base, bw)
	b.addB(&base)

	// G_i: x*y^-i*w_R_i - a*s_i
	// H_i: y^-i*(x*w_L_i + w_O_i - b/s_i) - 1
	var one ristretto.Scalar
	one.SetOne()
	for i := 0; i < n; i++ {
		var g, tmp ristretto.Scalar
		g.Mul(x, yInvN[i])
		g.Mul(&g, wR[i])
		tmp.Mul(a, s[i])
		g.Sub(&g, &tmp)
		g.Mul(&g, bw)
		b.addG(i, &g)

		var sInv ristretto.Scalar
		sInv.Inverse(s[i])
		var h, t2 ristretto.Scalar
		h.Mul(x, wL[i])
		h.Add(&h, wO[i])
		t2.Mul(bScalar, &sInv)
		h.Sub(&h, &t2)
		h.Mul(&h, yInvN[i])
		h.Sub(&h, &one)
		h.Mul(&h, bw)
		b.addH(i, &h)
	}
	return true
}

// VerifyCircuit checks a single circuit proof. Circuits are not padded
// here: a non-power-of-two gate count is rejected outright.
func VerifyCircuit(scratch *Scratch, gens *GeneratorSet, circ *Circuit, proof []byte, commits []*ristretto.Point, valueGen *ristretto.Point, extraCommit []byte) bool {
	if scratch == nil || gens == nil || valueGen == nil {
		return false
	}
	if circ == nil || !isPowerOfTwo(circ.NGates) {
		return false
	}
	b, err := newBatchVerifier(scratch, gens, circ.NGates, valueGen)
	if err != nil {
		return false
	}
	var one ristretto.Scalar
	one.SetOne()
	if !applyCircuitProof(b, &one, circ, proof, commits, valueGen, extraCommit) {
		return false
	}
	return b.verify()
}

// VerifyCircuitMulti batch-verifies circuit proofs. The circuits may
// differ but must share a gate count, since the generator vectors are
// shared across the accumulated MSM.
func VerifyCircuitMulti(scratch *Scratch, gens *GeneratorSet, circs []*Circuit, proofs [][]byte, commits [][]*ristretto.Point, valueGen *ristretto.Point, extraCommits [][]byte) bool {
	if scratch == nil || gens == nil || valueGen == nil {
		return false
	}
	if len(proofs) == 0 || len(circs) != len(proofs) || len(commits) != len(proofs) {
		return false
	}
	if extraCommits != nil && len(extraCommits) != len(proofs) {
		return false
	}
	if circs[0] == nil || !isPowerOfTwo(circs[0].NGates) {
		return false
	}
	n := circs[0].NGates
	for _, circ := range circs {
		if circ == nil || circ.NGates != n {
			return false
		}
	}

	b, err := newBatchVerifier(scratch, gens, n, valueGen)
	if err != nil {
		return false
	}
	bt := newBatchTranscript(proofs)
	for i := range proofs {
		var extra []byte
		if extraCommits != nil {
			extra = extraCommits[i]
		}
		bw := batchWeight(bt, i)
		if !applyCircuitProof(b, bw, circs[i], proofs[i], commits[i], valueGen, extra) {
			return false
		}
	}
	return b.verify()
}
