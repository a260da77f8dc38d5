package bulletproofs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bwesterb/go-ristretto"
	"github.com/stretchr/testify/assert"
)

func TestRangeCircuitEvaluate(t *testing.T) {
	assert := assert.New(t)

	circ, err := RangeCircuit(8)
	assert.Nil(err)
	assert.Equal(16, circ.NGates)
	assert.Equal(8, circ.NBits)
	assert.Equal(1, circ.NCommits)
	assert.Equal(1, circ.NConstraints)

	assn, err := RangeAssignment(8, 200)
	assert.Nil(err)
	assert.True(EvaluateCircuit(circ, assn))

	vals := circ.committedValues(assn)
	assert.Len(vals, 1)
	assert.True(vals[0].Equals(uint64ToScalar(200)))

	// Breaking the gate product fails evaluation.
	bad, err := RangeAssignment(8, 200)
	assert.Nil(err)
	bad.AO[0] = uint64ToScalar(1)
	assert.False(EvaluateCircuit(circ, bad))

	// A non-bit left wire on a bit gate fails evaluation.
	bad2, err := RangeAssignment(8, 200)
	assert.Nil(err)
	bad2.AL[0] = uint64ToScalar(2)
	bad2.AR[0] = uint64ToScalar(1)
	bad2.AO[0] = uint64ToScalar(2)
	assert.False(EvaluateCircuit(circ, bad2))

	// A wire count mismatch is a hard false.
	assert.False(EvaluateCircuit(circ, &CircuitAssignment{}))
	assert.False(EvaluateCircuit(nil, assn))
	assert.False(EvaluateCircuit(circ, nil))

	_, err = RangeAssignment(8, 300)
	assert.NotNil(err)
}

func TestCircuitEq(t *testing.T) {
	assert := assert.New(t)

	c1, err := RangeCircuit(8)
	assert.Nil(err)
	c2, err := RangeCircuit(8)
	assert.Nil(err)
	assert.True(CircuitEq(c1, c2))
	assert.True(CircuitEq(nil, nil))
	assert.False(CircuitEq(c1, nil))

	c3, err := RangeCircuit(10)
	assert.Nil(err)
	assert.False(CircuitEq(c1, c3))

	// Same shape, one coefficient off.
	c4, err := RangeCircuit(8)
	assert.Nil(err)
	c4.WL[0][0].Coeff = uint64ToScalar(3)
	assert.False(CircuitEq(c1, c4))

	// Same shape, one constant off.
	c5, err := RangeCircuit(8)
	assert.Nil(err)
	c5.Constants[0] = uint64ToScalar(1)
	assert.False(CircuitEq(c1, c5))
}

func TestCircuitEncodeDecode(t *testing.T) {
	assert := assert.New(t)

	circ, err := RangeCircuit(8)
	assert.Nil(err)
	data, err := EncodeCircuit(circ)
	assert.Nil(err)

	decoded, err := DecodeCircuit(data)
	assert.Nil(err)
	assert.True(CircuitEq(circ, decoded))

	// Re-encoding is byte stable, so the circuit hash is too.
	data2, err := EncodeCircuit(decoded)
	assert.Nil(err)
	assert.Equal(data, data2)

	h1, err := circuitHash(circ)
	assert.Nil(err)
	h2, err := circuitHash(decoded)
	assert.Nil(err)
	assert.Equal(h1, h2)

	// Header rejections.
	_, err = DecodeCircuit(data[:16])
	assert.NotNil(err)

	badVersion := append([]byte(nil), data...)
	badVersion[0] = 9
	_, err = DecodeCircuit(badVersion)
	assert.NotNil(err)

	_, err = DecodeCircuit(append(data, 0))
	assert.NotNil(err)
	_, err = DecodeCircuit(data[:len(data)-1])
	assert.NotNil(err)
}

func TestEncodingWidth(t *testing.T) {
	assert := assert.New(t)

	// Row width is ceil(bitlength(n)/8), so exact powers of 256 need the
	// extra byte: a row's term count may equal the gate count itself.
	assert.Equal(1, encodingWidth(1))
	assert.Equal(1, encodingWidth(255))
	assert.Equal(2, encodingWidth(256))
	assert.Equal(2, encodingWidth(65535))
	assert.Equal(3, encodingWidth(65536))
	assert.Equal(8, encodingWidth(1<<62))

	// A 256-gate circuit round-trips through two-byte row indices.
	circ, err := NewCircuit(256, 0, 0, 1)
	assert.Nil(err)
	assert.Nil(circ.AddTerm(WireLeft, 255, 0, uint64ToScalar(1)))
	data, err := EncodeCircuit(circ)
	assert.Nil(err)
	decoded, err := DecodeCircuit(data)
	assert.Nil(err)
	assert.True(CircuitEq(circ, decoded))
}

func TestCircuitDecodeFile(t *testing.T) {
	assert := assert.New(t)

	circ, err := RangeCircuit(4)
	assert.Nil(err)
	data, err := EncodeCircuit(circ)
	assert.Nil(err)

	fname := filepath.Join(t.TempDir(), "range.circuit")
	assert.Nil(os.WriteFile(fname, data, 0o644))

	decoded, err := DecodeCircuitFile(fname)
	assert.Nil(err)
	assert.True(CircuitEq(circ, decoded))

	_, err = DecodeCircuitFile(filepath.Join(t.TempDir(), "missing"))
	assert.NotNil(err)
}

func TestAssignmentEncodeDecode(t *testing.T) {
	assert := assert.New(t)

	assn, err := RangeAssignment(8, 123)
	assert.Nil(err)
	data, err := EncodeAssignment(assn)
	assert.Nil(err)

	decoded, err := DecodeAssignment(data)
	assert.Nil(err)
	for i := range assn.AL {
		assert.True(assn.AL[i].Equals(decoded.AL[i]))
		assert.True(assn.AR[i].Equals(decoded.AR[i]))
		assert.True(assn.AO[i].Equals(decoded.AO[i]))
	}

	_, err = DecodeAssignment(data[:len(data)-1])
	assert.NotNil(err)
	_, err = DecodeAssignment(nil)
	assert.NotNil(err)

	fname := filepath.Join(t.TempDir(), "range.assn")
	assert.Nil(os.WriteFile(fname, data, 0o644))
	fromFile, err := DecodeAssignmentFile(fname)
	assert.Nil(err)
	assert.True(EvaluateCircuit(mustRangeCircuit(t, 8), fromFile))
}

func mustRangeCircuit(t *testing.T, nbits int) *Circuit {
	circ, err := RangeCircuit(nbits)
	if err != nil {
		t.Fatal(err)
	}
	return circ
}

func TestParseCircuit(t *testing.T) {
	assert := assert.New(t)

	// One gate, one constraint: L0 * R0 = O0 with L0 + R0 - O0 = 1.
	circ, err := ParseCircuit("1,0,0,1; L0 + R0 - O0 = 1;")
	assert.Nil(err)

	manual, err := NewCircuit(1, 0, 0, 1)
	assert.Nil(err)
	var one ristretto.Scalar
	one.SetOne()
	assert.Nil(manual.AddTerm(WireLeft, 0, 0, &one))
	assert.Nil(manual.AddTerm(WireRight, 0, 0, &one))
	assert.Nil(manual.AddTerm(WireOutput, 0, 0, negScalar(&one)))
	assert.Nil(manual.SetConstant(0, negScalar(&one)))
	assert.True(CircuitEq(circ, manual))

	// Coefficients and multiple constraints.
	circ2, err := ParseCircuit("4,2,1,2; L0 + 2*L1 - O2 = 0; 3*R3 = 6;")
	assert.Nil(err)
	assert.Equal(4, circ2.NGates)
	assert.Equal(2, circ2.NBits)
	assert.Equal(1, circ2.NCommits)
	assert.Equal(2, circ2.NConstraints)

	// Malformed descriptions.
	for _, desc := range []string{
		"",
		"1,0,0",
		"1,0,0,1",
		"1,0,0,1; L0 = 1; R0 = 1;",
		"1,0,0,1; X0 = 1;",
		"1,0,0,1; L9 = 1;",
		"1,0,0,1; L0 == 1;",
		"1,0,0,1; L0 = abc;",
	} {
		_, err := ParseCircuit(desc)
		assert.NotNil(err, "description %q", desc)
	}
}

func TestCircuitProof(t *testing.T) {
	assert := assert.New(t)

	circ, err := RangeCircuit(8)
	assert.Nil(err)
	assn, err := RangeAssignment(8, 200)
	assert.Nil(err)

	gens, err := NewGeneratorSet(DefaultBlindingGen(), 2*circ.NGates, 1)
	assert.Nil(err)
	valueGen := DefaultValueGen()
	scratch := NewScratch(1 << 20)

	blinds := randBlinds(1)
	proof, commits, err := ProveCircuit(gens, circ, assn, blinds, testNonce(20), valueGen, []byte("extra"))
	assert.Nil(err)
	assert.Len(commits, 1)

	// The commitment binds the proven value under the returned blind.
	pg := NewPedersenGens(valueGen, gens.Blinding)
	want := pg.Commit(uint64ToScalar(200), blinds[0])
	assert.Equal(want.Bytes(), commits[0].Bytes())

	assert.True(VerifyCircuit(scratch, gens, circ, proof, commits, valueGen, []byte("extra")))
	assert.False(VerifyCircuit(scratch, gens, circ, proof, commits, valueGen, nil))
	assert.False(VerifyCircuit(scratch, gens, circ, proof, []*ristretto.Point{DefaultValueGen()}, valueGen, []byte("extra")))

	for _, off := range []int{0, 40, 256, 300, len(proof) - 1} {
		tampered := append([]byte(nil), proof...)
		tampered[off] ^= 0x20
		assert.False(VerifyCircuit(scratch, gens, circ, tampered, commits, valueGen, []byte("extra")))
	}

	// A different circuit with the same gate count does not verify.
	circ2, err := RangeCircuit(10)
	assert.Nil(err)
	assert.False(VerifyCircuit(scratch, gens, circ2, proof, commits, valueGen, []byte("extra")))
}

func TestCircuitProofScalarEncoding(t *testing.T) {
	assert := assert.New(t)

	circ, err := RangeCircuit(8)
	assert.Nil(err)
	assn, err := RangeAssignment(8, 200)
	assert.Nil(err)
	gens, err := NewGeneratorSet(DefaultBlindingGen(), 2*circ.NGates, 1)
	assert.Nil(err)
	valueGen := DefaultValueGen()
	scratch := NewScratch(1 << 20)

	proof, commits, err := ProveCircuit(gens, circ, assn, randBlinds(1), testNonce(22), valueGen, nil)
	assert.Nil(err)
	assert.True(VerifyCircuit(scratch, gens, circ, proof, commits, valueGen, nil))

	// Non-canonical re-encodings of t_hat, tau_x, mu and the closing a, b
	// must not pass as distinct valid proofs.
	for _, off := range []int{8 * 32, 9 * 32, 10 * 32, len(proof) - 64, len(proof) - 32} {
		tampered := append([]byte(nil), proof...)
		tampered[off+31] ^= 0x80
		assert.False(VerifyCircuit(scratch, gens, circ, tampered, commits, valueGen, nil))
	}
}

func TestCircuitProofNilInputs(t *testing.T) {
	assert := assert.New(t)

	circ, err := RangeCircuit(8)
	assert.Nil(err)
	assn, err := RangeAssignment(8, 200)
	assert.Nil(err)
	gens, err := NewGeneratorSet(DefaultBlindingGen(), 2*circ.NGates, 1)
	assert.Nil(err)
	valueGen := DefaultValueGen()
	scratch := NewScratch(1 << 20)

	blinds := randBlinds(1)
	proof, commits, err := ProveCircuit(gens, circ, assn, blinds, testNonce(23), valueGen, nil)
	assert.Nil(err)

	assert.False(VerifyCircuit(scratch, gens, circ, proof, commits, nil, nil))
	assert.False(VerifyCircuit(scratch, nil, circ, proof, commits, valueGen, nil))
	assert.False(VerifyCircuit(nil, gens, circ, proof, commits, valueGen, nil))
	assert.False(VerifyCircuit(scratch, gens, circ, proof, []*ristretto.Point{nil}, valueGen, nil))
	assert.False(VerifyCircuitMulti(scratch, gens, []*Circuit{circ}, [][]byte{proof}, [][]*ristretto.Point{commits}, nil, nil))

	_, _, err = ProveCircuit(nil, circ, assn, blinds, testNonce(23), valueGen, nil)
	assert.NotNil(err)
	_, _, err = ProveCircuit(gens, circ, assn, blinds, testNonce(23), nil, nil)
	assert.NotNil(err)
}

func TestCircuitProofPreconditions(t *testing.T) {
	assert := assert.New(t)

	circ, err := RangeCircuit(8)
	assert.Nil(err)
	assn, err := RangeAssignment(8, 200)
	assert.Nil(err)
	gens, err := NewGeneratorSet(DefaultBlindingGen(), 2*circ.NGates, 1)
	assert.Nil(err)
	valueGen := DefaultValueGen()

	// Unsatisfying assignment.
	wrong, err := RangeAssignment(8, 201)
	assert.Nil(err)
	wrong.AO[circ.NBits] = uint64ToScalar(200)
	_, _, err = ProveCircuit(gens, circ, wrong, randBlinds(1), testNonce(21), valueGen, nil)
	assert.NotNil(err)

	// Zero blind.
	var zero ristretto.Scalar
	zero.SetZero()
	_, _, err = ProveCircuit(gens, circ, assn, []*ristretto.Scalar{&zero}, testNonce(21), valueGen, nil)
	assert.NotNil(err)

	// Blind count mismatch.
	_, _, err = ProveCircuit(gens, circ, assn, randBlinds(2), testNonce(21), valueGen, nil)
	assert.NotNil(err)

	// Non-power-of-two circuits are rejected, not padded.
	odd, err := NewCircuit(3, 0, 0, 1)
	assert.Nil(err)
	_, _, err = ProveCircuit(gens, odd, assn, nil, testNonce(21), valueGen, nil)
	assert.NotNil(err)
	assert.False(VerifyCircuit(NewScratch(1<<20), gens, odd, nil, nil, valueGen, nil))
}

func TestVerifyCircuitMulti(t *testing.T) {
	assert := assert.New(t)

	// Different circuits sharing one padded gate count.
	c1, err := RangeCircuit(8)
	assert.Nil(err)
	c2, err := RangeCircuit(10)
	assert.Nil(err)
	assert.Equal(c1.NGates, c2.NGates)

	gens, err := NewGeneratorSet(DefaultBlindingGen(), 2*c1.NGates, 1)
	assert.Nil(err)
	valueGen := DefaultValueGen()
	scratch := NewScratch(1 << 20)

	a1, err := RangeAssignment(8, 77)
	assert.Nil(err)
	a2, err := RangeAssignment(10, 900)
	assert.Nil(err)

	b1 := randBlinds(1)
	b2 := randBlinds(1)
	p1, v1, err := ProveCircuit(gens, c1, a1, b1, testNonce(30), valueGen, nil)
	assert.Nil(err)
	p2, v2, err := ProveCircuit(gens, c2, a2, b2, testNonce(31), valueGen, nil)
	assert.Nil(err)

	circs := []*Circuit{c1, c2}
	proofs := [][]byte{p1, p2}
	commits := [][]*ristretto.Point{v1, v2}
	assert.True(VerifyCircuitMulti(scratch, gens, circs, proofs, commits, valueGen, nil))

	// Swapping circuits against proofs poisons the batch.
	assert.False(VerifyCircuitMulti(scratch, gens, []*Circuit{c2, c1}, proofs, commits, valueGen, nil))

	tampered := append([]byte(nil), p2...)
	tampered[100] ^= 1
	assert.False(VerifyCircuitMulti(scratch, gens, circs, [][]byte{p1, tampered}, commits, valueGen, nil))

	assert.False(VerifyCircuitMulti(scratch, gens, nil, nil, nil, valueGen, nil))
}

func TestCircuitPad(t *testing.T) {
	assert := assert.New(t)

	c, err := NewCircuit(5, 2, 1, 1)
	assert.Nil(err)
	padded := c.Pad()
	assert.Equal(8, padded.NGates)
	assert.Equal(c.NBits, padded.NBits)
	assert.Equal(c.NCommits, padded.NCommits)

	// Padding an aligned circuit is the identity.
	again := padded.Pad()
	assert.True(CircuitEq(padded, again))
}
