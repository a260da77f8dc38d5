package bulletproofs

import (
	"testing"

	"github.com/bwesterb/go-ristretto"
	"github.com/stretchr/testify/assert"
)

func testNonce(seed byte) []byte {
	nonce := make([]byte, 32)
	nonce[0] = seed
	return nonce
}

func randBlinds(n int) []*ristretto.Scalar {
	out := make([]*ristretto.Scalar, n)
	for i := range out {
		var r ristretto.Scalar
		out[i] = r.Rand()
	}
	return out
}

func TestRangeProof(t *testing.T) {
	assert := assert.New(t)

	gens, err := NewGeneratorSet(DefaultBlindingGen(), 64, 1)
	assert.Nil(err)
	valueGen := DefaultValueGen()
	scratch := NewScratch(1 << 20)

	blinds := randBlinds(1)
	proof, commits, err := ProveRange(gens, valueGen, 8, []uint64{200}, nil, blinds, testNonce(1), []byte("extra"))
	assert.Nil(err)
	assert.Len(commits, 1)
	assert.True(VerifyRange(scratch, gens, proof, 8, commits, nil, valueGen, []byte("extra")))

	// Any statement drift must reject.
	assert.False(VerifyRange(scratch, gens, proof, 8, commits, nil, valueGen, []byte("other")))
	assert.False(VerifyRange(scratch, gens, proof, 8, commits, []uint64{1}, valueGen, []byte("extra")))
	assert.False(VerifyRange(scratch, gens, proof, 8, commits, nil, DefaultBlindingGen(), []byte("extra")))

	wrongCommit := []*ristretto.Point{DefaultValueGen()}
	assert.False(VerifyRange(scratch, gens, proof, 8, wrongCommit, nil, valueGen, []byte("extra")))

	// Every single byte of the proof is load-bearing.
	for _, off := range []int{0, 33, 130, 200, len(proof) - 1} {
		tampered := append([]byte(nil), proof...)
		tampered[off] ^= 0x40
		assert.False(VerifyRange(scratch, gens, tampered, 8, commits, nil, valueGen, []byte("extra")))
	}

	assert.False(VerifyRange(scratch, gens, proof[:len(proof)-32], 8, commits, nil, valueGen, []byte("extra")))
	assert.False(VerifyRange(scratch, gens, proof, 16, commits, nil, valueGen, []byte("extra")))
}

func TestRangeProofScalarEncoding(t *testing.T) {
	assert := assert.New(t)

	gens, err := NewGeneratorSet(DefaultBlindingGen(), 64, 1)
	assert.Nil(err)
	valueGen := DefaultValueGen()
	scratch := NewScratch(1 << 20)

	blinds := randBlinds(1)
	proof, commits, err := ProveRange(gens, valueGen, 8, []uint64{200}, nil, blinds, testNonce(7), nil)
	assert.Nil(err)
	assert.True(VerifyRange(scratch, gens, proof, 8, commits, nil, valueGen, nil))

	// Setting a high bit of any serialized scalar leaves its reduced value
	// intact but yields a second encoding of the same proof. Only the
	// canonical bytes may verify: t_x, the blindings and the closing a, b.
	for _, off := range []int{4 * 32, 5 * 32, 6 * 32, len(proof) - 64, len(proof) - 32} {
		tampered := append([]byte(nil), proof...)
		tampered[off+31] ^= 0x80
		assert.False(VerifyRange(scratch, gens, tampered, 8, commits, nil, valueGen, nil))
	}
}

func TestRangeProofNilInputs(t *testing.T) {
	assert := assert.New(t)

	gens, err := NewGeneratorSet(DefaultBlindingGen(), 64, 1)
	assert.Nil(err)
	valueGen := DefaultValueGen()
	scratch := NewScratch(1 << 20)

	blinds := randBlinds(1)
	proof, commits, err := ProveRange(gens, valueGen, 8, []uint64{7}, nil, blinds, testNonce(8), nil)
	assert.Nil(err)

	assert.False(VerifyRange(scratch, gens, proof, 8, commits, nil, nil, nil))
	assert.False(VerifyRange(scratch, nil, proof, 8, commits, nil, valueGen, nil))
	assert.False(VerifyRange(nil, gens, proof, 8, commits, nil, valueGen, nil))
	assert.False(VerifyRange(scratch, gens, proof, 8, []*ristretto.Point{nil}, nil, valueGen, nil))
	assert.False(VerifyRangeMulti(scratch, gens, [][]byte{proof}, 8, [][]*ristretto.Point{commits}, nil, nil, nil))

	_, _, ok := RewindRange(gens, proof, 8, commits[0], 0, nil, testNonce(8), nil)
	assert.False(ok)
	_, _, ok = RewindRange(nil, proof, 8, commits[0], 0, valueGen, testNonce(8), nil)
	assert.False(ok)

	_, _, err = ProveRange(nil, valueGen, 8, []uint64{7}, nil, blinds, testNonce(8), nil)
	assert.NotNil(err)
	_, _, err = ProveRange(gens, nil, 8, []uint64{7}, nil, blinds, testNonce(8), nil)
	assert.NotNil(err)
	_, _, err = ProveRange(gens, valueGen, 8, []uint64{7}, nil, []*ristretto.Scalar{nil}, testNonce(8), nil)
	assert.NotNil(err)
}

func TestRangeProofMinValue(t *testing.T) {
	assert := assert.New(t)

	gens, err := NewGeneratorSet(DefaultBlindingGen(), 64, 1)
	assert.Nil(err)
	valueGen := DefaultValueGen()
	scratch := NewScratch(1 << 20)

	blinds := randBlinds(1)
	proof, commits, err := ProveRange(gens, valueGen, 8, []uint64{200}, []uint64{100}, blinds, testNonce(2), nil)
	assert.Nil(err)
	assert.True(VerifyRange(scratch, gens, proof, 8, commits, []uint64{100}, valueGen, nil))
	assert.False(VerifyRange(scratch, gens, proof, 8, commits, []uint64{99}, valueGen, nil))
	assert.False(VerifyRange(scratch, gens, proof, 8, commits, nil, valueGen, nil))

	// A value below its minimum is unprovable.
	_, _, err = ProveRange(gens, valueGen, 8, []uint64{50}, []uint64{100}, blinds, testNonce(2), nil)
	assert.NotNil(err)

	// A value too wide for nbits above the minimum is unprovable.
	_, _, err = ProveRange(gens, valueGen, 8, []uint64{400}, []uint64{100}, blinds, testNonce(2), nil)
	assert.NotNil(err)
	_, _, err = ProveRange(gens, valueGen, 8, []uint64{300}, nil, blinds, testNonce(2), nil)
	assert.NotNil(err)
}

func TestRangeProofAggregated(t *testing.T) {
	assert := assert.New(t)

	gens, err := NewGeneratorSet(DefaultBlindingGen(), 8*4*2, 1)
	assert.Nil(err)
	valueGen := DefaultValueGen()
	scratch := NewScratch(1 << 20)

	values := []uint64{0, 200, 255}
	mins := []uint64{0, 100, 0}
	blinds := randBlinds(3)
	proof, commits, err := ProveRange(gens, valueGen, 8, values, mins, blinds, testNonce(3), nil)
	assert.Nil(err)
	assert.Len(commits, 3)

	// The commitment count pads to four inside; the caller keeps three.
	assert.True(VerifyRange(scratch, gens, proof, 8, commits, mins, valueGen, nil))

	swapped := []*ristretto.Point{commits[1], commits[0], commits[2]}
	assert.False(VerifyRange(scratch, gens, proof, 8, swapped, mins, valueGen, nil))
}

func TestRangeProofRewind(t *testing.T) {
	assert := assert.New(t)

	gens, err := NewGeneratorSet(DefaultBlindingGen(), 64, 1)
	assert.Nil(err)
	valueGen := DefaultValueGen()
	nonce := testNonce(4)

	blinds := randBlinds(1)
	proof, commits, err := ProveRange(gens, valueGen, 8, []uint64{200}, []uint64{100}, blinds, nonce, []byte("extra"))
	assert.Nil(err)

	value, blind, ok := RewindRange(gens, proof, 8, commits[0], 100, valueGen, nonce, []byte("extra"))
	assert.True(ok)
	assert.Equal(uint64(200), value)
	assert.True(blind.Equals(blinds[0]))

	_, _, ok = RewindRange(gens, proof, 8, commits[0], 100, valueGen, testNonce(5), []byte("extra"))
	assert.False(ok)
	_, _, ok = RewindRange(gens, proof, 8, commits[0], 0, valueGen, nonce, []byte("extra"))
	assert.False(ok)
	_, _, ok = RewindRange(gens, proof, 8, commits[0], 100, valueGen, nonce, nil)
	assert.False(ok)
	_, _, ok = RewindRange(gens, proof, 8, DefaultBlindingGen(), 100, valueGen, nonce, []byte("extra"))
	assert.False(ok)
}

func TestVerifyRangeMulti(t *testing.T) {
	assert := assert.New(t)

	gens, err := NewGeneratorSet(DefaultBlindingGen(), 64, 1)
	assert.Nil(err)
	valueGen := DefaultValueGen()
	scratch := NewScratch(1 << 20)

	var proofs [][]byte
	var commits [][]*ristretto.Point
	var mins [][]uint64
	var extras [][]byte
	for i := 0; i < 3; i++ {
		blinds := randBlinds(1)
		proof, cs, err := ProveRange(gens, valueGen, 8, []uint64{uint64(50 + i)}, []uint64{uint64(i)}, blinds, testNonce(byte(10+i)), []byte{byte(i)})
		assert.Nil(err)
		proofs = append(proofs, proof)
		commits = append(commits, cs)
		mins = append(mins, []uint64{uint64(i)})
		extras = append(extras, []byte{byte(i)})
	}

	assert.True(VerifyRangeMulti(scratch, gens, proofs, 8, commits, mins, valueGen, extras))

	// One bad proof poisons the whole batch.
	tampered := append([]byte(nil), proofs[1]...)
	tampered[64] ^= 1
	bad := [][]byte{proofs[0], tampered, proofs[2]}
	assert.False(VerifyRangeMulti(scratch, gens, bad, 8, commits, mins, valueGen, extras))

	// Statement mixups reject.
	swappedCommits := [][]*ristretto.Point{commits[1], commits[0], commits[2]}
	assert.False(VerifyRangeMulti(scratch, gens, proofs, 8, swappedCommits, mins, valueGen, extras))
	assert.False(VerifyRangeMulti(scratch, gens, proofs, 8, commits, mins, valueGen, nil))
	assert.False(VerifyRangeMulti(scratch, gens, nil, 8, nil, nil, valueGen, nil))
}

func TestVerifyRangeScratchTooSmall(t *testing.T) {
	assert := assert.New(t)

	gens, err := NewGeneratorSet(DefaultBlindingGen(), 64, 1)
	assert.Nil(err)
	valueGen := DefaultValueGen()

	blinds := randBlinds(1)
	proof, commits, err := ProveRange(gens, valueGen, 8, []uint64{7}, nil, blinds, testNonce(6), nil)
	assert.Nil(err)

	assert.True(VerifyRange(NewScratch(1<<20), gens, proof, 8, commits, nil, valueGen, nil))
	assert.False(VerifyRange(NewScratch(100), gens, proof, 8, commits, nil, valueGen, nil))
}
