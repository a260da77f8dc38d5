package bulletproofs

import (
	"encoding/binary"

	"github.com/bwesterb/go-ristretto"
	"github.com/dchest/blake2b"
	"github.com/gtank/merlin"
)

func InitialTranscript(label string) *merlin.Transcript {
	return merlin.NewTranscript(label)
}

func RangeproofDomainSep(n int64, m int64, t *merlin.Transcript) *merlin.Transcript {
	appendBytes([]byte("dom-sep"), []byte("rangeproof v1"), t)

	appendInt64("n", uint64(n), t)
	appendInt64("m", uint64(m), t)
	return t
}

func CircuitDomainSep(nGates, nConstraints uint64, t *merlin.Transcript) *merlin.Transcript {
	appendBytes([]byte("dom-sep"), []byte("circuit v1"), t)

	appendInt64("n", nGates, t)
	appendInt64("q", nConstraints, t)
	return t
}

func InnerproductDomainSep(n uint64, t *merlin.Transcript) {
	appendBytes([]byte("dom-sep"), []byte("ipp v1"), t)

	bytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(bytes, n)
	appendBytes([]byte("n"), bytes, t)
}

func appendInt64(label string, i uint64, t *merlin.Transcript) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, i)
	appendBytes([]byte(label), buf, t)
}

func appendBytes(field, data []byte, t *merlin.Transcript) {
	t.AppendMessage(field, data)
}

func AppendScalar(label string, s *ristretto.Scalar, t *merlin.Transcript) {
	appendBytes([]byte(label), s.Bytes(), t)
}

func AppendPoint(label string, p *ristretto.Point, t *merlin.Transcript) {
	appendBytes([]byte(label), p.Bytes(), t)
}

// ChallengeScalar squeezes the next verifier challenge out of the
// transcript. Prover and verifier must interleave absorbs and challenges in
// the same order; a divergence shows up as an algebraic mismatch, not as a
// distinguished error.
func ChallengeScalar(label string, t *merlin.Transcript) *ristretto.Scalar {
	data := t.ExtractBytes([]byte(label), 64)
	var dataBytes [64]byte
	copy(dataBytes[:], data[:])

	var s ristretto.Scalar
	return s.SetReduced(&dataBytes)
}

// BlindGenerator derives protocol blinding factors as a keyed PRF of a
// secret 32-byte nonce. For a fixed nonce, label and index the derived
// scalar is reproducible bit for bit, which is what lets a nonce holder
// rewind a rangeproof later. This must never be replaced with a stateful
// RNG.
type BlindGenerator struct {
	nonce []byte
}

func NewBlindGenerator(nonce []byte) *BlindGenerator {
	return &BlindGenerator{nonce: nonce}
}

func (bg *BlindGenerator) Derive(label string, index uint64) *ristretto.Scalar {
	hash := blake2b.New512()
	hash.Write([]byte(BLINDING_DOMAIN_TAG))
	hash.Write(bg.nonce)
	hash.Write([]byte(label))
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, index)
	hash.Write(buf)

	var key [64]byte
	copy(key[:], hash.Sum(nil))
	var s ristretto.Scalar
	return s.SetReduced(&key)
}
