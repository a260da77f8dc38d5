package bulletproofs

import (
	"bytes"

	"github.com/bwesterb/go-ristretto"
	"github.com/gtank/merlin"
)

// batchVerifier folds the verification equations of one or more proofs
// into a single multi-scalar multiplication that must hit the identity.
// Coefficients on the shared bases (the G and H vectors, the value
// generator B and the blinding generator) accumulate across proofs;
// per-proof points (commitments, L/R vectors) get their own terms.
type batchVerifier struct {
	scratch *Scratch
	gens    *GeneratorSet
	nm      int

	gScalars []*ristretto.Scalar
	hScalars []*ristretto.Scalar
	bScalar  *ristretto.Scalar
	bbScalar *ristretto.Scalar
	valueGen *ristretto.Point

	scalars []*ristretto.Scalar
	points  []*ristretto.Point
}

func newBatchVerifier(scratch *Scratch, gens *GeneratorSet, nm int, valueGen *ristretto.Point) (*batchVerifier, error) {
	if _, err := gens.vectorG(nm); err != nil {
		return nil, err
	}
	var b, bb ristretto.Scalar
	b.SetZero()
	bb.SetZero()
	return &batchVerifier{
		scratch:  scratch,
		gens:     gens,
		nm:       nm,
		gScalars: zeroVec(nm),
		hScalars: zeroVec(nm),
		bScalar:  &b,
		bbScalar: &bb,
		valueGen: valueGen,
	}, nil
}

func (b *batchVerifier) addG(i int, s *ristretto.Scalar) {
	b.gScalars[i].Add(b.gScalars[i], s)
}

func (b *batchVerifier) addH(i int, s *ristretto.Scalar) {
	b.hScalars[i].Add(b.hScalars[i], s)
}

func (b *batchVerifier) addB(s *ristretto.Scalar) {
	b.bScalar.Add(b.bScalar, s)
}

func (b *batchVerifier) addBBlinding(s *ristretto.Scalar) {
	b.bbScalar.Add(b.bbScalar, s)
}

func (b *batchVerifier) addTerm(s *ristretto.Scalar, p *ristretto.Point) {
	b.scalars = append(b.scalars, s)
	b.points = append(b.points, p)
}

// verify runs the accumulated multi-scalar multiplication inside the
// scratch arena and reports whether it lands on the identity.
func (b *batchVerifier) verify() bool {
	G, err := b.gens.vectorG(b.nm)
	if err != nil {
		return false
	}
	H, err := b.gens.vectorH(b.nm)
	if err != nil {
		return false
	}

	scalars := make([]*ristretto.Scalar, 0, len(b.scalars)+2+2*b.nm)
	points := make([]*ristretto.Point, 0, len(b.points)+2+2*b.nm)
	scalars = append(scalars, b.scalars...)
	points = append(points, b.points...)
	scalars = append(scalars, b.bScalar, b.bbScalar)
	points = append(points, b.valueGen, b.gens.Blinding)
	scalars = append(scalars, b.gScalars...)
	points = append(points, G...)
	scalars = append(scalars, b.hScalars...)
	points = append(points, H...)

	if err := b.scratch.checkout(); err != nil {
		return false
	}
	defer b.scratch.release()

	sum, err := scratchMultiscalarMul(b.scratch, scalars, points)
	if err != nil {
		return false
	}

	var identity ristretto.Point
	identity.SetZero()
	return bytes.Equal(sum.Bytes(), identity.Bytes())
}

// batchWeight derives the Fiat-Shamir weight for proof index i of a batch.
// The transcript must already have absorbed every proof in the batch, so
// no weight can be predicted while any proof is still malleable.
func batchWeight(t *merlin.Transcript, i int) *ristretto.Scalar {
	appendInt64("batch_index", uint64(i), t)
	return ChallengeScalar("batch_weight", t)
}

// newBatchTranscript binds a batch of serialized proofs into one
// transcript for weight derivation.
func newBatchTranscript(proofs [][]byte) *merlin.Transcript {
	t := merlin.NewTranscript(BATCH_WEIGHT_DOMAIN_TAG)
	appendInt64("n_proofs", uint64(len(proofs)), t)
	for _, p := range proofs {
		appendBytes([]byte("proof"), p, t)
	}
	return t
}
