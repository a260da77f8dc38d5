package bulletproofs

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranscriptDeterminism(t *testing.T) {
	assert := assert.New(t)

	t1 := InitialTranscript(BULLETPROOF_DOMAIN_TAG)
	t2 := InitialTranscript(BULLETPROOF_DOMAIN_TAG)
	RangeproofDomainSep(64, 4, t1)
	RangeproofDomainSep(64, 4, t2)
	c1 := ChallengeScalar("y", t1)
	c2 := ChallengeScalar("y", t2)
	assert.True(c1.Equals(c2))

	// Replays with a different domain separator must diverge.
	t3 := InitialTranscript(BULLETPROOF_DOMAIN_TAG)
	RangeproofDomainSep(64, 8, t3)
	c3 := ChallengeScalar("y", t3)
	assert.False(c1.Equals(c3))

	// Challenges are stateful: a second squeeze differs from the first.
	c4 := ChallengeScalar("y", t1)
	assert.False(c1.Equals(c4))
}

func TestTranscriptAbsorbOrder(t *testing.T) {
	assert := assert.New(t)

	t1 := InitialTranscript("order")
	appendInt64("a", 1, t1)
	appendInt64("b", 2, t1)

	t2 := InitialTranscript("order")
	appendInt64("b", 2, t2)
	appendInt64("a", 1, t2)

	assert.False(ChallengeScalar("c", t1).Equals(ChallengeScalar("c", t2)))
}

func TestBlindGenerator(t *testing.T) {
	assert := assert.New(t)

	nonce := make([]byte, 32)
	nonce[0] = 7
	bg := NewBlindGenerator(nonce)

	s1 := bg.Derive("alpha", 0)
	s2 := bg.Derive("alpha", 0)
	assert.Equal(hex.EncodeToString(s1.Bytes()), hex.EncodeToString(s2.Bytes()))

	// Label and index both separate the derivations.
	assert.False(s1.Equals(bg.Derive("alpha", 1)))
	assert.False(s1.Equals(bg.Derive("rho", 0)))

	other := make([]byte, 32)
	other[0] = 8
	assert.False(s1.Equals(NewBlindGenerator(other).Derive("alpha", 0)))

	var zero [32]byte
	assert.False(s1.Equals(NewBlindGenerator(zero[:]).Derive("alpha", 0)))
}

func TestCircuitDomainSepSeparation(t *testing.T) {
	assert := assert.New(t)

	t1 := InitialTranscript(BULLETPROOF_DOMAIN_TAG)
	CircuitDomainSep(8, 3, t1)
	t2 := InitialTranscript(BULLETPROOF_DOMAIN_TAG)
	CircuitDomainSep(8, 4, t2)
	assert.False(ChallengeScalar("y", t1).Equals(ChallengeScalar("y", t2)))
}
