package bulletproofs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScratchReserve(t *testing.T) {
	assert := assert.New(t)

	s := NewScratch(10 * msmTermSize)
	assert.Nil(s.reserve(10))
	assert.NotNil(s.reserve(11))
	assert.Nil(s.reserve(0))
}

func TestScratchCheckout(t *testing.T) {
	assert := assert.New(t)

	s := NewScratch(1 << 20)
	assert.Nil(s.checkout())
	assert.NotNil(s.checkout())
	s.release()
	assert.Nil(s.checkout())
	s.release()

	var nilScratch *Scratch
	assert.NotNil(nilScratch.checkout())
}
