package bitspool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateFreeRoundTrip(t *testing.T) {
	p := New(2, 64)

	tok, err := p.Allocate(Rect{0, 0, 10, 10}, 1, 32)
	require.NoError(t, err)
	assert.Equal(t, 1, p.InUse())

	copy(p.Bytes(tok), []byte("payload"))
	assert.Equal(t, "payload", string(p.Bytes(tok)[:7]))

	p.Free(tok)
	assert.Equal(t, 0, p.InUse())
}

func TestExhaustionReturnsError(t *testing.T) {
	p := New(1, 16)
	_, err := p.Allocate(Rect{}, 0, 4)
	require.NoError(t, err)

	_, err = p.Allocate(Rect{}, 0, 4)
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestOversizedRequestFails(t *testing.T) {
	p := New(1, 16)
	_, err := p.Allocate(Rect{}, 0, 17)
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestFreeOfZeroTokenIsNoop(t *testing.T) {
	p := New(1, 16)
	assert.NotPanics(t, func() { p.Free(Token{}) })
}
