package crypto

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPII(t *testing.T) *PII {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	p, err := NewPII(key)
	require.NoError(t, err)
	return p
}

func TestSealOpenEmail(t *testing.T) {
	p := newTestPII(t)

	sealed, err := p.SealEmail("  Alice@Example.COM ")
	require.NoError(t, err)

	again, err := p.SealEmail("alice@example.com")
	require.NoError(t, err)
	assert.False(t, bytes.Equal(sealed, again), "nonce must differ between seals")

	opened, err := p.OpenEmail(sealed)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", opened)
}

func TestOpenEmailRejectsGarbage(t *testing.T) {
	p := newTestPII(t)

	_, err := p.OpenEmail([]byte("short"))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	sealed, err := p.SealEmail("bob@example.com")
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff
	_, err = p.OpenEmail(sealed)
	assert.Error(t, err)
}

func TestNewPIIKeyLength(t *testing.T) {
	_, err := NewPII(base64.StdEncoding.EncodeToString([]byte("too short")))
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewPII("not base64!!")
	assert.Error(t, err)
}

func TestHashes(t *testing.T) {
	assert.Equal(t, EmailHash("A@b.c"), EmailHash(" a@B.C"))
	assert.Len(t, TokenHash("token"), 64)
	assert.NotEqual(t, TokenHash("a"), TokenHash("b"))
}

func TestSealEmptyEmail(t *testing.T) {
	p := newTestPII(t)
	_, err := p.SealEmail("   ")
	assert.ErrorIs(t, err, ErrEmptyValue)
}
