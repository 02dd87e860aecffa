package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSha256HasherIsDeterministic(t *testing.T) {
	h := Sha256Hasher{}

	got, err := h.Hash("segredo123")
	require.NoError(t, err)

	// Known vector; rows written before the migration depend on it.
	assert.Equal(t, "f8a1f494e18ae43fac8a62423131407c5f0ae62897fad7194010cfdc3a9554a3", got)

	again, err := h.Hash("segredo123")
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestBcryptHasherVerifiable(t *testing.T) {
	h := BcryptHasher{}

	got, err := h.Hash("segredo123")
	require.NoError(t, err)
	assert.NotEqual(t, "segredo123", got)

	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(got), []byte("segredo123")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(got), []byte("outra-senha")))
}
