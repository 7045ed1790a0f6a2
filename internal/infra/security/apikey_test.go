package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHostKeysVerify(t *testing.T) {
	hasher := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := hasher.Hash("s3cret")
	require.NoError(t, err)
	keys := NewHostKeys(map[string]string{"host-1": hash})

	host, err := keys.Verify("host-1:s3cret")
	require.NoError(t, err)
	assert.Equal(t, "host-1", host)

	for _, bad := range []string{"", "host-1", "host-1:", ":s3cret", "host-1:wrong", "host-2:s3cret"} {
		_, err := keys.Verify(bad)
		assert.ErrorIs(t, err, ErrInvalidAPIKey, bad)
	}

	assert.True(t, NewHostKeys(nil).Empty())
	_, err = NewHostKeys(nil).Verify("host-1:s3cret")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}
