package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken(t *testing.T) {
	a, err := NewToken(ResetPrefix)
	require.NoError(t, err)
	b, err := NewToken(ResetPrefix)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	secret, ok := ParseToken(a, ResetPrefix)
	assert.True(t, ok)
	assert.Len(t, secret, 43)
}

func TestParseToken(t *testing.T) {
	secret, ok := ParseToken("hub-rst-abc", ResetPrefix)
	assert.True(t, ok)
	assert.Equal(t, "abc", secret)

	_, ok = ParseToken("other-abc", ResetPrefix)
	assert.False(t, ok)
}

func TestHMAC256Hex(t *testing.T) {
	h1 := HMAC256Hex("pepper", "secret")
	assert.Len(t, h1, 64)
	assert.Equal(t, h1, HMAC256Hex("pepper", "secret"))
	assert.NotEqual(t, h1, HMAC256Hex("other", "secret"))
}
