package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct-horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	assert.True(t, Verify("correct-horse", hash))
	assert.False(t, Verify("wrong-horse", hash))
}

func TestHashIsSalted(t *testing.T) {
	first, err := Hash("correct-horse")
	require.NoError(t, err)
	second, err := Hash("correct-horse")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	assert.False(t, Verify("anything", "not-a-hash"))
	assert.False(t, Verify("anything", ""))
	assert.False(t, Verify("anything", "$argon2id$v=19$m=65536,t=1,p=4$broken"))
}
