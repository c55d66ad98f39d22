package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := NewBcryptHasher()

	hash, err := h.Hash("Secret123")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, h.Verify("Secret123", hash))
	assert.False(t, h.Verify("secret123", hash))
	assert.False(t, h.Verify("", hash))
}

func TestBcryptHasher_VerifiesLegacy2bHash(t *testing.T) {
	// формат $2b$ из существующих данных должен приниматься
	h := NewBcryptHasher()
	legacy, err := h.Hash("Legacy123")
	require.NoError(t, err)
	swapped := "$2b$" + strings.TrimPrefix(legacy, legacy[:4])
	assert.True(t, h.Verify("Legacy123", swapped))
}

func TestStrengthCheck(t *testing.T) {
	h := NewBcryptHasher()

	tests := []struct {
		password string
		ok       bool
	}{
		{"Abcdef12", true},
		{"Sh0rt", false},        // too short
		{"alllower123", false},  // no upper
		{"ALLUPPER123", false},  // no lower
		{"NoDigitsHere", false}, // no digit
	}
	for _, tc := range tests {
		ok, reason := h.StrengthCheck(tc.password)
		assert.Equalf(t, tc.ok, ok, "password %q: %s", tc.password, reason)
		assert.NotEmpty(t, reason)
	}
}

func TestGenerateTemporary(t *testing.T) {
	h := NewBcryptHasher()

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		pw, err := h.GenerateTemporary()
		require.NoError(t, err)
		assert.Len(t, pw, tempPasswordLength)
		for _, r := range pw {
			assert.Contains(t, tempPasswordAlphabet, string(r))
		}
		seen[pw] = true
	}
	assert.Greater(t, len(seen), 1, "temporary passwords must vary")
}
