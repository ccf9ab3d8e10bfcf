package security_test

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/GophLibrary/internal/models"
	"github.com/atinyakov/GophLibrary/internal/security"
)

// fastHasher keeps the suite quick; DefaultParams is exercised once below.
func fastHasher() *security.Argon2Hasher {
	return &security.Argon2Hasher{Params: security.Params{Memory: 1024, Time: 1, Threads: 1, KeyLen: 32, SaltLen: 16}}
}

func TestHashing(t *testing.T) {
	h := fastHasher()
	digest, err := h.Hash("hello world")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$argon2i$v=19$m=1024,t=1,p=1$"))

	ok, err := h.Verify(digest, "hello world")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(digest, "hello worl")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	h := fastHasher()
	a, err := h.Hash("same input")
	require.NoError(t, err)
	b, err := h.Hash("same input")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyUsesDigestParams(t *testing.T) {
	digest, err := fastHasher().Hash("password")
	require.NoError(t, err)

	ok, err := security.NewArgon2Hasher().Verify(digest, "password")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDefaultParams(t *testing.T) {
	if testing.Short() {
		t.Skip("default argon2 cost is slow")
	}
	h := security.NewArgon2Hasher()
	digest, err := h.Hash("password")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$argon2i$v=19$m=65536,t=10,p=4$"))
	ok, err := h.Verify(digest, "password")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyMalformed(t *testing.T) {
	h := fastHasher()
	for _, digest := range []string{
		"",
		"password",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2i$v=16$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2i$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2i$v=19$m=0,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2i$v=19$m=1024,t=1,p=1$!!!$aGFzaA",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$",
	} {
		ok, err := h.Verify(digest, "password")
		assert.False(t, ok, digest)
		assert.True(t, errors.Is(err, security.ErrMalformedDigest), "digest %q: %v", digest, err)
	}
}

func TestVerifyRejectsExcessiveCost(t *testing.T) {
	b64 := func(n int) string {
		return base64.RawStdEncoding.EncodeToString([]byte(strings.Repeat("s", n)))
	}
	salt, hash := b64(16), b64(32)

	tests := []struct {
		name   string
		digest string
	}{
		{"memory", "$argon2i$v=19$m=4294967295,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2hoYXNo"},
		{"memory just over", "$argon2i$v=19$m=262145,t=1,p=1$" + salt + "$" + hash},
		{"time", "$argon2i$v=19$m=1024,t=4000000,p=1$" + salt + "$" + hash},
		{"threads", "$argon2i$v=19$m=1024,t=1,p=255$" + salt + "$" + hash},
		{"hash length", "$argon2i$v=19$m=1024,t=1,p=1$" + salt + "$" + b64(65)},
		{"salt length", "$argon2i$v=19$m=1024,t=1,p=1$" + b64(65) + "$" + hash},
		{"empty salt", "$argon2i$v=19$m=1024,t=1,p=1$$" + hash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := fastHasher().Verify(tt.digest, "password")
			assert.False(t, ok)
			assert.ErrorIs(t, err, security.ErrMalformedDigest)
		})
	}
}

func TestEmployeeBuilderWithArgon2(t *testing.T) {
	h := fastHasher()
	spec := models.EmployeeSpec{
		ID:          1005,
		Name:        "John Doe",
		Department:  "IT",
		BossID:      1,
		Project:     "Ambitious Project",
		Subject:     "Computer Science",
		AllocBudget: 1000,
		PermLevel:   models.PermAdmin,
		Password:    "pass",
	}
	_, err := models.NewEmployee(spec, h)
	require.ErrorIs(t, err, models.ErrValidation)

	spec.Password = "password"
	emp, err := models.NewEmployee(spec, h)
	require.NoError(t, err)
	assert.NotEqual(t, "password", emp.Password)

	ok, err := h.Verify(emp.Password, "password")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(emp.Password, "passwor")
	require.NoError(t, err)
	assert.False(t, ok)
}
