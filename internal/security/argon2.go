// Package security hashes and verifies employee passwords.
//
// Digests are argon2i PHC strings of the form
//
//	$argon2i$v=19$m=65536,t=10,p=4$<salt>$<hash>
//
// with unpadded standard base64 for salt and hash.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrMalformedDigest is returned by Verify when the stored digest cannot be parsed.
var ErrMalformedDigest = errors.New("malformed password digest")

// Params tunes the argon2i cost.
type Params struct {
	// Memory in KiB.
	Memory uint32
	// Time is the number of passes.
	Time uint32
	// Threads is the degree of parallelism.
	Threads uint8
	// KeyLen is the length of the derived hash in bytes.
	KeyLen uint32
	// SaltLen is the length of the random salt in bytes.
	SaltLen uint32
}

// DefaultParams matches the cost of the digests already stored in the
// employee tables.
var DefaultParams = Params{
	Memory:  64 * 1024,
	Time:    10,
	Threads: 4,
	KeyLen:  32,
	SaltLen: 32,
}

// maxParams bounds the cost Verify accepts from a stored digest, so a
// corrupt row cannot exhaust memory or stall a login.
var maxParams = Params{
	Memory:  4 * DefaultParams.Memory,
	Time:    4 * DefaultParams.Time,
	Threads: 4 * DefaultParams.Threads,
	KeyLen:  64,
	SaltLen: 64,
}

// Argon2Hasher hashes with argon2i and verifies any argon2i digest,
// whatever cost it was produced with.
type Argon2Hasher struct {
	Params Params
}

// NewArgon2Hasher returns a hasher using DefaultParams.
func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{Params: DefaultParams}
}

// Hash derives a salted digest of plaintext. Two calls with the same
// input give different digests.
func (h *Argon2Hasher) Hash(plaintext string) (string, error) {
	p := h.Params
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.Key([]byte(plaintext), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return fmt.Sprintf("$argon2i$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches digest. A digest that is not a
// well-formed argon2i string yields ErrMalformedDigest.
func (h *Argon2Hasher) Verify(digest, plaintext string) (bool, error) {
	p, salt, want, err := decode(digest)
	if err != nil {
		return false, err
	}
	got := argon2.Key([]byte(plaintext), salt, p.Time, p.Memory, p.Threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func decode(digest string) (Params, []byte, []byte, error) {
	var p Params
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2i" {
		return p, nil, nil, ErrMalformedDigest
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("%w: version: %v", ErrMalformedDigest, err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedDigest, version)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, fmt.Errorf("%w: params: %v", ErrMalformedDigest, err)
	}
	if p.Memory == 0 || p.Time == 0 || p.Threads == 0 {
		return p, nil, nil, fmt.Errorf("%w: zero cost parameter", ErrMalformedDigest)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: salt: %v", ErrMalformedDigest, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, fmt.Errorf("%w: hash", ErrMalformedDigest)
	}
	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	if err := checkBounds(p); err != nil {
		return p, nil, nil, err
	}
	return p, salt, key, nil
}

func checkBounds(p Params) error {
	switch {
	case p.Memory > maxParams.Memory:
		return fmt.Errorf("%w: memory %d KiB over %d", ErrMalformedDigest, p.Memory, maxParams.Memory)
	case p.Time > maxParams.Time:
		return fmt.Errorf("%w: time %d over %d", ErrMalformedDigest, p.Time, maxParams.Time)
	case p.Threads > maxParams.Threads:
		return fmt.Errorf("%w: threads %d over %d", ErrMalformedDigest, p.Threads, maxParams.Threads)
	case p.KeyLen > maxParams.KeyLen:
		return fmt.Errorf("%w: hash of %d bytes", ErrMalformedDigest, p.KeyLen)
	case p.SaltLen == 0 || p.SaltLen > maxParams.SaltLen:
		return fmt.Errorf("%w: salt of %d bytes", ErrMalformedDigest, p.SaltLen)
	}
	return nil
}
