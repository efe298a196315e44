package service

import (
	"crypto/rand"

	"golang.org/x/crypto/argon2"

	cryptoDomain "github.com/flavortown/credvault/internal/crypto/domain"
	apperrors "github.com/flavortown/credvault/internal/errors"
)

// Argon2Params configures the argon2id key derivation cost.
type Argon2Params struct {
	// Time is the number of passes over memory.
	Time uint32
	// MemoryKiB is the memory cost in KiB.
	MemoryKiB uint32
	// Threads is the degree of parallelism.
	Threads uint8
}

// DefaultArgon2Params is a moderate cost suitable for interactive logins.
var DefaultArgon2Params = Argon2Params{
	Time:      1,
	MemoryKiB: 64 * 1024,
	Threads:   4,
}

// argon2Deriver implements KeyDeriver using argon2id, a memory-hard KDF that
// resists offline brute force against a stolen encrypted envelope.
type argon2Deriver struct {
	params Argon2Params
}

// NewArgon2Deriver creates a KeyDeriver with the given cost parameters.
func NewArgon2Deriver(params Argon2Params) KeyDeriver {
	return &argon2Deriver{params: params}
}

// Derive produces a 32-byte key from the password and salt. Deterministic:
// equal inputs always produce equal output.
func (d *argon2Deriver) Derive(password string, salt []byte) []byte {
	return argon2.IDKey(
		[]byte(password),
		salt,
		d.params.Time,
		d.params.MemoryKiB,
		d.params.Threads,
		cryptoDomain.KeySize,
	)
}

// GenerateSalt returns a fresh random salt for key derivation.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, cryptoDomain.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, apperrors.WrapWith(apperrors.ErrCrypto, err, "failed to generate salt")
	}
	return salt, nil
}
