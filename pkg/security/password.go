// Package security hashes account passwords with Argon2id. Hashes use the
// PHC string format so cost parameters can change without breaking old rows.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/giftbox-backend/pkg/config"
)

const (
	MinPasswordLength = 8
	// MaxPasswordLength bounds the work an attacker can force per login attempt.
	MaxPasswordLength = 256
)

var (
	ErrInvalidHash      = errors.New("security: malformed argon2id hash")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
)

var b64 = base64.RawStdEncoding

type argonCost struct {
	memory  uint32
	passes  uint32
	threads uint8
	saltLen int
	keyLen  uint32
}

func costFrom(cfg config.PasswordConfig) argonCost {
	return argonCost{
		memory:  uint32(bound(cfg.ArgonMemoryKB, 8, 512*1024)),
		passes:  uint32(bound(cfg.ArgonTime, 1, 10)),
		threads: uint8(bound(cfg.ArgonParallelism, 1, 255)),
		saltLen: bound(cfg.ArgonSaltLen, 8, 64),
		keyLen:  uint32(bound(cfg.ArgonKeyLen, 16, 64)),
	}
}

func (c argonCost) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, c.passes, c.memory, c.threads, c.keyLen)
}

func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	switch n := utf8.RuneCountInString(password); {
	case n < MinPasswordLength:
		return "", ErrPasswordTooShort
	case n > MaxPasswordLength:
		return "", ErrPasswordTooLong
	}
	cost := costFrom(cfg)
	salt := make([]byte, cost.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("security: salt: %w", err)
	}
	key := cost.derive(password, salt)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, cost.memory, cost.passes, cost.threads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// VerifyPassword reports whether password matches encoded. A malformed hash
// is an error; a wrong password is not.
func VerifyPassword(password, encoded string) (bool, error) {
	cost, salt, key, err := decode(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(key, cost.derive(password, salt)) == 1, nil
}

// NeedsRehash reports whether encoded was produced with different cost
// parameters than cfg currently asks for.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	have, salt, key, err := decode(encoded)
	if err != nil {
		return true
	}
	want := costFrom(cfg)
	return have.memory != want.memory || have.passes != want.passes || have.threads != want.threads ||
		len(salt) != want.saltLen || uint32(len(key)) != want.keyLen
}

func decode(encoded string) (argonCost, []byte, []byte, error) {
	var (
		version       int
		cost          argonCost
		rawSalt, rawK string
	)
	// $argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
	fields := splitPHC(encoded)
	if len(fields) != 5 || fields[0] != "argon2id" {
		return cost, nil, nil, ErrInvalidHash
	}
	if _, err := fmt.Sscanf(fields[1], "v=%d", &version); err != nil || version != argon2.Version {
		return cost, nil, nil, ErrInvalidHash
	}
	if _, err := fmt.Sscanf(fields[2], "m=%d,t=%d,p=%d", &cost.memory, &cost.passes, &cost.threads); err != nil {
		return cost, nil, nil, ErrInvalidHash
	}
	rawSalt, rawK = fields[3], fields[4]
	salt, err := b64.DecodeString(rawSalt)
	if err != nil || len(salt) == 0 {
		return cost, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(rawK)
	if err != nil || len(key) == 0 {
		return cost, nil, nil, ErrInvalidHash
	}
	if cost.memory == 0 || cost.passes == 0 || cost.threads == 0 {
		return cost, nil, nil, ErrInvalidHash
	}
	cost.saltLen = len(salt)
	cost.keyLen = uint32(len(key))
	return cost, salt, key, nil
}

func splitPHC(s string) []string {
	if len(s) == 0 || s[0] != '$' {
		return nil
	}
	var out []string
	start := 1
	for i := 1; i <= len(s); i++ {
		if i == len(s) || s[i] == '$' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

func bound(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
