// Package keys loads and derives XTS key material.
package keys

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/deploymenttheory/go-xtswalk/internal/xts"
)

// Supported KDF hash names.
const (
	HashSHA256 = "sha256"
	HashSHA512 = "sha512"
)

// DefaultIterations is the PBKDF2 iteration count used when none is set.
const DefaultIterations = 100000

var (
	// ErrFormat is returned for key text that is not valid hex.
	ErrFormat = errors.New("keys: malformed key")

	// ErrKDF is returned for unusable key derivation parameters.
	ErrKDF = errors.New("keys: invalid key derivation parameters")
)

// ParseHex decodes a hex key. An optional 0x prefix and surrounding
// whitespace are ignored.
func ParseHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return key, nil
}

// ReadFile reads a key file. Hex text that decodes to a valid XTS key
// length is decoded; otherwise a file whose size is a valid key length is
// taken as raw bytes. A raw 64-byte key made only of hex digits is
// indistinguishable from a hex encoded 32-byte key and is read as the latter.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keys: reading %s: %w", path, err)
	}

	if isHexText(data) {
		key, err := ParseHex(string(data))
		if err == nil && xts.VerifyKey(key, false) == nil {
			Wipe(data)
			return key, nil
		}
		Wipe(key)
	}
	if xts.VerifyKey(data, false) == nil {
		return data, nil
	}

	defer Wipe(data)
	return ParseHex(string(data))
}

func isHexText(b []byte) bool {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F', c == 'x', c == 'X':
		default:
			return false
		}
	}
	return true
}

// KDF selects the PBKDF2 parameters for Derive.
type KDF struct {
	Iterations int    `mapstructure:"iterations" json:"iterations" yaml:"iterations"`
	Hash       string `mapstructure:"hash" json:"hash" yaml:"hash"`
}

func (k KDF) hash() (func() hash.Hash, error) {
	switch strings.ToLower(k.Hash) {
	case "", HashSHA256:
		return sha256.New, nil
	case HashSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: unknown hash %q", ErrKDF, k.Hash)
	}
}

// Validate checks the hash name and iteration count.
func (k KDF) Validate() error {
	if _, err := k.hash(); err != nil {
		return err
	}
	if k.Iterations < 1 {
		return fmt.Errorf("%w: %d iterations", ErrKDF, k.Iterations)
	}
	return nil
}

// Derive produces size bytes of key material from a passphrase with
// PBKDF2. size must be a valid XTS key length.
func Derive(passphrase, salt []byte, size int, kdf KDF) ([]byte, error) {
	h, err := kdf.hash()
	if err != nil {
		return nil, err
	}
	iter := kdf.Iterations
	if iter == 0 {
		iter = DefaultIterations
	}
	if iter < 1 {
		return nil, fmt.Errorf("%w: %d iterations", ErrKDF, iter)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", ErrKDF)
	}
	if err := xts.VerifyKey(make([]byte, size), false); err != nil {
		return nil, err
	}
	return pbkdf2.Key(passphrase, salt, iter, size, h), nil
}

// Verify checks key for use with an XTS walker.
func Verify(key []byte, forbidWeak bool) error {
	return xts.VerifyKey(key, forbidWeak)
}

// Wipe zeroes key material.
func Wipe(key []byte) {
	clear(key)
}
