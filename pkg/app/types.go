package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-xtswalk/internal/keys"
)

// KeySource selects where key material comes from. Exactly one of Hex, File
// or Passphrase is set.
type KeySource struct {
	Hex        string
	File       string
	Passphrase string
	Salt       string
}

// Validate ensures exactly one key source is given
func (ks *KeySource) Validate() error {
	set := 0
	for _, s := range []string{ks.Hex, ks.File, ks.Passphrase} {
		if s != "" {
			set++
		}
	}
	switch {
	case set == 0:
		return errors.New("one of key, key-file or passphrase is required")
	case set > 1:
		return errors.New("key, key-file and passphrase are mutually exclusive")
	case ks.Passphrase != "" && ks.Salt == "":
		return errors.New("passphrase requires a salt")
	case ks.Passphrase == "" && ks.Salt != "":
		return errors.New("salt is only used with a passphrase")
	}
	return nil
}

// IsEmpty returns true if no key source is specified
func (ks *KeySource) IsEmpty() bool {
	return ks.Hex == "" && ks.File == "" && ks.Passphrase == ""
}

// String describes the source without revealing key material
func (ks *KeySource) String() string {
	switch {
	case ks.Hex != "":
		return "hex key"
	case ks.File != "":
		return "key file: " + ks.File
	case ks.Passphrase != "":
		return "passphrase (pbkdf2)"
	}
	return "no key"
}

// Load returns the key bytes. size is only used for passphrase derivation.
// The caller owns the result and should wipe it.
func (ks *KeySource) Load(size int, kdf keys.KDF) ([]byte, error) {
	switch {
	case ks.Hex != "":
		return keys.ParseHex(ks.Hex)
	case ks.File != "":
		return keys.ReadFile(ks.File)
	case ks.Passphrase != "":
		return keys.Derive([]byte(ks.Passphrase), []byte(ks.Salt), size, kdf)
	}
	return nil, errors.New("no key source")
}

// ProgressUpdate represents progress information
type ProgressUpdate struct {
	Message     string
	Completed   int64
	Total       int64
	StartedAt   time.Time
	ElapsedTime time.Duration
}

// Percent calculates completion percentage
func (p *ProgressUpdate) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return int((p.Completed * 100) / p.Total)
}

// Rate calculates bytes per second
func (p *ProgressUpdate) Rate() float64 {
	if p.ElapsedTime == 0 {
		return 0
	}
	return float64(p.Completed) / p.ElapsedTime.Seconds()
}

// CommonError represents application-level errors
type CommonError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CommonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommonError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeKeyMaterial  = "KEY_MATERIAL"
	ErrCodeIO           = "IO"
	ErrCodeCipher       = "CIPHER"
	ErrCodeSelfTest     = "SELFTEST"
	ErrCodeTimeout      = "TIMEOUT"
)

// NewError creates a new CommonError
func NewError(code, message string, cause error) *CommonError {
	return &CommonError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrorCode returns the code of the first CommonError in err's chain, or ""
func ErrorCode(err error) string {
	var ce *CommonError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// Encode writes v as json or yaml
func Encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		encoder.SetIndent(2)
		return encoder.Encode(v)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// FormatBytes formats a byte count as human readable
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
