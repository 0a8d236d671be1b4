package crypt

import (
	"path/filepath"

	"github.com/deploymenttheory/go-xtswalk/internal/backend"
	"github.com/deploymenttheory/go-xtswalk/internal/sector"
	"github.com/deploymenttheory/go-xtswalk/internal/tweak"
	"github.com/deploymenttheory/go-xtswalk/internal/xts"
	"github.com/deploymenttheory/go-xtswalk/pkg/app"
)

// Validate validates a crypt request and fills in defaults
func (r *Request) Validate() error {
	if r.InputPath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "input path is required", nil)
	}
	if r.OutputPath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "output path is required", nil)
	}
	if filepath.Clean(r.InputPath) == filepath.Clean(r.OutputPath) {
		return app.NewError(app.ErrCodeInvalidInput, "input and output must be different files", nil)
	}

	if _, err := r.direction(); err != nil {
		return err
	}

	if err := r.Key.Validate(); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid key source", err)
	}
	if r.KeySize == 0 {
		r.KeySize = 64
	}
	if err := xts.VerifyKey(make([]byte, r.KeySize), false); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "key size must be 32, 48 or 64 bytes", err)
	}
	if r.Key.Passphrase != "" {
		if err := r.KDF.Validate(); err != nil {
			return app.NewError(app.ErrCodeInvalidInput, "invalid key derivation settings", err)
		}
	}

	if r.Mode == "" {
		r.Mode = ModeSector
	}
	switch r.Mode {
	case ModeSector:
		if r.IV != "" {
			return app.NewError(app.ErrCodeInvalidInput, "iv is only used in single mode; use first-sector instead", nil)
		}
		if r.SectorSize == 0 {
			r.SectorSize = tweak.DefaultSectorSize
		}
		if !sector.ValidSectorSize(r.SectorSize) {
			return app.NewError(app.ErrCodeInvalidInput, "sector size must be 512, 1024, 2048 or 4096", nil)
		}
		if r.Workers < 0 {
			return app.NewError(app.ErrCodeInvalidInput, "workers cannot be negative", nil)
		}
	case ModeSingle:
		if _, err := tweak.Parse(r.IV); err != nil {
			return app.NewError(app.ErrCodeInvalidInput, "invalid iv", err)
		}
	default:
		return app.NewError(app.ErrCodeInvalidInput, "mode must be sector or single", nil)
	}

	if _, err := backend.Select(r.Backend); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid backend", err)
	}
	if r.Lanes < 0 {
		return app.NewError(app.ErrCodeInvalidInput, "lanes cannot be negative", nil)
	}

	return nil
}

func (r *Request) direction() (xts.Direction, error) {
	switch r.Direction {
	case xts.Encrypt.String():
		return xts.Encrypt, nil
	case xts.Decrypt.String():
		return xts.Decrypt, nil
	default:
		return 0, app.NewError(app.ErrCodeInvalidInput, "direction must be encrypt or decrypt", nil)
	}
}
