// Package tweak provides XTS tweak arithmetic and initial tweak (IV) encodings.
//
// XTS encrypts each data unit under a 128-bit tweak. The initial tweak of a
// data unit is an identifier (usually the sector number) encrypted under the
// tweak key; every following 16-byte block multiplies the tweak by the
// primitive element α of GF(2^128).
package tweak

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Size is the size of a tweak in bytes.
const Size = 16

// DefaultSectorSize is the data unit size used for sector tweaks when the
// caller does not specify one.
const DefaultSectorSize = 512

// MulAlpha multiplies t by α in GF(2^128) in place.
//
// The tweak is treated as a little-endian 128-bit integer and reduced by the
// polynomial x^128 + x^7 + x^2 + x + 1, as in IEEE 1619-2007 §5.2.
func MulAlpha(t *[Size]byte) {
	lo := binary.LittleEndian.Uint64(t[:8])
	hi := binary.LittleEndian.Uint64(t[8:])

	carry := hi >> 63
	hi = hi<<1 | lo>>63
	lo <<= 1
	// Subtracting x^128 leaves x^7 + x^2 + x + 1.
	lo ^= 0x87 & -carry

	binary.LittleEndian.PutUint64(t[:8], lo)
	binary.LittleEndian.PutUint64(t[8:], hi)
}

// Plain64 returns the initial tweak for a data unit identified by sector.
//
// The sector number is stored little-endian in the first 8 bytes and the
// remaining bytes are zero, matching dm-crypt's "plain64" IV mode and the
// sector numbering used by golang.org/x/crypto/xts.
//
// Parameters:
//   - sector: The data unit sequence number
//
// Returns:
//   - The 16-byte initial tweak
func Plain64(sector uint64) [Size]byte {
	var iv [Size]byte
	binary.LittleEndian.PutUint64(iv[:8], sector)
	return iv
}

// Sector returns the sector number carried by a plain64 tweak.
func Sector(iv [Size]byte) uint64 {
	return binary.LittleEndian.Uint64(iv[:8])
}

// Next returns the plain64 tweak of the data unit that follows iv.
//
// Only the low 64 bits are incremented; the high half is carried over
// untouched, so a tweak built with FromUUID keeps its upper bytes.
func Next(iv [Size]byte) [Size]byte {
	binary.LittleEndian.PutUint64(iv[:8], binary.LittleEndian.Uint64(iv[:8])+1)
	return iv
}

// SectorForOffset calculates the data unit number that contains a byte offset.
//
// For encrypted volume metadata the tweak of a block is derived from its
// physical location: the byte offset on disk divided by the data unit size.
//
// Parameters:
//   - byteOffset: Absolute byte offset of the data on the device
//   - sectorSize: Data unit size in bytes (0 selects DefaultSectorSize)
//
// Returns:
//   - The sector number whose plain64 tweak covers byteOffset
func SectorForOffset(byteOffset uint64, sectorSize uint32) uint64 {
	if sectorSize == 0 {
		sectorSize = DefaultSectorSize
	}
	return byteOffset / uint64(sectorSize)
}

// FromUUID uses the 16 raw bytes of a UUID as the initial tweak.
func FromUUID(id uuid.UUID) [Size]byte {
	var iv [Size]byte
	copy(iv[:], id[:])
	return iv
}

// Parse decodes an initial tweak from text.
//
// Accepted forms are 32 hexadecimal digits (optionally prefixed with "0x")
// and canonical UUID text such as "01020304-0506-0708-090a-0b0c0d0e0f10".
// An empty string yields the all-zero tweak.
func Parse(s string) ([Size]byte, error) {
	var iv [Size]byte

	s = strings.TrimSpace(s)
	if s == "" {
		return iv, nil
	}

	if strings.Count(s, "-") == 4 {
		id, err := uuid.Parse(s)
		if err != nil {
			return iv, fmt.Errorf("invalid UUID tweak %q: %w", s, err)
		}
		return FromUUID(id), nil
	}

	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return iv, fmt.Errorf("invalid hex tweak: %w", err)
	}
	if len(raw) != Size {
		return iv, fmt.Errorf("tweak must be %d bytes, got %d", Size, len(raw))
	}
	copy(iv[:], raw)

	return iv, nil
}
