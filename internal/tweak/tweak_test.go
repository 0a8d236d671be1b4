package tweak

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mul2 is the byte-wise doubling from golang.org/x/crypto/xts, used as an
// independent check of MulAlpha.
func mul2(t *[Size]byte) {
	var carryIn byte
	for j := range t {
		carryOut := t[j] >> 7
		t[j] = (t[j] << 1) + carryIn
		carryIn = carryOut
	}
	if carryIn != 0 {
		t[0] ^= 1<<7 | 1<<2 | 1<<1 | 1
	}
}

func TestMulAlpha(t *testing.T) {
	tests := []struct {
		name     string
		input    [Size]byte
		expected [Size]byte
	}{
		{
			name:     "one doubles to two",
			input:    [Size]byte{0x01},
			expected: [Size]byte{0x02},
		},
		{
			name:     "carry across byte boundary",
			input:    [Size]byte{0x80},
			expected: [Size]byte{0x00, 0x01},
		},
		{
			name:     "carry across word boundary",
			input:    [Size]byte{7: 0x80},
			expected: [Size]byte{8: 0x01},
		},
		{
			name:     "top bit reduces by polynomial",
			input:    [Size]byte{15: 0x80},
			expected: [Size]byte{0x87},
		},
		{
			name:  "all ones",
			input: [Size]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
			expected: [Size]byte{0x79, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
				0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.input
			MulAlpha(&got)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestMulAlphaMatchesBytewiseDoubling(t *testing.T) {
	a := [Size]byte{0x9a, 0x78, 0x56, 0x34, 0x12, 0xf0, 0xde, 0xbc, 0x9a, 0x78, 0x56, 0x34, 0x12, 0xf0, 0xde, 0xbc}
	b := a

	for i := 0; i < 300; i++ {
		MulAlpha(&a)
		mul2(&b)
		require.Equal(t, b, a, "iteration %d", i)
	}
}

func TestPlain64(t *testing.T) {
	iv := Plain64(0x9a78563412)

	assert.Equal(t, [Size]byte{0x12, 0x34, 0x56, 0x78, 0x9a}, iv)
	assert.Equal(t, uint64(0x9a78563412), Sector(iv))
	assert.Equal(t, uint64(0x9a78563413), Sector(Next(iv)))
}

func TestNextKeepsHighHalf(t *testing.T) {
	iv := [Size]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xaa}

	next := Next(iv)

	assert.Equal(t, uint64(0), Sector(next))
	assert.Equal(t, byte(0xaa), next[8])
}

func TestSectorForOffset(t *testing.T) {
	tests := []struct {
		name       string
		offset     uint64
		sectorSize uint32
		expected   uint64
	}{
		{"start of device", 0, 512, 0},
		{"inside first sector", 511, 512, 0},
		{"second sector", 512, 512, 1},
		{"4K sectors", 3 * 4096, 4096, 3},
		{"zero selects default", 1024, 0, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SectorForOffset(tc.offset, tc.sectorSize))
		})
	}
}

func TestParse(t *testing.T) {
	id := uuid.MustParse("01020304-0506-0708-090a-0b0c0d0e0f10")

	tests := []struct {
		name     string
		input    string
		expected [Size]byte
		wantErr  bool
	}{
		{name: "empty is zero", input: ""},
		{
			name:     "hex",
			input:    "9a785634120000000000000000000000",
			expected: Plain64(0x123456789a),
		},
		{
			name:     "hex with prefix",
			input:    "0x9a785634120000000000000000000000",
			expected: Plain64(0x123456789a),
		},
		{
			name:     "uuid",
			input:    id.String(),
			expected: FromUUID(id),
		},
		{name: "short hex", input: "0011", wantErr: true},
		{name: "not hex", input: "zz", wantErr: true},
		{name: "bad uuid", input: "0102-0304-0506-0708-zz", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}
