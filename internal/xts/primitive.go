package xts

// BlockSize is the XTS block size. XTS is only defined for 128-bit ciphers.
const BlockSize = 16

// Direction selects encryption or decryption.
type Direction int

const (
	Encrypt Direction = iota
	Decrypt
)

func (d Direction) String() string {
	switch d {
	case Encrypt:
		return "encrypt"
	case Decrypt:
		return "decrypt"
	default:
		return "unknown"
	}
}

// Primitive is a block cipher backend able to expand keys into schedules.
type Primitive interface {
	// Name identifies the backend in logs and reports.
	Name() string

	// ExpandKey builds a key schedule from a single (non-doubled) key.
	ExpandKey(key []byte) (KeySchedule, error)
}

// KeySchedule is an expanded key together with the backend's cipher calls.
type KeySchedule interface {
	// CryptOne runs the raw block cipher on exactly one block.
	CryptOne(dir Direction, out, in []byte) error

	// CryptBlocks runs XTS over len(in) bytes, a multiple of BlockSize,
	// starting from the encrypted tweak in iv. On return iv holds the tweak
	// for the block following the last one processed. out and in may be the
	// same slice.
	CryptBlocks(dir Direction, out, in []byte, iv *[BlockSize]byte) error
}
