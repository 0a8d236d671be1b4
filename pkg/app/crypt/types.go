package crypt

import (
	"time"

	"github.com/deploymenttheory/go-xtswalk/internal/keys"
	"github.com/deploymenttheory/go-xtswalk/pkg/app"
)

// Mode selects how the input is split into XTS data units
type Mode string

const (
	// ModeSector treats the input as consecutive sectors
	ModeSector Mode = "sector"
	// ModeSingle treats the whole input as one data unit with an explicit IV
	ModeSingle Mode = "single"
)

// MaxSingleBytes bounds the input size in single mode, which holds the
// whole data unit in memory.
const MaxSingleBytes = 64 << 20

// Request represents an encrypt or decrypt job
type Request struct {
	InputPath  string
	OutputPath string
	Direction  string

	Key     app.KeySource
	KeySize int
	KDF     keys.KDF

	Mode Mode

	// Single mode
	IV string

	// Sector mode
	SectorSize  int
	FirstSector uint64
	Workers     int

	// Cipher setup
	Backend        string
	Lanes          int
	PinThread      bool
	ForbidWeakKeys bool
}

// Response represents the result of a job
type Response struct {
	JobID       string             `json:"job_id" yaml:"job_id"`
	Direction   string             `json:"direction" yaml:"direction"`
	Mode        Mode               `json:"mode" yaml:"mode"`
	Backend     string             `json:"backend" yaml:"backend"`
	Accelerated bool               `json:"accelerated" yaml:"accelerated"`
	Input       string             `json:"input" yaml:"input"`
	Output      string             `json:"output" yaml:"output"`
	Bytes       int64              `json:"bytes" yaml:"bytes"`
	Sectors     uint64             `json:"sectors" yaml:"sectors"`
	SectorSize  int                `json:"sector_size,omitempty" yaml:"sector_size,omitempty"`
	StolenBytes int                `json:"stolen_bytes" yaml:"stolen_bytes"`
	Duration    time.Duration      `json:"duration" yaml:"duration"`
	Metrics     map[string]float64 `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// Throughput returns bytes per second
func (r *Response) Throughput() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Bytes) / r.Duration.Seconds()
}
