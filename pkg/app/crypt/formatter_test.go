package crypt

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResponse() *Response {
	return &Response{
		JobID:       "6f1c1b3e-0000-4000-8000-000000000000",
		Direction:   "encrypt",
		Mode:        ModeSector,
		Backend:     "generic",
		Input:       "in.img",
		Output:      "out.img",
		Bytes:       2048 + 20,
		Sectors:     5,
		SectorSize:  512,
		StolenBytes: 4,
		Duration:    2 * time.Second,
		Metrics:     map[string]float64{"xtswalk_steals_total{direction=encrypt}": 1},
	}
}

func TestWriteOutput(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		wantErr  bool
		validate func(*testing.T, string)
	}{
		{
			name:   "table format",
			format: "table",
			validate: func(t *testing.T, output string) {
				assert.Contains(t, output, "Sectors")
				assert.Contains(t, output, "5 x 512")
				assert.Contains(t, output, "xtswalk_steals_total{direction=encrypt}")
			},
		},
		{
			name:   "json format",
			format: "json",
			validate: func(t *testing.T, output string) {
				var decoded map[string]any
				require.NoError(t, json.Unmarshal([]byte(output), &decoded))
				assert.Equal(t, "encrypt", decoded["direction"])
				assert.Equal(t, float64(4), decoded["stolen_bytes"])
			},
		},
		{
			name:   "yaml format",
			format: "yaml",
			validate: func(t *testing.T, output string) {
				var decoded map[string]any
				require.NoError(t, yaml.Unmarshal([]byte(output), &decoded))
				assert.Equal(t, "sector", decoded["mode"])
			},
		},
		{
			name:    "unknown format",
			format:  "csv",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := WriteOutput(&buf, sampleResponse(), tc.format)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.validate(t, buf.String())
		})
	}
}

func TestFormatSummary(t *testing.T) {
	assert.Equal(t, "encrypted 2.0 KB in 5 sectors (4 stolen bytes) with generic in 2s", FormatSummary(sampleResponse()))
}

func TestThroughput(t *testing.T) {
	resp := &Response{Bytes: 1000, Duration: 2 * time.Second}
	assert.Equal(t, 500.0, resp.Throughput())
	assert.Zero(t, (&Response{Bytes: 1}).Throughput())
}
