// Package backends reports the cipher backends and the CPU features that
// decide between them.
package backends

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"text/tabwriter"

	"golang.org/x/sys/cpu"

	"github.com/deploymenttheory/go-xtswalk/internal/backend"
	"github.com/deploymenttheory/go-xtswalk/pkg/app"
)

// Response describes what this machine can run
type Response struct {
	Arch     string          `json:"arch" yaml:"arch"`
	Auto     string          `json:"auto" yaml:"auto"`
	Backends []backend.Info  `json:"backends" yaml:"backends"`
	Features map[string]bool `json:"features" yaml:"features"`
}

// Handle collects backend availability
func Handle(ctx *app.Context) (*Response, error) {
	auto, err := backend.Select(backend.NameAuto)
	if err != nil {
		return nil, app.NewError(app.ErrCodeCipher, "selecting default backend", err)
	}

	resp := &Response{
		Arch:     runtime.GOARCH,
		Auto:     auto.Name(),
		Backends: backend.Describe(),
		Features: features(),
	}
	ctx.Log("backends described", "arch", resp.Arch, "auto", resp.Auto)
	return resp, nil
}

func features() map[string]bool {
	switch runtime.GOARCH {
	case "amd64", "386":
		return map[string]bool{
			"aes":       cpu.X86.HasAES,
			"pclmulqdq": cpu.X86.HasPCLMULQDQ,
			"avx":       cpu.X86.HasAVX,
			"avx2":      cpu.X86.HasAVX2,
		}
	case "arm64":
		return map[string]bool{
			"aes":   cpu.ARM64.HasAES,
			"pmull": cpu.ARM64.HasPMULL,
		}
	case "s390x":
		return map[string]bool{
			"aes":     cpu.S390X.HasAES,
			"aes-cbc": cpu.S390X.HasAESCBC,
		}
	}
	return map[string]bool{"aes": backend.HardwareAES()}
}

// FormatOutput writes the report to stdout
func FormatOutput(response *Response, format string) error {
	return WriteOutput(os.Stdout, response, format)
}

// WriteOutput writes the report to w
func WriteOutput(out io.Writer, response *Response, format string) error {
	switch format {
	case "json", "yaml":
		return app.Encode(out, format, response)
	case "table":
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "BACKEND\tAVAILABLE\tBATCH\tDEFAULT\n")
	fmt.Fprintf(w, "-------\t---------\t-----\t-------\n")
	for _, b := range response.Backends {
		def := ""
		if b.Name == response.Auto {
			def = "*"
		}
		fmt.Fprintf(w, "%s\t%t\t%d\t%s\n", b.Name, b.Available, b.Batch, def)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	names := make([]string, 0, len(response.Features))
	for name := range response.Features {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(out, "\nCPU features (%s):", response.Arch)
	for _, name := range names {
		fmt.Fprintf(out, " %s=%t", name, response.Features[name])
	}
	_, err := fmt.Fprintln(out)
	return err
}
