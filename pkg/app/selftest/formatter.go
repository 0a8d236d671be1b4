package selftest

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/deploymenttheory/go-xtswalk/pkg/app"
)

// FormatOutput writes self test results to stdout
func FormatOutput(response *Response, format string) error {
	return WriteOutput(os.Stdout, response, format)
}

// WriteOutput writes self test results to w
func WriteOutput(w io.Writer, response *Response, format string) error {
	switch format {
	case "json", "yaml":
		return app.Encode(w, format, response)
	case "table":
		return formatTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatTable(out io.Writer, response *Response) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "BACKEND\tVECTOR\tBYTES\tSTEALING\tRESULT\n")
	fmt.Fprintf(w, "-------\t------\t-----\t--------\t------\n")
	for _, r := range response.Results {
		result := "ok"
		if !r.Passed {
			result = "FAIL: " + r.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%s\n", r.Backend, r.Vector, r.Bytes, r.Stealing, result)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "\n%d passed, %d failed in %v\n", response.Passed, response.Failed, response.Duration)
	return err
}
