package crypt

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/deploymenttheory/go-xtswalk/pkg/app"
)

// FormatOutput writes a job result to stdout in the given format
func FormatOutput(response *Response, format string) error {
	return WriteOutput(os.Stdout, response, format)
}

// WriteOutput writes a job result to w in the given format
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

	fmt.Fprintf(w, "FIELD\tVALUE\n")
	fmt.Fprintf(w, "-----\t-----\n")
	fmt.Fprintf(w, "Job\t%s\n", response.JobID)
	fmt.Fprintf(w, "Direction\t%s\n", response.Direction)
	fmt.Fprintf(w, "Mode\t%s\n", response.Mode)
	fmt.Fprintf(w, "Backend\t%s\n", response.Backend)
	fmt.Fprintf(w, "AES instructions\t%t\n", response.Accelerated)
	fmt.Fprintf(w, "Input\t%s\n", response.Input)
	fmt.Fprintf(w, "Output\t%s\n", response.Output)
	fmt.Fprintf(w, "Bytes\t%d (%s)\n", response.Bytes, app.FormatBytes(response.Bytes))
	if response.SectorSize > 0 {
		fmt.Fprintf(w, "Sectors\t%d x %d\n", response.Sectors, response.SectorSize)
	} else {
		fmt.Fprintf(w, "Data units\t%d\n", response.Sectors)
	}
	fmt.Fprintf(w, "Stolen bytes\t%d\n", response.StolenBytes)
	fmt.Fprintf(w, "Duration\t%v\n", response.Duration)
	fmt.Fprintf(w, "Throughput\t%s/s\n", app.FormatBytes(int64(response.Throughput())))

	if err := w.Flush(); err != nil {
		return err
	}

	if len(response.Metrics) == 0 {
		return nil
	}

	fmt.Fprintf(out, "\n")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "METRIC\tVALUE\n")
	fmt.Fprintf(w, "------\t-----\n")

	names := make([]string, 0, len(response.Metrics))
	for name := range response.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%g\n", name, response.Metrics[name])
	}

	return w.Flush()
}

// FormatSummary provides a one line summary for quiet or verbose output
func FormatSummary(response *Response) string {
	summary := fmt.Sprintf("%sed %s", response.Direction, app.FormatBytes(response.Bytes))
	if response.SectorSize > 0 {
		summary += fmt.Sprintf(" in %d sectors", response.Sectors)
	}
	if response.StolenBytes > 0 {
		summary += fmt.Sprintf(" (%d stolen bytes)", response.StolenBytes)
	}
	return summary + fmt.Sprintf(" with %s in %v", response.Backend, response.Duration)
}
