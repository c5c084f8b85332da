// internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/xkilldash9x/navsim/internal/engine"
)

// Reporter defines the interface for writing episode results to an output.
type Reporter interface {
	// Write records a single finished episode.
	Write(result *engine.EpisodeResult) error
	// Close finalizes the report and closes any underlying resources (e.g., file handles).
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a new reporter based on the specified format and output path.
func New(format, outputPath, toolVersion string) (Reporter, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	if outputPath == "" || outputPath == "stdout" {
		return NewForWriter(format, os.Stdout, toolVersion)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
	}
	return build(format, f, toolVersion), nil
}

// NewForWriter creates a reporter on w. Closing the reporter does not close w.
func NewForWriter(format string, w io.Writer, toolVersion string) (Reporter, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	return build(format, &nopWriteCloser{w}, toolVersion), nil
}

func checkFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// build takes ownership of writer.
func build(format string, writer io.WriteCloser, toolVersion string) Reporter {
	if format == "text" {
		return NewTextReporter(writer)
	}
	return NewJSONReporter(writer, toolVersion)
}
