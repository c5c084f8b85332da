// internal/reporting/json_reporter.go
package reporting

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/navsim/internal/engine"
	"github.com/xkilldash9x/navsim/internal/observability"
)

const ToolName = "navsim"

// Report is the document written by the JSON reporter.
type Report struct {
	Tool        string                 `json:"tool"`
	Version     string                 `json:"version"`
	GeneratedAt time.Time              `json:"generated_at"`
	Summary     []PolicySummary        `json:"summary"`
	Episodes    []engine.EpisodeResult `json:"episodes"`
}

// JSONReporter buffers episodes and writes a single report document on Close.
// It is thread safe.
type JSONReporter struct {
	writer  io.WriteCloser
	logger  *zap.Logger
	version string
	// mu protects episodes.
	mu       sync.Mutex
	episodes []engine.EpisodeResult
}

// NewJSONReporter takes ownership of the writer.
func NewJSONReporter(writer io.WriteCloser, toolVersion string) *JSONReporter {
	return &JSONReporter{
		writer:   writer,
		logger:   observability.GetLogger().Named("json_reporter"),
		version:  toolVersion,
		episodes: []engine.EpisodeResult{},
	}
}

func (r *JSONReporter) Write(result *engine.EpisodeResult) error {
	if result == nil {
		return fmt.Errorf("cannot write a nil episode result")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.episodes = append(r.episodes, *result)
	return nil
}

// Close sorts episodes by index, encodes the report and closes the writer.
func (r *JSONReporter) Close() error {
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	sort.SliceStable(r.episodes, func(i, j int) bool { return r.episodes[i].Index < r.episodes[j].Index })
	report := Report{
		Tool:        ToolName,
		Version:     r.version,
		GeneratedAt: time.Now().UTC(),
		Summary:     Summarize(r.episodes),
		Episodes:    r.episodes,
	}

	r.logger.Info("Finalizing JSON report", zap.Int("episodes", len(r.episodes)))

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")

	encodeErr := encoder.Encode(report)
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode report", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode JSON report: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}

	r.logger.Info("Successfully wrote JSON report", zap.Duration("duration_ms", time.Since(startTime)))
	return nil
}
