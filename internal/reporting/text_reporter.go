package reporting

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"

	"github.com/xkilldash9x/navsim/internal/engine"
)

// TextReporter prints one line per episode followed by a per-policy summary.
type TextReporter struct {
	writer   io.WriteCloser
	mu       sync.Mutex
	episodes []engine.EpisodeResult
}

func NewTextReporter(writer io.WriteCloser) *TextReporter {
	return &TextReporter{writer: writer}
}

func (r *TextReporter) Write(result *engine.EpisodeResult) error {
	if result == nil {
		return fmt.Errorf("cannot write a nil episode result")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.episodes = append(r.episodes, *result)
	return nil
}

func (r *TextReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sort.SliceStable(r.episodes, func(i, j int) bool { return r.episodes[i].Index < r.episodes[j].Index })

	tw := tabwriter.NewWriter(r.writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EPISODE\tSEED\tPOLICY\tOUTCOME\tSTEPS\tPATH\tDIST\tCOLLISIONS")
	for _, e := range r.episodes {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%d\t%.1f\t%.1f\t%d\n",
			e.Index, e.Seed, e.Policy, e.Outcome, e.Steps, e.PathLength, e.FinalDistance, e.Collisions)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "POLICY\tEPISODES\tSUCCESS\tMEAN STEPS\tMEAN PATH\tESCAPES")
	for _, s := range Summarize(r.episodes) {
		fmt.Fprintf(tw, "%s\t%d\t%.0f%%\t%.1f\t%.1f\t%d\n",
			s.Policy, s.Episodes, s.SuccessRate*100, s.MeanSteps, s.MeanPath, s.Escapes)
	}
	flushErr := tw.Flush()
	closeErr := r.writer.Close()
	if flushErr != nil {
		return fmt.Errorf("failed to write text report: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
