package engine

import (
	"context"
	"fmt"
	"io"
)

// EnsureReady checks that a locally hosted engine is reachable and that the
// given models are available, pulling missing ones with progress written to
// w. Hosted APIs (engines that are not a ModelManager) are assumed ready.
func EnsureReady(ctx context.Context, e Engine, models []string, w io.Writer) error {
	mm, ok := e.(ModelManager)
	if !ok {
		return nil
	}
	if !mm.IsRunning(ctx) {
		return fmt.Errorf("inference engine is not running; start it with: ollama serve")
	}

	seen := make(map[string]bool)
	for _, model := range models {
		if model == "" || seen[model] {
			continue
		}
		seen[model] = true

		if mm.HasModel(ctx, model) {
			fmt.Fprintf(w, "model %s: ready\n", model)
			continue
		}

		fmt.Fprintf(w, "model %s: pulling...\n", model)
		err := mm.PullModel(ctx, model, func(p PullProgress) {
			if p.Total > 0 {
				pct := float64(p.Completed) / float64(p.Total) * 100
				fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, pct)
			} else {
				fmt.Fprintf(w, "  %s\n", p.Status)
			}
		})
		if err != nil {
			return fmt.Errorf("pulling model %s: %w", model, err)
		}
		fmt.Fprintf(w, "model %s: ready\n", model)
	}
	return nil
}
