package engine

import (
	"context"
	"fmt"
	"io"
)

// progressStep is the smallest percentage change worth a new progress line.
const progressStep = 10

// EnsureReady checks that e is reachable and has every named model, pulling
// the missing ones. Empty and repeated names are skipped.
func EnsureReady(ctx context.Context, e Engine, w io.Writer, models ...string) error {
	if !e.IsRunning(ctx) {
		return fmt.Errorf("inference backend is not reachable; please ensure it is started")
	}

	seen := make(map[string]bool, len(models))
	for _, model := range models {
		if model == "" || seen[model] {
			continue
		}
		seen[model] = true

		if !e.HasModel(ctx, model) {
			fmt.Fprintf(w, "model %s: pulling...\n", model)
			if err := e.PullModel(ctx, model, pullReporter(w)); err != nil {
				return fmt.Errorf("pulling model %s: %w", model, err)
			}
		}
		fmt.Fprintf(w, "model %s: ready\n", model)
	}
	return nil
}

// pullReporter writes a line when the pull status changes or its percentage
// advances by at least progressStep.
func pullReporter(w io.Writer) func(PullProgress) {
	lastStatus, lastPct := "", -progressStep
	return func(p PullProgress) {
		if p.Total <= 0 {
			if p.Status != lastStatus {
				fmt.Fprintf(w, "  %s\n", p.Status)
			}
			lastStatus, lastPct = p.Status, -progressStep
			return
		}
		pct := int(p.Completed * 100 / p.Total)
		if p.Status == lastStatus && pct-lastPct < progressStep && pct != 100 {
			return
		}
		if p.Status == lastStatus && pct == lastPct {
			return
		}
		fmt.Fprintf(w, "  %s %d%%\n", p.Status, pct)
		lastStatus, lastPct = p.Status, pct
	}
}
