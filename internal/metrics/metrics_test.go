package metrics

import (
	"context"
	"testing"
	"time"
)

func counterValue(t *testing.T, r *Recorder, name string) float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	if err != nil { t.Fatalf("Gather: %v", err) }
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		ms := mf.GetMetric()
		if len(ms) == 0 { t.Fatalf("%s has no samples", name) }
		if c := ms[0].GetCounter(); c != nil {
			return c.GetValue()
		}
		return float64(ms[0].GetHistogram().GetSampleCount())
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.PuzzleRecorded(10 * time.Millisecond)
	r.PuzzleRecorded(20 * time.Millisecond)
	r.CommitConflict()
	r.UnresolvedTokens(3)
	r.UnresolvedTokens(0)
	r.AnnouncementIgnored()

	if v := counterValue(t, r, "wordle_puzzles_recorded_total"); v != 2 { t.Fatalf("recorded = %v", v) }
	if v := counterValue(t, r, "wordle_commit_duration_seconds"); v != 2 { t.Fatalf("durations = %v", v) }
	if v := counterValue(t, r, "wordle_commit_conflicts_total"); v != 1 { t.Fatalf("conflicts = %v", v) }
	if v := counterValue(t, r, "wordle_unresolved_tokens_total"); v != 3 { t.Fatalf("unresolved = %v", v) }
	if v := counterValue(t, r, "wordle_announcements_ignored_total"); v != 1 { t.Fatalf("ignored = %v", v) }
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.PuzzleRecorded(time.Second)
	r.CommitConflict()
	r.UnresolvedTokens(1)
	r.AnnouncementIgnored()
	if err := r.Serve(context.Background(), ":0", nil); err != nil { t.Fatalf("Serve on nil: %v", err) }
}

func TestServeDisabledWithoutAddr(t *testing.T) {
	if err := New().Serve(context.Background(), "  ", nil); err != nil { t.Fatalf("Serve: %v", err) }
}
