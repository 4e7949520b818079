// Package metrics exposes scoring counters on a private Prometheus registry.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "wordle"

// Recorder is nil-safe: every method on a nil *Recorder is a no-op.
type Recorder struct {
	registry *prometheus.Registry

	puzzlesRecorded      prometheus.Counter
	commitConflicts      prometheus.Counter
	unresolvedTokens     prometheus.Counter
	announcementsIgnored prometheus.Counter
	commitDuration       prometheus.Histogram
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	auto := promauto.With(reg)
	return &Recorder{
		registry: reg,
		puzzlesRecorded: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "puzzles_recorded_total",
			Help:      "Puzzles committed to the store",
		}),
		commitConflicts: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_conflicts_total",
			Help:      "Commits rejected because the rating snapshot changed",
		}),
		unresolvedTokens: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_tokens_total",
			Help:      "Participant tokens that could not be resolved to an identity",
		}),
		announcementsIgnored: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_ignored_total",
			Help:      "Messages that did not carry a results announcement",
		}),
		commitDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commit_duration_seconds",
			Help:      "Time from snapshot to successful commit of one puzzle",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) PuzzleRecorded(d time.Duration) {
	if r == nil {
		return
	}
	r.puzzlesRecorded.Inc()
	r.commitDuration.Observe(d.Seconds())
}

func (r *Recorder) CommitConflict() {
	if r != nil {
		r.commitConflicts.Inc()
	}
}

func (r *Recorder) UnresolvedTokens(n int) {
	if r != nil && n > 0 {
		r.unresolvedTokens.Add(float64(n))
	}
}

func (r *Recorder) AnnouncementIgnored() {
	if r != nil {
		r.announcementsIgnored.Inc()
	}
}

// Serve runs a /metrics listener on addr until ctx is cancelled.
// An empty addr disables the listener and returns immediately.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	addr = strings.TrimSpace(addr)
	if r == nil || addr == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	logger.Info("metrics_listen", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
