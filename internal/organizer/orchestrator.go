// Package organizer runs naming jobs: capture a target's content, ask a
// summarizer for a name, and apply it back to the live tmux target,
// under last-trigger-wins supersession and a shared per-session status
// indicator.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/timvw/tmux-organize/internal/history"
	"github.com/timvw/tmux-organize/internal/logging"
	"github.com/timvw/tmux-organize/internal/model"
	"github.com/timvw/tmux-organize/internal/mux"
	"github.com/timvw/tmux-organize/internal/namer"
	telemetry "github.com/timvw/tmux-organize/internal/otel"
	"github.com/timvw/tmux-organize/internal/status"
)

var orgLog = logging.ForComponent(logging.CompOrganizer)

var tracer = otel.Tracer("tmux-organize/organizer")

var jobSeq atomic.Int64

// NewJobID returns a process-unique job ID ("j-<pid>-<seq>"). The
// trigger allocates IDs and stamps them into the generation options, so
// the detached job and any later trigger agree on ordering.
func NewJobID() string {
	return fmt.Sprintf("j-%d-%d", os.Getpid(), jobSeq.Add(1))
}

// Options configures an Orchestrator. Host, Status, and the namers are
// required; everything else degrades gracefully when absent.
type Options struct {
	Host         mux.Multiplexer
	Status       *status.Indicator
	WindowNamer  namer.Namer
	SessionNamer namer.Namer

	Cache    *NameCache
	Enricher *Enricher
	History  *history.DB
	Metrics  *telemetry.Metrics

	// CaptureTimeout bounds the capture phase (default 5s).
	CaptureTimeout time.Duration
	// NameTimeout bounds one summarizer invocation (default 120s).
	NameTimeout time.Duration
}

// Orchestrator owns the naming jobs of one process. Entry points return
// only after every job they spawned has settled; the caller is already
// detached from the user's keystroke.
type Orchestrator struct {
	host         mux.Multiplexer
	status       *status.Indicator
	windowNamer  namer.Namer
	sessionNamer namer.Namer
	cache        *NameCache
	enricher     *Enricher
	history      *history.DB
	metrics      *telemetry.Metrics

	captureTimeout time.Duration
	nameTimeout    time.Duration

	mu       sync.Mutex
	inflight map[string]*runningJob // keyed by Target.Key()
}

// runningJob is the registry entry for one in-flight job.
type runningJob struct {
	id         string
	cancel     context.CancelFunc
	superseded atomic.Bool
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.CaptureTimeout <= 0 {
		opts.CaptureTimeout = 5 * time.Second
	}
	if opts.NameTimeout <= 0 {
		opts.NameTimeout = 120 * time.Second
	}
	return &Orchestrator{
		host:           opts.Host,
		status:         opts.Status,
		windowNamer:    opts.WindowNamer,
		sessionNamer:   opts.SessionNamer,
		cache:          opts.Cache,
		enricher:       opts.Enricher,
		history:        opts.History,
		metrics:        opts.Metrics,
		captureTimeout: opts.CaptureTimeout,
		nameTimeout:    opts.NameTimeout,
		inflight:       make(map[string]*runningJob),
	}
}

// Organize names the current window and its session as two independent
// concurrent jobs sharing the session's status scope. Either job can
// fail or be superseded without affecting the other.
func (o *Orchestrator) Organize(ctx context.Context, window, session model.Target, windowJobID, sessionJobID string) []model.JobRecord {
	var wg sync.WaitGroup
	var windowRec, sessionRec model.JobRecord

	wg.Add(2)
	go func() {
		defer wg.Done()
		windowRec = o.runJob(ctx, window, windowJobID, o.windowNamer)
	}()
	go func() {
		defer wg.Done()
		sessionRec = o.runJob(ctx, session, sessionJobID, o.sessionNamer)
	}()
	wg.Wait()

	return []model.JobRecord{windowRec, sessionRec}
}

// RenameWindow names only the window.
func (o *Orchestrator) RenameWindow(ctx context.Context, window model.Target, jobID string) model.JobRecord {
	return o.runJob(ctx, window, jobID, o.windowNamer)
}

// runJob drives one naming job through capture, cache, invocation, and
// apply. Every path settles the indicator exactly once; supersession
// settles silently.
func (o *Orchestrator) runJob(ctx context.Context, t model.Target, jobID string, nm namer.Namer) model.JobRecord {
	if jobID == "" {
		jobID = NewJobID()
	}
	rec := model.JobRecord{
		ID:        jobID,
		Kind:      string(t.Kind),
		TargetKey: t.Key(),
		SessionID: t.SessionID,
		Status:    model.JobRunning,
		StartedAt: time.Now(),
	}

	ctx, span := tracer.Start(ctx, "organize "+string(t.Kind), trace.WithAttributes(
		attribute.String("job.id", jobID),
		attribute.String("job.target", t.Key()),
	))
	defer span.End()

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	job := o.admit(t.Key(), jobID, cancel)
	defer o.retire(t.Key(), job)

	ticket, err := o.status.MarkWorking(jobCtx, t.SessionID)
	if err != nil {
		orgLog.Warn("indicator write failed", "job", jobID, "error", err)
	}

	snapshot, err := o.Capture(jobCtx, t)
	if err != nil {
		return o.settleError(ctx, rec, ticket, job, fmt.Errorf("capture: %w", err))
	}
	span.SetAttributes(attribute.Int("capture.bytes", len(snapshot.Text)))

	var name string
	if cached, ok := o.cache.Lookup(t, snapshot.Fingerprint); ok {
		name = cached
		rec.CacheHit = true
		o.metrics.RecordCacheHit(ctx)
		orgLog.Debug("cache hit", "job", jobID, "target", t.Key(), "name", name)
	} else if o.cache.Enabled() {
		o.metrics.RecordCacheMiss(ctx)
	}

	if name == "" {
		rec.Provider = nm.Provider()
		rec.Model = nm.Model()

		nctx, ncancel := context.WithTimeout(jobCtx, o.nameTimeout)
		proposal, perr := nm.Propose(nctx, namer.Request{Kind: t.Kind, Content: snapshot.Text})
		ncancel()
		if perr != nil {
			return o.settleError(ctx, rec, ticket, job, fmt.Errorf("summarizer: %w", perr))
		}

		name = proposal.Name
		u := proposal.Usage
		o.metrics.RecordTokens(ctx, rec.Provider, rec.Model,
			u.InputTokens, u.OutputTokens, u.CacheReadInputTokens, u.CacheCreationInputTokens)
		o.cache.Store(t, snapshot.Fingerprint, name)
	}

	if aerr := o.apply(jobCtx, t, jobID, name); aerr != nil {
		return o.settleError(ctx, rec, ticket, job, fmt.Errorf("apply: %w", aerr))
	}

	rec.Name = name
	rec.Status = model.JobSucceeded
	if serr := o.status.MarkIdle(ctx, ticket); serr != nil {
		orgLog.Warn("indicator write failed", "job", jobID, "error", serr)
	}
	return o.finish(ctx, rec)
}

// settleError classifies err and finishes the job. A superseded job,
// whether noticed via the canceled context or the generation check at
// apply, discards its ticket: display ownership already moved to the
// newer job.
func (o *Orchestrator) settleError(ctx context.Context, rec model.JobRecord, ticket status.Ticket, job *runningJob, err error) model.JobRecord {
	if errors.Is(err, ErrSuperseded) || job.superseded.Load() {
		rec.Status = model.JobSuperseded
		if job.superseded.Load() {
			rec.Reason = "superseded in flight by a newer job"
		} else {
			rec.Reason = err.Error()
		}
		if serr := o.status.Discard(ctx, ticket); serr != nil {
			orgLog.Warn("indicator write failed", "job", rec.ID, "error", serr)
		}
		return o.finish(ctx, rec)
	}

	rec.Status = model.JobFailed
	rec.Reason = err.Error()
	if ferr := o.status.MarkFailed(ctx, ticket); ferr != nil {
		orgLog.Warn("indicator write failed", "job", rec.ID, "error", ferr)
	}
	return o.finish(ctx, rec)
}

// finish stamps timing, records the outcome in history and metrics, and
// logs it. Nothing here reaches the user's terminal.
func (o *Orchestrator) finish(ctx context.Context, rec model.JobRecord) model.JobRecord {
	rec.FinishedAt = time.Now()
	rec.DurationMs = rec.FinishedAt.Sub(rec.StartedAt).Milliseconds()

	o.metrics.RecordJob(ctx, rec.Kind, string(rec.Status))
	if o.history != nil {
		if err := o.history.Append(&rec); err != nil {
			orgLog.Warn("history append failed", "job", rec.ID, "error", err)
		}
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("job.outcome", string(rec.Status)))

	switch rec.Status {
	case model.JobFailed:
		span.SetStatus(codes.Error, rec.Reason)
		orgLog.Error("job failed",
			"job", rec.ID, "target", rec.TargetKey, "reason", rec.Reason,
			"duration_ms", rec.DurationMs)
	case model.JobSuperseded:
		orgLog.Info("job superseded",
			"job", rec.ID, "target", rec.TargetKey, "reason", rec.Reason,
			"duration_ms", rec.DurationMs)
	default:
		orgLog.Info("job succeeded",
			"job", rec.ID, "target", rec.TargetKey, "name", rec.Name,
			"cache_hit", rec.CacheHit, "provider", rec.Provider,
			"duration_ms", rec.DurationMs)
	}
	return rec
}

// admit registers the job as the target's active job, superseding a
// previous one still in flight: the old job's context is canceled and
// its eventual settle is a silent discard.
func (o *Orchestrator) admit(key, id string, cancel context.CancelFunc) *runningJob {
	job := &runningJob{id: id, cancel: cancel}
	o.mu.Lock()
	prev := o.inflight[key]
	o.inflight[key] = job
	o.mu.Unlock()

	if prev != nil {
		prev.superseded.Store(true)
		prev.cancel()
		orgLog.Info("superseding in-flight job", "target", key, "old", prev.id, "new", id)
	}
	return job
}

// retire drops the registry entry if this job still owns it.
func (o *Orchestrator) retire(key string, job *runningJob) {
	o.mu.Lock()
	if o.inflight[key] == job {
		delete(o.inflight, key)
	}
	o.mu.Unlock()
}
