package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/timvw/tmux-organize/internal/config"
	"github.com/timvw/tmux-organize/internal/history"
	"github.com/timvw/tmux-organize/internal/logging"
	"github.com/timvw/tmux-organize/internal/model"
	"github.com/timvw/tmux-organize/internal/mux"
	"github.com/timvw/tmux-organize/internal/organizer"
	telem "github.com/timvw/tmux-organize/internal/otel"
	"github.com/timvw/tmux-organize/internal/status"
)

var (
	flagForeground bool

	// Internal flags for the detached child. The parent resolves the
	// targets and job IDs before detaching; re-resolving "current" in
	// the child would race the user switching windows.
	flagDetached   bool
	flagWindowID   string
	flagSessionID  string
	flagWindowJob  string
	flagSessionJob string
)

// triggerIDs carries the parent's resolution into the job phase.
type triggerIDs struct {
	windowID   string
	sessionID  string
	windowJob  string
	sessionJob string
}

// addTriggerFlags registers the detach control flags on a trigger
// command. The internal flags are hidden; they exist only for the
// parent-to-child re-exec.
func addTriggerFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flagForeground, "foreground", false, "run the naming job in this process instead of detaching")
	cmd.Flags().BoolVar(&flagDetached, "detached", false, "")
	cmd.Flags().StringVar(&flagWindowID, "window-id", "", "")
	cmd.Flags().StringVar(&flagSessionID, "session-id", "", "")
	cmd.Flags().StringVar(&flagWindowJob, "window-job", "", "")
	cmd.Flags().StringVar(&flagSessionJob, "session-job", "", "")
	for _, name := range []string{"detached", "window-id", "session-id", "window-job", "session-job"} {
		_ = cmd.Flags().MarkHidden(name)
	}
}

// runTrigger is the organize / rename-window entry point. The parent
// phase resolves the current targets, stamps their generation options,
// flips the indicator to working, and detaches a child carrying the
// resolved IDs; it returns before any summarizer runs. The child phase
// (--detached) runs the jobs to completion and reports only through the
// indicator, the history database, and the log file.
func runTrigger(ctx context.Context, sessionToo bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	m, err := getMultiplexer()
	if err != nil {
		return err
	}

	if flagDetached {
		ids := triggerIDs{
			windowID:   flagWindowID,
			sessionID:  flagSessionID,
			windowJob:  flagWindowJob,
			sessionJob: flagSessionJob,
		}
		return runJobs(ctx, cfg, m, ids, sessionToo)
	}

	window, session, err := m.CurrentTarget(ctx)
	if err != nil {
		return fmt.Errorf("resolving current target: %w", err)
	}

	ids := triggerIDs{
		windowID:  window.WindowID,
		sessionID: session.SessionID,
		windowJob: organizer.NewJobID(),
	}
	if sessionToo {
		ids.sessionJob = organizer.NewJobID()
	}

	// Stamp before anything else: once the generation options carry
	// these job IDs, any older in-flight job loses the apply race.
	if err := organizer.StampGeneration(ctx, m, window, ids.windowJob); err != nil {
		return fmt.Errorf("stamping window generation: %w", err)
	}
	if sessionToo {
		if err := organizer.StampGeneration(ctx, m, session, ids.sessionJob); err != nil {
			return fmt.Errorf("stamping session generation: %w", err)
		}
	}

	ind := status.New(m, cfg.StatusOption, statusPolicy(cfg))
	if err := ind.Announce(ctx, session.SessionID); err != nil {
		fmt.Fprintf(os.Stderr, "warning: status indicator write failed: %v\n", err)
	}

	if flagForeground {
		return runJobs(ctx, cfg, m, ids, sessionToo)
	}
	return detachChild(cfg, ids)
}

// detachChild re-execs this binary with the resolved IDs appended to
// the original arguments and returns without waiting. Setsid puts the
// child in its own session so it survives tmux reaping the run-shell
// process.
func detachChild(cfg *config.Config, ids triggerIDs) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable: %w", err)
	}

	args := append([]string(nil), os.Args[1:]...)
	args = append(args, "--detached",
		"--window-id", ids.windowID,
		"--session-id", ids.sessionID,
		"--window-job", ids.windowJob,
	)
	if ids.sessionJob != "" {
		args = append(args, "--session-job", ids.sessionJob)
	}

	child := exec.Command(exe, args...)
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	child.Stdin = nil

	// Structured logs go through the logging package; the child's
	// stdio only catches panics and stray prints.
	out := childStdio(cfg)
	child.Stdout = out
	child.Stderr = out

	if err := child.Start(); err != nil {
		return fmt.Errorf("starting naming job: %w", err)
	}
	return child.Process.Release()
}

// childStdio opens the catch-all output file for a detached child,
// falling back to /dev/null when the log directory is unavailable.
func childStdio(cfg *config.Config) *os.File {
	if dir, err := cfg.LogPath(); err == nil {
		if err := os.MkdirAll(dir, 0o755); err == nil {
			f, ferr := os.OpenFile(filepath.Join(dir, "detached.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if ferr == nil {
				return f
			}
		}
	}
	devnull, _ := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	return devnull
}

// runJobs is the job phase: rebuild the full stack and run the naming
// jobs to completion. Shared by the detached child and --foreground.
func runJobs(ctx context.Context, cfg *config.Config, m mux.Multiplexer, ids triggerIDs, sessionToo bool) error {
	logDir, err := cfg.LogPath()
	if err != nil {
		logDir = ""
	}
	if err := logging.Init(logging.Config{
		LogDir: logDir,
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging init failed: %v\n", err)
	}
	defer logging.Shutdown()

	// Wire build version into OTEL service metadata.
	telem.Version = Version

	tel, err := telem.Init(ctx, telem.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		logging.Logger().Warn("otel init failed", "error", err)
	}
	if tel != nil {
		defer tel.Shutdown(ctx)
	}

	o, hist, err := buildOrchestrator(cfg, m, tel, sessionToo)
	if err != nil {
		return err
	}
	if hist != nil {
		defer hist.Close()
	}

	window := model.WindowTarget(ids.sessionID, ids.windowID)

	if !sessionToo {
		rec := o.RenameWindow(ctx, window, ids.windowJob)
		return settledErr(rec)
	}

	session := model.SessionTarget(ids.sessionID)
	recs := o.Organize(ctx, window, session, ids.windowJob, ids.sessionJob)
	return settledErr(recs...)
}

// buildOrchestrator wires the naming stack from configuration. History
// and cache failures degrade to nil rather than blocking the job; names
// still apply without them.
func buildOrchestrator(cfg *config.Config, m mux.Multiplexer, tel *telem.Telemetry, sessionToo bool) (*organizer.Orchestrator, *history.DB, error) {
	windowNamer, err := buildNamer(cfg, false)
	if err != nil {
		return nil, nil, err
	}

	sessionNamer := windowNamer
	if sessionToo {
		sessionNamer, err = buildNamer(cfg, true)
		if err != nil {
			return nil, nil, err
		}
	}

	var cache *organizer.NameCache
	if cfg.CacheTTLDuration > 0 {
		if dir, cerr := cfg.CachePath(); cerr == nil {
			cache = organizer.NewNameCache(dir, cfg.CacheTTLDuration)
		} else {
			logging.Logger().Warn("cache disabled", "error", cerr)
		}
	}

	var hist *history.DB
	if path, herr := cfg.HistoryPath(); herr == nil {
		db, herr := history.Open(path)
		if herr == nil {
			if merr := db.Migrate(); merr == nil {
				hist = db
			} else {
				db.Close()
				logging.Logger().Warn("history disabled", "error", merr)
			}
		} else {
			logging.Logger().Warn("history disabled", "error", herr)
		}
	} else {
		logging.Logger().Warn("history disabled", "error", herr)
	}

	var metrics *telem.Metrics
	if tel != nil {
		metrics = tel.Metrics
	}

	o := organizer.New(organizer.Options{
		Host:           m,
		Status:         status.New(m, cfg.StatusOption, statusPolicy(cfg)),
		WindowNamer:    windowNamer,
		SessionNamer:   sessionNamer,
		Cache:          cache,
		Enricher:       organizer.NewEnricher(cfg.EnrichCommand, cfg.EnrichTimeoutDuration),
		History:        hist,
		Metrics:        metrics,
		CaptureTimeout: cfg.CaptureTimeoutDuration,
		NameTimeout:    cfg.TimeoutDuration,
	})
	return o, hist, nil
}

// settledErr converts failed records into a command error so a
// foreground run exits nonzero. Superseded jobs are not failures.
func settledErr(recs ...model.JobRecord) error {
	for _, rec := range recs {
		if rec.Status == model.JobFailed {
			return fmt.Errorf("%s %s: %s", rec.Kind, rec.TargetKey, rec.Reason)
		}
	}
	return nil
}
