// Package runner orchestrates a batch run: load candidates, enrich and
// filter them, execute follow/unfollow operations through a bounded
// worker pool, and persist every outcome.
package runner

import (
	"context"
	"strings"
	"time"

	"ghsync/pkg/config"
	"ghsync/pkg/enrich"
	"ghsync/pkg/filter"
	"ghsync/pkg/github"
	"ghsync/pkg/logger"
	"ghsync/pkg/metrics"
	"ghsync/pkg/storage"
)

// State tracks where a run is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateFiltering
	StateExecuting
	StateReporting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateFiltering:
		return "filtering"
	case StateExecuting:
		return "executing"
	case StateReporting:
		return "reporting"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Actor performs the mutating relationship calls.
type Actor interface {
	Follow(ctx context.Context, login string) error
	Unfollow(ctx context.Context, login string) error
	IsFollowing(ctx context.Context, login string) (bool, error)
}

// CandidateSource produces the candidate list for a workflow and the
// following list used to detect already-satisfied candidates.
type CandidateSource interface {
	NonReciprocal(ctx context.Context) ([]github.User, error)
	FollowBackCandidates(ctx context.Context) ([]github.User, error)
	TargetFollowers(ctx context.Context, targets []string) ([]github.User, error)
	Following(ctx context.Context) ([]github.User, error)
}

// Enricher builds AccountRecords for candidates.
type Enricher interface {
	Enrich(ctx context.Context, login string, basic *github.User) (*enrich.AccountRecord, error)
}

// Runner drives one batch run.
type Runner struct {
	cfg      *config.Config
	workflow filter.Workflow
	actor    Actor
	source   CandidateSource
	enricher Enricher
	filters  *filter.Engine
	store    *storage.Engine
	logger   logger.Logger

	metrics     *Metrics
	state       State
	interrupted bool

	// following is the pre-loaded set of accounts the user follows,
	// lowercased. When the pre-load fails the runner falls back to
	// per-account lookups.
	following       map[string]struct{}
	followingLoaded bool
}

// New wires a Runner from its collaborators.
func New(cfg *config.Config, workflow filter.Workflow, actor Actor, source CandidateSource, enricher Enricher, filters *filter.Engine, store *storage.Engine, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Runner{
		cfg:      cfg,
		workflow: workflow,
		actor:    actor,
		source:   source,
		enricher: enricher,
		filters:  filters,
		store:    store,
		logger:   log,
		metrics:  NewMetrics(),
		state:    StateIdle,
	}
}

// Metrics exposes the run counters.
func (r *Runner) Metrics() *Metrics {
	return r.metrics
}

// State reports the current lifecycle phase.
func (r *Runner) State() State {
	return r.state
}

// Run executes the workflow. Per-candidate failures are recorded, never
// fatal; only the inability to build the candidate list aborts.
func (r *Runner) Run(ctx context.Context) error {
	r.setState(StateLoading)

	candidates, err := r.loadCandidates(ctx)
	if err != nil {
		r.setState(StateDone)
		return err
	}

	candidates = r.applyOperationCap(candidates)
	r.metrics.SetTotalCandidates(len(candidates))
	r.loadFollowing(ctx)

	r.logger.InfoWithFields("run starting", map[string]interface{}{
		"workflow":   r.workflow.String(),
		"candidates": len(candidates),
		"workers":    r.cfg.Run.Workers,
		"dry_run":    r.cfg.Run.DryRun,
	})

	r.setState(StateFiltering)
	r.setState(StateExecuting)

	pool := newWorkerPool(ctx, r.cfg.Run.Workers, r.cfg.Run.Delay, r.processCandidate, r.logger)
	pool.Start()

	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for result := range pool.Results() {
			r.recordResult(result)
		}
	}()

	for _, user := range candidates {
		if !pool.Submit(Job{User: user}) {
			r.interrupted = true
			break
		}
	}
	if ctx.Err() != nil {
		r.interrupted = true
	}

	pool.Stop()
	<-collectorDone

	r.setState(StateReporting)
	r.report()
	r.setState(StateDone)
	return nil
}

func (r *Runner) loadCandidates(ctx context.Context) ([]github.User, error) {
	if targets := r.cfg.Run.TargetAccounts; len(targets) > 0 {
		return r.source.TargetFollowers(ctx, targets)
	}

	switch r.workflow {
	case filter.WorkflowUnfollow:
		return r.source.NonReciprocal(ctx)
	default:
		return r.source.FollowBackCandidates(ctx)
	}
}

// loadFollowing fetches the user's own following list once so the workers
// can check desired state without one API call per candidate. A failed
// pre-load is not fatal; workers fall back to per-account lookups.
func (r *Runner) loadFollowing(ctx context.Context) {
	following, err := r.source.Following(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("could not pre-load following list, falling back to per-account checks")
		return
	}
	set := make(map[string]struct{}, len(following))
	for _, u := range following {
		set[strings.ToLower(u.Login)] = struct{}{}
	}
	r.following = set
	r.followingLoaded = true
}

// applyOperationCap truncates the candidate list to the per-run ceiling.
func (r *Runner) applyOperationCap(candidates []github.User) []github.User {
	limit := r.cfg.Run.MaxOpsPerRun
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	r.logger.WarnWithFields("operation cap reached, truncating candidate list", map[string]interface{}{
		"cap":      limit,
		"excluded": len(candidates) - limit,
	})
	return candidates[:limit]
}

// processCandidate enriches, filters and acts on one candidate. Every
// path returns a Result; errors never escape to the pool.
func (r *Runner) processCandidate(ctx context.Context, job Job) Result {
	login := job.User.Login
	metrics.IncAccountsProcessed()

	rec, err := r.enricher.Enrich(ctx, login, &job.User)
	if err != nil {
		return Result{Job: job, Outcome: OutcomeFailed, Reason: "enrichment failed", Error: err}
	}

	decision := r.filters.Decide(rec)
	if !decision.Accept {
		return Result{Job: job, Outcome: OutcomeSkipped, Reason: decision.Reason}
	}

	if desired, known := r.inDesiredState(ctx, login); known && desired {
		if r.workflow == filter.WorkflowUnfollow {
			return Result{Job: job, Outcome: OutcomeAlreadyDesired, Reason: "not following"}
		}
		return Result{Job: job, Outcome: OutcomeAlreadyDesired, Reason: "already following"}
	}

	if r.cfg.Run.DryRun {
		// Dry runs do everything except the mutating call.
		return Result{Job: job, Outcome: OutcomeActed, Reason: "dry run: " + decision.Reason}
	}

	var opErr error
	if r.workflow == filter.WorkflowUnfollow {
		opErr = r.actor.Unfollow(ctx, login)
	} else {
		opErr = r.actor.Follow(ctx, login)
	}
	if opErr != nil {
		return Result{Job: job, Outcome: OutcomeFailed, Reason: "operation failed", Error: opErr}
	}

	return Result{Job: job, Outcome: OutcomeActed, Reason: decision.Reason}
}

// inDesiredState reports whether login already matches the workflow's
// target state. The second return is false when the state could not be
// determined; the caller then acts, since follow and unfollow are
// idempotent on the API side.
func (r *Runner) inDesiredState(ctx context.Context, login string) (bool, bool) {
	var following bool
	if r.followingLoaded {
		_, ok := r.following[strings.ToLower(login)]
		following = ok
	} else {
		f, err := r.actor.IsFollowing(ctx, login)
		if err != nil {
			return false, false
		}
		following = f
	}
	if r.workflow == filter.WorkflowUnfollow {
		return !following, true
	}
	return following, true
}

// recordResult updates metrics and persists the outcome.
func (r *Runner) recordResult(result Result) {
	r.metrics.IncProcessed()

	operation := r.operationName()
	switch result.Outcome {
	case OutcomeActed:
		r.metrics.IncActedOn()
		if r.cfg.Run.DryRun {
			metrics.IncOperation(operation, "dry_run")
		} else {
			metrics.IncOperation(operation, "success")
		}
	case OutcomeSkipped:
		r.metrics.IncSkipped()
		metrics.IncOperation(operation, "skipped")
	case OutcomeAlreadyDesired:
		r.metrics.IncAlreadyDesired()
		metrics.IncOperation(operation, "already_desired")
	case OutcomeFailed:
		r.metrics.IncFailed()
		metrics.IncOperation(operation, "failed")
		r.logger.ErrorWithFields("candidate failed", map[string]interface{}{
			"login":  result.Job.User.Login,
			"reason": result.Reason,
			"error":  errString(result.Error),
		})
	}

	rec := storage.Record{
		"login":       result.Job.User.Login,
		"operation":   operation,
		"outcome":     string(result.Outcome),
		"reason":      result.Reason,
		"duration_ms": result.Duration.Milliseconds(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
	if result.Error != nil {
		rec["error"] = result.Error.Error()
	}
	if cached, ok := r.cachedRecord(result.Job.User.Login); ok {
		for k, v := range cached {
			if _, exists := rec[k]; !exists {
				rec[k] = v
			}
		}
	}
	r.store.Add(rec)
}

// cachedRecord merges enrichment data into the persisted outcome when the
// enricher can hand back a cached record.
func (r *Runner) cachedRecord(login string) (map[string]interface{}, bool) {
	type cacher interface {
		Cached(login string) (*enrich.AccountRecord, bool)
	}
	c, ok := r.enricher.(cacher)
	if !ok {
		return nil, false
	}
	rec, ok := c.Cached(login)
	if !ok {
		return nil, false
	}
	return rec.ToMap(), true
}

func (r *Runner) operationName() string {
	if r.workflow == filter.WorkflowUnfollow {
		return "unfollow"
	}
	return "follow"
}

func (r *Runner) report() {
	snap := r.metrics.Snapshot()
	r.logger.InfoWithFields("run complete", map[string]interface{}{
		"workflow":        r.workflow.String(),
		"candidates":      snap.TotalCandidates,
		"processed":       snap.Processed,
		"acted_on":        snap.ActedOn,
		"skipped":         snap.Skipped,
		"already_desired": snap.AlreadyDesired,
		"failed":          snap.Failed,
		"elapsed":         snap.Elapsed.Round(time.Millisecond).String(),
		"dry_run":         r.cfg.Run.DryRun,
		"interrupted":     r.interrupted,
	})
}

// ExitCode is 130 after an interrupt, 1 when failures exceed the
// configured threshold, 0 otherwise.
func (r *Runner) ExitCode() int {
	if r.interrupted {
		return 130
	}
	if r.metrics.Snapshot().Failed > int64(r.cfg.Run.ErrorThreshold) {
		return 1
	}
	return 0
}

func (r *Runner) setState(s State) {
	r.state = s
	r.logger.DebugWithFields("state transition", map[string]interface{}{
		"state": s.String(),
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
