package runner

import (
	"context"
	"sync"
	"time"

	"ghsync/pkg/github"
	"ghsync/pkg/logger"
)

// Job is one candidate queued for processing.
type Job struct {
	User github.User
}

// Outcome classifies what happened to one candidate.
type Outcome string

const (
	OutcomeActed          Outcome = "acted"
	OutcomeSkipped        Outcome = "skipped"
	OutcomeFailed         Outcome = "failed"
	OutcomeAlreadyDesired Outcome = "already_desired"
)

// Result is the terminal state of one job.
type Result struct {
	Job      Job
	Outcome  Outcome
	Reason   string
	Error    error
	Duration time.Duration
}

// processFunc handles one candidate end to end.
type processFunc func(ctx context.Context, job Job) Result

// workerPool fans candidates out to a bounded set of workers. Submission
// order is candidate order; completion order is not guaranteed.
type workerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	process     processFunc
	delay       time.Duration
	logger      logger.Logger
}

func newWorkerPool(ctx context.Context, numWorkers int, delay time.Duration, process processFunc, log logger.Logger) *workerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &workerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		process:     process,
		delay:       delay,
		logger:      log,
	}
}

// Start launches the workers.
func (wp *workerPool) Start() {
	wp.logger.InfoWithFields("starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Submit queues a job unless the run is being cancelled.
func (wp *workerPool) Submit(job Job) bool {
	select {
	case wp.jobQueue <- job:
		return true
	case <-wp.ctx.Done():
		return false
	}
}

// Stop closes intake, waits for in-flight jobs and closes the result
// channel.
func (wp *workerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.logger.Info("worker pool stopped")
}

// Results is the unordered completion stream.
func (wp *workerPool) Results() <-chan Result {
	return wp.resultQueue
}

func (wp *workerPool) worker(id int) {
	defer wp.wg.Done()

	log := wp.logger.WithField("worker_id", id)
	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			// Drain without processing so Stop can finish.
			log.DebugWithFields("dropping job after cancellation", map[string]interface{}{
				"login": job.User.Login,
			})
			continue
		default:
		}

		start := time.Now()
		result := wp.process(wp.ctx, job)
		result.Duration = time.Since(start)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}

		if wp.delay > 0 {
			select {
			case <-time.After(wp.delay):
			case <-wp.ctx.Done():
			}
		}
	}
}
