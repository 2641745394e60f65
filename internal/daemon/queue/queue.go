// Package queue runs prompt jobs one at a time, each job's tasks strictly in order.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lccweb/agentwave/internal/daemon/logbook"
	"github.com/lccweb/agentwave/internal/models"
)

var (
	// ErrQueueFull is returned when max pending jobs are already waiting.
	ErrQueueFull = errors.New("job queue is full")

	// ErrClosed is returned once Shutdown has been called.
	ErrClosed = errors.New("job queue is closed")

	// ErrEmptyPlan is returned when a job has no tasks.
	ErrEmptyPlan = errors.New("job has no tasks")
)

// TaskRunner runs an agent task to completion.
type TaskRunner interface {
	Run(ctx context.Context, agent, instruction string) (int, error)
}

// DirectRunner performs an in-process direct task.
type DirectRunner interface {
	Run(instruction string) (string, error)
}

// Recorder persists job state transitions.
type Recorder interface {
	SaveJob(ctx context.Context, job *models.Job) error
}

// Options configures a Queue.
type Options struct {
	// MaxPending bounds waiting jobs; 0 means unbounded.
	MaxPending int
	// HistoryLimit is how many finished jobs are kept in memory.
	HistoryLimit int

	Runner   TaskRunner
	Direct   DirectRunner
	Recorder Recorder
	Book     *logbook.Logbook
	Logger   *zap.Logger
}

// Queue is a FIFO of jobs drained by a single worker goroutine.
type Queue struct {
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	pending []*models.Job
	running *models.Job
	history []*models.Job
	closed  bool

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	subMu sync.RWMutex
	subs  map[string]chan *models.Job
}

// New creates a Queue and starts its worker.
func New(opts Options) *Queue {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		opts:   opts,
		logger: logger.Named("queue"),
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string]chan *models.Job),
	}

	q.wg.Add(1)
	go q.worker()
	return q
}

// Enqueue records a new job for prompt and wakes the worker.
func (q *Queue) Enqueue(prompt string, tasks []models.TaskSpec) (*models.Job, error) {
	if len(tasks) == 0 {
		return nil, ErrEmptyPlan
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrClosed
	}
	if q.opts.MaxPending > 0 && len(q.pending) >= q.opts.MaxPending {
		q.mu.Unlock()
		return nil, ErrQueueFull
	}
	job := models.NewJob(uuid.New().String(), prompt, tasks)
	q.pending = append(q.pending, job)
	depth := len(q.pending)
	snapshot := job.Clone()
	q.mu.Unlock()

	q.logger.Info("job enqueued",
		zap.String("job_id", job.ID),
		zap.Strings("agents", snapshot.AgentNames()),
		zap.Int("pending", depth))
	q.publish(snapshot)

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return snapshot, nil
}

// Snapshot returns copies of the running job (first) and the pending jobs in order.
func (q *Queue) Snapshot() []*models.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]*models.Job, 0, len(q.pending)+1)
	if q.running != nil {
		jobs = append(jobs, q.running.Clone())
	}
	for _, j := range q.pending {
		jobs = append(jobs, j.Clone())
	}
	return jobs
}

// Recent returns copies of finished jobs still held in memory, newest first.
func (q *Queue) Recent() []*models.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]*models.Job, 0, len(q.history))
	for i := len(q.history) - 1; i >= 0; i-- {
		jobs = append(jobs, q.history[i].Clone())
	}
	return jobs
}

// Get finds an active or recently finished job by ID.
func (q *Queue) Get(id string) (*models.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running != nil && q.running.ID == id {
		return q.running.Clone(), true
	}
	for _, j := range q.pending {
		if j.ID == id {
			return j.Clone(), true
		}
	}
	for _, j := range q.history {
		if j.ID == id {
			return j.Clone(), true
		}
	}
	return nil, false
}

// Pending returns how many jobs are waiting.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Busy reports whether a job is running.
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running != nil
}

// Shutdown stops accepting jobs, cancels the running task and waits for the
// worker to exit or ctx to expire. Jobs still pending are dropped.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	dropped := len(q.pending)
	q.pending = nil
	q.mu.Unlock()

	if dropped > 0 {
		q.logger.Warn("dropping pending jobs", zap.Int("count", dropped))
	}
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("queue stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to stop queue: %w", ctx.Err())
	}
}

// Subscribe returns a channel receiving a copy of each job on every state change.
func (q *Queue) Subscribe(id string) chan *models.Job {
	q.subMu.Lock()
	defer q.subMu.Unlock()
	ch := make(chan *models.Job, 64)
	q.subs[id] = ch
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (q *Queue) Unsubscribe(id string) {
	q.subMu.Lock()
	defer q.subMu.Unlock()
	if ch, ok := q.subs[id]; ok {
		close(ch)
		delete(q.subs, id)
	}
}

// publish delivers job to subscribers without blocking the worker.
func (q *Queue) publish(job *models.Job) {
	q.subMu.RLock()
	defer q.subMu.RUnlock()
	for _, ch := range q.subs {
		select {
		case ch <- job:
		default:
		}
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		job := q.next()
		if job == nil {
			select {
			case <-q.ctx.Done():
				return
			case <-q.wake:
			}
			continue
		}
		q.runJob(job)
		if q.ctx.Err() != nil {
			return
		}
	}
}

// next pops the oldest pending job and marks it running.
func (q *Queue) next() *models.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 || q.closed {
		return nil
	}
	job := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	job.Start()
	q.running = job
	return job
}

func (q *Queue) runJob(job *models.Job) {
	book := q.opts.Book
	defer q.finish(job)
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("job panicked", zap.String("job_id", job.ID), zap.Any("panic", r), zap.Stack("stack"))
			book.Log(models.AgentCoordinator, models.PhaseError, fmt.Sprint(r))
			q.failRemaining(job)
		}
	}()

	q.record(job)
	book.Logf(models.AgentCoordinator, models.PhaseInfo, "Job received for prompt: \"%s\"", job.Prompt)
	book.Log(models.AgentCoordinator, models.PhaseInfo, "Execution queue: "+strings.Join(job.AgentNames(), ", "))

	for i := range job.Tasks {
		if q.ctx.Err() != nil {
			book.Log(models.AgentCoordinator, models.PhaseError, "Job interrupted: daemon shutting down")
			q.failRemaining(job)
			return
		}
		q.runTask(job, i)
	}

	book.Log(models.AgentCoordinator, models.PhaseDone, "Wave finished.")
}

func (q *Queue) runTask(job *models.Job, i int) {
	q.mu.Lock()
	task := job.Tasks[i]
	task.Status = models.TaskStatusRunning
	spec := task.TaskSpec
	q.mu.Unlock()
	q.publish(q.clone(job))

	var (
		code int
		err  error
	)
	if spec.IsDirect() {
		if q.opts.Direct == nil {
			err = errors.New("no direct handler configured")
		} else {
			_, err = q.opts.Direct.Run(spec.Instruction)
		}
		if err != nil {
			code = 1
		}
	} else {
		code, err = q.opts.Runner.Run(q.ctx, spec.Agent, spec.Instruction)
	}

	q.mu.Lock()
	task.ExitCode = code
	if err != nil || code != 0 {
		task.Status = models.TaskStatusFailed
	} else {
		task.Status = models.TaskStatusDone
	}
	q.mu.Unlock()

	if err != nil || code != 0 {
		q.logger.Warn("task failed",
			zap.String("job_id", job.ID),
			zap.String("agent", spec.Agent),
			zap.Int("exit_code", code),
			zap.Error(err))
	}
	q.publish(q.clone(job))
}

func (q *Queue) failRemaining(job *models.Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range job.Tasks {
		if t.Status == models.TaskStatusPending || t.Status == models.TaskStatusRunning {
			t.Status = models.TaskStatusFailed
		}
	}
}

func (q *Queue) finish(job *models.Job) {
	q.mu.Lock()
	job.Finish()
	q.running = nil
	q.history = append(q.history, job)
	if over := len(q.history) - q.opts.HistoryLimit; over > 0 {
		q.history = append([]*models.Job(nil), q.history[over:]...)
	}
	q.mu.Unlock()

	q.logger.Info("job finished", zap.String("job_id", job.ID), zap.String("status", string(job.Status)))
	q.record(job)
}

func (q *Queue) clone(job *models.Job) *models.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return job.Clone()
}

// record saves the job and broadcasts it. Store failures are logged only.
func (q *Queue) record(job *models.Job) {
	snapshot := q.clone(job)
	q.publish(snapshot)
	if q.opts.Recorder == nil {
		return
	}
	// The worker context may already be cancelled during shutdown.
	if err := q.opts.Recorder.SaveJob(context.Background(), snapshot); err != nil {
		q.logger.Warn("failed to record job", zap.String("job_id", job.ID), zap.Error(err))
	}
}
