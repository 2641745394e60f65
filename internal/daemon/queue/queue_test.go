package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/lccweb/agentwave/internal/daemon/logbook"
	"github.com/lccweb/agentwave/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type call struct {
	agent       string
	instruction string
}

// fakeRunner records calls and returns per-agent exit codes. Agents listed in
// block wait until release is closed or the context is cancelled.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	codes   map[string]int
	block   map[string]bool
	release chan struct{}
	active  int
	maxSeen int
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		codes:   map[string]int{},
		block:   map[string]bool{},
		release: make(chan struct{}),
	}
}

func (f *fakeRunner) Run(ctx context.Context, agent, instruction string) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{agent, instruction})
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	blocked := f.block[agent]
	code := f.codes[agent]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if blocked {
		select {
		case <-f.release:
		case <-ctx.Done():
			return -1, nil
		}
	}
	if code < 0 {
		return -1, errors.New("spawn failed")
	}
	return code, nil
}

func (f *fakeRunner) agents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.agent)
	}
	return out
}

type fakeDirect struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeDirect) Run(instruction string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, instruction)
	return "out", f.err
}

type memRecorder struct {
	mu   sync.Mutex
	jobs map[string]*models.Job
}

func (m *memRecorder) SaveJob(_ context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobs == nil {
		m.jobs = map[string]*models.Job{}
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *memRecorder) get(id string) *models.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id]
}

type fixture struct {
	q      *Queue
	runner *fakeRunner
	direct *fakeDirect
	rec    *memRecorder
	book   *logbook.Logbook
}

func newFixture(t *testing.T, maxPending int) *fixture {
	t.Helper()
	book, err := logbook.New(t.TempDir(), 0, zaptest.NewLogger(t))
	require.NoError(t, err)

	f := &fixture{
		runner: newFakeRunner(),
		direct: &fakeDirect{},
		rec:    &memRecorder{},
		book:   book,
	}
	f.q = New(Options{
		MaxPending:   maxPending,
		HistoryLimit: 3,
		Runner:       f.runner,
		Direct:       f.direct,
		Recorder:     f.rec,
		Book:         book,
		Logger:       zaptest.NewLogger(t),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, f.q.Shutdown(ctx))
	})
	return f
}

func (f *fixture) waitFinished(t *testing.T, id string) *models.Job {
	t.Helper()
	var job *models.Job
	require.Eventually(t, func() bool {
		j, ok := f.q.Get(id)
		if !ok || j.FinishedAt == nil {
			return false
		}
		job = j
		return true
	}, 5*time.Second, 5*time.Millisecond)
	return job
}

func (f *fixture) coordinatorTexts(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.book.Root(), logbook.LatestFileName))
	require.NoError(t, err)
	var out []string
	for _, l := range logbook.SplitLines(string(data)) {
		var line models.LogLine
		require.NoError(t, json.Unmarshal([]byte(l), &line))
		if line.Agent == models.AgentCoordinator {
			out = append(out, string(line.Phase)+" "+line.Text)
		}
	}
	return out
}

func specs(agents ...string) []models.TaskSpec {
	out := make([]models.TaskSpec, 0, len(agents))
	for _, a := range agents {
		out = append(out, models.TaskSpec{Agent: a, Instruction: "do " + a})
	}
	return out
}

func TestJobRunsTasksInOrder(t *testing.T) {
	f := newFixture(t, 0)

	job, err := f.q.Enqueue("make it dark", specs("website-beautifier", "fixer-agent"))
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, job.Status)
	assert.NotEmpty(t, job.ID)

	done := f.waitFinished(t, job.ID)
	assert.Equal(t, models.JobStatusDone, done.Status)
	assert.Equal(t, []string{"website-beautifier", "fixer-agent"}, f.runner.agents())
	for _, task := range done.Tasks {
		assert.Equal(t, models.TaskStatusDone, task.Status)
	}

	assert.Equal(t, []string{
		`INFO Job received for prompt: "make it dark"`,
		"INFO Execution queue: website-beautifier, fixer-agent",
		"DONE Wave finished.",
	}, f.coordinatorTexts(t))

	recorded := f.rec.get(job.ID)
	require.NotNil(t, recorded)
	assert.Equal(t, models.JobStatusDone, recorded.Status)
}

func TestFailedTaskDoesNotStopJob(t *testing.T) {
	f := newFixture(t, 0)
	f.runner.codes["test-runner"] = 2
	f.runner.codes["llava-agent"] = -1

	job, err := f.q.Enqueue("p", specs("llava-agent", "test-runner", "fixer-agent"))
	require.NoError(t, err)

	done := f.waitFinished(t, job.ID)
	assert.Equal(t, models.JobStatusFailed, done.Status)
	assert.Equal(t, []string{"llava-agent", "test-runner", "fixer-agent"}, f.runner.agents())

	assert.Equal(t, models.TaskStatusFailed, done.Tasks[0].Status)
	assert.Equal(t, -1, done.Tasks[0].ExitCode)
	assert.Equal(t, models.TaskStatusFailed, done.Tasks[1].Status)
	assert.Equal(t, 2, done.Tasks[1].ExitCode)
	assert.Equal(t, models.TaskStatusDone, done.Tasks[2].Status)
}

func TestDirectTasks(t *testing.T) {
	f := newFixture(t, 0)

	job, err := f.q.Enqueue("create html", []models.TaskSpec{
		{Agent: models.DirectAgent, Instruction: "CREATE_FILE heart.html :: x"},
	})
	require.NoError(t, err)

	done := f.waitFinished(t, job.ID)
	assert.Equal(t, models.JobStatusDone, done.Status)
	assert.Empty(t, f.runner.agents())
	assert.Equal(t, []string{"CREATE_FILE heart.html :: x"}, f.direct.calls)

	f.direct.mu.Lock()
	f.direct.err = errors.New("disk full")
	f.direct.mu.Unlock()

	job, err = f.q.Enqueue("again", []models.TaskSpec{{Agent: models.DirectAgent, Instruction: "CREATE_FILE a.js :: y"}})
	require.NoError(t, err)
	done = f.waitFinished(t, job.ID)
	assert.Equal(t, models.JobStatusFailed, done.Status)
}

func TestSingleWorkerFIFO(t *testing.T) {
	f := newFixture(t, 0)
	f.runner.block["first"] = true

	j1, err := f.q.Enqueue("one", specs("first"))
	require.NoError(t, err)
	j2, err := f.q.Enqueue("two", specs("second"))
	require.NoError(t, err)
	j3, err := f.q.Enqueue("three", specs("third"))
	require.NoError(t, err)

	require.Eventually(t, f.q.Busy, time.Second, 5*time.Millisecond)

	snap := f.q.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, j1.ID, snap[0].ID)
	assert.Equal(t, models.JobStatusRunning, snap[0].Status)
	assert.Equal(t, j2.ID, snap[1].ID)
	assert.Equal(t, j3.ID, snap[2].ID)
	assert.Equal(t, 2, f.q.Pending())

	close(f.runner.release)
	f.waitFinished(t, j3.ID)

	assert.Equal(t, []string{"first", "second", "third"}, f.runner.agents())
	assert.Equal(t, 1, f.runner.maxSeen)

	recent := f.q.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, j3.ID, recent[0].ID)
}

func TestHistoryLimit(t *testing.T) {
	f := newFixture(t, 0)

	var last *models.Job
	for i := 0; i < 5; i++ {
		j, err := f.q.Enqueue("p", specs("a"))
		require.NoError(t, err)
		last = j
	}
	f.waitFinished(t, last.ID)
	assert.Len(t, f.q.Recent(), 3)
}

func TestQueueFull(t *testing.T) {
	f := newFixture(t, 1)
	f.runner.block["slow"] = true

	_, err := f.q.Enqueue("one", specs("slow"))
	require.NoError(t, err)
	require.Eventually(t, f.q.Busy, time.Second, 5*time.Millisecond)

	_, err = f.q.Enqueue("two", specs("a"))
	require.NoError(t, err)

	_, err = f.q.Enqueue("three", specs("a"))
	assert.ErrorIs(t, err, ErrQueueFull)

	close(f.runner.release)
}

func TestEnqueueEmptyPlan(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.q.Enqueue("nothing", nil)
	assert.ErrorIs(t, err, ErrEmptyPlan)
}

func TestShutdownCancelsRunningTask(t *testing.T) {
	f := newFixture(t, 0)
	f.runner.block["slow"] = true

	job, err := f.q.Enqueue("long", specs("slow", "never"))
	require.NoError(t, err)
	_, err = f.q.Enqueue("queued", specs("never"))
	require.NoError(t, err)
	require.Eventually(t, f.q.Busy, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.q.Shutdown(ctx))

	assert.Equal(t, []string{"slow"}, f.runner.agents())

	recorded := f.rec.get(job.ID)
	require.NotNil(t, recorded)
	assert.Equal(t, models.JobStatusFailed, recorded.Status)
	assert.Equal(t, models.TaskStatusFailed, recorded.Tasks[1].Status)

	_, err = f.q.Enqueue("late", specs("a"))
	assert.ErrorIs(t, err, ErrClosed)

	assert.Contains(t, f.coordinatorTexts(t), "ERROR Job interrupted: daemon shutting down")
}

func TestSubscribe(t *testing.T) {
	f := newFixture(t, 0)
	ch := f.q.Subscribe("test")
	defer f.q.Unsubscribe("test")

	job, err := f.q.Enqueue("p", specs("a"))
	require.NoError(t, err)

	timeout := time.After(5 * time.Second)
	for {
		select {
		case j := <-ch:
			if j.ID == job.ID && j.FinishedAt != nil {
				assert.Equal(t, models.JobStatusDone, j.Status)
				return
			}
		case <-timeout:
			t.Fatal("no finished update")
		}
	}
}
