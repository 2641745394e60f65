package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lccweb/agentwave/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "agentwave.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newJob(id, prompt string, enqueued time.Time, agents ...string) *models.Job {
	specs := make([]models.TaskSpec, 0, len(agents))
	for _, a := range agents {
		specs = append(specs, models.TaskSpec{Agent: a, Instruction: "do " + a})
	}
	job := models.NewJob(id, prompt, specs)
	job.EnqueuedAt = enqueued.UTC().Truncate(time.Millisecond)
	return job
}

func TestSaveAndGetJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	job := newJob("job-1", "make it dark", time.Now(), "website-beautifier", "fixer-agent")
	require.NoError(t, s.SaveJob(ctx, job))

	got, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	if diff := cmp.Diff(job, got); diff != "" {
		t.Errorf("GetJob() mismatch (-want +got):\n%s", diff)
	}

	// Upsert with progress.
	job.Start()
	job.Tasks[0].Status = models.TaskStatusDone
	job.Tasks[1].Status = models.TaskStatusFailed
	job.Tasks[1].ExitCode = 2
	job.Finish()
	require.NoError(t, s.SaveJob(ctx, job))

	got, err = s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, job.FinishedAt.UnixMilli(), got.FinishedAt.UnixMilli())
	require.Len(t, got.Tasks, 2)
	assert.Equal(t, models.TaskStatusDone, got.Tasks[0].Status)
	assert.Equal(t, 2, got.Tasks[1].ExitCode)
}

func TestGetJobNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListJobsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveJob(ctx, newJob(id, "p "+id, base.Add(time.Duration(i)*time.Minute), "test-runner")))
	}

	jobs, err := s.ListJobs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "c", jobs[0].ID)
	assert.Equal(t, "b", jobs[1].ID)
	require.Len(t, jobs[0].Tasks, 1)
	assert.Equal(t, "test-runner", jobs[0].Tasks[0].Agent)

	jobs, err = s.ListJobs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveJob(ctx, newJob("old", "p", time.Now().Add(-30*24*time.Hour), "a")))
	require.NoError(t, s.SaveJob(ctx, newJob("new", "p", time.Now(), "a")))

	n, err := s.Prune(14 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetJob(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetJob(ctx, "new")
	assert.NoError(t, err)

	var orphans int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM job_tasks WHERE job_id = 'old'`).Scan(&orphans))
	assert.Zero(t, orphans)
}
