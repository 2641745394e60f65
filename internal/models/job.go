package models

import "time"

// DirectAgent is the pseudo-agent name for tasks handled in-process.
const DirectAgent = "_direct_"

// TaskSpec is one classified unit of work: an agent and what it should do.
type TaskSpec struct {
	Agent       string `json:"agent" yaml:"agent"`
	Instruction string `json:"instruction" yaml:"instruction"`
}

// IsDirect reports whether the task is handled in-process instead of spawning an agent.
func (t TaskSpec) IsDirect() bool {
	return t.Agent == DirectAgent
}

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

// TaskStatus represents the state of a single task within a job.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusRunning TaskStatus = "running"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusFailed  TaskStatus = "failed"
)

// JobTask is a TaskSpec plus its execution outcome.
type JobTask struct {
	TaskSpec
	Status   TaskStatus `json:"status"`
	ExitCode int        `json:"exit_code"`
}

// Job is a prompt and the ordered tasks derived from it.
type Job struct {
	ID         string     `json:"id"`
	Prompt     string     `json:"prompt"`
	Tasks      []*JobTask `json:"tasks"`
	Status     JobStatus  `json:"status"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewJob creates a queued job for the given tasks.
func NewJob(id, prompt string, specs []TaskSpec) *Job {
	tasks := make([]*JobTask, 0, len(specs))
	for _, s := range specs {
		tasks = append(tasks, &JobTask{TaskSpec: s, Status: TaskStatusPending})
	}
	return &Job{
		ID:         id,
		Prompt:     prompt,
		Tasks:      tasks,
		Status:     JobStatusQueued,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Start marks the job as running.
func (j *Job) Start() {
	now := time.Now().UTC()
	j.Status = JobStatusRunning
	j.StartedAt = &now
}

// Finish marks the job done, or failed when any task failed.
func (j *Job) Finish() {
	now := time.Now().UTC()
	j.Status = JobStatusDone
	for _, t := range j.Tasks {
		if t.Status == TaskStatusFailed {
			j.Status = JobStatusFailed
			break
		}
	}
	j.FinishedAt = &now
}

// AgentNames returns the agent of every task, in order.
func (j *Job) AgentNames() []string {
	names := make([]string, 0, len(j.Tasks))
	for _, t := range j.Tasks {
		names = append(names, t.Agent)
	}
	return names
}

// Clone returns a deep copy safe to hand to other goroutines.
func (j *Job) Clone() *Job {
	c := *j
	c.Tasks = make([]*JobTask, len(j.Tasks))
	for i, t := range j.Tasks {
		tc := *t
		c.Tasks[i] = &tc
	}
	if j.StartedAt != nil {
		s := *j.StartedAt
		c.StartedAt = &s
	}
	if j.FinishedAt != nil {
		f := *j.FinishedAt
		c.FinishedAt = &f
	}
	return &c
}
