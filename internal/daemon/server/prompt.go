package server

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/lccweb/agentwave/internal/control"
	"github.com/lccweb/agentwave/internal/daemon/classify"
	"github.com/lccweb/agentwave/internal/daemon/queue"
	"github.com/lccweb/agentwave/internal/models"
)

// errMissingPrompt is returned for an empty or blank prompt.
var errMissingPrompt = errors.New("missing prompt")

// submitPrompt logs the prompt and routes it: arithmetic and greetings are
// answered directly, questions get a canned answer, anything else is
// deliberated (unless it carries a direct task) and queued as a job.
func (s *Server) submitPrompt(prompt string, agents []string) (*control.PromptReply, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errMissingPrompt
	}
	book := s.opts.Book

	book.LogAs(models.AgentUser, models.RoleUser, models.PhasePrompt, prompt)

	if expr, ok := classify.ArithmeticExpr(prompt); ok {
		value, err := classify.Evaluate(expr)
		if err != nil {
			book.Log(models.AgentCoordinator, models.PhaseError, "Calculation error: "+err.Error())
			return &control.PromptReply{Outcome: control.OutcomeAnswered}, nil
		}
		answer := expr + " = " + value
		book.Log(models.AgentCoordinator, models.PhaseAnswer, answer)
		return &control.PromptReply{Outcome: control.OutcomeAnswered, Answer: answer}, nil
	}

	if classify.IsGreeting(prompt) {
		book.Log(models.AgentCoordinator, models.PhaseAnswer, classify.GreetingAnswer)
		return &control.PromptReply{Outcome: control.OutcomeAnswered, Answer: classify.GreetingAnswer}, nil
	}

	tasks := classify.Classify(prompt)
	book.Log(models.AgentCoordinator, models.PhaseInfo, "Proposed tasks: "+classify.AgentList(tasks))

	direct := classify.HasDirect(tasks)
	if classify.IsQuestion(prompt) && !direct {
		answer := classify.Answer(prompt)
		book.Log(models.AgentCoordinator, models.PhaseAnswer, answer)
		return &control.PromptReply{Outcome: control.OutcomeAnswered, Answer: answer}, nil
	}

	if !direct {
		selected := nonEmpty(agents)
		if len(selected) > 0 {
			book.Log(models.AgentCoordinator, models.PhaseInfo, "Agents selected by user: "+strings.Join(selected, ", "))
		}
		proposals, synthesis := classify.Deliberate(prompt, selected)
		for _, p := range proposals {
			book.Log(p.Agent, models.PhaseProposal, p.Text)
		}
		book.Log(models.AgentProjectCoordinator, models.PhaseDiscussion, synthesis)
	}

	job, err := s.opts.Queue.Enqueue(prompt, tasks)
	if err != nil {
		return nil, err
	}

	reply := &control.PromptReply{Outcome: control.OutcomeQueued, JobID: job.ID}
	for i := range tasks {
		reply.Tasks = append(reply.Tasks, &tasks[i])
	}
	return reply, nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

type promptRequest struct {
	Prompt textField `json:"prompt"`
	Agents []string  `json:"agents"`
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := s.submitPrompt(string(req.Prompt), req.Agents)
	switch {
	case errors.Is(err, errMissingPrompt):
		writeError(w, http.StatusBadRequest, "Missing prompt")
		return
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		s.logger.Error("failed to handle prompt", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]any{"ok": true}
	if reply.JobID != "" {
		resp["job_id"] = reply.JobID
	}
	writeJSON(w, http.StatusOK, resp)
}
