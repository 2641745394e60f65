package server

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/lccweb/agentwave/internal/buildinfo"
	"github.com/lccweb/agentwave/internal/control"
	"github.com/lccweb/agentwave/internal/daemon/queue"
)

// controlService implements control.ControlServer on top of the Server.
type controlService struct {
	server *Server
}

func (c *controlService) GetStatus(_ context.Context, _ *emptypb.Empty) (*control.DaemonStatus, error) {
	s := c.server
	st := &control.DaemonStatus{
		Version:     buildinfo.Version,
		Host:        s.opts.Host,
		Port:        int32(s.port),
		Pid:         int32(os.Getpid()),
		Workspace:   s.opts.Workspace,
		LogRoot:     s.opts.Book.Root(),
		StartedAt:   timestamppb.New(s.startedAt),
		PendingJobs: int32(s.opts.Queue.Pending()),
	}
	for _, j := range s.opts.Queue.Snapshot() {
		if j.StartedAt != nil {
			st.RunningJob = j.ID
			break
		}
	}
	return st, nil
}

func (c *controlService) SubmitPrompt(_ context.Context, req *control.PromptRequest) (*control.PromptReply, error) {
	reply, err := c.server.submitPrompt(req.Prompt, req.Agents)
	switch {
	case errors.Is(err, errMissingPrompt):
		return nil, status.Error(codes.InvalidArgument, "Missing prompt")
	case errors.Is(err, queue.ErrQueueFull):
		return nil, status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, queue.ErrClosed):
		return nil, status.Error(codes.Unavailable, err.Error())
	case err != nil:
		return nil, status.Error(codes.Internal, err.Error())
	}
	return reply, nil
}

func (c *controlService) ListJobs(ctx context.Context, req *control.ListJobsRequest) (*control.JobList, error) {
	list, err := c.server.listJobs(ctx, int(req.Limit))
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return list, nil
}

func (c *controlService) WatchJobs(_ *emptypb.Empty, stream control.Control_WatchJobsServer) error {
	q := c.server.opts.Queue
	id := uuid.New().String()
	updates := q.Subscribe(id)
	defer q.Unsubscribe(id)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case job, ok := <-updates:
			if !ok {
				return nil
			}
			if err := stream.Send(job); err != nil {
				return err
			}
		}
	}
}

func (c *controlService) Shutdown(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	c.server.logger.Info("shutdown requested over gRPC")
	go func() {
		time.Sleep(100 * time.Millisecond)
		c.server.opts.RequestShutdown()
	}()
	return &emptypb.Empty{}, nil
}
