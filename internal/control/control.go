// Package control defines the daemon's gRPC control service, shared by the
// daemon and the CLI.
package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/lccweb/agentwave/internal/models"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "agentwave.Control"

// ============================================================================
// Message Types
// ============================================================================

// DaemonStatus describes the running daemon.
type DaemonStatus struct {
	Version     string                 `json:"version"`
	Host        string                 `json:"host"`
	Port        int32                  `json:"port"`
	Pid         int32                  `json:"pid"`
	Workspace   string                 `json:"workspace"`
	LogRoot     string                 `json:"log_root"`
	StartedAt   *timestamppb.Timestamp `json:"started_at"`
	PendingJobs int32                  `json:"pending_jobs"`
	RunningJob  string                 `json:"running_job,omitempty"`
}

// PromptRequest submits a prompt as POST /prompt does.
type PromptRequest struct {
	Prompt string   `json:"prompt"`
	Agents []string `json:"agents,omitempty"`
}

// PromptReply reports how a prompt was handled.
type PromptReply struct {
	Outcome string             `json:"outcome"`
	JobID   string             `json:"job_id,omitempty"`
	Answer  string             `json:"answer,omitempty"`
	Tasks   []*models.TaskSpec `json:"tasks,omitempty"`
}

// Prompt outcomes.
const (
	OutcomeAnswered = "answered"
	OutcomeQueued   = "queued"
)

// ListJobsRequest asks for active jobs and recent history.
type ListJobsRequest struct {
	Limit int32 `json:"limit"`
}

// JobList holds active (running then pending) and recently finished jobs.
type JobList struct {
	Active []*models.Job `json:"active"`
	Recent []*models.Job `json:"recent"`
}

// ============================================================================
// Service Definition
// ============================================================================

// ControlServer is the server interface for the Control service.
type ControlServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*DaemonStatus, error)
	SubmitPrompt(context.Context, *PromptRequest) (*PromptReply, error)
	ListJobs(context.Context, *ListJobsRequest) (*JobList, error)
	WatchJobs(*emptypb.Empty, Control_WatchJobsServer) error
	Shutdown(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

// Control_WatchJobsServer is the server side of the WatchJobs stream.
type Control_WatchJobsServer interface {
	Send(*models.Job) error
	grpc.ServerStream
}

type controlWatchJobsServer struct {
	grpc.ServerStream
}

func (x *controlWatchJobsServer) Send(m *models.Job) error {
	return x.ServerStream.SendMsg(m)
}

// RegisterControlServer registers srv with s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc is the grpc.ServiceDesc for the Control service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: getStatusHandler},
		{MethodName: "SubmitPrompt", Handler: submitPromptHandler},
		{MethodName: "ListJobs", Handler: listJobsHandler},
		{MethodName: "Shutdown", Handler: shutdownHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchJobs", Handler: watchJobsHandler, ServerStreams: true},
	},
	Metadata: "agentwave/control",
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func getStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("GetStatus")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).GetStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func submitPromptHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PromptRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).SubmitPrompt(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("SubmitPrompt")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).SubmitPrompt(ctx, req.(*PromptRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listJobsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListJobsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).ListJobs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("ListJobs")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).ListJobs(ctx, req.(*ListJobsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func shutdownHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Shutdown(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("Shutdown")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).Shutdown(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func watchJobsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ControlServer).WatchJobs(in, &controlWatchJobsServer{stream})
}
