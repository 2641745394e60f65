package control

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/lccweb/agentwave/internal/models"
)

// Client is a Control service client.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the daemon at addr (host:port) over cleartext HTTP/2.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// GetStatus returns the daemon status.
func (c *Client) GetStatus(ctx context.Context) (*DaemonStatus, error) {
	out := new(DaemonStatus)
	if err := c.conn.Invoke(ctx, fullMethod("GetStatus"), &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitPrompt sends a prompt for routing and execution.
func (c *Client) SubmitPrompt(ctx context.Context, req *PromptRequest) (*PromptReply, error) {
	out := new(PromptReply)
	if err := c.conn.Invoke(ctx, fullMethod("SubmitPrompt"), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListJobs returns active jobs and recent history.
func (c *Client) ListJobs(ctx context.Context, limit int) (*JobList, error) {
	out := new(JobList)
	if err := c.conn.Invoke(ctx, fullMethod("ListJobs"), &ListJobsRequest{Limit: int32(limit)}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Shutdown asks the daemon to exit.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.conn.Invoke(ctx, fullMethod("Shutdown"), &emptypb.Empty{}, &emptypb.Empty{})
}

// WatchJobs streams job updates until ctx is cancelled or the daemon stops.
// fn is called for every update; returning an error ends the stream.
func (c *Client) WatchJobs(ctx context.Context, fn func(*models.Job) error) error {
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod("WatchJobs"))
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		job := new(models.Job)
		if err := stream.RecvMsg(job); err != nil {
			return err
		}
		if err := fn(job); err != nil {
			return err
		}
	}
}
