// Package server implements the daemon's HTTP, SSE and gRPC endpoints on a single port.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/improbable-eng/grpc-web/go/grpcweb"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"google.golang.org/grpc"

	"github.com/lccweb/agentwave/internal/control"
	"github.com/lccweb/agentwave/internal/daemon/filebridge"
	"github.com/lccweb/agentwave/internal/daemon/logbook"
	"github.com/lccweb/agentwave/internal/daemon/queue"
	"github.com/lccweb/agentwave/internal/models"
)

// DefaultPingInterval is how often SSE and WebSocket streams send a keepalive.
const DefaultPingInterval = 15 * time.Second

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// JobHistory looks up persisted jobs.
type JobHistory interface {
	GetJob(ctx context.Context, id string) (*models.Job, error)
	ListJobs(ctx context.Context, limit int) ([]*models.Job, error)
}

// Options configures a Server.
type Options struct {
	Host         string
	Port         int // 0 picks a free port
	PingInterval time.Duration
	Workspace    string
	HistoryLimit int

	Book    *logbook.Logbook
	Bridge  *filebridge.Bridge
	Queue   *queue.Queue
	History JobHistory // optional
	Logger  *zap.Logger

	// RequestShutdown is called by the Shutdown RPC. Defaults to sending SIGINT to this process.
	RequestShutdown func()
}

// Server is the daemon's HTTP server. gRPC and grpc-web requests are routed
// to the Control service; everything else goes to the HTTP router.
type Server struct {
	opts       Options
	logger     *zap.Logger
	listener   net.Listener
	port       int
	startedAt  time.Time
	router     http.Handler
	grpcServer *grpc.Server
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a server listening on the configured host and port.
func New(opts Options) (*Server, error) {
	if opts.Book == nil || opts.Queue == nil {
		return nil, errors.New("server requires a logbook and a queue")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = DefaultPingInterval
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	if opts.RequestShutdown == nil {
		opts.RequestShutdown = interruptSelf
	}

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	listener, err := (&net.ListenConfig{}).Listen(context.TODO(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		opts:      opts,
		logger:    opts.Logger.Named("server"),
		listener:  listener,
		port:      listener.Addr().(*net.TCPAddr).Port,
		startedAt: time.Now().UTC(),
		ctx:       ctx,
		cancel:    cancel,
	}

	s.grpcServer = grpc.NewServer()
	control.RegisterControlServer(s.grpcServer, &controlService{server: s})

	s.router = s.routes()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}
	return s, nil
}

// Port returns the port the server is listening on.
func (s *Server) Port() int {
	return s.port
}

// StartedAt returns when the server was created.
func (s *Server) StartedAt() time.Time {
	return s.startedAt
}

// Handler returns the combined HTTP/gRPC handler, accepting cleartext HTTP/2.
func (s *Server) Handler() http.Handler {
	web := grpcweb.WrapServer(s.grpcServer,
		grpcweb.WithOriginFunc(func(string) bool { return true }),
	)
	mux := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case web.IsGrpcWebRequest(r) || web.IsAcceptableGrpcCorsRequest(r):
			web.ServeHTTP(w, r)
		case isGRPC(r):
			s.grpcServer.ServeHTTP(w, r)
		default:
			s.router.ServeHTTP(w, r)
		}
	})
	return h2c.NewHandler(mux, &http2.Server{})
}

func isGRPC(r *http.Request) bool {
	return r.ProtoMajor == 2 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/grpc")
}

// Serve starts serving requests. This blocks until Shutdown is called.
func (s *Server) Serve() error {
	s.logger.Info("listening",
		zap.String("addr", s.listener.Addr().String()),
		zap.String("log_root", s.opts.Book.Root()))
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Shutdown ends open streams, then stops HTTP and gRPC within ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	err := s.httpServer.Shutdown(ctx)
	_ = s.listener.Close()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}

	if err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

// interruptSelf sends SIGINT to the current process to trigger a graceful shutdown.
func interruptSelf() {
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		return
	}
	_ = p.Signal(syscall.SIGINT)
}
