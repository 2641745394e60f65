package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lccweb/agentwave/internal/daemon/watcher"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// follow tails path in a goroutine, calling send for every line and ping on
// every tick, until ctx ends or either call fails.
func (s *Server) follow(ctx context.Context, path string, send func(string) error, ping func() error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	locked := func(fn func() error) error {
		mu.Lock()
		defer mu.Unlock()
		return fn()
	}

	tailErr := make(chan error, 1)
	go func() {
		tailErr <- watcher.Tail(ctx, path, s.logger, func(line string) error {
			return locked(func() error { return send(line) })
		})
	}()

	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-tailErr:
			return err
		case <-ticker.C:
			if err := locked(ping); err != nil {
				cancel()
				<-tailErr
				return err
			}
		}
	}
}

// handleStream serves a log file as Server-Sent Events: every existing line,
// then each appended line, as "data: <line>".
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	path := s.opts.Book.Resolve(fileParam(r))
	if err := s.opts.Book.EnsureFile(path); err != nil {
		s.logger.Warn("failed to create log file", zap.String("path", path), zap.Error(err))
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	write := func(chunk string) error {
		if _, err := io.WriteString(w, chunk); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	err := s.follow(r.Context(), path,
		func(line string) error { return write("data: " + line + "\n\n") },
		func() error { return write(": ping\n\n") },
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("log stream ended", zap.String("path", path), zap.Error(err))
	}
}

// handleWebSocket serves the same feed as handleStream, one text frame per line.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	path := s.opts.Book.Resolve(fileParam(r))
	if err := s.opts.Book.EnsureFile(path); err != nil {
		s.logger.Warn("failed to create log file", zap.String("path", path), zap.Error(err))
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads only detect the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = s.follow(ctx, path,
		func(line string) error {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			return conn.WriteMessage(websocket.TextMessage, []byte(line))
		},
		func() error {
			return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
		},
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("websocket stream ended", zap.String("path", path), zap.Error(err))
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
