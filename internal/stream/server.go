// Package stream serves live episodes over websockets, one JSON frame per tick.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/navsim/internal/engine"
	"github.com/xkilldash9x/navsim/internal/navigation"
)

// FrameType tags each message on the wire.
type FrameType string

const (
	FrameTick   FrameType = "tick"
	FrameResult FrameType = "result"
)

// Frame is one websocket message.
type Frame struct {
	Type   FrameType          `json:"type"`
	Seed   int64              `json:"seed,omitempty"`
	Tick   *engine.TickResult `json:"tick,omitempty"`
	Result *engine.Result     `json:"result,omitempty"`
}

// Options configures the server.
type Options struct {
	// TickRate paces streamed episodes in ticks per second; 0 streams unpaced.
	TickRate     float64
	WriteTimeout time.Duration
}

// Server runs one independent episode per websocket connection.
type Server struct {
	base     engine.Setup
	opts     Options
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewServer(base engine.Setup, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &Server{
		base: base,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Any origin may watch.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.Named("stream"),
	}
}

// Handler exposes GET /stream, GET /policies and GET /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stream", s.handleStream)
	mux.HandleFunc("GET /policies", s.handlePolicies)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Stream server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("stream server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("Shutting down stream server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down stream server: %w", err)
		}
		<-errCh
		return nil
	}
}

func (s *Server) handlePolicies(w http.ResponseWriter, _ *http.Request) {
	body, err := json.Marshal(navigation.Kinds())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// episodeFor builds the engine a request asks for. Parameters are validated
// before the connection is upgraded so errors come back as plain HTTP.
func (s *Server) episodeFor(r *http.Request) (*engine.Engine, int64, error) {
	setup := s.base
	q := r.URL.Query()

	if p := q.Get("policy"); p != "" {
		kind, err := navigation.ParseKind(p)
		if err != nil {
			return nil, 0, err
		}
		setup.Policy = kind
	}

	seed := time.Now().UnixNano()
	if raw := q.Get("seed"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid seed %q: %w", raw, err)
		}
		seed = v
	}

	setup.Engine.TickRate = s.opts.TickRate
	eng, err := setup.Build(seed, s.logger)
	if err != nil {
		return nil, 0, err
	}
	return eng, seed, nil
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	eng, seed, err := s.episodeFor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The reader only exists to notice the client going away.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log := s.logger.With(zap.String("policy", string(s.policyOf(r))), zap.Int64("seed", seed))
	log.Info("Streaming episode")

	var writeErr error
	res := eng.Run(ctx, func(tr engine.TickResult) {
		if writeErr != nil {
			return
		}
		if writeErr = s.send(conn, Frame{Type: FrameTick, Tick: &tr}); writeErr != nil {
			cancel()
		}
	})

	if writeErr == nil {
		writeErr = s.send(conn, Frame{Type: FrameResult, Seed: seed, Result: &res})
	}
	if writeErr == nil {
		deadline := time.Now().Add(s.opts.WriteTimeout)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(res.Outcome)), deadline)
	} else {
		log.Warn("Stream ended early", zap.Error(writeErr))
	}

	_ = conn.Close()
	<-readerDone
	log.Info("Episode streamed", zap.String("outcome", string(res.Outcome)), zap.Int("steps", res.Steps))
}

func (s *Server) policyOf(r *http.Request) navigation.Kind {
	if kind, err := navigation.ParseKind(r.URL.Query().Get("policy")); err == nil {
		return kind
	}
	return s.base.Policy
}

func (s *Server) send(conn *websocket.Conn, f Frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	if err := conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}
