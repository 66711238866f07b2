package transport

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"codesense/internal/core/errors"
	"codesense/internal/core/ports"
	"codesense/internal/data/queue"
	"codesense/internal/protocol/command"
	"codesense/internal/shared/observability"
	"codesense/internal/shared/util"

	"github.com/google/uuid"
)

// EOT terminates every response, including the last one before a close.
const EOT = ";;EOT"

const (
	DefaultWorkers       = 4
	DefaultQueueSize     = 16
	DefaultShutdownGrace = 3 * time.Second
	DefaultMaxLineBytes  = 1 << 20
)

type Config struct {
	Host          string
	Port          int
	ProjectRoot   string
	Workers       int
	QueueSize     int
	ShutdownGrace time.Duration
	// AcceptRate limits new connections per second and remote host. Zero
	// disables the limit.
	AcceptRate  float64
	AcceptBurst int
	// MaxLineBytes caps one request line. Longer lines get MALFORMED_REQUEST
	// and the connection is closed.
	MaxLineBytes int
}

// Server accepts editor connections and serves each one on a bounded pool
// of workers. Connections wait in a bounded queue when every worker is busy;
// once the queue is full new connections get a SERVER_BUSY response and are
// closed.
type Server struct {
	cfg      Config
	factory  ports.SessionFactory
	renderer ports.Renderer
	logger   *slog.Logger

	pending *queue.MemoryQueue[*conn]
	// admitted counts connections handed to the queue that have not finished
	// yet, queued or served. Only the accept loop increments it.
	admitted atomic.Int64

	mu       sync.Mutex
	listener net.Listener
	session  ports.Session
	active   map[string]*conn
	running  bool

	ready   chan struct{}
	workers sync.WaitGroup
}

type conn struct {
	id       string
	net      net.Conn
	accepted time.Time
}

func NewServer(cfg Config, factory ports.SessionFactory, renderer ports.Renderer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = DefaultMaxLineBytes
	}
	// Without a wait queue every worker still needs a hand-off slot.
	capacity := cfg.QueueSize
	if capacity == 0 {
		capacity = cfg.Workers
	}
	return &Server{
		cfg:      cfg,
		factory:  factory,
		renderer: renderer,
		logger:   logger,
		pending:  queue.NewMemoryQueue[*conn](capacity),
		active:   make(map[string]*conn),
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the server listens and the session has started.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, or nil before the server is ready.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run creates the session, listens and serves until ctx is cancelled. Every
// resource acquired here is released before Run returns.
func (s *Server) Run(ctx context.Context) error {
	session, err := s.factory(ctx, s.cfg.ProjectRoot)
	if err != nil {
		return errors.Wrap(err, errors.CodeStartupFailure, "create session")
	}
	defer s.shutdownSession(session)

	if err := session.Start(ctx); err != nil {
		return errors.Wrap(err, errors.CodeStartupFailure, "start session")
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeStartupFailure, "listen"), "addr", addr)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dispatcher := command.NewDispatcher(session, s.renderer, s.logger)
	var limiters *util.LimiterRegistry
	if s.cfg.AcceptRate > 0 {
		limiters = util.NewLimiterRegistry(s.cfg.AcceptRate, max(s.cfg.AcceptBurst, 1), 10*time.Minute)
		defer limiters.Close()
	}

	s.mu.Lock()
	s.listener = ln
	s.session = session
	s.running = true
	s.mu.Unlock()

	for i := 0; i < s.cfg.Workers; i++ {
		s.workers.Add(1)
		go s.worker(ctx, i, dispatcher)
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	s.logger.Info("server listening",
		"addr", ln.Addr().String(),
		"project", s.cfg.ProjectRoot,
		"workers", s.cfg.Workers,
		"queue_size", s.cfg.QueueSize,
		"output", s.renderer.Name())
	close(s.ready)

	err = s.acceptLoop(ctx, ln, limiters)
	cancel()
	s.stop(ln)
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener, limiters *util.LimiterRegistry) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("accept failed", "error", err)
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return errors.Wrap(err, errors.CodeInternal, "accept")
		}
		observability.ConnectionsAcceptedTotal.Inc()
		c := &conn{id: uuid.NewString(), net: nc, accepted: time.Now()}

		if limiters != nil && !limiters.Get(remoteHost(nc)).Allow(1) {
			s.reject(c, "connection rate limit exceeded")
			continue
		}
		if s.cfg.QueueSize == 0 && s.admitted.Load() >= int64(s.cfg.Workers) {
			s.reject(c, "all workers are busy")
			continue
		}
		s.admitted.Add(1)
		switch s.pending.Enqueue(c) {
		case queue.EnqueueAccepted:
			observability.ConnectionQueueDepth.Set(float64(s.pending.Len()))
			s.logger.Debug("connection queued", "conn", c.id, "remote", nc.RemoteAddr().String(), "depth", s.pending.Len())
		default:
			s.admitted.Add(-1)
			s.reject(c, "connection queue is full")
		}
	}
}

// reject answers one SERVER_BUSY response and closes the socket.
func (s *Server) reject(c *conn, reason string) {
	observability.ConnectionsRejectedTotal.Inc()
	s.logger.Warn("connection rejected", "conn", c.id, "remote", c.net.RemoteAddr().String(), "reason", reason)

	_ = c.net.SetWriteDeadline(time.Now().Add(time.Second))
	w := bufio.NewWriter(c.net)
	_ = s.renderer.RenderError(w, errors.New(errors.CodeServerBusy, reason))
	_, _ = w.WriteString(EOT + "\n")
	_ = w.Flush()
	_ = c.net.Close()
}

func (s *Server) worker(ctx context.Context, n int, dispatcher *command.Dispatcher) {
	defer s.workers.Done()
	for {
		c, err := s.pending.Dequeue(context.Background())
		if err != nil {
			return
		}
		observability.ConnectionQueueDepth.Set(float64(s.pending.Len()))
		if ctx.Err() != nil || !s.track(c) {
			_ = c.net.Close()
			s.admitted.Add(-1)
			continue
		}
		s.serve(ctx, c, dispatcher, n)
		s.admitted.Add(-1)
	}
}

func (s *Server) serve(ctx context.Context, c *conn, dispatcher *command.Dispatcher, worker int) {
	logger := s.logger.With("conn", c.id, "remote", c.net.RemoteAddr().String())
	defer s.untrack(c)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("connection handler panicked", "panic", fmt.Sprint(r))
		}
		_ = c.net.Close()
		logger.Info("client disconnect")
	}()
	logger.Info("client connected", "worker", worker, "waited", time.Since(c.accepted))

	scanner := bufio.NewScanner(c.net)
	scanner.Buffer(make([]byte, 0, min(4096, s.cfg.MaxLineBytes)), s.cfg.MaxLineBytes)
	writer := bufio.NewWriter(c.net)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			logger.Info("close from client")
			return
		}

		cont := dispatcher.Handle(ctx, writer, line)
		if _, err := writer.WriteString(EOT + "\n"); err != nil {
			logger.Warn("write failed", "error", err)
			return
		}
		if err := writer.Flush(); err != nil {
			logger.Warn("flush failed", "error", err)
			return
		}
		if !cont {
			logger.Info("stop client")
			return
		}
	}

	err := scanner.Err()
	switch {
	case errors.Is(err, bufio.ErrTooLong):
		logger.Warn("request line too long", "limit", s.cfg.MaxLineBytes)
		_ = s.renderer.RenderError(writer, errors.Newf(errors.CodeMalformedRequest, "request line exceeds %d bytes", s.cfg.MaxLineBytes))
		_, _ = writer.WriteString(EOT + "\n")
		_ = writer.Flush()
	case err != nil && ctx.Err() == nil:
		logger.Warn("read failed", "error", err)
	}
}

// track registers c as in flight. It fails once shutdown has begun.
func (s *Server) track(c *conn) bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	s.active[c.id] = c
	n := len(s.active)
	s.mu.Unlock()
	observability.ConnectionsActive.Set(float64(n))
	return true
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	delete(s.active, c.id)
	n := len(s.active)
	s.mu.Unlock()
	observability.ConnectionsActive.Set(float64(n))
}

func (s *Server) activeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// stop closes the listener, queued and in-flight connections, then waits
// for every worker.
func (s *Server) stop(ln net.Listener) {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	_ = ln.Close()

	_ = s.pending.Close()
	for _, c := range s.pending.Drain() {
		_ = c.net.Close()
		s.admitted.Add(-1)
	}
	s.mu.Lock()
	for _, c := range s.active {
		_ = c.net.Close()
	}
	s.mu.Unlock()
	s.workers.Wait()
	observability.ConnectionQueueDepth.Set(0)
}

func (s *Server) shutdownSession(session ports.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()
	if err := session.Shutdown(ctx, s.cfg.ShutdownGrace); err != nil {
		s.logger.Warn("session shutdown failed", "error", err)
	}
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
}

// Health reports listener, session and connection state.
func (s *Server) Health(ctx context.Context) observability.HealthStatus {
	s.mu.Lock()
	running := s.running
	sessionUp := s.session != nil
	active := len(s.active)
	s.mu.Unlock()
	stats := util.ReadRuntimeStats()

	status := "up"
	if !running || !sessionUp {
		status = "down"
	}
	listener := "stopped"
	if running {
		listener = "listening"
	}
	session := "stopped"
	if sessionUp {
		session = "started"
	}
	return observability.HealthStatus{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Components: map[string]string{
			"listener":    listener,
			"session":     session,
			"connections": strconv.Itoa(active),
			"queued":      strconv.Itoa(s.pending.Len()),
			"heap_mb":     strconv.FormatUint(stats.HeapAllocMB, 10),
			"goroutines":  strconv.Itoa(stats.Goroutines),
		},
	}
}

func remoteHost(nc net.Conn) string {
	host, _, err := net.SplitHostPort(nc.RemoteAddr().String())
	if err != nil {
		return nc.RemoteAddr().String()
	}
	return host
}
