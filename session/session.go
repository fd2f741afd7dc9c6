// Package session owns the websocket connection to the search backend and
// turns its message stream into ready-to-render derived state.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alchviz/alchviz/bidir"
	"github.com/alchviz/alchviz/dfstrace"
	"github.com/alchviz/alchviz/layout"
	"github.com/alchviz/alchviz/tree"
)

// ErrSessionClosed is returned by operations on a session that has already
// reached a terminal status.
var ErrSessionClosed = errors.New("session closed")

// Controller dials the backend and manages the single active session.
// Starting a new search tears the previous session down completely: its
// connection, its derived state, and every cached layout are gone before the
// new session sends its request.
type Controller struct {
	url    string
	dialer *websocket.Dialer
	engine *layout.Engine
	logger *zap.Logger

	mu     sync.Mutex
	active *Session
}

// NewController creates a Controller that dials the given websocket URL.
func NewController(url string, engine *layout.Engine, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		url:    url,
		dialer: websocket.DefaultDialer,
		engine: engine,
		logger: logger,
	}
}

// Start opens a new session for req. Any previous session is closed first
// and its state discarded; nothing derived from a superseded request
// survives into the new one.
func (c *Controller) Start(ctx context.Context, req Request) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	c.mu.Lock()
	if c.active != nil {
		c.active.Close()
		c.active = nil
	}
	if c.engine != nil {
		c.engine.Purge()
	}
	c.mu.Unlock()

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial backend %s: %w", c.url, err)
	}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send search request: %w", err)
	}

	s := newSession(req, conn, c.engine, c.logger)

	c.mu.Lock()
	c.active = s
	c.mu.Unlock()

	go s.run(ctx)
	return s, nil
}

// Active returns the current session, or nil.
func (c *Controller) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Session is one search conversation with the backend. Messages are
// processed strictly in arrival order, each one synchronously and to
// completion before the next is read; a later result always supersedes
// state built from earlier progress.
type Session struct {
	id     string
	req    Request
	conn   *websocket.Conn
	engine *layout.Engine
	logger *zap.Logger

	updates chan Snapshot
	done    chan struct{}

	mu        sync.Mutex
	snapshot  Snapshot
	last      *tree.Payload
	closeOnce sync.Once
}

func newSession(req Request, conn *websocket.Conn, engine *layout.Engine, logger *zap.Logger) *Session {
	id := uuid.NewString()
	s := &Session{
		id:      id,
		req:     req,
		conn:    conn,
		engine:  engine,
		logger:  logger.With(zap.String("session", id), zap.String("target", req.Target)),
		updates: make(chan Snapshot, 16),
		done:    make(chan struct{}),
	}
	s.snapshot = Snapshot{
		SessionID: id,
		Request:   req,
		Status:    StatusRunning,
	}
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Updates delivers a snapshot per processed message. Delivery is best
// effort: when the consumer lags, intermediate snapshots are dropped rather
// than delaying the read loop, since animation is advisory and must not
// block processing of the next arriving message. The channel is closed when
// the session ends.
func (s *Session) Updates() <-chan Snapshot { return s.updates }

// Done is closed when the session stops processing messages.
func (s *Session) Done() <-chan struct{} { return s.done }

// Snapshot returns the latest derived state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Close tears the session down. In-flight derived state freezes as-is; a
// session still running is marked closed so the connection drop that follows
// is not mistaken for a transport failure.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if !s.snapshot.Status.Terminal() {
			next := s.snapshot
			next.Status = StatusClosed
			s.replaceLocked(next)
		}
		s.mu.Unlock()
		s.conn.Close()
	})
}

// run is the session's read loop. It is the only goroutine that touches the
// connection or builds derived state; everything downstream sees immutable
// snapshots.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.updates)
	defer s.Close()

	stop := context.AfterFunc(ctx, s.Close)
	defer stop()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.handleTransportEnd(ctx, err)
			return
		}

		payload, err := tree.DecodeMessage(data, s.logger)
		if err != nil {
			// One undecodable frame does not kill the session; later
			// messages may still be fine.
			s.logger.Warn("discarding undecodable message", zap.Error(err))
			continue
		}

		terminal := s.apply(payload)
		if terminal {
			return
		}
	}
}

// handleTransportEnd distinguishes an orderly close (state freezes) from a
// transport failure (session failed, user-visible). Neither is retried.
func (s *Session) handleTransportEnd(ctx context.Context, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot.Status.Terminal() {
		return
	}
	next := s.snapshot
	if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		next.Status = StatusClosed
	} else {
		s.logger.Warn("backend connection lost", zap.Error(err))
		next.Status = StatusFailed
		next.Err = fmt.Sprintf("connection lost: %v", err)
	}
	s.replaceLocked(next)
}

// apply folds one decoded payload into a completely new snapshot. Returns
// true when the payload is terminal for the session.
func (s *Session) apply(p *tree.Payload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot.Status.Terminal() {
		return true
	}

	switch p.Kind {
	case tree.KindError:
		next := s.snapshot
		next.Status = StatusFailed
		next.Err = p.Err
		s.logger.Warn("backend reported error", zap.String("error", p.Err))
		s.replaceLocked(next)
		return true

	case tree.KindProgress:
		s.last = p
		s.replaceLocked(s.derive(p, 0, StatusRunning))
		return false

	case tree.KindResult:
		status := StatusDone
		if p.NoRecipes() {
			status = StatusNoPath
		}
		s.last = p
		s.replaceLocked(s.derive(p, 0, status))
		return true

	default:
		s.logger.Warn("ignoring message of unknown type", zap.String("type", p.Kind))
		return false
	}
}

// SelectRecipe rebuilds the derived state for another of the returned
// recipe trees. The rebuild runs the same pure derivation as message
// handling: full replacement, no partial patching across the tree swap.
func (s *Session) SelectRecipe(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot.Status == StatusClosed {
		return ErrSessionClosed
	}
	available := 0
	if s.last != nil {
		available = len(s.last.Trees)
	}
	if index < 0 || index >= available {
		return fmt.Errorf("recipe index %d out of range [0,%d)", index, available)
	}
	next := s.derive(s.last, index, s.snapshot.Status)
	s.replaceLocked(next)
	return nil
}

// derive builds a fresh snapshot from one payload. Previous derived state
// contributes nothing: classifications, traces, and layouts are recomputed
// from scratch so a tree swap can never leave an inconsistent mix behind.
func (s *Session) derive(p *tree.Payload, active int, status Status) Snapshot {
	next := Snapshot{
		SessionID:    s.id,
		Request:      s.req,
		Status:       status,
		Stats:        p.Stats,
		Trees:        p.Trees,
		ActiveRecipe: active,
		RecipeCount:  p.RecipeCount,
		Step:         p.Step,
	}
	if len(p.Trees) == 0 {
		if s.req.Algorithm == AlgorithmBidirectional {
			next.Bidir = bidir.Classify(p, s.req.Target, s.logger)
		}
		return next
	}
	if active >= len(p.Trees) {
		active = 0
		next.ActiveRecipe = 0
	}
	root := p.Trees[active]
	next.Recipes = tree.ExtractRecipes(root)

	switch s.req.Algorithm {
	case AlgorithmDFS:
		next.Trace = dfstrace.Build(root)
		if s.engine != nil {
			next.Points = s.engine.Trace(next.Trace)
		}
	case AlgorithmBidirectional:
		// Implicit classification must follow the recipe the user is
		// looking at, not whichever tree came first in the payload.
		cp := *p
		if !p.HasVisited {
			cp.Trees = []*tree.Node{root}
		}
		next.Bidir = bidir.Classify(&cp, s.req.Target, s.logger)
		if s.engine != nil {
			next.Points = s.engine.Tree(root)
		}
	default:
		if s.engine != nil {
			next.Points = s.engine.Tree(root)
		}
	}
	return next
}

// replaceLocked swaps in the new snapshot whole and offers it to the
// updates channel without blocking.
func (s *Session) replaceLocked(next Snapshot) {
	s.snapshot = next
	select {
	case s.updates <- next:
	default:
	}
}
