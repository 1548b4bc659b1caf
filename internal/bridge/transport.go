package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	connectTimeout = 3 * time.Second
	authTimeout    = 5 * time.Second

	chunkBuffer = 64
)

// SendRequest is one chat exchange to submit over the open connection.
type SendRequest struct {
	Trigger  string
	Messages []Message
	Context  SendContext
}

// Transport is a duplex chat client multiplexing runs over a single
// WebSocket connection to the bridge daemon. Live runs are keyed by run id
// in owned maps, so one transport handles concurrent sends safely.
type Transport struct {
	url    string
	model  string
	dialer *websocket.Dialer

	mu            sync.Mutex
	conn          *websocket.Conn
	authenticated bool
	identity      *Identity
	connecting    chan struct{}
	connectErr    error
	pending       map[string]*RunStream // client message id, pre-ack
	runs          map[string]*RunStream // run id, post-ack

	writeMu sync.Mutex
}

// NewTransport creates a disconnected transport for the given bridge URL.
// model, if non-empty, is sent as a hint on every chat.send.
func NewTransport(url, model string) *Transport {
	return &Transport{
		url:     url,
		model:   model,
		dialer:  &websocket.Dialer{HandshakeTimeout: connectTimeout},
		pending: make(map[string]*RunStream),
		runs:    make(map[string]*RunStream),
	}
}

// Identity returns the user the daemon authenticated as, or nil while
// disconnected.
func (t *Transport) Identity() *Identity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.identity
}

// EnsureConnected connects and authenticates if needed. Already
// authenticated transports return immediately; concurrent callers during an
// attempt share its outcome and never open a second socket.
func (t *Transport) EnsureConnected(ctx context.Context) error {
	t.mu.Lock()
	if t.authenticated {
		t.mu.Unlock()
		return nil
	}
	if ch := t.connecting; ch != nil {
		t.mu.Unlock()
		select {
		case <-ch:
			t.mu.Lock()
			err := t.connectErr
			t.mu.Unlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	ch := make(chan struct{})
	t.connecting = ch
	t.mu.Unlock()

	err := t.connect(ctx)

	t.mu.Lock()
	t.connectErr = err
	t.connecting = nil
	t.mu.Unlock()
	close(ch)

	return err
}

// connect dials the daemon and waits for it to auto-authenticate the
// session. The daemon infers identity from its locally stored key; the
// transport sends no credential.
func (t *Transport) connect(ctx context.Context) error {
	conn, resp, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return fmt.Errorf("failed to connect to bridge: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))
	for {
		var msg envelope
		if err := conn.ReadJSON(&msg); err != nil {
			_ = conn.Close()
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return ErrAuthTimeout
			}
			return fmt.Errorf("connection closed before authentication: %w", err)
		}

		switch msg.Type {
		case msgAuthOK:
			_ = conn.SetReadDeadline(time.Time{})
			t.mu.Lock()
			t.conn = conn
			t.authenticated = true
			t.identity = msg.User
			t.mu.Unlock()
			go t.readLoop(conn)
			return nil
		case msgAuthError:
			_ = conn.Close()
			return fmt.Errorf("%w: %s", ErrAuthFailed, msg.Message)
		default:
			// anything else before auth resolves is ignored
		}
	}
}

// SendMessages submits one message list and returns the stream of chunks
// for the run it starts. Chunks for other runs never leak into it. The
// stream closes on chat.done, closes with an error on chat.error or a
// dropped connection, and closes cleanly if ctx is cancelled (after a
// fire-and-forget chat.abort).
func (t *Transport) SendMessages(ctx context.Context, req SendRequest) (*RunStream, error) {
	if err := t.EnsureConnected(ctx); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	run := newRunStream(id)

	t.mu.Lock()
	t.pending[id] = run
	t.mu.Unlock()

	env := envelope{
		Type:     msgChatSend,
		ID:       id,
		Trigger:  req.Trigger,
		Messages: req.Messages,
		Model:    t.model,
		Context:  &req.Context,
	}
	if err := t.writeJSON(env); err != nil {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
		return nil, fmt.Errorf("failed to send chat message: %w", err)
	}

	go func() {
		select {
		case <-ctx.Done():
			t.abortRun(run)
		case <-run.done:
		}
	}()

	return run, nil
}

// ReconnectToStream always reports that there is nothing to resume. The
// daemon does not buffer chunks per run, so an in-flight run cannot survive
// a transport replacement.
func (t *Transport) ReconnectToStream(conversationID string) (*RunStream, error) {
	return nil, ErrNoActiveStream
}

// Disconnect closes the socket if open and resets state. Idempotent.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.authenticated = false
	t.identity = nil
	orphans := t.detachRunsLocked()
	t.mu.Unlock()

	for _, run := range orphans {
		run.finish(ErrConnectionClosed)
	}
	if conn != nil {
		_ = conn.Close()
	}
}

// readLoop owns reads on one connection and routes frames to their runs by
// run id until the connection drops.
func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		var msg envelope
		if err := conn.ReadJSON(&msg); err != nil {
			t.teardown(conn)
			return
		}

		switch msg.Type {
		case msgChatAck:
			t.mu.Lock()
			if run, ok := t.pending[msg.ID]; ok {
				delete(t.pending, msg.ID)
				run.setRunID(msg.RunID)
				t.runs[msg.RunID] = run
			}
			t.mu.Unlock()

		case msgChunk:
			t.mu.Lock()
			run := t.runs[msg.RunID]
			t.mu.Unlock()
			// stray frames from stale or aborted runs are dropped
			if run != nil {
				run.deliver(msg.Chunk)
			}

		case msgChatDone:
			t.mu.Lock()
			run := t.runs[msg.RunID]
			delete(t.runs, msg.RunID)
			t.mu.Unlock()
			if run != nil {
				run.finish(nil)
			}

		case msgChatError:
			t.mu.Lock()
			run := t.runs[msg.RunID]
			delete(t.runs, msg.RunID)
			t.mu.Unlock()
			if run != nil {
				run.finish(fmt.Errorf("%w: %s", ErrRunFailed, msg.Error))
			}

		case msgPong:
			// keepalive reply, nothing to do

		default:
			// unrecognized message types are tolerated, not fatal
		}
	}
}

// teardown handles a dropped connection: in-flight runs terminate with a
// connection error, but the transport may reconnect on the next call.
func (t *Transport) teardown(conn *websocket.Conn) {
	_ = conn.Close()

	t.mu.Lock()
	if t.conn != conn {
		// already disconnected or replaced
		t.mu.Unlock()
		return
	}
	t.conn = nil
	t.authenticated = false
	t.identity = nil
	orphans := t.detachRunsLocked()
	t.mu.Unlock()

	for _, run := range orphans {
		run.finish(ErrConnectionClosed)
	}
}

func (t *Transport) detachRunsLocked() []*RunStream {
	orphans := make([]*RunStream, 0, len(t.pending)+len(t.runs))
	for id, run := range t.pending {
		delete(t.pending, id)
		orphans = append(orphans, run)
	}
	for id, run := range t.runs {
		delete(t.runs, id)
		orphans = append(orphans, run)
	}
	return orphans
}

// abortRun tears the run down locally and tells the daemon to stop, without
// waiting for an acknowledgement. Aborts before the chat.ack arrives have
// no run id yet, so no abort frame is sent for them.
func (t *Transport) abortRun(run *RunStream) {
	runID := run.RunID()

	t.mu.Lock()
	delete(t.pending, run.msgID)
	if runID != "" {
		delete(t.runs, runID)
	}
	t.mu.Unlock()

	if runID != "" {
		_ = t.writeJSON(envelope{Type: msgChatAbort, RunID: runID})
	}
	run.finish(nil)
}

func (t *Transport) writeJSON(v any) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrConnectionClosed
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return conn.WriteJSON(v)
}

// RunStream is the consumer side of one run: a pull-based sequence of
// chunks plus the terminal state once the channel closes.
type RunStream struct {
	msgID string

	mu     sync.Mutex
	runID  string
	closed bool
	err    error

	done   chan struct{}
	chunks chan json.RawMessage
	sendMu sync.Mutex
}

func newRunStream(msgID string) *RunStream {
	return &RunStream{
		msgID:  msgID,
		done:   make(chan struct{}),
		chunks: make(chan json.RawMessage, chunkBuffer),
	}
}

// Chunks yields the run's streamed payloads in arrival order. The channel
// closes when the run finishes; check Err afterwards.
func (s *RunStream) Chunks() <-chan json.RawMessage {
	return s.chunks
}

// Err reports how the stream ended: nil after chat.done or a local abort,
// non-nil after chat.error or a dropped connection. Only meaningful once
// Chunks is closed.
func (s *RunStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// RunID returns the server-assigned run id, or "" before the chat.ack.
func (s *RunStream) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

func (s *RunStream) setRunID(runID string) {
	s.mu.Lock()
	s.runID = runID
	s.mu.Unlock()
}

func (s *RunStream) deliver(chunk json.RawMessage) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	select {
	case s.chunks <- chunk:
	case <-s.done:
	}
}

func (s *RunStream) finish(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	close(s.done)
	s.mu.Unlock()

	// wait out any in-flight deliver before closing the consumer channel
	s.sendMu.Lock()
	close(s.chunks)
	s.sendMu.Unlock()
}
