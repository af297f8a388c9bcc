package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/datadesk/internal/domain"
	"github.com/ashureev/datadesk/internal/engine"
)

// recordTimeout bounds how long a reply waits on the interaction recorder.
const recordTimeout = 5 * time.Second

var errNoResponder = errors.New("conversation: responder is required")

// Recorder receives one record per answered question.
type Recorder interface {
	RecordInteraction(ctx context.Context, it *domain.Interaction) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRecorder reports every answered question to r under sessionID.
func WithRecorder(r Recorder, sessionID string) Option {
	return func(c *Controller) {
		c.recorder = r
		c.sessionID = sessionID
	}
}

// WithSessionID tags log lines with a session ID.
func WithSessionID(sessionID string) Option {
	return func(c *Controller) {
		c.sessionID = sessionID
	}
}

// WithFallbackEngine sets the engine used to answer when the responder fails.
// Defaults to an engine over the compiled-in table.
func WithFallbackEngine(eng *engine.Engine) Option {
	return func(c *Controller) {
		if eng != nil {
			c.fallback = eng
		}
	}
}

// WithGreeting replaces the seeded assistant greeting.
func WithGreeting(text string) Option {
	return func(c *Controller) {
		if strings.TrimSpace(text) != "" {
			c.greeting = text
		}
	}
}

type job struct {
	utterance string
}

// Controller owns the state of one conversation.
//
// Replies are produced by a single worker draining a FIFO queue, so assistant
// messages are appended in the order their user messages were submitted. The
// responder runs outside the lock; the staged input can change while a reply
// is pending.
type Controller struct {
	responder Responder
	fallback  *engine.Engine
	logger    *slog.Logger
	now       func() time.Time
	recorder  Recorder
	sessionID string
	greeting  string

	mu      sync.Mutex
	state   State
	queue   []job
	closed  bool
	idle    chan struct{} // closed while no reply is outstanding
	subs    map[int]chan State
	nextSub int

	wake chan struct{}
	done chan struct{}
}

// NewController creates a conversation seeded with the greeting and starts its reply worker.
func NewController(responder Responder, opts ...Option) (*Controller, error) {
	if responder == nil {
		return nil, errNoResponder
	}

	c := &Controller{
		responder: responder,
		fallback:  engine.New(nil),
		logger:    slog.Default(),
		now:       time.Now,
		greeting:  Greeting,
		subs:      make(map[int]chan State),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.idle = make(chan struct{})
	close(c.idle)
	c.state = NewState(c.newMessage(RoleAssistant, c.greeting, 1))

	go c.run()
	return c, nil
}

// SessionID returns the session this controller was tagged with, if any.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Submit appends a user message and schedules its reply.
// Blank text is ignored and false is returned; nothing changes.
func (c *Controller) Submit(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Warn("submit on closed conversation ignored", "session_id", c.sessionID)
		return false
	}
	if c.state.InFlight == 0 {
		c.idle = make(chan struct{})
	}
	c.state = c.state.Submit(c.newMessage(RoleUser, text, c.state.NextSeq()))
	c.queue = append(c.queue, job{utterance: text})
	c.publishLocked()
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return true
}

// SelectQuickAction stages a shortcut label as the pending input. It does not submit.
func (c *Controller) SelectQuickAction(label string) {
	c.SetPendingInput(label)
}

// SetPendingInput replaces the staged input text.
func (c *Controller) SetPendingInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = c.state.SetPendingInput(text)
	c.publishLocked()
}

// QuickActions returns the shortcut labels for this conversation.
func (c *Controller) QuickActions() []string {
	return QuickActions()
}

// State returns a snapshot of the conversation.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Subscribe returns a channel that receives the current state immediately and
// then the latest state after every change. Slow readers only see the newest
// snapshot. The channel is closed by the returned cancel func or by Close.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	ch <- c.state.Clone()
	if c.closed {
		close(ch)
		c.mu.Unlock()
		return ch, func() {}
	}
	c.subs[id] = ch
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// WaitIdle blocks until every submitted message has its reply, or ctx is done.
func (c *Controller) WaitIdle(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages, waits for outstanding replies to be
// appended and closes all subscriptions. It is safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	<-c.done

	c.mu.Lock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()
}

func (c *Controller) run() {
	defer close(c.done)
	for {
		j, ok := c.next()
		if !ok {
			return
		}
		c.reply(j)
	}
}

// next pops the oldest job, blocking until one arrives or the controller closes with an empty queue.
func (c *Controller) next() (job, bool) {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			j := c.queue[0]
			c.queue = c.queue[1:]
			c.mu.Unlock()
			return j, true
		}
		closed := c.closed
		c.mu.Unlock()

		if closed {
			return job{}, false
		}
		<-c.wake
	}
}

func (c *Controller) reply(j job) {
	res, err := c.responder.Respond(context.Background(), j.utterance)
	if err != nil {
		c.logger.Warn("Responder failed, answering from local knowledge base",
			"session_id", c.sessionID,
			"error", err,
		)
		res = c.fallback.Classify(j.utterance)
	}

	c.mu.Lock()
	msg := c.newMessage(RoleAssistant, res.Response, c.state.NextSeq())
	c.state = c.state.Resolve(msg)
	if c.state.InFlight == 0 {
		close(c.idle)
	}
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Debug("Reply appended",
		"session_id", c.sessionID,
		"intent", res.Intent,
		"score", res.Score,
		"fallback", res.Fallback,
	)
	c.record(j.utterance, res, msg.CreatedAt)
}

func (c *Controller) record(utterance string, res engine.Result, at time.Time) {
	if c.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	err := c.recorder.RecordInteraction(ctx, &domain.Interaction{
		SessionID: c.sessionID,
		Utterance: utterance,
		Intent:    res.Intent,
		Score:     res.Score,
		Fallback:  res.Fallback,
		CreatedAt: at,
	})
	if err != nil {
		c.logger.Warn("Failed to record interaction", "session_id", c.sessionID, "error", err)
	}
}

func (c *Controller) newMessage(role Role, content string, seq int) Message {
	return Message{
		ID:        newMessageID(seq),
		Seq:       seq,
		Role:      role,
		Content:   content,
		CreatedAt: c.now(),
	}
}

// publishLocked hands the current state to every subscriber, replacing any unread snapshot.
func (c *Controller) publishLocked() {
	if len(c.subs) == 0 {
		return
	}
	snap := c.state.Clone()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
