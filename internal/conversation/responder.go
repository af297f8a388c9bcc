package conversation

import (
	"context"
	"time"

	"github.com/ashureev/datadesk/internal/engine"
)

// DefaultReplyDelay emulates the round-trip of a remote model call.
const DefaultReplyDelay = 1500 * time.Millisecond

// Responder produces the assistant reply for one user utterance.
type Responder interface {
	Respond(ctx context.Context, utterance string) (engine.Result, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, utterance string) (engine.Result, error)

// Respond calls f.
func (f ResponderFunc) Respond(ctx context.Context, utterance string) (engine.Result, error) {
	return f(ctx, utterance)
}

// DelayedResponder answers from an Engine after a fixed delay.
type DelayedResponder struct {
	Engine *engine.Engine
	Delay  time.Duration
}

// NewDelayedResponder creates a responder. A negative delay is treated as zero.
func NewDelayedResponder(eng *engine.Engine, delay time.Duration) *DelayedResponder {
	if eng == nil {
		eng = engine.New(nil)
	}
	if delay < 0 {
		delay = 0
	}
	return &DelayedResponder{Engine: eng, Delay: delay}
}

// Respond waits for the delay, then classifies the utterance.
func (r *DelayedResponder) Respond(ctx context.Context, utterance string) (engine.Result, error) {
	if r.Delay > 0 {
		timer := time.NewTimer(r.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return engine.Result{}, ctx.Err()
		case <-timer.C:
		}
	}
	return r.Engine.Classify(utterance), nil
}
