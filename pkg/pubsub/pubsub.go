// SPDX-License-Identifier: MPL-2.0

package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
)

const (
	ContextBackground Context = "background"
	ContextContent    Context = "content"
	ContextUnknown    Context = "unknown"
)

var (
	// ErrInvalidContext is returned by Context.Validate.
	ErrInvalidContext = errors.New("invalid pubsub context")
	// ErrNoChannel is returned when publishing without a channel name.
	ErrNoChannel = errors.New("channel name is required")
	// ErrHandlerPanic wraps a recovered handler panic.
	ErrHandlerPanic = errors.New("handler panicked")
)

type (
	// Context is the extension execution context a PubSub runs in. It is
	// supplied by the caller; nothing is detected from the environment.
	Context string

	// Envelope is the message exchanged over a Host.
	Envelope struct {
		Channel string          `json:"channel"`
		Data    json.RawMessage `json:"data,omitempty"`
	}

	// Sender describes where an incoming envelope came from.
	Sender struct {
		ID    string `json:"id,omitempty"`
		URL   string `json:"url,omitempty"`
		TabID int    `json:"tab_id,omitempty"`
	}

	// Message is what a Handler receives.
	Message struct {
		Channel string
		Data    json.RawMessage
		Sender  Sender
	}

	// Handler answers a Message. A nil response passes the message on to
	// the next handler; an error is logged and does the same.
	Handler func(ctx context.Context, msg Message) (any, error)

	// Listener receives envelopes from a Host. ok is false when nothing
	// answered.
	Listener func(ctx context.Context, env Envelope, sender Sender) (resp any, ok bool)

	// Host is the transport between extension contexts.
	Host interface {
		// Send delivers env to the extension runtime and returns the reply.
		Send(ctx context.Context, env Envelope) (json.RawMessage, error)
		// SendToTab delivers env to the content scripts of one tab.
		SendToTab(ctx context.Context, tabID int, env Envelope) (json.RawMessage, error)
		// Listen registers the receiver for incoming envelopes.
		Listen(l Listener)
	}

	// Option configures a PubSub.
	Option func(*PubSub)

	// PubSub dispatches incoming envelopes to subscribed handlers and
	// publishes outgoing ones through its Host.
	PubSub struct {
		context Context
		host    Host
		logger  *log.Logger

		initOnce sync.Once

		mu     sync.RWMutex
		subs   map[string][]subscription
		nextID uint64
	}

	subscription struct {
		id      uint64
		handler Handler
	}

	// Router is a chainable view of one channel.
	Router struct {
		ps      *PubSub
		channel string
	}
)

// String returns the context name.
func (c Context) String() string { return string(c) }

// Validate returns ErrInvalidContext for unrecognized values.
func (c Context) Validate() error {
	switch c {
	case ContextBackground, ContextContent, ContextUnknown:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidContext, string(c))
	}
}

// listens reports whether envelopes are received in this context.
func (c Context) listens() bool {
	return c == ContextBackground || c == ContextContent
}

// WithLogger sets the logger for handler failures.
func WithLogger(l *log.Logger) Option {
	return func(ps *PubSub) {
		if l != nil {
			ps.logger = l
		}
	}
}

// New returns a PubSub for ctx that talks through host. An unrecognized
// context is treated as ContextUnknown, which can publish but never
// receives.
func New(ctx Context, host Host, opts ...Option) *PubSub {
	if ctx.Validate() != nil {
		ctx = ContextUnknown
	}
	ps := &PubSub{
		context: ctx,
		host:    host,
		logger:  log.NewWithOptions(os.Stderr, log.Options{Prefix: "pubsub"}),
		subs:    make(map[string][]subscription),
	}
	for _, opt := range opts {
		opt(ps)
	}
	return ps
}

// Context returns the execution context the PubSub was created for.
func (ps *PubSub) Context() Context { return ps.context }

// init registers the dispatcher with the host once, on first use.
func (ps *PubSub) init() {
	ps.initOnce.Do(func() {
		if ps.context.listens() {
			ps.host.Listen(ps.dispatch)
		}
	})
}

// Subscribe appends h to the handlers of channel. The returned function
// removes exactly this subscription and may be called more than once.
func (ps *PubSub) Subscribe(channel string, h Handler) (unsubscribe func()) {
	ps.init()

	ps.mu.Lock()
	ps.nextID++
	id := ps.nextID
	ps.subs[channel] = append(ps.subs[channel], subscription{id: id, handler: h})
	ps.mu.Unlock()

	return func() {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		ps.subs[channel] = slices.DeleteFunc(ps.subs[channel], func(s subscription) bool {
			return s.id == id
		})
		if len(ps.subs[channel]) == 0 {
			delete(ps.subs, channel)
		}
	}
}

// Subscribers returns the number of handlers on channel.
func (ps *PubSub) Subscribers(channel string) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subs[channel])
}

// Channel returns a Router for name.
func (ps *PubSub) Channel(name string) *Router {
	return &Router{ps: ps, channel: name}
}

// Use subscribes h and returns the router for chaining.
func (r *Router) Use(h Handler) *Router {
	r.ps.Subscribe(r.channel, h)
	return r
}

// Publish sends data on channel through the extension runtime and returns
// the raw response.
func (ps *PubSub) Publish(ctx context.Context, channel string, data any) (json.RawMessage, error) {
	env, err := ps.envelope(channel, data)
	if err != nil {
		return nil, err
	}
	resp, err := ps.host.Send(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", channel, err)
	}
	return resp, nil
}

// PublishToTab sends data on channel to the content scripts of tabID.
func (ps *PubSub) PublishToTab(ctx context.Context, tabID int, channel string, data any) (json.RawMessage, error) {
	env, err := ps.envelope(channel, data)
	if err != nil {
		return nil, err
	}
	resp, err := ps.host.SendToTab(ctx, tabID, env)
	if err != nil {
		return nil, fmt.Errorf("publish %s to tab %d: %w", channel, tabID, err)
	}
	return resp, nil
}

func (ps *PubSub) envelope(channel string, data any) (Envelope, error) {
	ps.init()

	if channel == "" {
		return Envelope{}, ErrNoChannel
	}
	env := Envelope{Channel: channel}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Envelope{}, fmt.Errorf("encode %s payload: %w", channel, err)
		}
		env.Data = raw
	}
	return env, nil
}

// dispatch runs the channel's handlers in order until one answers.
func (ps *PubSub) dispatch(ctx context.Context, env Envelope, sender Sender) (any, bool) {
	if env.Channel == "" {
		return nil, false
	}

	// Snapshot so handlers may subscribe or unsubscribe while running.
	ps.mu.RLock()
	subs := slices.Clone(ps.subs[env.Channel])
	ps.mu.RUnlock()

	msg := Message{Channel: env.Channel, Data: env.Data, Sender: sender}
	for _, s := range subs {
		resp, err := call(ctx, s.handler, msg)
		if err != nil {
			ps.logger.Error("handler failed", "channel", env.Channel, "err", err)
			continue
		}
		if resp != nil {
			return resp, true
		}
	}
	return nil, false
}

func call(ctx context.Context, h Handler, msg Message) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h(ctx, msg)
}
