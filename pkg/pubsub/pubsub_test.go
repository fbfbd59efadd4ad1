// SPDX-License-Identifier: MPL-2.0

package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	tabID int
	env   Envelope
}

type fakeHost struct {
	mu        sync.Mutex
	listeners []Listener
	sent      []sent
	reply     json.RawMessage
	err       error
}

func (h *fakeHost) Send(_ context.Context, env Envelope) (json.RawMessage, error) {
	return h.record(0, env)
}

func (h *fakeHost) SendToTab(_ context.Context, tabID int, env Envelope) (json.RawMessage, error) {
	return h.record(tabID, env)
}

func (h *fakeHost) record(tabID int, env Envelope) (json.RawMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sent{tabID: tabID, env: env})
	return h.reply, h.err
}

func (h *fakeHost) Listen(l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, l)
}

// deliver simulates an incoming envelope.
func (h *fakeHost) deliver(t *testing.T, channel string, data string) (any, bool) {
	t.Helper()
	h.mu.Lock()
	require.Len(t, h.listeners, 1, "listener not registered")
	l := h.listeners[0]
	h.mu.Unlock()

	env := Envelope{Channel: channel}
	if data != "" {
		env.Data = json.RawMessage(data)
	}
	return l(context.Background(), env, Sender{ID: "sender-id"})
}

func quiet() Option { return WithLogger(log.New(io.Discard)) }

func answer(v any) Handler {
	return func(context.Context, Message) (any, error) { return v, nil }
}

func TestContextValidate(t *testing.T) {
	t.Parallel()

	for _, c := range []Context{ContextBackground, ContextContent, ContextUnknown} {
		assert.NoError(t, c.Validate(), c)
	}
	err := Context("popup").Validate()
	assert.ErrorIs(t, err, ErrInvalidContext)
}

func TestNewInvalidContextIsUnknown(t *testing.T) {
	t.Parallel()

	host := &fakeHost{}
	ps := New(Context("sidebar"), host, quiet())
	assert.Equal(t, ContextUnknown, ps.Context())

	ps.Subscribe("x", answer(1))
	assert.Empty(t, host.listeners, "unknown context must not listen")
}

func TestListenerRegisteredOnceOnFirstUse(t *testing.T) {
	t.Parallel()

	for _, c := range []Context{ContextBackground, ContextContent} {
		t.Run(c.String(), func(t *testing.T) {
			t.Parallel()
			host := &fakeHost{}
			ps := New(c, host, quiet())
			assert.Empty(t, host.listeners, "New must not register a listener")

			ps.Subscribe("a", answer(1))
			ps.Subscribe("b", answer(2))
			_, _ = ps.Publish(context.Background(), "a", nil)
			assert.Len(t, host.listeners, 1)
		})
	}
}

func TestDispatchFirstAnswerWins(t *testing.T) {
	t.Parallel()

	host := &fakeHost{}
	ps := New(ContextContent, host, quiet())

	var calls []string
	var got Message
	ps.Subscribe("test-channel", func(_ context.Context, m Message) (any, error) {
		calls = append(calls, "first")
		got = m
		return nil, nil
	})
	ps.Subscribe("test-channel", func(context.Context, Message) (any, error) {
		calls = append(calls, "second")
		return "handler2 response", nil
	})
	ps.Subscribe("test-channel", func(context.Context, Message) (any, error) {
		calls = append(calls, "third")
		return "never", nil
	})

	resp, ok := host.deliver(t, "test-channel", `{"test":"data"}`)
	require.True(t, ok)
	assert.Equal(t, "handler2 response", resp)
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.JSONEq(t, `{"test":"data"}`, string(got.Data))
	assert.Equal(t, "sender-id", got.Sender.ID)
	assert.Equal(t, "test-channel", got.Channel)
}

func TestDispatchSkipsFailingHandlers(t *testing.T) {
	t.Parallel()

	host := &fakeHost{}
	ps := New(ContextBackground, host, quiet())
	ps.Subscribe("c", func(context.Context, Message) (any, error) {
		return "ignored", errors.New("boom")
	})
	ps.Subscribe("c", func(context.Context, Message) (any, error) {
		panic("handler bug")
	})
	ps.Subscribe("c", answer(42))

	resp, ok := host.deliver(t, "c", "")
	require.True(t, ok)
	assert.Equal(t, 42, resp)
}

func TestDispatchUnanswered(t *testing.T) {
	t.Parallel()

	host := &fakeHost{}
	ps := New(ContextBackground, host, quiet())
	ps.Subscribe("known", answer(nil))

	_, ok := host.deliver(t, "known", "")
	assert.False(t, ok, "handlers returning nil must not answer")
	_, ok = host.deliver(t, "other", "")
	assert.False(t, ok)
	_, ok = host.deliver(t, "", "")
	assert.False(t, ok, "envelopes without a channel are ignored")
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()

	host := &fakeHost{}
	ps := New(ContextBackground, host, quiet())
	unsubFirst := ps.Subscribe("c", answer("first"))
	ps.Subscribe("c", answer("second"))
	require.Equal(t, 2, ps.Subscribers("c"))

	unsubFirst()
	unsubFirst()
	assert.Equal(t, 1, ps.Subscribers("c"))

	resp, ok := host.deliver(t, "c", "")
	require.True(t, ok)
	assert.Equal(t, "second", resp)
}

func TestUnsubscribeDuringDispatch(t *testing.T) {
	t.Parallel()

	host := &fakeHost{}
	ps := New(ContextBackground, host, quiet())
	var unsub func()
	unsub = ps.Subscribe("once", func(context.Context, Message) (any, error) {
		unsub()
		return "done", nil
	})

	resp, ok := host.deliver(t, "once", "")
	require.True(t, ok)
	assert.Equal(t, "done", resp)
	assert.Zero(t, ps.Subscribers("once"))
}

func TestChannelUseChains(t *testing.T) {
	t.Parallel()

	host := &fakeHost{}
	ps := New(ContextBackground, host, quiet())
	r := ps.Channel("settings")
	assert.Same(t, r, r.Use(answer(nil)).Use(answer("theme")))
	assert.Equal(t, 2, ps.Subscribers("settings"))

	resp, ok := host.deliver(t, "settings", "")
	require.True(t, ok)
	assert.Equal(t, "theme", resp)
}

func TestPublish(t *testing.T) {
	t.Parallel()

	host := &fakeHost{reply: json.RawMessage(`"response data"`)}
	ps := New(ContextContent, host, quiet())

	resp, err := ps.Publish(context.Background(), "test-channel", map[string]string{"foo": "bar"})
	require.NoError(t, err)
	assert.JSONEq(t, `"response data"`, string(resp))

	require.Len(t, host.sent, 1)
	assert.Equal(t, 0, host.sent[0].tabID)
	assert.Equal(t, "test-channel", host.sent[0].env.Channel)
	assert.JSONEq(t, `{"foo":"bar"}`, string(host.sent[0].env.Data))
}

func TestPublishNilData(t *testing.T) {
	t.Parallel()

	host := &fakeHost{}
	ps := New(ContextUnknown, host, quiet())
	_, err := ps.Publish(context.Background(), "ping", nil)
	require.NoError(t, err)

	raw, err := json.Marshal(host.sent[0].env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"channel":"ping"}`, string(raw))
}

func TestPublishErrors(t *testing.T) {
	t.Parallel()

	hostErr := errors.New("Test error")
	ps := New(ContextContent, &fakeHost{err: hostErr}, quiet())

	_, err := ps.Publish(context.Background(), "c", 1)
	assert.ErrorIs(t, err, hostErr)

	_, err = ps.Publish(context.Background(), "", 1)
	assert.ErrorIs(t, err, ErrNoChannel)

	_, err = ps.Publish(context.Background(), "c", make(chan int))
	assert.Error(t, err, "unencodable payload")
}

func TestPublishToTab(t *testing.T) {
	t.Parallel()

	host := &fakeHost{reply: json.RawMessage(`"tab response"`)}
	ps := New(ContextBackground, host, quiet())

	resp, err := ps.PublishToTab(context.Background(), 123, "test-channel", map[string]string{"foo": "bar"})
	require.NoError(t, err)
	assert.JSONEq(t, `"tab response"`, string(resp))
	require.Len(t, host.sent, 1)
	assert.Equal(t, 123, host.sent[0].tabID)
	assert.Equal(t, "test-channel", host.sent[0].env.Channel)
}

func TestDefaultIsSingleton(t *testing.T) {
	t.Parallel()

	a := Default()
	b := Default()
	assert.Same(t, a, b)
	assert.Equal(t, ContextBackground, a.Context())
}
