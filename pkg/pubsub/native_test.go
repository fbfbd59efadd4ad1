// SPDX-License-Identifier: MPL-2.0

package pubsub

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// browser is the extension side of a NativeHost under test.
type browser struct {
	t    *testing.T
	in   *io.PipeWriter // browser -> host
	out  *io.PipeReader // host -> browser
	host *NativeHost
	done chan error
}

func newBrowser(t *testing.T) *browser {
	t.Helper()
	hostIn, browserOut := io.Pipe()
	browserIn, hostOut := io.Pipe()
	b := &browser{
		t:    t,
		in:   browserOut,
		out:  browserIn,
		host: NewNativeHost(hostIn, hostOut, WithHostLogger(log.New(io.Discard))),
		done: make(chan error, 1),
	}
	t.Cleanup(func() {
		_ = b.in.Close()
		_ = b.out.Close()
	})
	return b
}

func (b *browser) serve(ctx context.Context) {
	go func() { b.done <- b.host.Serve(ctx) }()
}

func (b *browser) send(f frame) {
	b.t.Helper()
	body, err := json.Marshal(f)
	require.NoError(b.t, err)
	require.NoError(b.t, binary.Write(b.in, binary.LittleEndian, uint32(len(body))))
	_, err = b.in.Write(body)
	require.NoError(b.t, err)
}

func (b *browser) recv() frame {
	b.t.Helper()
	var size uint32
	require.NoError(b.t, binary.Read(b.out, binary.LittleEndian, &size))
	body := make([]byte, size)
	_, err := io.ReadFull(b.out, body)
	require.NoError(b.t, err)
	var f frame
	require.NoError(b.t, json.Unmarshal(body, &f))
	return f
}

func (b *browser) wait() error {
	b.t.Helper()
	select {
	case err := <-b.done:
		return err
	case <-time.After(5 * time.Second):
		b.t.Fatal("Serve did not return")
		return nil
	}
}

func TestNativeHostFraming(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := NewNativeHost(bytes.NewReader(nil), &buf)
	require.NoError(t, h.write(frame{ID: 7, Type: frameResponse, Channel: "c"}))

	raw := buf.Bytes()
	require.GreaterOrEqual(t, len(raw), 4)
	size := binary.LittleEndian.Uint32(raw[:4])
	assert.Equal(t, len(raw)-4, int(size))
	assert.JSONEq(t, `{"id":7,"type":"response","channel":"c"}`, string(raw[4:]))
}

func TestNativeHostSendRoundTrip(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.serve(ctx)

	ps := New(ContextBackground, b.host, quiet())
	type result struct {
		resp json.RawMessage
		err  error
	}
	got := make(chan result, 1)
	go func() {
		resp, err := ps.PublishToTab(ctx, 9, "greet", map[string]string{"name": "ext"})
		got <- result{resp, err}
	}()

	req := b.recv()
	assert.Equal(t, frameRequest, req.Type)
	assert.Equal(t, "greet", req.Channel)
	assert.Equal(t, 9, req.TabID)
	assert.JSONEq(t, `{"name":"ext"}`, string(req.Data))

	b.send(frame{ID: req.ID, Type: frameResponse, Data: json.RawMessage(`"hello"`)})

	select {
	case r := <-got:
		require.NoError(t, r.err)
		assert.JSONEq(t, `"hello"`, string(r.resp))
	case <-time.After(5 * time.Second):
		t.Fatal("publish never completed")
	}
}

func TestNativeHostRemoteError(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.serve(ctx)

	errCh := make(chan error, 1)
	go func() {
		_, err := b.host.Send(ctx, Envelope{Channel: "c"})
		errCh <- err
	}()
	req := b.recv()
	b.send(frame{ID: req.ID, Type: frameResponse, Error: "no receiver"})

	err := <-errCh
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "no receiver", remote.Message)
	assert.Equal(t, "c", remote.Channel)
}

func TestNativeHostAnswersRequests(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ps := New(ContextBackground, b.host, quiet())
	ps.Channel("sum").Use(func(_ context.Context, m Message) (any, error) {
		var nums []int
		if err := json.Unmarshal(m.Data, &nums); err != nil {
			return nil, err
		}
		total := 0
		for _, n := range nums {
			total += n
		}
		return map[string]any{"total": total, "tab": m.Sender.TabID}, nil
	})
	b.serve(ctx)

	b.send(frame{ID: 1, Type: frameRequest, Channel: "sum", TabID: 4, Data: json.RawMessage(`[1,2,3]`)})
	resp := b.recv()
	assert.Equal(t, uint64(1), resp.ID)
	assert.Equal(t, frameResponse, resp.Type)
	assert.JSONEq(t, `{"total":6,"tab":4}`, string(resp.Data))

	b.send(frame{ID: 2, Type: frameRequest, Channel: "unknown"})
	resp = b.recv()
	assert.Equal(t, uint64(2), resp.ID)
	assert.Empty(t, resp.Data, "unanswered request gets an empty response")
	assert.Empty(t, resp.Error)
}

func TestNativeHostEndOfInput(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	b.serve(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := b.host.Send(context.Background(), Envelope{Channel: "c"})
		errCh <- err
	}()
	b.recv()
	require.NoError(t, b.in.Close())

	assert.ErrorIs(t, b.wait(), ErrHostClosed)
	assert.ErrorIs(t, <-errCh, ErrHostClosed)

	_, err := b.host.Send(context.Background(), Envelope{Channel: "late"})
	assert.ErrorIs(t, err, ErrHostClosed)
}

func TestNativeHostCancel(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	ctx, cancel := context.WithCancel(context.Background())
	b.serve(ctx)
	cancel()
	assert.ErrorIs(t, b.wait(), context.Canceled)
}

func TestNativeHostServeTwice(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.serve(ctx)

	assert.Eventually(t, func() bool { return b.host.serving.Load() }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, b.host.Serve(ctx), ErrAlreadyServing)
}

func TestNativeHostOversizedFrames(t *testing.T) {
	t.Parallel()

	var header bytes.Buffer
	require.NoError(t, binary.Write(&header, binary.LittleEndian, uint32(MaxInboundSize+1)))
	h := NewNativeHost(&header, io.Discard, WithHostLogger(log.New(io.Discard)))
	err := h.Serve(context.Background())
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	big := json.RawMessage(`"` + string(bytes.Repeat([]byte("x"), MaxOutboundSize)) + `"`)
	err = h.write(frame{Type: frameRequest, Channel: "c", Data: big})
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestNativeHostMalformedFrame(t *testing.T) {
	t.Parallel()

	var in bytes.Buffer
	body := []byte("{not json")
	require.NoError(t, binary.Write(&in, binary.LittleEndian, uint32(len(body))))
	in.Write(body)

	h := NewNativeHost(&in, io.Discard, WithHostLogger(log.New(io.Discard)))
	err := h.Serve(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrHostClosed))
}
