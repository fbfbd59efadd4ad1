// SPDX-License-Identifier: MPL-2.0

package pubsub

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxInboundSize is the largest frame the browser sends to a host.
	MaxInboundSize = 64 << 20
	// MaxOutboundSize is the largest frame a host may send to the browser.
	MaxOutboundSize = 1 << 20

	maxConcurrentHandlers = 64

	frameRequest  = "request"
	frameResponse = "response"
)

var (
	// ErrHostClosed is returned for requests pending when Serve stops.
	ErrHostClosed = errors.New("native host closed")
	// ErrFrameTooLarge is returned for frames over the size limits.
	ErrFrameTooLarge = errors.New("native message too large")
	// ErrAlreadyServing is returned when Serve is called twice.
	ErrAlreadyServing = errors.New("native host already serving")
)

type (
	// NativeHost implements Host over native-messaging framing: each
	// message is a JSON document preceded by its length as a uint32 in
	// little-endian order. Requests and responses are correlated by id.
	NativeHost struct {
		r      io.Reader
		w      io.Writer
		logger *log.Logger

		writeMu sync.Mutex
		nextID  atomic.Uint64
		serving atomic.Bool

		mu       sync.Mutex
		pending  map[uint64]chan frame
		listener Listener
		closed   bool
	}

	// HostOption configures a NativeHost.
	HostOption func(*NativeHost)

	// frame is the JSON body of one native message.
	frame struct {
		ID      uint64          `json:"id"`
		Type    string          `json:"type"`
		Channel string          `json:"channel,omitempty"`
		TabID   int             `json:"tab_id,omitempty"`
		Data    json.RawMessage `json:"data,omitempty"`
		Sender  *Sender         `json:"sender,omitempty"`
		Error   string          `json:"error,omitempty"`
	}

	// RemoteError is an error reported by the other side of a NativeHost.
	RemoteError struct {
		Channel string
		Message string
	}
)

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error on channel %s: %s", e.Channel, e.Message)
}

// WithHostLogger sets the logger for framing problems.
func WithHostLogger(l *log.Logger) HostOption {
	return func(h *NativeHost) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewNativeHost reads frames from r and writes them to w.
func NewNativeHost(r io.Reader, w io.Writer, opts ...HostOption) *NativeHost {
	h := &NativeHost{
		r:       r,
		w:       w,
		logger:  log.NewWithOptions(os.Stderr, log.Options{Prefix: "native"}),
		pending: make(map[uint64]chan frame),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Listen sets the receiver for incoming requests. Requests that arrive
// without a listener are answered with an empty response.
func (h *NativeHost) Listen(l Listener) {
	h.mu.Lock()
	h.listener = l
	h.mu.Unlock()
}

func (h *NativeHost) Send(ctx context.Context, env Envelope) (json.RawMessage, error) {
	return h.request(ctx, frame{Type: frameRequest, Channel: env.Channel, Data: env.Data})
}

func (h *NativeHost) SendToTab(ctx context.Context, tabID int, env Envelope) (json.RawMessage, error) {
	return h.request(ctx, frame{Type: frameRequest, Channel: env.Channel, TabID: tabID, Data: env.Data})
}

func (h *NativeHost) request(ctx context.Context, f frame) (json.RawMessage, error) {
	f.ID = h.nextID.Add(1)
	ch := make(chan frame, 1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHostClosed
	}
	h.pending[f.ID] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.pending, f.ID)
		h.mu.Unlock()
	}()

	if err := h.write(f); err != nil {
		return nil, err
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrHostClosed
		}
		if resp.Error != "" {
			return nil, &RemoteError{Channel: f.Channel, Message: resp.Error}
		}
		return resp.Data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Serve reads frames until the reader is exhausted or ctx is done, routing
// responses to waiting requests and requests to the listener. It returns
// ErrHostClosed on a clean end of input. Requests still pending when Serve
// returns fail with ErrHostClosed.
func (h *NativeHost) Serve(ctx context.Context) error {
	if !h.serving.CompareAndSwap(false, true) {
		return ErrAlreadyServing
	}
	defer h.close()

	done := make(chan struct{})
	defer close(done)

	frames := make(chan frame)
	readErr := make(chan error, 1)
	// A Read cannot be interrupted, so the reader is left behind on cancel.
	go func() {
		for {
			f, err := h.read()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- f:
			case <-done:
				return
			}
		}
	}()

	var handlers errgroup.Group
	handlers.SetLimit(maxConcurrentHandlers)
	defer func() { _ = handlers.Wait() }()

	for {
		select {
		case f := <-frames:
			h.route(ctx, &handlers, f)
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return ErrHostClosed
			}
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *NativeHost) route(ctx context.Context, handlers *errgroup.Group, f frame) {
	switch f.Type {
	case frameResponse:
		h.mu.Lock()
		ch, ok := h.pending[f.ID]
		h.mu.Unlock()
		if !ok {
			h.logger.Warn("response for unknown request", "id", f.ID)
			return
		}
		select {
		case ch <- f:
		default:
			h.logger.Warn("duplicate response", "id", f.ID)
		}
	case frameRequest:
		handlers.Go(func() error {
			h.answer(ctx, f)
			return nil
		})
	default:
		h.logger.Warn("dropping frame of unknown type", "type", f.Type, "id", f.ID)
	}
}

func (h *NativeHost) answer(ctx context.Context, f frame) {
	h.mu.Lock()
	l := h.listener
	h.mu.Unlock()

	resp := frame{ID: f.ID, Type: frameResponse, Channel: f.Channel}
	if l != nil {
		sender := Sender{TabID: f.TabID}
		if f.Sender != nil {
			sender = *f.Sender
		}
		if out, ok := l(ctx, Envelope{Channel: f.Channel, Data: f.Data}, sender); ok {
			data, err := json.Marshal(out)
			if err != nil {
				resp.Error = err.Error()
			} else {
				resp.Data = data
			}
		}
	}
	if err := h.write(resp); err != nil {
		h.logger.Error("write response", "channel", f.Channel, "id", f.ID, "err", err)
	}
}

func (h *NativeHost) read() (frame, error) {
	var size uint32
	if err := binary.Read(h.r, binary.LittleEndian, &size); err != nil {
		return frame{}, err
	}
	if size > MaxInboundSize {
		return frame{}, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(h.r, buf); err != nil {
		return frame{}, fmt.Errorf("read native message: %w", err)
	}
	var f frame
	if err := json.Unmarshal(buf, &f); err != nil {
		return frame{}, fmt.Errorf("decode native message: %w", err)
	}
	return f, nil
}

func (h *NativeHost) write(f frame) error {
	body, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode native message: %w", err)
	}
	if len(body) > MaxOutboundSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(body))
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := binary.Write(h.w, binary.LittleEndian, uint32(len(body))); err != nil {
		return fmt.Errorf("write native message: %w", err)
	}
	if _, err := h.w.Write(body); err != nil {
		return fmt.Errorf("write native message: %w", err)
	}
	return nil
}

// close fails every pending request and rejects new ones.
func (h *NativeHost) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.pending {
		close(ch)
		delete(h.pending, id)
	}
}
