// SPDX-License-Identifier: MPL-2.0

package pubsub

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	defaultOnce sync.Once
	defaultPS   *PubSub
)

// Default returns the process-wide PubSub, creating it on first call. It
// runs in ContextBackground over a NativeHost on stdin and stdout, so it is
// meant for programs started by the browser as a native-messaging host.
//
// The instance lives until the process exits. Nothing needs to be closed;
// its serve loop ends when the browser closes stdin.
func Default() *PubSub {
	defaultOnce.Do(func() {
		logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "pubsub"})
		host := NewNativeHost(os.Stdin, os.Stdout, WithHostLogger(logger))
		defaultPS = New(ContextBackground, host, WithLogger(logger))
		go func() {
			if err := host.Serve(context.Background()); err != nil && !errors.Is(err, ErrHostClosed) {
				logger.Error("native host stopped", "err", err)
			}
		}()
	})
	return defaultPS
}
