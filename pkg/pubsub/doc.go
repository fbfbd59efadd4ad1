// SPDX-License-Identifier: MPL-2.0

// Package pubsub is a channel-keyed request/response relay between the
// parts of a browser extension.
//
// A PubSub is bound to one execution Context and one Host transport. Incoming
// envelopes are dispatched to the handlers subscribed to their channel, in
// registration order; the first handler that returns a non-nil value answers
// and the remaining handlers are skipped.
//
//	ps := pubsub.New(pubsub.ContextBackground, host)
//	ps.Channel("settings").
//		Use(audit).
//		Use(func(ctx context.Context, m pubsub.Message) (any, error) {
//			return store.Settings(ctx)
//		})
//
// NativeHost implements Host over the browser's native-messaging framing, so
// a Go program launched by the browser can take part in the exchange.
package pubsub
