// Package notifier delivers slot notifications.
//
// A Service wraps a set of Channels (SMS, email, Telegram, ...) behind a
// single Notify call, so callers do not need to know which channels are
// configured. Channels are tried in order; every send is paced by a shared
// token bucket and bounded by a timeout.
//
// Delivery is at most once: a failed send is reported to the caller and
// never retried.
package notifier
