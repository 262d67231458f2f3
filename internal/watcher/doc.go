// Package watcher runs the poll, diff and notify loop.
//
// Each iteration fetches the open slots of every monitored location in a
// fixed order, notifies once for every slot that was not seen before, then
// sleeps. The sleep is the check interval after a clean iteration and the
// (shorter) error interval when any location failed to fetch.
//
// The loop is single-threaded and owns its seen-set. Fetch and notification
// failures are logged and absorbed; only context cancellation ends Run.
package watcher
