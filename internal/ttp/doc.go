// Package ttp is the client for the remote scheduling API.
//
// Two endpoints are used:
//   - the slots endpoint, queried once per monitored location per iteration
//   - the locations endpoint, queried at startup to resolve city names
//
// The slots endpoint is a URL template. The placeholders {location}, {limit}
// and {minimum} are substituted per request. The default points at the
// Trusted Traveler Programs scheduler.
//
// All fetch failures (transport, non-2xx status, malformed body) wrap
// ErrFetch. The client never retries; the caller decides when to try again.
package ttp
