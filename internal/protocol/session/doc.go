// Package session holds the runtime-side helpers that sit on top of the
// message layer.
//
// Ownership boundary:
// - client ids and per-session id/sequence allocation
// - pending operation outbox and retry backoff
// - server-side sequence window for retry deduplication
//
// Transport, leader discovery and lease expiry stay with the caller.
package session
