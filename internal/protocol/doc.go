// Package protocol owns the client-facing message contract of the cluster.
//
// Ownership boundary:
// - message taxonomy (requests, responses, status and error codes)
// - construction-time validation
// - per-type codec bindings and the framed wire form
// - operation identity used for retry deduplication
//
// Session bookkeeping, retries and routing live with the caller. This
// package only carries session and sequence values losslessly.
package protocol
