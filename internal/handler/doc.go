// Package handler contains the HTTP surface of the concierge: idempotent
// turn submission, thread state reads, the per-thread SSE delivery stream,
// and health probes.
package handler
