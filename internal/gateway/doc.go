// Package gateway is the delivery half of the transport: it validates every
// outbound envelope against the wire schema, fans frames out to per-thread
// subscribers with a single-writer guarantee, and builds the rehydration
// frame pushed as the first envelope of every (re)connect. Frames travel from
// the worker to the API process over a Redis pub/sub bridge.
package gateway
