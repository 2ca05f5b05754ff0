// Package search talks to the listing repository backend. All calls go
// through a circuit breaker: a run of consecutive failures short-circuits
// further network attempts until a cooldown probe succeeds, and callers get a
// degraded result instead of an error they cannot act on.
package search
