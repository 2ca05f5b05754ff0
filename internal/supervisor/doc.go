// Package supervisor is the turn-level brain: it classifies intent, keeps
// the slot-filling state machine moving, fuses memory context, and either
// asks the next question itself or dispatches a fully slot-filled request to
// a domain agent. It owns the thread's slot map for the duration of one turn
// and applies every agent side effect before the turn commits.
package supervisor
