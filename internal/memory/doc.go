// Package memory assembles the context handed to the supervisor for each
// turn. Three sources contribute: an in-process short-term buffer of recent
// turns, ranked session recall, and the user's knowledge graph facts. Sources
// are read concurrently under a hard time budget; a slow source contributes
// nothing rather than stalling the turn.
package memory
