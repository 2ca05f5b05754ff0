// Package domain contains the core business entities for the concierge core.
//
// This package defines:
//   - Entity types (Thread, Turn, MemoryFact, Listing)
//   - The supervisor's per-turn working set (SupervisorState)
//   - The agent contract (AgentRequest, AgentResponse, Action)
//   - The wire-level delivery unit (Envelope)
//   - Value objects and enums
//
// # Design Philosophy
//
// Domain types are persistence-agnostic and represent the core conversational
// concepts independent of how they are stored or transmitted.
//
// # Key Entities
//
//   - Thread: durable conversation identity, checkpointed after every turn
//   - Turn: one user input paired with one committed output, idempotently
//     keyed by (thread_id, client_msg_id)
//   - SupervisorState: ephemeral per-turn working set, rebuilt from
//     Thread + memory and discarded once the turn commits
//   - MemoryFact: append-only (subject, predicate, object) triple; a newer
//     fact supersedes an older one at read time, never by mutation
//   - Envelope: versioned wire frame pushed to clients over the delivery stream
//
// # Naming Conventions
//
// Types ending in "Input" are used for create/update operations.
// Types ending in "Filter" are used for query operations.
package domain
