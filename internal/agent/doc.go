// Package agent holds the domain agents and their registry. An agent is a
// stateless handler for one business vertical: it receives an immutable
// request, makes bounded tool calls through the search client, and returns a
// reply with typed actions. Agents never touch shared state directly; every
// side effect travels back as an action for the supervisor to apply.
package agent
