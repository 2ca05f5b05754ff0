// Package errors provides structured application errors for the concierge core.
//
// Errors carry a stable machine code, a human message, and an HTTP status.
// The turn-processing codes mirror the conversational failure taxonomy:
// locally recoverable failures (low classification confidence, slot
// extraction) are answered inside the turn, while contract violations and
// transport failures always surface as explicit error envelopes.
package errors
