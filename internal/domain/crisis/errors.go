package crisis

import "errors"

// Error taxonomy for the engine. Callers classify failures with errors.Is.
var (
	// ErrValidation marks malformed input rejected before any state change.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a reference to a nonexistent user or entry.
	ErrNotFound = errors.New("not found")

	// ErrPersistence wraps storage collaborator failures. Losing a crisis
	// event is a safety incident, so these are always propagated.
	ErrPersistence = errors.New("persistence failure")

	// ErrEscalationDelivery marks a paging collaborator failure. It is
	// logged and surfaced as an internal alert but never rolls back the
	// already-recorded event.
	ErrEscalationDelivery = errors.New("escalation delivery failed")
)
