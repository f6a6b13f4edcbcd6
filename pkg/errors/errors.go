package errors

import "fmt"

// ErrNotFound indicates a resource doesn't exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized indicates authentication failure
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	return e.Message
}

// UpstreamError is a non-2xx response from either catalog API.
// Callers decide recoverability: auth failures (401/403) are structural
// and abort the run, everything else is per-item.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d: %s", e.Status, e.Message)
}

// IsStructural reports whether the error invalidates the whole run
// rather than the single item that triggered it.
func (e *UpstreamError) IsStructural() bool {
	return e.Status == 401 || e.Status == 403
}

// ValidationError marks a single malformed source item or event line.
// It skips the item, never the batch.
type ValidationError struct {
	Item   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Item, e.Reason)
}

// SignatureError is a webhook trust failure. The request must be rejected
// and never processed.
type SignatureError struct {
	Reason string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("signature verification failed: %s", e.Reason)
}

// ConsistencyError indicates a catalog invariant was violated in a way
// that cannot be resolved automatically (e.g. an ambiguous keeper).
type ConsistencyError struct {
	Message string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency violation: %s", e.Message)
}
