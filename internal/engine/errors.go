package engine

import "errors"

// Classified engine errors. Structural errors are terminal for the calling
// operation; transient errors are retried internally with bounded attempts
// before being surfaced.
var (
	ErrTemplateNotFound       = errors.New("workflow template not found or inactive")
	ErrInvalidTemplate        = errors.New("invalid workflow template")
	ErrRequestNotFound        = errors.New("approval request not found")
	ErrRequestNotPending      = errors.New("approval request is not pending")
	ErrNotAnApprover          = errors.New("user is not an approver at the current level")
	ErrInvalidDecision        = errors.New("invalid decision action")
	ErrAlreadyDecided         = errors.New("approver already recorded a conflicting decision at this level")
	ErrNotRecallable          = errors.New("approval request cannot be recalled")
	ErrNotCancellable         = errors.New("approval request cannot be cancelled")
	ErrDirectoryUnavailable   = errors.New("approver directory unavailable")
	ErrConcurrentModification = errors.New("concurrent modification, retries exhausted")
)

// Transient reports whether an error is safe to retry
func Transient(err error) bool {
	return errors.Is(err, ErrDirectoryUnavailable) || errors.Is(err, ErrConcurrentModification)
}
