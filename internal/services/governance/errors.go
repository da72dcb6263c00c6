package governance

import "errors"

var (
	// ErrSessionNotFound is returned when no live session matches the id.
	ErrSessionNotFound = errors.New("governance session not found")

	// ErrForbidden is returned when the actor is not the session owner.
	ErrForbidden = errors.New("governance session belongs to another moderator")

	// ErrSessionExpired is returned for any action other than reopen or
	// close attempted on a timed-out session.
	ErrSessionExpired = errors.New("governance session expired")

	// ErrUnknownRole is returned when an action requires a selected role
	// and none is selected or the key is unknown.
	ErrUnknownRole = errors.New("unknown managed role")

	// ErrUnknownAction is returned for an action id the machine does not
	// accept, or one not valid in the current state.
	ErrUnknownAction = errors.New("unknown session action")

	// ErrValidation is returned when a sub-editor rejects its input; the
	// draft and the session state are left untouched.
	ErrValidation = errors.New("validation failed")

	// ErrNoPendingChanges is returned when a save is requested with
	// nothing dirty.
	ErrNoPendingChanges = errors.New("no pending changes")

	// ErrUnsavedChanges is returned when a refresh would discard edits.
	ErrUnsavedChanges = errors.New("unsaved changes pending")

	// ErrPersistence wraps store failures during commit. Roles written
	// before the failure stay committed; the failing role stays dirty.
	ErrPersistence = errors.New("failed to persist managed role")
)
