package domain

import "errors"

var (
	// ErrProjectNotFound signals an unknown or unconfigured project id.
	ErrProjectNotFound = errors.New("project not found")
	// ErrAccessDenied signals that the user lacks the role required for an action.
	ErrAccessDenied = errors.New("access denied")
	// ErrNoProjectSelected signals a project-scoped action without an active project.
	ErrNoProjectSelected = errors.New("no project selected")
	// ErrStoreUnavailable signals a failed round trip to the key-value store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidMode signals an unknown quota mutation mode.
	ErrInvalidMode = errors.New("invalid mutation mode")
	// ErrInvalidValue signals a negative quota value.
	ErrInvalidValue = errors.New("invalid quota value")
)
