package entity

import "errors"

var (
	// ErrEntityNotFound is returned when no entity has the requested unique id.
	ErrEntityNotFound = errors.New("entity: not found")

	// ErrUnsupportedAction is returned when an action is sent to a read-only entity.
	ErrUnsupportedAction = errors.New("entity: action not supported")

	// ErrInvalidBrightness is returned for a brightness outside 0-255.
	ErrInvalidBrightness = errors.New("entity: brightness must be between 0 and 255")
)
