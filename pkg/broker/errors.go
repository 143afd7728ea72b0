package broker

import "errors"

var (
	// ErrEmptyTopic indicates an empty topic was provided.
	ErrEmptyTopic = errors.New("topic must not be empty")

	// ErrInvalidTopic indicates a topic containing whitespace was provided.
	ErrInvalidTopic = errors.New("topic must not contain whitespace")

	// ErrClosed indicates the broker was closed.
	ErrClosed = errors.New("broker closed")
)
