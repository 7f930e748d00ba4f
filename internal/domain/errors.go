package domain

import "errors"

// ErrUnknownTask indicates a task name outside the closed set of task types.
var ErrUnknownTask = errors.New("unknown task type")

// ErrInvalidExample indicates that a dataset example failed validation.
var ErrInvalidExample = errors.New("invalid dataset example")

// ErrInvalidCandidate indicates that a prompt candidate failed structural validation.
var ErrInvalidCandidate = errors.New("invalid prompt candidate")
