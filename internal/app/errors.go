package app

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNoteNotFound = errors.New("note not found")
	// ErrDependency marks a failed call to an external collaborator
	// (embedding API, vector index, chat completion API).
	ErrDependency = errors.New("upstream dependency failed")
)
