package server

import "errors"

// Error kinds.
var (
	// ErrConstruction is returned by New for an empty, nil, unnamed or
	// duplicated variable set.
	ErrConstruction = errors.New("construction error")

	// ErrStartup wraps an engine bind failure.
	ErrStartup = errors.New("startup failure")

	// ErrIllegalState is returned for lifecycle calls made in the wrong
	// state.
	ErrIllegalState = errors.New("illegal state")
)
