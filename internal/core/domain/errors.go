package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates empty or malformed caller input. Nothing was mutated.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyText indicates a message whose trimmed text is empty.
	ErrEmptyText = fmt.Errorf("%w: message text is empty", ErrInvalidInput)
	// ErrRequestInFlight indicates an advisory request is already pending.
	ErrRequestInFlight = errors.New("advisory request already in flight")
	// ErrServiceUnavailable indicates the knowledge service could not answer.
	ErrServiceUnavailable = errors.New("knowledge service unavailable")
	// ErrCredentialsMissing indicates no knowledge service credentials are configured.
	ErrCredentialsMissing = fmt.Errorf("%w: credentials missing", ErrServiceUnavailable)
	// ErrDegenerateGeometry indicates a viewport was requested for an empty path.
	ErrDegenerateGeometry = errors.New("degenerate geometry: route path is empty")
	// ErrUnknownCategory indicates a marker category outside the defined set.
	ErrUnknownCategory = errors.New("unknown marker category")
	// ErrUnknownChannel indicates a channel discriminator outside the defined set.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrUnknownParticipant indicates the participant was never registered.
	ErrUnknownParticipant = errors.New("unknown participant")
	// ErrDuplicateParticipant indicates a participant id is already registered.
	ErrDuplicateParticipant = errors.New("participant already registered")
	// ErrSessionNotFound indicates no live session has the requested id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed indicates the session already ended.
	ErrSessionClosed = errors.New("session closed")
	// ErrTrailNotFound indicates the trail catalog has no such trail.
	ErrTrailNotFound = errors.New("trail not found")
)
