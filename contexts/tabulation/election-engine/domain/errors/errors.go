package errors

import "errors"

var (
	ErrInvalidBallot          = errors.New("invalid ballot")
	ErrNoCandidates           = errors.New("election has no candidates")
	ErrDegenerateElection     = errors.New("ballots assigned before candidates were loaded")
	ErrMethodUnsupported      = errors.New("resolution method is not supported")
	ErrElectionNotFound       = errors.New("election not found")
	ErrElectionClosed         = errors.New("election is no longer open")
	ErrFlowGraphNotFound      = errors.New("flow graph not found")
	ErrConflict               = errors.New("election conflict")
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	ErrIdempotencyConflict    = errors.New("idempotency key conflict")
)
