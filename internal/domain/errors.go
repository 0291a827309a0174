package domain

import "errors"

var (
	ErrCollision          = errors.New("id already exists")
	ErrNotFound           = errors.New("not found")
	ErrDimension          = errors.New("vector dimension mismatch")
	ErrComplianceRejected = errors.New("rejected by booklaw")
	ErrUnsupportedMethod  = errors.New("unsupported consensus method")
	ErrInvalidArgument    = errors.New("invalid argument")

	// ErrConsensus marks every failure surfaced by consensus generation. It is
	// wrapped together with the specific cause.
	ErrConsensus = errors.New("consensus failed")
)
