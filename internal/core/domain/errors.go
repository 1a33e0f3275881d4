package domain

import "errors"

var (
	ErrInvalidRange      = errors.New("invalid block range")
	ErrInvalidTxParams   = errors.New("invalid transaction parameters")
	ErrProtocolViolation = errors.New("protocol violation: fulfillment emitted neither RandomNumberCompleted nor RandomNumberFailed")
	ErrRequestMismatch   = errors.New("event request id does not match submitted request id")
	ErrReverted          = errors.New("transaction reverted")
	ErrWindowExhausted   = errors.New("log window width dropped below one block")
	ErrFetchableTimeout  = errors.New("timed out waiting for request to become fetchable")
	ErrGasPriceTooHigh   = errors.New("gas price above configured ceiling")
	ErrLockHeld          = errors.New("keeper lock held by another process")
	ErrInvalidWitnessing = errors.New("invalid witnessing parameters")
)
