package database

import (
	"errors"
	"fmt"
)

// Set of errors describing why a block or a chain was rejected. Use
// errors.Is to check for a specific kind.
var (
	ErrLinkage         = errors.New("last hash does not match the previous block hash")
	ErrProofOfWork     = errors.New("proof of work requirement was not met")
	ErrDifficultyJump  = errors.New("difficulty must only adjust by 1")
	ErrHashIntegrity   = errors.New("block hash does not match the block fields")
	ErrGenesis         = errors.New("chain does not start with the genesis block")
	ErrNotLonger       = errors.New("candidate chain must be longer than the current chain")
	ErrInvalidChain    = errors.New("candidate chain is invalid")
	ErrMiningCancelled = errors.New("mining cancelled")
)

// =============================================================================

// BlockError provides the details of a block that failed validation.
type BlockError struct {
	Err   error  // One of the sentinel errors above.
	Index int    // Position in the chain, -1 when validated outside a chain.
	Field string // Name of the offending field.
	Got   string
	Exp   string
}

// Error implements the error interface.
func (be *BlockError) Error() string {
	msg := fmt.Sprintf("block[%d]: %s: %s", be.Index, be.Field, be.Err)
	if be.Got != "" || be.Exp != "" {
		msg = fmt.Sprintf("%s: got %s, exp %s", msg, be.Got, be.Exp)
	}
	return msg
}

// Unwrap provides support for errors.Is and errors.As.
func (be *BlockError) Unwrap() error {
	return be.Err
}

// =============================================================================

// ChainError is returned when a candidate chain fails validation. It
// matches both ErrInvalidChain and the kind of the first block failure.
type ChainError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (ce *ChainError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidChain, ce.Err)
}

// Unwrap provides support for errors.Is and errors.As.
func (ce *ChainError) Unwrap() []error {
	return []error{ErrInvalidChain, ce.Err}
}
