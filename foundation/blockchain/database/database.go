// Package database handles the chain of blocks: mining new blocks, the
// validation rules for blocks and chains, and the owned chain value that
// replicas extend or replace.
package database

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
)

// ValidateChain checks the chain starts with the genesis block and that
// every block is valid against the block before it.
func ValidateChain(genesisBlock Block, chain []Block) error {
	if len(chain) == 0 {
		return &BlockError{Err: ErrGenesis, Index: 0, Field: "chain", Got: "empty chain"}
	}

	if !chain[0].Equal(genesisBlock) {
		return &BlockError{Err: ErrGenesis, Index: 0, Field: "hash", Got: chain[0].Hash, Exp: genesisBlock.Hash}
	}

	for i := 1; i < len(chain); i++ {
		if err := validateBlock(chain[i-1], chain[i], i); err != nil {
			return err
		}
	}

	return nil
}

// =============================================================================

// Database manages the chain owned by a node. All reads and writes are
// serialized so an append can't be lost inside a replace.
type Database struct {
	mu      sync.RWMutex
	genesis Block
	blocks  []Block
}

// New constructs a database holding only the genesis block.
func New(gen genesis.Genesis) (*Database, error) {
	if err := gen.Validate(); err != nil {
		return nil, err
	}

	genesisBlock := GenesisBlock(gen)

	db := Database{
		genesis: genesisBlock,
		blocks:  []Block{genesisBlock},
	}

	return &db, nil
}

// Genesis returns the genesis block for this chain.
func (db *Database) Genesis() Block {
	return db.genesis.clone()
}

// LatestBlock returns the block at the tail of the chain.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.blocks[len(db.blocks)-1].clone()
}

// Length returns the number of blocks in the chain, genesis included.
func (db *Database) Length() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.blocks)
}

// Copy returns a copy of the chain. Payloads are copied too, so the caller
// can't change the stored chain through the result.
func (db *Database) Copy() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return cloneChain(db.blocks)
}

// QueryBlocksByNumber returns the blocks in the range [from, to]. Block
// number 0 is the genesis block.
func (db *Database) QueryBlocksByNumber(from uint64, to uint64) []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	last := uint64(len(db.blocks) - 1)
	if from > last || from > to {
		return nil
	}
	if to > last {
		to = last
	}

	return cloneChain(db.blocks[from : to+1])
}

// Append validates the block against the current tail of the chain and adds
// it when it passes. The block must have been mined against the tail that is
// current at the time of the call.
func (db *Database) Append(block Block) error {
	block = block.clone()

	db.mu.Lock()
	defer db.mu.Unlock()

	index := len(db.blocks)
	if err := validateBlock(db.blocks[index-1], block, index); err != nil {
		return err
	}

	db.blocks = append(db.blocks, block)
	return nil
}

// ReplaceChain replaces the current chain with the candidate when the
// candidate is longer and valid. The length is checked before any block is
// inspected. On failure the current chain is left untouched.
func (db *Database) ReplaceChain(candidate []Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if len(candidate) <= len(db.blocks) {
		return fmt.Errorf("%w: current[%d] candidate[%d]", ErrNotLonger, len(db.blocks), len(candidate))
	}

	candidate = cloneChain(candidate)
	if err := ValidateChain(db.genesis, candidate); err != nil {
		var index int
		var be *BlockError
		if errors.As(err, &be) {
			index = be.Index
		}
		return &ChainError{Index: index, Err: err}
	}

	db.blocks = candidate

	return nil
}
