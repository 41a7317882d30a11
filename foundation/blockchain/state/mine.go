package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// MineNewBlock attempts to create a new block carrying the payload with a
// proper hash that can become the next block in the chain. The block is only
// committed when the chain tail it was mined against is still the tail.
func (s *State) MineNewBlock(ctx context.Context, payload database.Payload) (database.Block, error) {
	ctx, prevBlock, done := s.trackMining(ctx)
	defer done()

	s.evHandler("state: MineNewBlock: MINING: perform POW: prevBlk[%s]", prevBlock.Hash)

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	start := time.Now()
	block, err := database.POW(ctx, database.POWArgs{
		PrevBlock: prevBlock,
		Payload:   payload,
		MineRate:  s.mineRate,
		Workers:   s.workers,
		Clock:     s.clock,
		EvHandler: s.evHandler,
	})
	miningDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: commit block[%s]", block.Hash)

	if err := s.db.Append(block); err != nil {
		if errors.Is(err, database.ErrLinkage) {
			return database.Block{}, fmt.Errorf("%w: %w", ErrStaleBlock, err)
		}
		return database.Block{}, err
	}

	s.clearIncluded([]database.Block{block})
	recordChain(block, s.db.Length())
	s.blockEvent(block)

	return block, nil
}

// MinePending mines a block carrying every payload in the mempool as a
// JSON array.
func (s *State) MinePending(ctx context.Context) (database.Block, error) {
	pending := s.mempool.PickAll()
	if len(pending) == 0 {
		return database.Block{}, ErrNoPayload
	}

	payload, err := json.Marshal(pending)
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: MinePending: MINING: payloads[%d]", len(pending))

	return s.MineNewBlock(ctx, payload)
}

// ProcessProposedBlock takes a block received from a peer and proposes the
// local chain extended by that block as a replacement chain. A block already
// in the local chain is ignored.
func (s *State) ProcessProposedBlock(block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]", block.LastHash, block.Hash)
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block.Hash)

	chain := s.db.Copy()
	for _, b := range chain {
		if b.Hash == block.Hash && b.Equal(block) {
			s.evHandler("state: ProcessProposedBlock: known block[%s]", block.Hash)
			return nil
		}
	}

	return s.replaceChain(append(chain, block))
}

// ProcessPeerChain takes a full chain received from a peer and replaces the
// local chain with it when it is longer and valid.
func (s *State) ProcessPeerChain(chain []database.Block) error {
	s.evHandler("state: ProcessPeerChain: started: length[%d]", len(chain))
	defer s.evHandler("state: ProcessPeerChain: completed")

	return s.replaceChain(chain)
}

// SubmitPayload adds the payload to the mempool.
func (s *State) SubmitPayload(payload database.Payload) error {
	n, err := s.mempool.Upsert(payload)
	if err != nil {
		return err
	}
	recordMempool(n)

	s.evHandler("state: SubmitPayload: mempool[%d]", n)
	s.signalStartMining()

	return nil
}

// =============================================================================

// replaceChain runs fork choice with the candidate. When the candidate wins,
// every mining operation building on the old tail is cancelled before this
// function returns.
func (s *State) replaceChain(candidate []database.Block) error {
	if err := s.db.ReplaceChain(candidate); err != nil {
		if !errors.Is(err, database.ErrNotLonger) {
			blocksRejected.Inc()
		}
		return err
	}

	latest := s.db.LatestBlock()
	if n := s.cancelMining(latest.Hash); n > 0 {
		s.evHandler("state: replaceChain: cancelled mining operations[%d]", n)
	}

	s.clearIncluded(candidate)
	chainReplacements.Inc()
	recordChain(latest, len(candidate))

	s.evHandler("state: replaceChain: REPLACED: length[%d]: latestBlk[%s]", len(candidate), latest.Hash)
	s.blockEvent(latest)

	return nil
}

// clearIncluded removes from the mempool every payload that is now part of
// the chain. A block payload that is an array is checked element by element.
func (s *State) clearIncluded(blocks []database.Block) {
	if s.mempool.Count() == 0 {
		return
	}

	for _, block := range blocks {
		s.mempool.Delete(block.Payload)

		var list []json.RawMessage
		if err := json.Unmarshal(block.Payload, &list); err != nil {
			continue
		}
		for _, payload := range list {
			s.mempool.Delete(payload)
		}
	}

	recordMempool(s.mempool.Count())
}

// trackMining registers a mining operation building on the current tail of
// the chain and returns that tail. The tail is read under the same lock
// cancelMining takes, so a replacement either happens before the read or
// cancels the operation. The returned function must be called when the
// operation ends.
func (s *State) trackMining(ctx context.Context) (context.Context, database.Block, func()) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	prevBlock := s.db.LatestBlock()

	s.miningID++
	id := s.miningID
	s.mining[id] = miningOp{prevHash: prevBlock.Hash, cancel: cancel}

	done := func() {
		s.mu.Lock()
		delete(s.mining, id)
		s.mu.Unlock()
		cancel()
	}

	return ctx, prevBlock, done
}

// cancelMining cancels every mining operation that isn't building on the
// specified tail hash. An empty hash cancels all of them.
func (s *State) cancelMining(tailHash string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for id, op := range s.mining {
		if tailHash != "" && op.prevHash == tailHash {
			continue
		}
		op.cancel()
		delete(s.mining, id)
		n++
	}

	return n
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	data, err := json.Marshal(database.NewBlockData(block))
	if err != nil {
		data = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: %s`, string(data))
}

