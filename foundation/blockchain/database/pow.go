package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/hexbin"
)

// Clock returns the current time in nanoseconds since the unix epoch.
type Clock func() int64

// SystemClock reads the wall clock.
func SystemClock() int64 {
	return time.Now().UnixNano()
}

// AdjustDifficulty calculates the difficulty for a block that follows the
// previous block and is stamped with the specified time. Blocks mined faster
// than the mine rate raise the difficulty by 1, slower blocks lower it by 1.
// The difficulty never drops below 1.
func AdjustDifficulty(previousBlock Block, timeStamp int64, mineRate time.Duration) uint {
	if timeStamp-previousBlock.TimeStamp < int64(mineRate) {
		return previousBlock.Difficulty + 1
	}

	if previousBlock.Difficulty > 1 {
		return previousBlock.Difficulty - 1
	}

	return 1
}

// =============================================================================

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	PrevBlock Block
	Payload   Payload
	MineRate  time.Duration
	Workers   int
	Clock     Clock
	EvHandler func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle. The search has no bound and only ends
// when a solution is found or the context is cancelled.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	if args.MineRate <= 0 {
		args.MineRate = genesis.MineRate
	}

	if args.Workers < 1 {
		args.Workers = 1
	}

	if args.Clock == nil {
		args.Clock = SystemClock
	}

	payload := append(Payload(nil), normalize(args.Payload)...)
	if !json.Valid(payload) {
		return Block{}, errors.New("payload is not valid json")
	}

	ev("database: POW: MINING: started: prevBlk[%s]: workers[%d]", args.PrevBlock.Hash, args.Workers)
	defer ev("database: POW: MINING: completed")

	mineCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Every worker sends at most one value so none of them can block.
	solved := make(chan Block, args.Workers)
	failed := make(chan error, args.Workers)

	var wg sync.WaitGroup
	wg.Add(args.Workers)

	for i := 0; i < args.Workers; i++ {
		go func(start uint64) {
			defer wg.Done()

			block, err := search(mineCtx, args, payload, start, uint64(args.Workers), ev)
			switch {
			case err != nil:
				failed <- err
			case mineCtx.Err() == nil:
				solved <- block
			}

			// First solution or failure stops every other worker.
			cancel()
		}(uint64(i))
	}

	wg.Wait()

	// The caller no longer wants this block, even if a worker found one.
	if ctx.Err() != nil {
		ev("database: POW: MINING: CANCELLED")
		return Block{}, fmt.Errorf("%w: %w", ErrMiningCancelled, ctx.Err())
	}

	select {
	case block := <-solved:
		ev("database: POW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: difficulty[%d]: nonce[%d]", block.LastHash, block.Hash, block.Difficulty, block.Nonce)
		return block, nil
	default:
	}

	select {
	case err := <-failed:
		return Block{}, err
	default:
	}

	return Block{}, ErrMiningCancelled
}

// search walks one shard of the nonce space starting at the specified nonce
// and moving forward by step. The time is sampled on every attempt so the
// target difficulty follows the elapsed time.
func search(ctx context.Context, args POWArgs, payload Payload, nonce uint64, step uint64, ev func(v string, args ...any)) (Block, error) {
	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: POW: MINING: shard[%d]: attempts[%d]", nonce%step, attempts)
		}

		if ctx.Err() != nil {
			return Block{}, nil
		}

		timeStamp := args.Clock()
		difficulty := AdjustDifficulty(args.PrevBlock, timeStamp, args.MineRate)

		h, err := ComputeHash(timeStamp, args.PrevBlock.Hash, payload, difficulty, nonce)
		if err != nil {
			return Block{}, err
		}

		if hexbin.HasLeadingZeros(h, difficulty) {
			block := Block{
				TimeStamp:  timeStamp,
				LastHash:   args.PrevBlock.Hash,
				Hash:       h,
				Payload:    payload,
				Difficulty: difficulty,
				Nonce:      nonce,
			}
			return block, nil
		}

		nonce += step
	}
}
