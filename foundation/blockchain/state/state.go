// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/mempool"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/ardanlabs/powchain/foundation/pubsub"
)

// Set of errors returned by the state.
var (
	ErrStaleBlock = errors.New("mined block is stale, the chain tail moved")
	ErrNoPayload  = errors.New("no payloads in mempool")
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining and peer updates.
type Worker interface {
	Shutdown()
	Sync()
	SignalStartMining()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Host       string
	Genesis    genesis.Genesis
	MineRate   time.Duration
	Workers    int
	Clock      database.Clock
	KnownPeers *peer.PeerSet
	Channel    pubsub.Channel
	EvHandler  EventHandler
}

// miningOp is a mining operation in flight.
type miningOp struct {
	prevHash string
	cancel   context.CancelFunc
}

// State manages the blockchain database.
type State struct {
	host      string
	evHandler EventHandler
	mineRate  time.Duration
	workers   int
	clock     database.Clock

	genesis    genesis.Genesis
	knownPeers *peer.PeerSet
	db         *database.Database
	mempool    *mempool.Mempool
	channel    pubsub.Channel

	mu       sync.Mutex
	mining   map[uint64]miningOp
	miningID uint64
	worker   Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	db, err := database.New(cfg.Genesis)
	if err != nil {
		return nil, err
	}

	mineRate := cfg.MineRate
	if mineRate <= 0 {
		mineRate = cfg.Genesis.MineRate
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	state := State{
		host:      cfg.Host,
		evHandler: ev,
		mineRate:  mineRate,
		workers:   cfg.Workers,
		clock:     cfg.Clock,

		genesis:    cfg.Genesis,
		knownPeers: knownPeers,
		db:         db,
		mempool:    mempool.New(),
		channel:    cfg.Channel,

		mining: make(map[uint64]miningOp),
	}

	if state.channel != nil {
		subs := map[string]pubsub.Handler{
			pubsub.TopicBlock:   state.onBlock,
			pubsub.TopicChain:   state.onChain,
			pubsub.TopicPayload: state.onPayload,
		}
		for topic, fn := range subs {
			if err := state.channel.Subscribe(topic, fn); err != nil {
				return nil, err
			}
		}
	}

	recordChain(db.LatestBlock(), db.Length())

	// The Worker is not set here. The call to worker.Run will register itself
	// with SetWorker and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Nothing mined from here on can be committed.
	s.cancelMining("")

	// Stop all blockchain writing activity.
	if w := s.registeredWorker(); w != nil {
		w.Shutdown()
	}

	if s.channel != nil {
		return s.channel.Close()
	}

	return nil
}

// =============================================================================

// onBlock handles a block published by a miner on the network.
func (s *State) onBlock(topic string, data []byte) {
	var bd database.BlockData
	if err := json.Unmarshal(data, &bd); err != nil {
		s.evHandler("state: onBlock: ERROR: %s", err)
		return
	}

	if err := s.ProcessProposedBlock(database.ToBlock(bd)); err != nil {
		s.evHandler("state: onBlock: REJECTED: block[%s]: %s", bd.Hash, err)
	}
}

// onChain handles a full chain announced by a peer.
func (s *State) onChain(topic string, data []byte) {
	var chain []database.BlockData
	if err := json.Unmarshal(data, &chain); err != nil {
		s.evHandler("state: onChain: ERROR: %s", err)
		return
	}

	err := s.ProcessPeerChain(database.ToChain(chain))
	switch {
	case err == nil:
	case errors.Is(err, database.ErrNotLonger):
		s.evHandler("state: onChain: ignored: %s", err)
	default:
		s.evHandler("state: onChain: REJECTED: %s", err)
	}
}

// onPayload handles a payload shared by a peer.
func (s *State) onPayload(topic string, data []byte) {
	n, err := s.mempool.Upsert(database.Payload(data))
	if err != nil {
		s.evHandler("state: onPayload: ERROR: %s", err)
		return
	}
	recordMempool(n)

	s.signalStartMining()
}

// signalStartMining lets the worker know there is work in the mempool.
func (s *State) signalStartMining() {
	if w := s.registeredWorker(); w != nil {
		w.SignalStartMining()
	}
}

// SetWorker registers the worker running the background operations. Pubsub
// handlers may already be running when it is called.
func (s *State) SetWorker(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.worker = w
}

// registeredWorker returns the worker set with SetWorker, if any.
func (s *State) registeredWorker() Worker {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.worker
}
