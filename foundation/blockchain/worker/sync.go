package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// Sync updates the peer list and replaces the local chain with the longest
// valid chain found among the known peers.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for _, pr := range w.state.RetrieveKnownPeers() {

		// Retrieve the status of this peer.
		peerStatus, err := w.state.NetRequestPeerStatus(ctx, pr)
		if err != nil {
			w.evHandler("worker: sync: NetRequestPeerStatus: %s: ERROR: %s", pr.Host, err)
			continue
		}

		// Add new peers to this nodes list.
		w.addNewPeers(peerStatus.KnownPeers)

		// If this peer has blocks we don't have, we need their chain.
		if peerStatus.ChainLength <= len(w.state.RetrieveChain()) {
			continue
		}

		w.evHandler("worker: sync: NetRequestPeerChain: %s: chainLength[%d]", pr.Host, peerStatus.ChainLength)

		chain, err := w.state.NetRequestPeerChain(ctx, pr)
		if err != nil {
			w.evHandler("worker: sync: NetRequestPeerChain: %s: ERROR: %s", pr.Host, err)
			continue
		}

		if err := w.state.ProcessPeerChain(chain); err != nil && !errors.Is(err, database.ErrNotLonger) {
			w.evHandler("worker: sync: ProcessPeerChain: %s: ERROR: %s", pr.Host, err)
		}
	}
}
