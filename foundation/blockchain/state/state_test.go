package state_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/pubsub"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func newState(t *testing.T, host string, ch pubsub.Channel, clock database.Clock) *state.State {
	ev := func(v string, args ...any) {
		t.Logf("%s: %s", host, fmt.Sprintf(v, args...))
	}

	st, err := state.New(state.Config{
		Host:      host,
		Genesis:   genesis.Default(),
		Workers:   2,
		Clock:     clock,
		Channel:   ch,
		EvHandler: ev,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	return st
}

func payload(t *testing.T, v any) database.Payload {
	p, err := database.NewPayload(v)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the payload: %v", failed, err)
	}
	return p
}

func mineN(t *testing.T, st *state.State, n int) {
	for i := 0; i < n; i++ {
		if _, err := st.MineNewBlock(context.Background(), payload(t, i)); err != nil {
			t.Fatalf("\t%s\tShould be able to mine block %d: %v", failed, i, err)
		}
	}
}

// =============================================================================

func Test_MineAndPropagate(t *testing.T) {
	t.Log("Given the need to mine a block and share it with a replica.")
	{
		mem := pubsub.NewMemory()
		defer mem.Close()

		a := newState(t, "a", mem.Node(), nil)
		b := newState(t, "b", mem.Node(), nil)

		block, err := a.MineNewBlock(context.Background(), payload(t, "foo"))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine a block.", success)

		if err := a.NetBroadcastBlock(context.Background(), block); err != nil {
			t.Fatalf("\t%s\tShould be able to broadcast the block: %v", failed, err)
		}
		mem.Wait()

		if !b.RetrieveLatestBlock().Equal(block) {
			t.Fatalf("\t%s\tShould have the block on the replica.", failed)
		}
		t.Logf("\t%s\tShould have the block on the replica.", success)

		if n := len(a.RetrieveChain()); n != 2 {
			t.Fatalf("\t%s\tShould ignore its own block from the network, length %d.", failed, n)
		}
		t.Logf("\t%s\tShould ignore its own block from the network.", success)
	}
}

func Test_ChainAnnounce(t *testing.T) {
	t.Log("Given the need to catch up with a longer chain announced by a peer.")
	{
		mem := pubsub.NewMemory()
		defer mem.Close()

		a := newState(t, "a", mem.Node(), nil)
		b := newState(t, "b", mem.Node(), nil)

		mineN(t, b, 3)

		if err := b.NetBroadcastChain(context.Background()); err != nil {
			t.Fatalf("\t%s\tShould be able to broadcast the chain: %v", failed, err)
		}
		mem.Wait()

		if a.RetrieveLatestBlock().Hash != b.RetrieveLatestBlock().Hash {
			t.Fatalf("\t%s\tShould adopt the longer chain.", failed)
		}
		t.Logf("\t%s\tShould adopt the longer chain.", success)

		if n := len(a.RetrieveChain()); n != 4 {
			t.Fatalf("\t%s\tShould have 4 blocks, got %d.", failed, n)
		}
		t.Logf("\t%s\tShould have 4 blocks.", success)
	}
}

func Test_ShutdownLeavesReplicas(t *testing.T) {
	t.Log("Given three replicas on one in-process bus and one of them shutting down.")
	{
		mem := pubsub.NewMemory()
		defer mem.Close()

		a := newState(t, "a", mem.Node(), nil)
		b := newState(t, "b", mem.Node(), nil)
		c := newState(t, "c", mem.Node(), nil)

		if err := a.Shutdown(); err != nil {
			t.Fatalf("\t%s\tShould be able to shut down a replica: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to shut down a replica.", success)

		block, err := b.MineNewBlock(context.Background(), payload(t, "after a"))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
		}

		if err := b.NetBroadcastBlock(context.Background(), block); err != nil {
			t.Fatalf("\t%s\tShould be able to broadcast the block: %v", failed, err)
		}
		mem.Wait()

		if !c.RetrieveLatestBlock().Equal(block) {
			t.Logf("\t\tgot: length %d", len(c.RetrieveChain()))
			t.Logf("\t\texp: length %d", 2)
			t.Fatalf("\t%s\tShould still deliver blocks between the other replicas.", failed)
		}
		t.Logf("\t%s\tShould still deliver blocks between the other replicas.", success)

		if n := len(a.RetrieveChain()); n != 1 {
			t.Fatalf("\t%s\tShould not deliver to the replica that shut down, length %d.", failed, n)
		}
		t.Logf("\t%s\tShould not deliver to the replica that shut down.", success)
	}
}

func Test_MiningCancelledByReplace(t *testing.T) {
	t.Log("Given the need to stop mining on a tail that was replaced.")
	{
		b := newState(t, "b", nil, nil)
		mineN(t, b, 2)

		var a *state.State
		var once sync.Once
		clock := func() int64 {
			once.Do(func() {
				if err := a.ProcessPeerChain(b.RetrieveChain()); err != nil {
					t.Errorf("\t%s\tShould be able to replace the chain: %v", failed, err)
				}
			})
			return time.Now().UnixNano()
		}
		a = newState(t, "a", nil, clock)

		_, err := a.MineNewBlock(context.Background(), payload(t, "late"))
		if !errors.Is(err, database.ErrMiningCancelled) {
			t.Fatalf("\t%s\tShould cancel the mining operation: %v", failed, err)
		}
		t.Logf("\t%s\tShould cancel the mining operation.", success)

		if a.RetrieveLatestBlock().Hash != b.RetrieveLatestBlock().Hash {
			t.Fatalf("\t%s\tShould keep the replaced chain.", failed)
		}
		t.Logf("\t%s\tShould keep the replaced chain.", success)

		block, err := a.MineNewBlock(context.Background(), payload(t, "next"))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine on the new tail: %v", failed, err)
		}
		if block.LastHash != b.RetrieveLatestBlock().Hash {
			t.Fatalf("\t%s\tShould mine on the new tail.", failed)
		}
		t.Logf("\t%s\tShould mine on the new tail.", success)
	}
}

func Test_ProposedBlockRejected(t *testing.T) {
	t.Log("Given the need to reject an invalid block from a peer.")
	{
		a := newState(t, "a", nil, nil)
		b := newState(t, "b", nil, nil)

		block, err := b.MineNewBlock(context.Background(), payload(t, "real"))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
		}

		block.Payload = payload(t, "forged")

		err = a.ProcessProposedBlock(block)
		if !errors.Is(err, database.ErrInvalidChain) || !errors.Is(err, database.ErrHashIntegrity) {
			t.Fatalf("\t%s\tShould reject the forged block: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject the forged block.", success)

		if n := len(a.RetrieveChain()); n != 1 {
			t.Fatalf("\t%s\tShould leave the chain untouched, length %d.", failed, n)
		}
		t.Logf("\t%s\tShould leave the chain untouched.", success)
	}
}

func Test_MinePending(t *testing.T) {
	t.Log("Given the need to mine the payloads waiting in the mempool.")
	{
		a := newState(t, "a", nil, nil)

		if _, err := a.MinePending(context.Background()); !errors.Is(err, state.ErrNoPayload) {
			t.Fatalf("\t%s\tShould refuse to mine an empty mempool: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse to mine an empty mempool.", success)

		for _, p := range []string{`{"amount": 10}`, `{"amount":10}`, `{"amount":20}`} {
			if err := a.SubmitPayload(database.Payload(p)); err != nil {
				t.Fatalf("\t%s\tShould be able to submit a payload: %v", failed, err)
			}
		}

		if n := a.QueryMempoolLength(); n != 2 {
			t.Fatalf("\t%s\tShould dedupe payloads, got %d.", failed, n)
		}
		t.Logf("\t%s\tShould dedupe payloads.", success)

		block, err := a.MinePending(context.Background())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine the mempool: %v", failed, err)
		}

		var list []map[string]int
		if err := json.Unmarshal(block.Payload, &list); err != nil || len(list) != 2 {
			t.Fatalf("\t%s\tShould carry both payloads: %s", failed, block.Payload)
		}
		if list[0]["amount"] != 10 || list[1]["amount"] != 20 {
			t.Fatalf("\t%s\tShould keep arrival order: %s", failed, block.Payload)
		}
		t.Logf("\t%s\tShould carry both payloads in arrival order.", success)

		if n := a.QueryMempoolLength(); n != 0 {
			t.Fatalf("\t%s\tShould empty the mempool, got %d.", failed, n)
		}
		t.Logf("\t%s\tShould empty the mempool.", success)
	}
}

func Test_ReplaceClearsMempool(t *testing.T) {
	t.Log("Given the need to drop pending payloads included by a peer.")
	{
		a := newState(t, "a", nil, nil)
		b := newState(t, "b", nil, nil)

		p := payload(t, map[string]string{"to": "bill"})
		if err := a.SubmitPayload(p); err != nil {
			t.Fatalf("\t%s\tShould be able to submit a payload: %v", failed, err)
		}
		if err := b.SubmitPayload(p); err != nil {
			t.Fatalf("\t%s\tShould be able to submit a payload: %v", failed, err)
		}

		if _, err := b.MinePending(context.Background()); err != nil {
			t.Fatalf("\t%s\tShould be able to mine the mempool: %v", failed, err)
		}

		if err := a.ProcessPeerChain(b.RetrieveChain()); err != nil {
			t.Fatalf("\t%s\tShould be able to replace the chain: %v", failed, err)
		}

		if n := a.QueryMempoolLength(); n != 0 {
			t.Fatalf("\t%s\tShould drop the included payload, got %d.", failed, n)
		}
		t.Logf("\t%s\tShould drop the included payload.", success)

		err := a.ProcessPeerChain(b.RetrieveChain())
		if !errors.Is(err, database.ErrNotLonger) {
			t.Fatalf("\t%s\tShould ignore a chain of equal length: %v", failed, err)
		}
		t.Logf("\t%s\tShould ignore a chain of equal length.", success)
	}
}

func Test_Status(t *testing.T) {
	t.Log("Given the need to report the node status to peers.")
	{
		a := newState(t, "a:9080", nil, nil)
		mineN(t, a, 1)

		a.AddKnownPeer(peerOf("a:9080"))
		a.AddKnownPeer(peerOf("b:9080"))

		status := a.RetrieveStatus()
		if status.ChainLength != 2 || status.LatestBlockHash != a.RetrieveLatestBlock().Hash {
			t.Fatalf("\t%s\tShould report the chain: %+v", failed, status)
		}
		t.Logf("\t%s\tShould report the chain.", success)

		if len(status.KnownPeers) != 1 || status.KnownPeers[0].Host != "b:9080" {
			t.Fatalf("\t%s\tShould report peers other than itself: %v", failed, status.KnownPeers)
		}
		t.Logf("\t%s\tShould report peers other than itself.", success)

		blocks := a.QueryBlocksByNumber(state.QueryLatest, state.QueryLatest)
		if len(blocks) != 1 || blocks[0].Hash != status.LatestBlockHash {
			t.Fatalf("\t%s\tShould query the latest block.", failed)
		}
		t.Logf("\t%s\tShould query the latest block.", success)
	}
}

func peerOf(host string) peer.Peer {
	return peer.New(host)
}
