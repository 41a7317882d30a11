package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/ardanlabs/powchain/foundation/pubsub"
)

const baseURL = "http://%s/v1/node"

// NetBroadcastBlock publishes a newly mined block to the network.
func (s *State) NetBroadcastBlock(ctx context.Context, block database.Block) error {
	s.evHandler("state: NetBroadcastBlock: started: block[%s]", block.Hash)
	defer s.evHandler("state: NetBroadcastBlock: completed")

	return s.publish(ctx, pubsub.TopicBlock, database.NewBlockData(block))
}

// NetBroadcastChain publishes the full local chain to the network.
func (s *State) NetBroadcastChain(ctx context.Context) error {
	s.evHandler("state: NetBroadcastChain: started")
	defer s.evHandler("state: NetBroadcastChain: completed")

	return s.publish(ctx, pubsub.TopicChain, database.NewChainData(s.db.Copy()))
}

// NetBroadcastPayload shares a pending payload with the network.
func (s *State) NetBroadcastPayload(ctx context.Context, payload database.Payload) error {
	s.evHandler("state: NetBroadcastPayload: started")
	defer s.evHandler("state: NetBroadcastPayload: completed")

	return s.publish(ctx, pubsub.TopicPayload, payload)
}

// NetRequestPeerStatus looks for new nodes on the blockchain by asking
// known nodes for their peer list. New nodes are added to the list.
func (s *State) NetRequestPeerStatus(ctx context.Context, pr peer.Peer) (peer.PeerStatus, error) {
	s.evHandler("state: NetRequestPeerStatus: started: %s", pr)
	defer s.evHandler("state: NetRequestPeerStatus: completed: %s", pr)

	url := fmt.Sprintf("%s/status", fmt.Sprintf(baseURL, pr.Host))

	var ps peer.PeerStatus
	if err := send(ctx, http.MethodGet, url, nil, &ps); err != nil {
		return peer.PeerStatus{}, err
	}

	s.evHandler("state: NetRequestPeerStatus: peer-node[%s]: chain-length[%d]: peer-list[%s]", pr, ps.ChainLength, ps.KnownPeers)

	return ps, nil
}

// NetRequestPeerChain asks the peer for its full chain.
func (s *State) NetRequestPeerChain(ctx context.Context, pr peer.Peer) ([]database.Block, error) {
	s.evHandler("state: NetRequestPeerChain: started: %s", pr)
	defer s.evHandler("state: NetRequestPeerChain: completed: %s", pr)

	url := fmt.Sprintf("%s/chain", fmt.Sprintf(baseURL, pr.Host))

	var chain []database.BlockData
	if err := send(ctx, http.MethodGet, url, nil, &chain); err != nil {
		return nil, err
	}

	s.evHandler("state: NetRequestPeerChain: found blocks[%d]", len(chain))

	return database.ToChain(chain), nil
}

// NetRequestAddPeer tells the peer this node is available.
func (s *State) NetRequestAddPeer(ctx context.Context, pr peer.Peer) error {
	s.evHandler("state: NetRequestAddPeer: started: %s", pr)
	defer s.evHandler("state: NetRequestAddPeer: completed: %s", pr)

	url := fmt.Sprintf("%s/peers", fmt.Sprintf(baseURL, pr.Host))

	return send(ctx, http.MethodPost, url, peer.New(s.host), nil)
}

// =============================================================================

// publish marshals the value and publishes it on the channel.
func (s *State) publish(ctx context.Context, topic string, value any) error {
	if s.channel == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return s.channel.Publish(ctx, topic, data)
}

// send is a helper function to send an HTTP request to a node.
func send(ctx context.Context, method string, url string, dataSend any, dataRecv any) error {
	var body io.Reader

	if dataSend != nil {
		data, err := json.Marshal(dataSend)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}

	client := http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return errors.New(string(msg))
	}

	if dataRecv != nil {
		if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
			return err
		}
	}

	return nil
}
