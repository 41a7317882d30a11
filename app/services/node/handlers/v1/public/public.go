// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/signature"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/events"
	"github.com/ardanlabs/powchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// maxPayloadSize is the largest payload body accepted.
const maxPayloadSize = 1 << 20

// Handlers manages the set of public endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the blockchain. A
	// client can ask for a subset with one or more prefix query values.
	ch := h.Evts.Acquire(v.TraceID, r.URL.Query()["prefix"]...)
	defer func() {
		h.Log.Infow("events", "traceid", v.TraceID, "status", "released", "dropped", h.Evts.Dropped(v.TraceID))
		h.Evts.Release(v.TraceID)
	}()

	// Starting a ticker to send a ping message over the websocket.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Block waiting for events from the blockchain or ticker.
	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Blocks returns the full chain.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chain := h.State.RetrieveChain()
	return web.Respond(ctx, w, database.NewChainData(chain), http.StatusOK)
}

// LatestBlock returns the block at the tail of the chain.
func (h Handlers) LatestBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block := h.State.RetrieveLatestBlock()
	return web.Respond(ctx, w, database.NewBlockData(block), http.StatusOK)
}

// MineBlock mines a block carrying the posted data, or the mempool when no
// data is posted, and shares the block with the network.
func (h Handlers) MineBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req mineRequest
	if err := web.Decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	var block database.Block
	switch len(req.Data) {
	case 0:
		h.Log.Infow("mine pending", "traceid", v.TraceID, "pending", h.State.QueryMempoolLength())
		block, err = h.State.MinePending(ctx)
	default:
		h.Log.Infow("mine data", "traceid", v.TraceID)
		block, err = h.State.MineNewBlock(ctx, database.Payload(req.Data))
	}

	if err != nil {
		switch {
		case errors.Is(err, state.ErrNoPayload):
			return errs.NewTrusted(err, http.StatusBadRequest)
		case errors.Is(err, state.ErrStaleBlock), errors.Is(err, database.ErrMiningCancelled):
			return errs.NewTrusted(err, http.StatusConflict)
		}
		return err
	}

	// The block is part of the local chain. Failing to share it is logged
	// and the peers catch up on the next chain announcement.
	if err := h.State.NetBroadcastBlock(ctx, block); err != nil {
		h.Log.Infow("mine block", "traceid", v.TraceID, "broadcast", "WARNING", "ERROR", err)
	}

	return web.Respond(ctx, w, database.NewBlockData(block), http.StatusOK)
}

// SubmitPayload adds a new payload to the mempool and shares it with the
// network. The body is the payload and may be any JSON value.
func (h Handlers) SubmitPayload(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadSize))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return errs.NewTrusted(err, http.StatusRequestEntityTooLarge)
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if !json.Valid(data) {
		return errs.NewTrusted(errors.New("payload is not valid json"), http.StatusBadRequest)
	}

	// A signed envelope must carry a signature that matches its data.
	if sp, ok := signature.Detect(data); ok {
		if err := signature.Verify(sp); err != nil {
			return errs.NewTrusted(fmt.Errorf("signed payload rejected: %w", err), http.StatusBadRequest)
		}
	}

	payload := database.Payload(data)

	h.Log.Infow("submit payload", "traceid", v.TraceID, "size", len(payload))
	if err := h.State.SubmitPayload(payload); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := h.State.NetBroadcastPayload(ctx, payload); err != nil {
		h.Log.Infow("submit payload", "traceid", v.TraceID, "broadcast", "WARNING", "ERROR", err)
	}

	resp := status{
		Status:  "payload added to mempool",
		Pending: h.State.QueryMempoolLength(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mempool returns the set of payloads waiting to be mined.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pending := h.State.RetrievePending()
	return web.Respond(ctx, w, pending, http.StatusOK)
}
