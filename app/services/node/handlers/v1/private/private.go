// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ardanlabs/powchain/business/sys/validate"
	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/pubsub"
	"github.com/ardanlabs/powchain/foundation/web"
	"go.uber.org/zap"
)

// maxMessageSize is the largest pubsub message accepted from a peer.
const maxMessageSize = 64 << 20

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log     *zap.SugaredLogger
	State   *state.State
	Inbound *pubsub.HTTP
}

// newPeer is the body of a peer registration.
type newPeer struct {
	Host string `json:"host" validate:"required,hostname_port"`
}

// SubmitPeer is called by a node so they can be added to the known peer list.
func (h Handlers) SubmitPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var np newPeer
	if err := web.Decode(r, &np); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(np); err != nil {
		return err
	}

	if !h.State.AddKnownPeer(peer.New(np.Host)) {
		h.Log.Infow("adding peer", "traceid", v.TraceID, "host", np.Host, "status", "known")
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	h.Log.Infow("adding peer", "traceid", v.TraceID, "host", np.Host)

	return web.Respond(ctx, w, nil, http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveStatus(), http.StatusOK)
}

// Chain returns the full chain so a peer can sync.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chain := h.State.RetrieveChain()
	return web.Respond(ctx, w, database.NewChainData(chain), http.StatusOK)
}

// BlocksByNumber returns all the blocks based on the specified to/from values.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	fromStr := web.Param(r, "from")
	if fromStr == "latest" || fromStr == "" {
		fromStr = fmt.Sprintf("%d", state.QueryLatest)
	}

	toStr := web.Param(r, "to")
	if toStr == "latest" || toStr == "" {
		toStr = fmt.Sprintf("%d", state.QueryLatest)
	}

	from, err := strconv.ParseUint(fromStr, 10, 64)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	to, err := strconv.ParseUint(toStr, 10, 64)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if from > to {
		return errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	blocks := h.State.QueryBlocksByNumber(from, to)
	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, database.NewChainData(blocks), http.StatusOK)
}

// PubSub receives a message a peer published on the network and hands it to
// the subscribers of the topic.
func (h Handlers) PubSub(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.Inbound == nil {
		return errs.NewTrusted(errors.New("node is not using the http pubsub channel"), http.StatusNotFound)
	}

	topic := web.Param(r, "topic")

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageSize))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return errs.NewTrusted(err, http.StatusRequestEntityTooLarge)
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if !h.Inbound.Deliver(topic, data) {
		return errs.NewTrusted(fmt.Errorf("unknown topic %q", topic), http.StatusNotFound)
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}
