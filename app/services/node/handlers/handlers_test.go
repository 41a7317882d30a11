package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ardanlabs/powchain/app/services/node/handlers"
	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/events"
	"github.com/ardanlabs/powchain/foundation/pubsub"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type node struct {
	state   *state.State
	public  http.Handler
	private http.Handler
}

func newNode(t *testing.T, host string) node {
	peers := peer.NewPeerSet()
	inbound := pubsub.NewHTTP(host, peers)

	st, err := state.New(state.Config{
		Host:       host,
		Genesis:    genesis.Default(),
		KnownPeers: peers,
		Channel:    inbound,
	})
	require.NoError(t, err)

	cfg := handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		State:    st,
		Evts:     events.New(),
		Inbound:  inbound,
	}

	return node{
		state:   st,
		public:  handlers.PublicMux(cfg),
		private: handlers.PrivateMux(cfg),
	}
}

func call(t *testing.T, h http.Handler, method string, path string, body string, resp any) int {
	var r *http.Request
	switch body {
	case "":
		r = httptest.NewRequest(method, path, nil)
	default:
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if resp != nil && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), resp))
	}

	return w.Code
}

func Test_MineAndList(t *testing.T) {
	n := newNode(t, "a:9080")

	var block database.BlockData
	require.Equal(t, http.StatusOK, call(t, n.public, http.MethodPost, "/v1/blocks/mine", `{"data":{"to":"bill"}}`, &block))
	require.JSONEq(t, `{"to":"bill"}`, string(block.Payload))

	var chain []database.BlockData
	require.Equal(t, http.StatusOK, call(t, n.public, http.MethodGet, "/v1/blocks/list", "", &chain))
	require.Len(t, chain, 2)
	require.Equal(t, block.Hash, chain[1].Hash)
	require.NoError(t, database.ValidateChain(n.state.RetrieveGenesisBlock(), database.ToChain(chain)))

	var latest database.BlockData
	require.Equal(t, http.StatusOK, call(t, n.public, http.MethodGet, "/v1/blocks/latest", "", &latest))
	require.Equal(t, block.Hash, latest.Hash)

	var resp errs.Response
	require.Equal(t, http.StatusBadRequest, call(t, n.public, http.MethodPost, "/v1/blocks/mine", "", &resp))
	require.Equal(t, state.ErrNoPayload.Error(), resp.Error)
}

func Test_SubmitAndMinePending(t *testing.T) {
	n := newNode(t, "a:9080")

	require.Equal(t, http.StatusOK, call(t, n.public, http.MethodPost, "/v1/payloads/submit", `{"amount":5}`, nil))
	require.Equal(t, http.StatusOK, call(t, n.public, http.MethodPost, "/v1/payloads/submit", `"memo"`, nil))

	var resp errs.Response
	require.Equal(t, http.StatusBadRequest, call(t, n.public, http.MethodPost, "/v1/payloads/submit", `{bad`, &resp))

	var pending []json.RawMessage
	require.Equal(t, http.StatusOK, call(t, n.public, http.MethodGet, "/v1/payloads/list", "", &pending))
	require.Len(t, pending, 2)

	var block database.BlockData
	require.Equal(t, http.StatusOK, call(t, n.public, http.MethodPost, "/v1/blocks/mine", `{}`, &block))
	require.JSONEq(t, `[{"amount":5},"memo"]`, string(block.Payload))
	require.Equal(t, 0, n.state.QueryMempoolLength())
}

func Test_OversizedBody(t *testing.T) {
	n := newNode(t, "a:9080")

	big := `"` + strings.Repeat("a", 1<<20) + `"`

	var resp errs.Response
	require.Equal(t, http.StatusRequestEntityTooLarge, call(t, n.public, http.MethodPost, "/v1/payloads/submit", big, &resp))
	require.NotEmpty(t, resp.Error)
	require.Equal(t, 0, n.state.QueryMempoolLength())

	huge := `"` + strings.Repeat("a", 64<<20) + `"`
	require.Equal(t, http.StatusRequestEntityTooLarge, call(t, n.private, http.MethodPost, "/v1/node/pubsub/"+pubsub.TopicPayload, huge, nil))
	require.Equal(t, 0, n.state.QueryMempoolLength())
}

func Test_PrivateRoutes(t *testing.T) {
	a := newNode(t, "a:9080")
	b := newNode(t, "b:9080")

	block, err := b.state.MineNewBlock(t.Context(), database.Payload(`"from b"`))
	require.NoError(t, err)

	data, err := json.Marshal(database.NewBlockData(block))
	require.NoError(t, err)

	require.Equal(t, http.StatusNoContent, call(t, a.private, http.MethodPost, "/v1/node/pubsub/"+pubsub.TopicBlock, string(data), nil))
	require.Equal(t, block.Hash, a.state.RetrieveLatestBlock().Hash)
	require.Equal(t, http.StatusNotFound, call(t, a.private, http.MethodPost, "/v1/node/pubsub/UNKNOWN", "{}", nil))

	var status peer.PeerStatus
	require.Equal(t, http.StatusOK, call(t, a.private, http.MethodGet, "/v1/node/status", "", &status))
	require.Equal(t, 2, status.ChainLength)
	require.Equal(t, block.Hash, status.LatestBlockHash)

	var resp errs.Response
	require.Equal(t, http.StatusBadRequest, call(t, a.private, http.MethodPost, "/v1/node/peers", `{"host":""}`, &resp))
	require.Contains(t, resp.Fields, "host")

	require.Equal(t, http.StatusOK, call(t, a.private, http.MethodPost, "/v1/node/peers", `{"host":"c:9080"}`, nil))
	require.Equal(t, http.StatusNoContent, call(t, a.private, http.MethodPost, "/v1/node/peers", `{"host":"c:9080"}`, nil))
	require.Equal(t, []peer.Peer{peer.New("c:9080")}, a.state.RetrieveKnownPeers())

	var blocks []database.BlockData
	require.Equal(t, http.StatusOK, call(t, a.private, http.MethodGet, "/v1/node/block/list/0/latest", "", &blocks))
	require.Len(t, blocks, 2)
	require.Equal(t, http.StatusBadRequest, call(t, a.private, http.MethodGet, "/v1/node/block/list/abc/latest", "", nil))
}
