package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/stretchr/testify/require"
)

func Test_MineRate(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, mineRate(context.Background(), &out, 3, time.Second, 2))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[2], "block: 3 "))
}

func Test_CheckChain(t *testing.T) {
	gen := genesis.Default()

	db, err := database.New(gen)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		block, err := database.POW(context.Background(), database.POWArgs{
			PrevBlock: db.LatestBlock(),
			Payload:   database.Payload(`"x"`),
		})
		require.NoError(t, err)
		require.NoError(t, db.Append(block))
	}

	chain := database.NewChainData(db.Copy())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/genesis":
			json.NewEncoder(w).Encode(gen)
		case "/v1/blocks/list":
			json.NewEncoder(w).Encode(chain)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	var out bytes.Buffer
	require.NoError(t, checkChain(context.Background(), &out, newClient(srv.URL, time.Second), false))
	require.Contains(t, out.String(), "length: 3")
	require.Contains(t, out.String(), "valid: true")

	chain[2].Payload = json.RawMessage(`"forged"`)
	out.Reset()

	err = checkChain(context.Background(), &out, newClient(srv.URL, time.Second), false)
	require.ErrorIs(t, err, database.ErrHashIntegrity)
	require.Contains(t, out.String(), "valid: false")
}

func Test_ReadData(t *testing.T) {
	data, err := readData(`{"a":1}`, "")
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(data))

	data, err = readData("", "")
	require.NoError(t, err)
	require.Nil(t, data)

	_, err = readData("{bad", "")
	require.Error(t, err)
}
