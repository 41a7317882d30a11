package mid_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/ardanlabs/powchain/business/web/mid"
	"github.com/ardanlabs/powchain/foundation/web"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newApp() *web.App {
	log := zap.NewNop().Sugar()

	return web.NewApp(
		make(chan os.Signal, 1),
		mid.Logger(log),
		mid.Errors(log),
		mid.Metrics(),
		mid.Cors("*"),
		mid.Panics(),
	)
}

func Test_Errors(t *testing.T) {
	app := newApp()

	app.Handle(http.MethodGet, "v1", "/trusted", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errs.NewTrusted(errors.New("block not accepted"), http.StatusNotAcceptable)
	})
	app.Handle(http.MethodGet, "v1", "/untrusted", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errors.New("secret detail")
	})
	app.Handle(http.MethodGet, "v1", "/panic", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		panic("boom")
	})

	tests := []struct {
		path   string
		status int
		msg    string
	}{
		{"/v1/trusted", http.StatusNotAcceptable, "block not accepted"},
		{"/v1/untrusted", http.StatusInternalServerError, "Internal Server Error"},
		{"/v1/panic", http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, tt.status, w.Code)
			require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

			var resp errs.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Equal(t, tt.msg, resp.Error)
		})
	}
}
