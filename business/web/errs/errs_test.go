package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ardanlabs/powchain/business/sys/validate"
	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/stretchr/testify/require"
)

func Test_ToResponse(t *testing.T) {
	errRejected := errors.New("block not accepted")

	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"trusted", errs.NewTrusted(errRejected, http.StatusNotAcceptable), http.StatusNotAcceptable, "block not accepted"},
		{"wrapped", fmt.Errorf("handler: %w", errs.NewTrusted(errRejected, http.StatusBadRequest)), http.StatusBadRequest, "block not accepted"},
		{"fields", validate.FieldErrors{{Field: "host", Error: "host is a required field"}}, http.StatusBadRequest, "data validation error"},
		{"untrusted", errors.New("disk on fire"), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, status := errs.ToResponse(tt.err)
			require.Equal(t, tt.status, status)
			require.Equal(t, tt.msg, resp.Error)
		})
	}

	require.ErrorIs(t, errs.NewTrusted(errRejected, http.StatusNotAcceptable), errRejected)
}
