package validate_test

import (
	"fmt"
	"testing"

	"github.com/ardanlabs/powchain/business/sys/validate"
	"github.com/stretchr/testify/require"
)

type newPeer struct {
	Host string `json:"host" validate:"required,hostname_port"`
}

func Test_Check(t *testing.T) {
	require.NoError(t, validate.Check(newPeer{Host: "localhost:9080"}))

	err := validate.Check(newPeer{})
	require.True(t, validate.IsFieldErrors(err))

	fields := validate.GetFieldErrors(err).Fields()
	require.Contains(t, fields, "host")
	require.Equal(t, "host is a required field", fields["host"])

	err = validate.Check(newPeer{Host: "no port"})
	require.True(t, validate.IsFieldErrors(err))

	require.False(t, validate.IsFieldErrors(fmt.Errorf("plain")))
}
