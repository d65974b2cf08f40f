package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientOptionsFromURL(t *testing.T) {
	opts, prefix, err := ClientOptionsFromURL("mqtt://user:pw@broker:1883/device/?client-id=tester")
	require.NoError(t, err)
	require.Equal(t, "device/", prefix)
	require.Equal(t, "tester", opts.ClientID)
	require.Equal(t, "user", opts.Username)
	require.Equal(t, "pw", opts.Password)
	require.Len(t, opts.Servers, 1)
	require.Equal(t, "tcp://broker:1883", opts.Servers[0].String())
}

func TestClientOptionsDefaultClientID(t *testing.T) {
	opts, prefix, err := ClientOptionsFromURL("mqtt://localhost:1883")
	require.NoError(t, err)
	require.Empty(t, prefix)
	require.NotEmpty(t, opts.ClientID, "a stable client id is derived when none is given")
}

func TestClientOptionsBadURL(t *testing.T) {
	_, _, err := ClientOptionsFromURL("://nope")
	require.Error(t, err)
}
