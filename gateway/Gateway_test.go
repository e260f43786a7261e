package gateway_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devicelink/tbclient/gateway"
	"github.com/devicelink/tbclient/session"
	"github.com/devicelink/tbclient/tbtest"
)

// newTestGateway starts a fake platform and returns a gateway bound to a
// credentialed session on it.
func newTestGateway(t *testing.T) (*tbtest.Platform, *gateway.Gateway) {
	t.Helper()
	p := tbtest.NewPlatform()
	t.Cleanup(p.Close)

	sm := session.NewSessionManager(p.HostPort(), nil, 0)
	_, err := sm.ConnectWithPassword(p.Username, p.Password)
	require.NoError(t, err)
	return p, gateway.NewGateway(sm)
}
