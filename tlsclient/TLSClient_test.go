package tlsclient_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelink/tbclient/tbtest"
	"github.com/devicelink/tbclient/tlsclient"
)

func TestAnonymousRequestIsRejected(t *testing.T) {
	p := tbtest.NewPlatform()
	defer p.Close()

	cl := tlsclient.NewTLSClient(p.HostPort(), nil, 0)
	_, status, err := cl.Get("/api/auth/user", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestWithTokenDerivesImmutableSnapshot(t *testing.T) {
	p := tbtest.NewPlatform()
	defer p.Close()

	base := tlsclient.NewTLSClient(p.HostPort(), nil, 0)
	signed := base.WithToken(p.Token)

	// the derivation leaves the original untouched and shares the pool
	assert.Empty(t, base.BearerToken())
	assert.Equal(t, p.Token, signed.BearerToken())
	assert.NotEqual(t, base.GetConnectionID(), signed.GetConnectionID())
	assert.Same(t, base.GetHttpClient(), signed.GetHttpClient())

	_, status, err := signed.Get("/api/auth/user", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
}

func TestQueryParamsAreEncoded(t *testing.T) {
	p := tbtest.NewPlatform()
	defer p.Close()

	signed := tlsclient.NewTLSClient(p.HostPort(), nil, 0).WithToken(p.Token)
	_, status, err := signed.Get("/api/tenant/devices", map[string]string{
		"pageSize": "10", "page": "0", "sortProperty": "name", "sortOrder": "ASC"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "10", p.LastDeviceQuery.Get("pageSize"))
}
