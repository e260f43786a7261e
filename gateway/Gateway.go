// Package gateway contains the stateless request builders for the platform
// resources: devices, telemetry keys and values, dashboards and users.
//
// The gateway never mutates session state. Every call reads the session's
// current signer snapshot at call time, so a token rotated mid-flight
// applies to subsequent calls while in-flight calls keep the old one.
package gateway

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"

	"github.com/devicelink/tbclient/session"
)

// Gateway issues authenticated resource requests against one platform host.
type Gateway struct {
	session *session.SessionManager

	// plain http/1 client for the raw delete path, which bypasses the
	// signer and sets the bearer header manually
	rawClient *http.Client
}

func (g *Gateway) hostPort() string {
	return g.session.Anonymous().GetHostPort()
}

// NewGateway creates a gateway bound to the given session manager.
func NewGateway(sm *session.SessionManager) *Gateway {
	caCert := sm.Anonymous().GetCACert()
	caCertPool := x509.NewCertPool()
	if caCert != nil {
		caCertPool.AddCert(caCert)
	}
	rawClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs:            caCertPool,
				InsecureSkipVerify: caCert == nil,
			},
		},
	}
	return &Gateway{session: sm, rawClient: rawClient}
}
