package telemetry

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// TelemetryWsPath is the platform's telemetry websocket endpoint.
const TelemetryWsPath = "/api/ws/plugins/telemetry"

// connectWSS establishes the websocket connection to the telemetry
// endpoint with the token embedded in the connection URI. Gorilla
// websockets do not work over http/2, so this dials its own http/1
// connection independent of the gateway's client.
func connectWSS(hostPort string, token string, caCert *x509.Certificate) (*websocket.Conn, error) {

	connectURL := url.URL{
		Scheme:   "wss",
		Host:     hostPort,
		Path:     TelemetryWsPath,
		RawQuery: url.Values{"token": {token}}.Encode(),
	}
	serverName := strings.Split(hostPort, ":")[0]

	caCertPool := x509.NewCertPool()
	if caCert != nil {
		caCertPool.AddCert(caCert)
	}
	tlsConfig := &tls.Config{
		RootCAs: caCertPool,
		// ServerName is required when InsecureSkipVerify is disabled
		ServerName:         serverName,
		InsecureSkipVerify: caCert == nil,
	}

	dialer := *websocket.DefaultDialer // run a copy
	dialer.TLSClientConfig = tlsConfig
	dialer.NetDialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		netConn, err := net.Dial(network, addr)
		if err != nil {
			return nil, err
		}
		tlsConn := tls.Client(netConn, tlsConfig)
		if err = tlsConn.Handshake(); err != nil {
			return nil, err
		}
		return tlsConn, nil
	}

	wssConn, resp, err := dialer.Dial(connectURL.String(), nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	return wssConn, nil
}
