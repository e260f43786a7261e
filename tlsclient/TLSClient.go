// Package tlsclient provides the HTTPS request signer used by the session
// manager and the resource gateway. A TLSClient carries at most one bearer
// token, fixed at derivation time: the session derives a fresh signer
// whenever its token changes and in-flight requests keep whichever snapshot
// they started with.
package tlsclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/teris-io/shortid"
	"golang.org/x/net/http2"
	"golang.org/x/net/publicsuffix"
)

// The default wait timeout for requests. Use SetTimeout() to override.
const DefaultClientTimeout = time.Second * 30

// TLSClient is a thin TLS client that signs requests with a fixed bearer
// token. Derive a new instance with WithToken when the token changes.
type TLSClient struct {

	// Authorization header bearer token, empty for anonymous requests
	bearerToken string

	// The CA certificate to verify the server, nil to skip verification
	caCert *x509.Certificate

	// connection id header value, unique per derived client
	cid string

	// host:port of the server
	hostPort string

	// the native http client, shared between derived clients
	httpClient *http.Client

	timeout time.Duration
}

// BearerToken returns the token snapshot this client signs with.
func (cl *TLSClient) BearerToken() string {
	return cl.bearerToken
}

// Close releases idle connections held by the underlying http client.
func (cl *TLSClient) Close() {
	if cl.httpClient != nil {
		cl.httpClient.CloseIdleConnections()
	}
}

// CreateRequest builds an http request for the given method and
// host-relative path with the authorization and content headers set.
//
//	ctx optional context or nil for background
//	qParams are optional query parameters
//	body is the optional request payload, JSON unless contentType overrides
func (cl *TLSClient) CreateRequest(
	ctx context.Context,
	method string, path string, qParams map[string]string,
	body []byte, contentType string,
) (*http.Request, error) {

	if contentType == "" {
		contentType = "application/json"
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// a double // in the path causes a 301 and changes POST to GET
	fullURL := fmt.Sprintf("https://%s%s", cl.hostPort, path)

	r, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("CreateRequest: %s %s: %w", method, fullURL, err)
	}
	r.Header.Set("Origin", "https://"+cl.hostPort)
	r.Header.Set("Content-Type", contentType)
	if cl.bearerToken != "" {
		r.Header.Set("Authorization", "Bearer "+cl.bearerToken)
	}
	if cl.cid != "" {
		r.Header.Set("X-Connection-ID", cl.cid)
	}
	if qParams != nil {
		qValues := r.URL.Query()
		for k, v := range qParams {
			qValues.Add(k, v)
		}
		r.URL.RawQuery = qValues.Encode()
	}
	return r, nil
}

// Delete sends a DELETE request. Delete methods do not allow a body or a
// 405 is returned, so only query parameters are supported.
func (cl *TLSClient) Delete(path string, qParams map[string]string) (resp []byte, httpStatus int, err error) {
	ctx, cancelFn := context.WithTimeout(context.Background(), cl.timeout)
	defer cancelFn()
	return cl.Send(ctx, http.MethodDelete, path, qParams, nil, "")
}

// Get reads a resource and returns the response body.
func (cl *TLSClient) Get(path string, qParams map[string]string) (resp []byte, httpStatus int, err error) {
	ctx, cancelFn := context.WithTimeout(context.Background(), cl.timeout)
	defer cancelFn()
	return cl.Send(ctx, http.MethodGet, path, qParams, nil, "")
}

func (cl *TLSClient) GetCACert() *x509.Certificate {
	return cl.caCert
}

func (cl *TLSClient) GetConnectionID() string {
	return cl.cid
}

func (cl *TLSClient) GetHostPort() string {
	return cl.hostPort
}

// GetHttpClient returns the native HTTP client shared by derived signers.
func (cl *TLSClient) GetHttpClient() *http.Client {
	return cl.httpClient
}

// Post sends a POST request with a serialized JSON body.
func (cl *TLSClient) Post(path string, body []byte) (resp []byte, httpStatus int, err error) {
	ctx, cancelFn := context.WithTimeout(context.Background(), cl.timeout)
	defer cancelFn()
	return cl.Send(ctx, http.MethodPost, path, nil, body, "")
}

// Send submits a request and reads the response.
//
// Expected upstream failures (4xx, 5xx) are returned as errors together
// with the status code; they are never raised as panics.
func (cl *TLSClient) Send(
	ctx context.Context,
	method string, path string, qParams map[string]string, body []byte, contentType string) (
	resp []byte, httpStatus int, err error) {

	if cl == nil || cl.httpClient == nil {
		return nil, http.StatusInternalServerError,
			fmt.Errorf("send: %s %s: client is not initialized", method, path)
	}
	httpRequest, err := cl.CreateRequest(ctx, method, path, qParams, body, contentType)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	httpResp, err := cl.httpClient.Do(httpRequest)
	if err != nil {
		err = fmt.Errorf("send: %s %s: %w", method, path, err)
		slog.Warn(err.Error())
		return nil, http.StatusInternalServerError, err
	}
	respBody, err := io.ReadAll(httpResp.Body)
	// response body MUST be closed
	_ = httpResp.Body.Close()
	httpStatus = httpResp.StatusCode

	if httpStatus == http.StatusUnauthorized {
		err = fmt.Errorf("%s %s: %s", method, path, httpResp.Status)
	} else if httpStatus >= 400 {
		err = fmt.Errorf("%s %s: %s: %s", method, path, httpResp.Status, respBody)
	} else if err != nil {
		err = fmt.Errorf("send: %s %s: reading response: %w", method, path, err)
	}
	if err != nil {
		slog.Warn("Send: request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", httpStatus))
	}
	return respBody, httpStatus, err
}

// SetTimeout overrides the default per-request timeout.
func (cl *TLSClient) SetTimeout(timeout time.Duration) {
	cl.timeout = timeout
}

// WithToken derives a signer that authenticates with the given bearer
// token. The underlying http client and its connection pool are shared;
// the derived signer gets its own connection id. The receiver is not
// modified, so requests already in flight keep their original token.
func (cl *TLSClient) WithToken(token string) *TLSClient {
	derived := *cl
	derived.bearerToken = token
	derived.cid = shortid.MustGenerate()
	return &derived
}

// NewTLSClient creates an anonymous TLS client for the given server.
// Use WithToken to derive authenticated signers from it.
//
//	hostPort is the server address in host:port format
//	caCert with the x509 CA certificate, nil to skip server verification
//	timeout for requests, 0 for DefaultClientTimeout
func NewTLSClient(hostPort string, caCert *x509.Certificate, timeout time.Duration) *TLSClient {

	if timeout == 0 {
		timeout = DefaultClientTimeout
	}
	if caCert == nil {
		slog.Info("NewTLSClient: no CA certificate, InsecureSkipVerify used",
			slog.String("destination", hostPort))
	}
	caCertPool := x509.NewCertPool()
	if caCert != nil {
		caCertPool.AddCert(caCert)
	}
	tlsConfig := &tls.Config{
		RootCAs:            caCertPool,
		InsecureSkipVerify: caCert == nil,
	}

	// http/2 transport
	tlsTransport := &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, cfg *tls.Config) (net.Conn, error) {
			return tls.Dial(network, addr, cfg)
		},
		TLSClientConfig: tlsConfig,
	}

	// cookie jar for servers that track sessions next to the bearer token
	cjarOpts := &cookiejar.Options{PublicSuffixList: publicsuffix.List}
	cjar, err := cookiejar.New(cjarOpts)
	if err != nil {
		slog.Error("NewTLSClient: error creating cookiejar, continuing without",
			"err", err.Error())
		cjar = nil
	}
	// no client-wide timeout; each Send carries its own context deadline
	httpClient := &http.Client{
		Transport: tlsTransport,
		Jar:       cjar,
	}

	return &TLSClient{
		hostPort:   hostPort,
		httpClient: httpClient,
		timeout:    timeout,
		caCert:     caCert,
	}
}
