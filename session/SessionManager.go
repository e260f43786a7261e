// Package session owns the authentication state machine: it obtains and
// verifies bearer tokens and hands out request signers carrying the current
// token to the resource gateway.
package session

import (
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/devicelink/tbclient/api"
	"github.com/devicelink/tbclient/tlsclient"
)

// auth endpoints
const (
	LoginPath       = "/api/auth/login"
	PublicLoginPath = "/api/auth/login/public"
	CurrentUserPath = "/api/auth/user"
	RefreshPath     = "/api/auth/token"
	LogoutPath      = "/api/auth/logout"
)

// State of the session with respect to authentication.
type State int32

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// ConnectResult is returned by every successful connect variant.
//
// Claims is only set on the credentialed path and holds the token's payload
// decoded WITHOUT signature verification; it is informational and must not
// be treated as trusted without server-side confirmation. User is only set
// on the pre-issued-token path and is the server-verified account.
type ConnectResult struct {
	Token  string
	Claims map[string]any
	User   *api.User
}

// SessionManager holds the authentication state for one platform host.
//
// The state transition and the signer swap happen in a single critical
// section: there is no window where the state is Authenticated while the
// gateway still obtains a signer without the new token.
type SessionManager struct {
	// anonymous signer; authenticated signers are derived from it so all
	// snapshots share one connection pool
	base *tlsclient.TLSClient

	mux sync.RWMutex
	// fields below are guarded by mux
	state        State
	token        string
	refreshToken string
	signer       *tlsclient.TLSClient
}

// adopt installs a new token, its derived signer and the Authenticated
// state in one step.
func (sm *SessionManager) adopt(token string, refreshToken string) {
	sm.mux.Lock()
	defer sm.mux.Unlock()
	sm.token = token
	sm.refreshToken = refreshToken
	sm.signer = sm.base.WithToken(token)
	sm.state = Authenticated
}

// reset returns the session to Anonymous, discarding any stored token.
func (sm *SessionManager) reset() {
	sm.mux.Lock()
	defer sm.mux.Unlock()
	sm.token = ""
	sm.refreshToken = ""
	sm.signer = sm.base
	sm.state = Anonymous
}

func (sm *SessionManager) setState(s State) {
	sm.mux.Lock()
	defer sm.mux.Unlock()
	sm.state = s
}

// Anonymous returns the token-less signer, for endpoints that are
// intentionally unauthenticated such as public dashboard info.
func (sm *SessionManager) Anonymous() *tlsclient.TLSClient {
	return sm.base
}

// ConnectWithPassword logs in with username and password.
//
// On success the session becomes Authenticated and the result carries the
// token plus its claims decoded without signature verification. On any
// transport or upstream failure the session remains Anonymous.
func (sm *SessionManager) ConnectWithPassword(username string, password string) (*ConnectResult, error) {
	slog.Info("ConnectWithPassword", "username", username)
	sm.setState(Authenticating)

	args := loginArgs{Username: username, Password: password}
	argsJSON, _ := jsoniter.Marshal(args)
	respRaw, status, err := sm.base.Post(LoginPath, argsJSON)
	if err != nil || status != http.StatusOK {
		sm.reset()
		return nil, fmt.Errorf("login as %q failed: %w", username, err)
	}
	var lr loginResponse
	if err = jsoniter.Unmarshal(respRaw, &lr); err != nil || lr.Token == "" {
		sm.reset()
		return nil, fmt.Errorf("login as %q: malformed response: %w", username, err)
	}
	claims, err := DecodeClaims(lr.Token)
	if err != nil {
		sm.reset()
		return nil, fmt.Errorf("login as %q: %w", username, err)
	}
	sm.adopt(lr.Token, lr.RefreshToken)
	return &ConnectResult{Token: lr.Token, Claims: claims}, nil
}

// ConnectPublic logs in with a public entity id. The resulting token has no
// user identity attached.
func (sm *SessionManager) ConnectPublic(publicID string) (*ConnectResult, error) {
	if publicID == "" {
		return nil, fmt.Errorf("connect public: publicID is required")
	}
	slog.Info("ConnectPublic", "publicID", publicID)
	sm.setState(Authenticating)

	args := publicLoginArgs{PublicID: publicID}
	argsJSON, _ := jsoniter.Marshal(args)
	respRaw, status, err := sm.base.Post(PublicLoginPath, argsJSON)
	if err != nil || status != http.StatusOK {
		sm.reset()
		return nil, fmt.Errorf("public login failed: %w", err)
	}
	var lr loginResponse
	if err = jsoniter.Unmarshal(respRaw, &lr); err != nil || lr.Token == "" {
		sm.reset()
		return nil, fmt.Errorf("public login: malformed response: %w", err)
	}
	sm.adopt(lr.Token, lr.RefreshToken)
	return &ConnectResult{Token: lr.Token}, nil
}

// ConnectWithToken adopts a pre-issued token after verifying it against the
// "who am I" endpoint. A verification failure discards the token and leaves
// the session Anonymous; there is no half-authenticated state.
//
// Unlike the credentialed path the returned identity is server-verified.
func (sm *SessionManager) ConnectWithToken(token string) (*ConnectResult, error) {
	if token == "" {
		return nil, fmt.Errorf("connect with token: token is required")
	}
	sm.setState(Authenticating)

	probe := sm.base.WithToken(token)
	respRaw, status, err := probe.Get(CurrentUserPath, nil)
	if err != nil || status != http.StatusOK {
		sm.reset()
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	var user api.User
	if err = jsoniter.Unmarshal(respRaw, &user); err != nil {
		sm.reset()
		return nil, fmt.Errorf("token verification: malformed user response: %w", err)
	}
	sm.adopt(token, "")
	return &ConnectResult{Token: token, User: &user}, nil
}

// Disconnect clears the token and returns the session to Anonymous.
// Calling it repeatedly is safe. Open telemetry streams are not closed;
// close streams first for an orderly shutdown.
func (sm *SessionManager) Disconnect() {
	sm.reset()
}

// Logout invalidates the token on the server, then disconnects locally.
// The local session is reset even when the server call fails.
func (sm *SessionManager) Logout() error {
	signer := sm.Signer()
	_, _, err := signer.Post(LogoutPath, nil)
	sm.reset()
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// RefreshToken exchanges the stored refresh token for a fresh token pair
// and atomically swaps the signer. The credentialed login must have
// supplied a refresh token.
func (sm *SessionManager) RefreshToken() (newToken string, err error) {
	sm.mux.RLock()
	refreshToken := sm.refreshToken
	sm.mux.RUnlock()
	if refreshToken == "" {
		return "", fmt.Errorf("refresh: no refresh token held")
	}

	args := refreshArgs{RefreshToken: refreshToken}
	argsJSON, _ := jsoniter.Marshal(args)
	respRaw, status, err := sm.Signer().Post(RefreshPath, argsJSON)
	if err != nil || status != http.StatusOK {
		return "", fmt.Errorf("refresh failed: %w", err)
	}
	var lr loginResponse
	if err = jsoniter.Unmarshal(respRaw, &lr); err != nil || lr.Token == "" {
		return "", fmt.Errorf("refresh: malformed response: %w", err)
	}
	sm.adopt(lr.Token, lr.RefreshToken)
	return lr.Token, nil
}

// Signer returns the request signer snapshot for the current token.
// Calls that already hold an older snapshot keep using it.
func (sm *SessionManager) Signer() *tlsclient.TLSClient {
	sm.mux.RLock()
	defer sm.mux.RUnlock()
	return sm.signer
}

// State returns the current authentication state.
func (sm *SessionManager) State() State {
	sm.mux.RLock()
	defer sm.mux.RUnlock()
	return sm.state
}

// Token returns the current token, or "" when not authenticated.
func (sm *SessionManager) Token() string {
	sm.mux.RLock()
	defer sm.mux.RUnlock()
	return sm.token
}

// DecodeClaims decodes a JWT payload without verifying its signature.
// Decoding is informational only; callers must not treat the claims as
// trusted without server-side confirmation.
func DecodeClaims(token string) (map[string]any, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("decoding token claims: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("decoding token claims: unexpected claims type")
	}
	return map[string]any(claims), nil
}

// NewSessionManager creates a session manager for the given platform host.
//
//	hostPort is the server address in host:port format
//	caCert with the server CA, nil to skip server verification
//	timeout for requests, 0 for the tlsclient default
func NewSessionManager(hostPort string, caCert *x509.Certificate, timeout time.Duration) *SessionManager {
	base := tlsclient.NewTLSClient(hostPort, caCert, timeout)
	return &SessionManager{
		base:   base,
		state:  Anonymous,
		signer: base,
	}
}

type loginArgs struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type publicLoginArgs struct {
	PublicID string `json:"publicId"`
}

type refreshArgs struct {
	RefreshToken string `json:"refreshToken"`
}

type loginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}
