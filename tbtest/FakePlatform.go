// Package tbtest provides an in-process fake of the platform's REST and
// websocket API for use by the package tests. It issues real (HS256 signed)
// JWTs so claim decoding behaves as it does against a live server.
package tbtest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/cors"
	"github.com/thanhpk/randstr"

	"github.com/devicelink/tbclient/api"
	"github.com/devicelink/tbclient/telemetry"
)

// Platform is a fake platform server. Mutate the public fields to stage
// fixtures before issuing client calls; the Last* fields record what the
// client sent for assertions.
type Platform struct {
	Server *httptest.Server

	mu sync.Mutex

	// accepted credentials
	Username string
	Password string
	PublicID string

	// currently accepted token pair; Token is a decodable JWT
	Token        string
	RefreshToken string

	signingKey []byte

	// fixtures
	User          api.User
	Devices       []api.Device
	TsKeys        []string
	AttrKeys      map[string][]string       // attribute scope name -> key names
	Attributes    map[string]map[string]any // attribute scope name -> key -> value
	Series        map[string][]api.TsSample
	Dashboards    []api.Dashboard
	PublishBody   map[string]any // response of the publish-dashboard endpoint
	TenantUsers   []api.User
	Customers     []api.Customer
	CustomerUsers map[string][]api.User
	FailCustomers map[string]bool // customer ids whose user listing returns 500

	// recorded requests
	LastDeviceQuery     url.Values
	LastTimeseriesQuery url.Values
	LastDeletePath      string
	LastDeleteQuery     url.Values

	// websocket behavior: frames pushed after the subscription command is
	// received; the connection is closed afterwards unless WsHold is set,
	// in which case the server keeps it open until the client closes
	WsPush      []string
	WsHold      bool
	WsSubFrames [][]byte
	WsTokens    []string // token query params seen on ws connects
}

// HostPort returns the host:port the fake platform listens on.
func (p *Platform) HostPort() string {
	return strings.TrimPrefix(p.Server.URL, "https://")
}

// Close shuts the fake platform down.
func (p *Platform) Close() {
	p.Server.Close()
}

// MintToken issues a fresh signed token pair for the configured user and
// installs it as the accepted pair.
func (p *Platform) MintToken() (token string, refreshToken string) {
	claims := jwt.MapClaims{
		// jti keeps back-to-back mints distinct within one second
		"jti":    randstr.Hex(8),
		"sub":    p.Username,
		"scopes": []string{"TENANT_ADMIN"},
		"userId": p.User.ID.ID,
		"iat":    time.Now().Unix(),
		"exp":    time.Now().Add(time.Hour).Unix(),
	}
	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, _ = jwtToken.SignedString(p.signingKey)
	refreshToken = randstr.Hex(16)
	p.mu.Lock()
	p.Token = token
	p.RefreshToken = refreshToken
	p.mu.Unlock()
	return token, refreshToken
}

func (p *Platform) acceptedToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Token
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func (p *Platform) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearerToken(r) != p.acceptedToken() || p.acceptedToken() == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	raw, _ := jsoniter.Marshal(v)
	_, _ = w.Write(raw)
}

func pageOf[T any](items []T) api.PageData[T] {
	if items == nil {
		items = []T{}
	}
	return api.PageData[T]{
		Data:          items,
		TotalPages:    1,
		TotalElements: int64(len(items)),
	}
}

func (p *Platform) handleLogin(w http.ResponseWriter, r *http.Request) {
	var args struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = jsoniter.NewDecoder(r.Body).Decode(&args)
	if args.Username != p.Username || args.Password != p.Password {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	token, refreshToken := p.MintToken()
	writeJSON(w, map[string]string{"token": token, "refreshToken": refreshToken})
}

func (p *Platform) handlePublicLogin(w http.ResponseWriter, r *http.Request) {
	var args struct {
		PublicID string `json:"publicId"`
	}
	_ = jsoniter.NewDecoder(r.Body).Decode(&args)
	if args.PublicID != p.PublicID || p.PublicID == "" {
		http.Error(w, "unknown public id", http.StatusUnauthorized)
		return
	}
	token, refreshToken := p.MintToken()
	writeJSON(w, map[string]string{"token": token, "refreshToken": refreshToken})
}

func (p *Platform) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var args struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = jsoniter.NewDecoder(r.Body).Decode(&args)
	p.mu.Lock()
	ok := args.RefreshToken != "" && args.RefreshToken == p.RefreshToken
	p.mu.Unlock()
	if !ok {
		http.Error(w, "invalid refresh token", http.StatusUnauthorized)
		return
	}
	token, refreshToken := p.MintToken()
	writeJSON(w, map[string]string{"token": token, "refreshToken": refreshToken})
}

func (p *Platform) handleWs(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	p.mu.Lock()
	p.WsTokens = append(p.WsTokens, token)
	p.mu.Unlock()
	if token != p.acceptedToken() {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// the client must subscribe first
	_, sub, err := conn.ReadMessage()
	if err != nil {
		return
	}
	p.mu.Lock()
	p.WsSubFrames = append(p.WsSubFrames, sub)
	push := append([]string{}, p.WsPush...)
	p.mu.Unlock()

	for _, frame := range push {
		if err = conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return
		}
	}
	if p.WsHold {
		// wait for the client to hang up
		for {
			if _, _, err = conn.ReadMessage(); err != nil {
				return
			}
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (p *Platform) routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/api/auth/login", p.handleLogin)
	r.Post("/api/auth/login/public", p.handlePublicLogin)
	r.Post("/api/auth/token", p.handleRefresh)

	// public dashboard info is intentionally anonymous
	r.Get("/api/dashboard/info/{publicId}", func(w http.ResponseWriter, r *http.Request) {
		publicID := chi.URLParam(r, "publicId")
		for _, d := range p.Dashboards {
			if d.ID.ID == publicID {
				writeJSON(w, d)
				return
			}
		}
		// public ids are distinct from dashboard ids on a real platform;
		// serve the first fixture so link round-trips can be exercised
		if len(p.Dashboards) > 0 {
			writeJSON(w, p.Dashboards[0])
			return
		}
		http.Error(w, "not found", http.StatusNotFound)
	})

	r.Get(telemetry.TelemetryWsPath, p.handleWs)

	r.Group(func(r chi.Router) {
		r.Use(p.requireAuth)

		r.Get("/api/auth/user", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, p.User)
		})
		r.Post("/api/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		r.Get("/api/tenant/devices", func(w http.ResponseWriter, r *http.Request) {
			p.mu.Lock()
			p.LastDeviceQuery = r.URL.Query()
			p.mu.Unlock()
			writeJSON(w, pageOf(p.Devices))
		})
		r.Get("/api/device/{deviceId}", func(w http.ResponseWriter, r *http.Request) {
			deviceID := chi.URLParam(r, "deviceId")
			for _, d := range p.Devices {
				if d.ID.ID == deviceID {
					writeJSON(w, d)
					return
				}
			}
			http.Error(w, "not found", http.StatusNotFound)
		})

		r.Get("/api/plugins/telemetry/DEVICE/{deviceId}/keys/timeseries",
			func(w http.ResponseWriter, _ *http.Request) {
				keys := p.TsKeys
				if keys == nil {
					keys = []string{}
				}
				writeJSON(w, keys)
			})
		r.Get("/api/plugins/telemetry/DEVICE/{deviceId}/keys/attributes/{scope}",
			func(w http.ResponseWriter, r *http.Request) {
				keys := p.AttrKeys[chi.URLParam(r, "scope")]
				if keys == nil {
					keys = []string{}
				}
				writeJSON(w, keys)
			})
		r.Get("/api/plugins/telemetry/DEVICE/{deviceId}/values/attributes/{scope}",
			func(w http.ResponseWriter, r *http.Request) {
				scoped := p.Attributes[chi.URLParam(r, "scope")]
				values := []api.AttributeValue{}
				for _, key := range strings.Split(r.URL.Query().Get("keys"), ",") {
					if v, ok := scoped[key]; ok {
						values = append(values, api.AttributeValue{
							Key: key, Value: v, LastUpdateTs: time.Now().UnixMilli()})
					}
				}
				writeJSON(w, values)
			})
		r.Get("/api/plugins/telemetry/DEVICE/{deviceId}/values/timeseries",
			func(w http.ResponseWriter, r *http.Request) {
				p.mu.Lock()
				p.LastTimeseriesQuery = r.URL.Query()
				p.mu.Unlock()
				series := map[string][]api.TsSample{}
				for _, key := range strings.Split(r.URL.Query().Get("keys"), ",") {
					if samples, ok := p.Series[key]; ok {
						series[key] = samples
					}
				}
				writeJSON(w, series)
			})
		r.Delete("/api/plugins/telemetry/DEVICE/{deviceId}/timeseries/delete",
			func(w http.ResponseWriter, r *http.Request) {
				p.mu.Lock()
				p.LastDeletePath = r.URL.Path
				p.LastDeleteQuery = r.URL.Query()
				p.mu.Unlock()
				w.WriteHeader(http.StatusOK)
			})
		r.Delete("/api/plugins/telemetry/DEVICE/{deviceId}/{scope}",
			func(w http.ResponseWriter, r *http.Request) {
				p.mu.Lock()
				p.LastDeletePath = r.URL.Path
				p.LastDeleteQuery = r.URL.Query()
				p.mu.Unlock()
				w.WriteHeader(http.StatusOK)
			})

		r.Get("/api/tenant/dashboards", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, pageOf(p.Dashboards))
		})
		r.Get("/api/dashboard/{dashboardId}", func(w http.ResponseWriter, r *http.Request) {
			dashboardID := chi.URLParam(r, "dashboardId")
			for _, d := range p.Dashboards {
				if d.ID.ID == dashboardID {
					writeJSON(w, d)
					return
				}
			}
			http.Error(w, "not found", http.StatusNotFound)
		})
		r.Post("/api/customer/public/dashboard/{dashboardId}",
			func(w http.ResponseWriter, r *http.Request) {
				body := p.PublishBody
				if body == nil {
					body = map[string]any{"id": map[string]any{"id": chi.URLParam(r, "dashboardId")}}
				}
				writeJSON(w, body)
			})
		r.Delete("/api/customer/public/dashboard/{dashboardId}",
			func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]any{"id": map[string]any{"id": chi.URLParam(r, "dashboardId")}})
			})

		r.Get("/api/tenant/users", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, pageOf(p.TenantUsers))
		})
		r.Get("/api/customers", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, pageOf(p.Customers))
		})
		r.Get("/api/customer/{customerId}/users", func(w http.ResponseWriter, r *http.Request) {
			customerID := chi.URLParam(r, "customerId")
			if p.FailCustomers[customerID] {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			writeJSON(w, pageOf(p.CustomerUsers[customerID]))
		})
	})

	// browsers talk to the real platform directly, so it serves cors headers
	return cors.AllowAll().Handler(r)
}

// NewPlatform starts a fake platform over TLS with http/2 enabled and a
// default fixture account. The returned platform already holds a valid
// minted token pair, so pre-issued-token flows can use Platform.Token.
func NewPlatform() *Platform {
	deviceID := randstr.Hex(12)
	p := &Platform{
		Username:   "tenant@example.com",
		Password:   "secret",
		PublicID:   randstr.Hex(12),
		signingKey: randstr.Bytes(32),
		User: api.User{
			ID:        api.EntityID{EntityType: "USER", ID: randstr.Hex(12)},
			Email:     "tenant@example.com",
			Authority: "TENANT_ADMIN",
			FirstName: "Ten",
			LastName:  "Ant",
		},
		Devices: []api.Device{{
			ID:   api.EntityID{EntityType: "DEVICE", ID: deviceID},
			Name: "thermostat-1",
			Type: "thermostat",
		}},
		AttrKeys:      map[string][]string{},
		Attributes:    map[string]map[string]any{},
		Series:        map[string][]api.TsSample{},
		CustomerUsers: map[string][]api.User{},
		FailCustomers: map[string]bool{},
	}
	p.MintToken()

	server := httptest.NewUnstartedServer(p.routes())
	server.EnableHTTP2 = true
	server.StartTLS()
	p.Server = server
	return p
}

// FirstDeviceID returns the id of the default staged device.
func (p *Platform) FirstDeviceID() string {
	return p.Devices[0].ID.ID
}
