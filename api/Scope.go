package api

import "fmt"

// Scope selects an attribute namespace or the timeseries namespace of an
// entity. The zero value is not a valid scope; ScopeTimeseries is the
// documented default where one applies.
type Scope string

const (
	ScopeTimeseries Scope = "timeseries"
	ScopeClient     Scope = "client"
	ScopeShared     Scope = "shared"
	ScopeServer     Scope = "server"
)

// upstream attribute scope names used in values and delete URLs
const (
	clientScopeName = "CLIENT_SCOPE"
	sharedScopeName = "SHARED_SCOPE"
	serverScopeName = "SERVER_SCOPE"
)

// KeyLookupPath maps a scope to the path segment of the key-name lookup
// endpoint. An unrecognized scope falls back to timeseries. The silent
// fallback is a documented policy of the key lookup only; do not reuse this
// for delete, which must reject unknown scopes (see DeleteScopeName).
func (s Scope) KeyLookupPath() string {
	switch s {
	case ScopeClient:
		return "attributes/" + clientScopeName
	case ScopeShared:
		return "attributes/" + sharedScopeName
	case ScopeServer:
		return "attributes/" + serverScopeName
	case ScopeTimeseries:
		return "timeseries"
	default:
		return "timeseries"
	}
}

// AttributeScopeName maps a scope to the upstream attribute-scope name used
// by the values endpoint. Non-attribute scopes default to CLIENT_SCOPE.
func (s Scope) AttributeScopeName() string {
	switch s {
	case ScopeShared:
		return sharedScopeName
	case ScopeServer:
		return serverScopeName
	default:
		return clientScopeName
	}
}

// DeleteScopeName maps a scope to the path segment of the attribute delete
// endpoint. Unlike KeyLookupPath there is no fallback: an unrecognized
// scope is a hard error and no network call may be attempted.
// ScopeTimeseries is valid for deletion but uses its own endpoint, so it
// has no attribute scope name here.
func (s Scope) DeleteScopeName() (string, error) {
	switch s {
	case ScopeClient:
		return clientScopeName, nil
	case ScopeShared:
		return sharedScopeName, nil
	case ScopeServer:
		return serverScopeName, nil
	default:
		return "", fmt.Errorf("unrecognized scope %q", string(s))
	}
}
