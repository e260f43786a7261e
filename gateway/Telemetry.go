package gateway

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/devicelink/tbclient/api"
)

const telemetryPathPrefix = "/api/plugins/telemetry/DEVICE/"

// GetKeys fetches the known key names of the given scope for an entity.
// An unrecognized scope silently falls back to the timeseries namespace,
// which is the documented key-lookup policy (delete behaves differently).
func (g *Gateway) GetKeys(entityID string, scope api.Scope) ([]string, error) {
	if entityID == "" {
		return nil, fmt.Errorf("get keys: entityID is required")
	}
	path := telemetryPathPrefix + entityID + "/keys/" + scope.KeyLookupPath()
	respRaw, status, err := g.session.Signer().Get(path, nil)
	if err != nil || status != http.StatusOK {
		return nil, fmt.Errorf("get keys for %q: %w", entityID, err)
	}
	var keys []string
	if err = jsoniter.Unmarshal(respRaw, &keys); err != nil {
		return nil, fmt.Errorf("get keys for %q: decoding: %w", entityID, err)
	}
	return keys, nil
}

// GetAttributesByScope fetches the current values of the given attribute
// keys. Keys must be pre-obtained with GetKeys; the endpoint requires
// explicit key names. Non-attribute scopes default to the client scope.
func (g *Gateway) GetAttributesByScope(
	entityID string, scope api.Scope, keys []string) ([]api.AttributeValue, error) {
	if entityID == "" {
		return nil, fmt.Errorf("get attributes: entityID is required")
	}
	path := telemetryPathPrefix + entityID + "/values/attributes/" + scope.AttributeScopeName()
	qParams := map[string]string{"keys": strings.Join(keys, ",")}
	respRaw, status, err := g.session.Signer().Get(path, qParams)
	if err != nil || status != http.StatusOK {
		return nil, fmt.Errorf("get attributes for %q: %w", entityID, err)
	}
	var values []api.AttributeValue
	if err = jsoniter.Unmarshal(respRaw, &values); err != nil {
		return nil, fmt.Errorf("get attributes for %q: decoding: %w", entityID, err)
	}
	return values, nil
}

// GetTimeseries fetches aggregated or raw samples for the query's keys and
// returns a mapping from key name to its ordered samples. Query defaults
// are applied with TimeseriesQuery.Normalized.
func (g *Gateway) GetTimeseries(
	entityID string, q api.TimeseriesQuery) (map[string][]api.TsSample, error) {
	if entityID == "" {
		return nil, fmt.Errorf("get timeseries: entityID is required")
	}
	q = q.Normalized(time.Now())
	qParams := map[string]string{
		"keys":               strings.Join(q.Keys, ","),
		"limit":              strconv.Itoa(q.Limit),
		"agg":                q.Agg,
		"interval":           strconv.FormatInt(q.Interval, 10),
		"startTs":            strconv.FormatInt(q.StartTs, 10),
		"endTs":              strconv.FormatInt(q.EndTs, 10),
		"useStrictDataTypes": strconv.FormatBool(*q.StrictTypes),
	}
	path := telemetryPathPrefix + entityID + "/values/timeseries"
	respRaw, status, err := g.session.Signer().Get(path, qParams)
	if err != nil || status != http.StatusOK {
		return nil, fmt.Errorf("get timeseries for %q: %w", entityID, err)
	}
	series := map[string][]api.TsSample{}
	if err = jsoniter.Unmarshal(respRaw, &series); err != nil {
		return nil, fmt.Errorf("get timeseries for %q: decoding: %w", entityID, err)
	}
	return series, nil
}

// DeleteEntityKeys removes telemetry or attribute data for the given keys.
//
// For the timeseries scope, olderThanSec 0 deletes all data for the keys;
// olderThanSec N>0 deletes samples with timestamps in [0, now-N seconds].
// For attribute scopes the cutoff is not applicable: whole key/value pairs
// are removed, and an unrecognized scope is a hard error with no network
// call attempted.
//
// This request goes over a raw http/1 transport with the bearer header set
// manually; it deliberately bypasses the signer path.
func (g *Gateway) DeleteEntityKeys(
	entityID string, scope api.Scope, keys []string, olderThanSec int64) error {
	if entityID == "" {
		return fmt.Errorf("delete entity keys: entityID is required")
	}

	baseURL := "https://" + g.hostPort() + telemetryPathPrefix + entityID
	q := url.Values{}
	q.Set("keys", strings.Join(keys, ","))

	var deleteURL string
	if scope == api.ScopeTimeseries {
		if olderThanSec == 0 {
			q.Set("deleteAllDataForKeys", "true")
		} else {
			endTs := time.Now().UnixMilli() - olderThanSec*1000
			q.Set("deleteAllDataForKeys", "false")
			q.Set("startTs", "0")
			q.Set("endTs", strconv.FormatInt(endTs, 10))
		}
		deleteURL = baseURL + "/timeseries/delete?" + q.Encode()
	} else {
		scopeName, err := scope.DeleteScopeName()
		if err != nil {
			return fmt.Errorf("delete entity keys for %q: %w", entityID, err)
		}
		deleteURL = baseURL + "/" + scopeName + "?" + q.Encode()
	}

	req, err := http.NewRequest(http.MethodDelete, deleteURL, nil)
	if err != nil {
		return fmt.Errorf("delete entity keys for %q: %w", entityID, err)
	}
	req.Header.Set("Authorization", "Bearer "+g.session.Signer().BearerToken())

	resp, err := g.rawClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete entity keys for %q: %w", entityID, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("delete entity keys for %q: %s", entityID, resp.Status)
	}
	return nil
}
