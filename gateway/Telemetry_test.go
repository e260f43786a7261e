package gateway_test

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelink/tbclient/api"
)

func TestGetKeysTimeseries(t *testing.T) {
	p, gw := newTestGateway(t)
	p.TsKeys = []string{"temperature", "humidity"}

	keys, err := gw.GetKeys(p.FirstDeviceID(), api.ScopeTimeseries)
	require.NoError(t, err)
	assert.Equal(t, []string{"temperature", "humidity"}, keys)
}

func TestGetKeysUnknownScopeFallsBackToTimeseries(t *testing.T) {
	p, gw := newTestGateway(t)
	p.TsKeys = []string{"temperature"}
	p.AttrKeys["CLIENT_SCOPE"] = []string{"threshold"}

	// the key lookup silently degrades to the timeseries namespace
	keys, err := gw.GetKeys(p.FirstDeviceID(), api.Scope("bogus"))
	require.NoError(t, err)
	assert.Equal(t, []string{"temperature"}, keys)
}

// A key set fetched for an attribute scope must be accepted in full by the
// values endpoint of the same scope.
func TestKeysAttributesRoundTrip(t *testing.T) {
	p, gw := newTestGateway(t)
	p.AttrKeys["CLIENT_SCOPE"] = []string{"threshold", "unit", "label"}
	p.Attributes["CLIENT_SCOPE"] = map[string]any{
		"threshold": 21.5, "unit": "C", "label": "living room"}

	keys, err := gw.GetKeys(p.FirstDeviceID(), api.ScopeClient)
	require.NoError(t, err)
	require.Len(t, keys, 3)

	values, err := gw.GetAttributesByScope(p.FirstDeviceID(), api.ScopeClient, keys)
	require.NoError(t, err)
	require.Len(t, values, len(keys))
	returned := map[string]bool{}
	for _, v := range values {
		returned[v.Key] = true
	}
	for _, key := range keys {
		assert.True(t, returned[key], "key %q rejected by values endpoint", key)
	}
}

func TestGetTimeseriesDefaults(t *testing.T) {
	p, gw := newTestGateway(t)
	p.Series["temperature"] = []api.TsSample{{Ts: 1000, Value: 20.5}, {Ts: 2000, Value: 21.0}}

	series, err := gw.GetTimeseries(p.FirstDeviceID(), api.TimeseriesQuery{Keys: []string{"temperature"}})
	require.NoError(t, err)
	require.Len(t, series["temperature"], 2)

	q := p.LastTimeseriesQuery
	assert.Equal(t, "500", q.Get("limit"))
	assert.Equal(t, "AVG", q.Get("agg"))
	assert.Equal(t, "60000", q.Get("interval"))
	assert.Equal(t, "true", q.Get("useStrictDataTypes"))

	// default window is the last hour
	endTs, _ := strconv.ParseInt(q.Get("endTs"), 10, 64)
	startTs, _ := strconv.ParseInt(q.Get("startTs"), 10, 64)
	assert.Equal(t, int64(3600000), endTs-startTs)
	assert.InDelta(t, time.Now().UnixMilli(), endTs, 10000)
}

func TestDeleteTimeseriesAllData(t *testing.T) {
	p, gw := newTestGateway(t)

	err := gw.DeleteEntityKeys(p.FirstDeviceID(), api.ScopeTimeseries,
		[]string{"temperature", "humidity"}, 0)
	require.NoError(t, err)

	require.True(t, strings.HasSuffix(p.LastDeletePath, "/timeseries/delete"))
	q := p.LastDeleteQuery
	assert.Equal(t, "temperature,humidity", q.Get("keys"))
	assert.Equal(t, "true", q.Get("deleteAllDataForKeys"))
	// no time window may be requested when deleting everything
	assert.False(t, q.Has("startTs"))
	assert.False(t, q.Has("endTs"))
}

func TestDeleteTimeseriesOlderThan(t *testing.T) {
	p, gw := newTestGateway(t)

	const olderThanSec = 600
	before := time.Now().UnixMilli()
	err := gw.DeleteEntityKeys(p.FirstDeviceID(), api.ScopeTimeseries,
		[]string{"temperature"}, olderThanSec)
	require.NoError(t, err)

	q := p.LastDeleteQuery
	assert.Equal(t, "false", q.Get("deleteAllDataForKeys"))
	assert.Equal(t, "0", q.Get("startTs"))
	endTs, err2 := strconv.ParseInt(q.Get("endTs"), 10, 64)
	require.NoError(t, err2)
	assert.InDelta(t, before-olderThanSec*1000, endTs, 5000)
}

func TestDeleteAttributeScope(t *testing.T) {
	p, gw := newTestGateway(t)

	err := gw.DeleteEntityKeys(p.FirstDeviceID(), api.ScopeShared, []string{"unit"}, 0)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p.LastDeletePath, "/SHARED_SCOPE"))
	assert.Equal(t, "unit", p.LastDeleteQuery.Get("keys"))
}

func TestDeleteUnknownScopeIsHardError(t *testing.T) {
	p, gw := newTestGateway(t)

	// unlike key lookup there is no fallback, and no request is made
	err := gw.DeleteEntityKeys(p.FirstDeviceID(), api.Scope("bogus"), []string{"x"}, 0)
	require.Error(t, err)
	assert.Empty(t, p.LastDeletePath)
}

func TestTelemetryCallsRequireEntityID(t *testing.T) {
	_, gw := newTestGateway(t)

	_, err := gw.GetKeys("", api.ScopeTimeseries)
	require.Error(t, err)
	_, err = gw.GetAttributesByScope("", api.ScopeClient, nil)
	require.Error(t, err)
	_, err = gw.GetTimeseries("", api.TimeseriesQuery{})
	require.Error(t, err)
	err = gw.DeleteEntityKeys("", api.ScopeTimeseries, nil, 0)
	require.Error(t, err)
}
