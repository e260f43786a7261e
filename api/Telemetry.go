package api

import "time"

// query defaults, matching the platform's documented behavior
const (
	DefaultTimeseriesLimit    = 500
	DefaultAggregation        = "AVG"
	DefaultIntervalMs         = 60000
	DefaultTimeseriesWindow   = time.Hour
	DefaultListPageSize       = 100
	DefaultDeviceSortProperty = "name"
	DefaultSortOrder          = "ASC"
)

// AttributeValue is one attribute key/value pair with its last update time.
type AttributeValue struct {
	Key          string `json:"key"`
	Value        any    `json:"value"`
	LastUpdateTs int64  `json:"lastUpdateTs"`
}

// TsSample is a single timestamped telemetry sample.
type TsSample struct {
	Ts    int64 `json:"ts"`
	Value any   `json:"value"`
}

// TimeseriesQuery selects aggregated or raw samples for a set of keys.
// All fields except Keys are optional; Normalized applies the defaults.
type TimeseriesQuery struct {
	Keys     []string
	Limit    int
	Agg      string
	Interval int64 // aggregation interval in ms
	StartTs  int64 // window start, ms since epoch
	EndTs    int64 // window end, ms since epoch
	// StrictTypes asks the server to keep native value types instead of
	// stringifying. nil means true.
	StrictTypes *bool
}

// Normalized returns a copy of the query with defaults filled in:
// limit 500, AVG aggregation, 60s interval, window [now-1h, now] and
// strict typing enabled.
func (q TimeseriesQuery) Normalized(now time.Time) TimeseriesQuery {
	nowMs := now.UnixMilli()
	if q.Limit == 0 {
		q.Limit = DefaultTimeseriesLimit
	}
	if q.Agg == "" {
		q.Agg = DefaultAggregation
	}
	if q.Interval == 0 {
		q.Interval = DefaultIntervalMs
	}
	if q.EndTs == 0 {
		q.EndTs = nowMs
	}
	if q.StartTs == 0 {
		q.StartTs = q.EndTs - DefaultTimeseriesWindow.Milliseconds()
	}
	if q.StrictTypes == nil {
		strict := true
		q.StrictTypes = &strict
	}
	return q
}
