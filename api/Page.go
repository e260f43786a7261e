package api

// PageData is the page envelope returned by every listing endpoint.
// Only the Data sequence is significant to the SDK; the remaining fields
// are passed through for callers that page manually.
type PageData[T any] struct {
	Data          []T   `json:"data"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements"`
	HasNext       bool  `json:"hasNext"`
}
