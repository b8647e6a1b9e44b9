// Package api defines the shared request/response types for the ranking
// service's HTTP and RPC surfaces.
//
// The same structs serve both transports: the HTTP handlers encode them
// directly, and the JSON-over-TCP RPC layer (pkg/rpc) carries them as
// method params/results. Keeping one set of types means a result cached
// from an HTTP query is byte-compatible with an RPC reply.
package api

// RankRequest asks for the top K documents closest to Query.
// If Tokens is non-empty it is used instead of Query and the server skips
// tokenization (the caller has already tokenized).
type RankRequest struct {
	Query  string   `json:"query"`
	Tokens []string `json:"tokens,omitempty"`
	K      int      `json:"k"`
}

// RankResult is a single scored document in the result list, optionally
// enriched with metadata from the document store.
type RankResult struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
	Title string  `json:"title,omitempty"`
	URL   string  `json:"url,omitempty"`
}

// RankResponse is the ranked result list for one query, descending by
// score.
type RankResponse struct {
	Query     string       `json:"query"`
	Results   []RankResult `json:"results"`
	LatencyMs int64        `json:"latency_ms"`
}

// BatchRankRequest asks for top-K rankings of several queries at once.
// Workers bounds the worker pool; 0 means one worker per CPU.
type BatchRankRequest struct {
	Queries []string   `json:"queries,omitempty"`
	Tokens  [][]string `json:"tokens,omitempty"`
	K       int        `json:"k"`
	Workers int        `json:"workers"`
}

// BatchRankResponse carries one RankResponse per input query, in input
// order regardless of completion order.
type BatchRankResponse struct {
	Results   []RankResponse `json:"results"`
	LatencyMs int64          `json:"latency_ms"`
}

// SimilarityRequest asks for the score of one specific document against
// the query.
type SimilarityRequest struct {
	Query string `json:"query"`
	DocID string `json:"doc_id"`
}

// SimilarityResponse is the scalar similarity between a query and one
// document. Score is 0 when the document shares no feature with the query.
type SimilarityResponse struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// VectorResponse exposes a query's sparse feature vector for diagnostics:
// aligned bucket/weight slices, buckets ascending.
type VectorResponse struct {
	Query   string    `json:"query"`
	Buckets []uint32  `json:"buckets"`
	Weights []float64 `json:"weights"`
}

// CacheStatsResponse reports result-cache effectiveness counters.
type CacheStatsResponse struct {
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Total   int64  `json:"total"`
	HitRate string `json:"hit_rate"`
}

// ErrorResponse is the uniform error body for both transports.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
