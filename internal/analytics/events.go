// Package analytics publishes query events to Kafka for the downstream
// analytics pipeline. Events are buffered and flushed in batches; the
// consumer side lives outside this service.
package analytics

import "time"

type EventType string

const (
	EventQuery      EventType = "query"
	EventBatchQuery EventType = "batch_query"
	EventZeroResult EventType = "zero_result"
)

// QueryEvent describes one ranked query: what was asked, what came
// back, and how long it took.
type QueryEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	K         int       `json:"k"`
	Returned  int       `json:"returned"`
	TopScore  float64   `json:"top_score"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Batch     bool      `json:"batch"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
