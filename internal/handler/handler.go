// Package handler implements the ranking service's HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/harrier-search/harrier/internal/analytics"
	"github.com/harrier-search/harrier/internal/cache"
	"github.com/harrier-search/harrier/internal/docmeta"
	"github.com/harrier-search/harrier/internal/rank"
	"github.com/harrier-search/harrier/pkg/api"
	apperrors "github.com/harrier-search/harrier/pkg/errors"
	"github.com/harrier-search/harrier/pkg/logger"
	"github.com/harrier-search/harrier/pkg/metrics"
)

// Limits are the caller-facing bounds the API enforces.
type Limits struct {
	DefaultK        int
	MaxK            int
	MaxBatchQueries int
	MaxBatchWorkers int
}

// Handler serves the ranking API. Cache, metadata store, collector, and
// metrics are all optional; a nil dependency simply disables its
// feature.
type Handler struct {
	ranker    *rank.Ranker
	cache     *cache.QueryCache
	meta      *docmeta.Store
	collector *analytics.Collector
	metrics   *metrics.Metrics
	limits    Limits
	logger    *slog.Logger
}

// New assembles a Handler.
func New(
	ranker *rank.Ranker,
	queryCache *cache.QueryCache,
	meta *docmeta.Store,
	collector *analytics.Collector,
	m *metrics.Metrics,
	limits Limits,
) *Handler {
	if limits.DefaultK <= 0 {
		limits.DefaultK = 10
	}
	if limits.MaxK <= 0 {
		limits.MaxK = 100
	}
	return &Handler{
		ranker:    ranker,
		cache:     queryCache,
		meta:      meta,
		collector: collector,
		metrics:   m,
		limits:    limits,
		logger:    slog.Default().With("component", "rank-handler"),
	}
}

// Register wires the API routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/rank", h.Rank)
	mux.HandleFunc("POST /api/v1/rank", h.RankPost)
	mux.HandleFunc("POST /api/v1/rank/batch", h.BatchRank)
	mux.HandleFunc("GET /api/v1/similarity", h.Similarity)
	mux.HandleFunc("GET /api/v1/vector", h.Vector)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Rank handles GET /api/v1/rank?q=...&k=10.
func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, fmt.Errorf("%w: query parameter 'q' is required", apperrors.ErrInvalidInput))
		return
	}
	k, err := h.parseK(r.URL.Query().Get("k"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.rank(w, r, api.RankRequest{Query: query, K: k})
}

// RankPost handles POST /api/v1/rank with an api.RankRequest body,
// which is the route for pre-tokenized queries.
func (h *Handler) RankPost(w http.ResponseWriter, r *http.Request) {
	var req api.RankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: decoding request body: %v", apperrors.ErrInvalidInput, err))
		return
	}
	if req.Query == "" && len(req.Tokens) == 0 {
		h.writeError(w, fmt.Errorf("%w: request needs query or tokens", apperrors.ErrInvalidInput))
		return
	}
	req.K = h.clampK(req.K)
	h.rank(w, r, req)
}

func (h *Handler) rank(w http.ResponseWriter, r *http.Request, req api.RankRequest) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	compute := func() (*api.RankResponse, error) {
		var ids []string
		var scores []float64
		var err error
		if len(req.Tokens) > 0 {
			ids, scores, err = h.ranker.ClosestDocsTokens(req.Tokens, req.K)
		} else {
			ids, scores, err = h.ranker.ClosestDocs(req.Query, req.K)
		}
		if err != nil {
			return nil, err
		}
		resp := &api.RankResponse{
			Query:   req.Query,
			Results: makeResults(ids, scores),
		}
		h.enrich(ctx, resp.Results)
		return resp, nil
	}

	var resp *api.RankResponse
	var err error
	cacheHit := false
	if h.cache != nil {
		key := cache.Key(req.Query, req.K)
		if len(req.Tokens) > 0 {
			key = cache.TokensKey(req.Tokens, req.K)
		}
		resp, cacheHit, err = h.cache.GetOrCompute(ctx, key, compute)
	} else {
		resp, err = compute()
	}

	latency := time.Since(start)
	h.observeQuery(err, cacheHit, latency, resp)
	if err != nil {
		log.Warn("rank query failed", "query", req.Query, "error", err)
		h.writeError(w, err)
		return
	}
	resp.LatencyMs = latency.Milliseconds()

	h.track(ctx, analytics.QueryEvent{
		Type:      EventTypeFor(len(resp.Results)),
		Query:     req.Query,
		K:         req.K,
		Returned:  len(resp.Results),
		TopScore:  topScore(resp.Results),
		LatencyMs: resp.LatencyMs,
		CacheHit:  cacheHit,
	})
	h.writeJSON(w, http.StatusOK, resp)
}

// BatchRank handles POST /api/v1/rank/batch.
func (h *Handler) BatchRank(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req api.BatchRankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: decoding request body: %v", apperrors.ErrInvalidInput, err))
		return
	}
	n := len(req.Queries)
	if n == 0 {
		n = len(req.Tokens)
	}
	if n == 0 {
		h.writeError(w, fmt.Errorf("%w: batch needs queries or tokens", apperrors.ErrInvalidInput))
		return
	}
	if h.limits.MaxBatchQueries > 0 && n > h.limits.MaxBatchQueries {
		h.writeError(w, fmt.Errorf("%w: batch of %d queries exceeds limit %d",
			apperrors.ErrInvalidInput, n, h.limits.MaxBatchQueries))
		return
	}
	req.K = h.clampK(req.K)
	workers := req.Workers
	if h.limits.MaxBatchWorkers > 0 && workers > h.limits.MaxBatchWorkers {
		workers = h.limits.MaxBatchWorkers
	}

	if h.metrics != nil {
		h.metrics.BatchQueriesCount.Observe(float64(n))
		h.metrics.BatchWorkersBusy.Add(float64(workers))
		defer h.metrics.BatchWorkersBusy.Sub(float64(workers))
	}

	var rankings []rank.Ranking
	var err error
	if len(req.Queries) > 0 {
		rankings, err = h.ranker.BatchClosestDocs(ctx, req.Queries, req.K, workers)
	} else {
		rankings, err = h.ranker.BatchClosestDocsTokens(ctx, req.Tokens, req.K, workers)
	}
	if err != nil {
		log.Warn("batch rank failed", "queries", n, "workers", workers, "error", err)
		h.writeError(w, err)
		return
	}

	resp := api.BatchRankResponse{
		Results:   make([]api.RankResponse, len(rankings)),
		LatencyMs: time.Since(start).Milliseconds(),
	}
	for i, ranking := range rankings {
		var query string
		if i < len(req.Queries) {
			query = req.Queries[i]
		} else if i < len(req.Tokens) {
			query = strings.Join(req.Tokens[i], " ")
		}
		results := makeResults(ranking.DocIDs, ranking.Scores)
		h.enrich(ctx, results)
		resp.Results[i] = api.RankResponse{Query: query, Results: results}
		h.track(ctx, analytics.QueryEvent{
			Type:     analytics.EventBatchQuery,
			Query:    query,
			K:        req.K,
			Returned: len(results),
			TopScore: topScore(results),
			CacheHit: false,
			Batch:    true,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Similarity handles GET /api/v1/similarity?q=...&doc_id=...
func (h *Handler) Similarity(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	docID := r.URL.Query().Get("doc_id")
	if query == "" || docID == "" {
		h.writeError(w, fmt.Errorf("%w: parameters 'q' and 'doc_id' are required", apperrors.ErrInvalidInput))
		return
	}
	s, err := h.ranker.SimilarityWithDocument(query, docID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.SimilarityResponse{DocID: docID, Score: s})
}

// Vector handles GET /api/v1/vector?q=... — the diagnostics surface
// exposing the weighted query vector.
func (h *Handler) Vector(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, fmt.Errorf("%w: query parameter 'q' is required", apperrors.ErrInvalidInput))
		return
	}
	vec, err := h.ranker.TextToSparseVector(query)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.VectorResponse{
		Query:   query,
		Buckets: vec.Buckets,
		Weights: vec.Weights,
	})
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, fmt.Errorf("%w: cache is not configured", apperrors.ErrInvalidInput))
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	rate := "0.00%"
	if total > 0 {
		rate = fmt.Sprintf("%.2f%%", float64(hits)/float64(total)*100)
	}
	h.writeJSON(w, http.StatusOK, api.CacheStatsResponse{
		Hits:    hits,
		Misses:  misses,
		Total:   total,
		HitRate: rate,
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, fmt.Errorf("%w: cache is not configured", apperrors.ErrInvalidInput))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) parseK(raw string) (int, error) {
	if raw == "" {
		return h.limits.DefaultK, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 1 {
		return 0, fmt.Errorf("%w: k must be a positive integer", apperrors.ErrInvalidInput)
	}
	return h.clampK(k), nil
}

func (h *Handler) clampK(k int) int {
	if k <= 0 {
		return h.limits.DefaultK
	}
	if k > h.limits.MaxK {
		return h.limits.MaxK
	}
	return k
}

func (h *Handler) observeQuery(err error, cacheHit bool, latency time.Duration, resp *api.RankResponse) {
	if h.metrics == nil {
		return
	}
	status := "ok"
	switch {
	case errors.Is(err, apperrors.ErrEmptyQuery):
		status = "empty_query"
	case err != nil:
		status = "error"
	}
	h.metrics.RankQueriesTotal.WithLabelValues(status).Inc()
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
	}
	h.metrics.RankLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	if resp != nil {
		h.metrics.RankResultsCount.Observe(float64(len(resp.Results)))
	}
	if cacheHit {
		h.metrics.CacheHitsTotal.Inc()
	} else if h.cache != nil {
		h.metrics.CacheMissesTotal.Inc()
	}
}

// enrich attaches document metadata to results and publishes the
// metadata breaker's state, so dashboards can see when Postgres
// enrichment has tripped open.
func (h *Handler) enrich(ctx context.Context, results []api.RankResult) {
	if h.meta == nil {
		return
	}
	h.meta.Enrich(ctx, results)
	if h.metrics != nil {
		h.metrics.CircuitBreakerState.WithLabelValues("docmeta").Set(h.meta.Breaker().StateValue())
	}
}

func (h *Handler) track(ctx context.Context, event analytics.QueryEvent) {
	if h.collector == nil {
		return
	}
	if requestID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		event.RequestID = requestID
	}
	h.collector.Track(event)
}

// EventTypeFor distinguishes zero-result queries in the event stream.
func EventTypeFor(returned int) analytics.EventType {
	if returned == 0 {
		return analytics.EventZeroResult
	}
	return analytics.EventQuery
}

func makeResults(ids []string, scores []float64) []api.RankResult {
	results := make([]api.RankResult, len(ids))
	for i := range ids {
		results[i] = api.RankResult{DocID: ids[i], Score: scores[i]}
	}
	return results
}

func topScore(results []api.RankResult) float64 {
	if len(results) == 0 {
		return 0
	}
	return results[0].Score
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := api.ErrorResponse{Error: err.Error(), Kind: apperrors.Kind(err)}
	if encodeErr := json.NewEncoder(w).Encode(resp); encodeErr != nil {
		h.logger.Error("failed to write error response", "error", encodeErr)
	}
}
