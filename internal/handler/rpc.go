package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harrier-search/harrier/internal/rank"
	"github.com/harrier-search/harrier/pkg/api"
	apperrors "github.com/harrier-search/harrier/pkg/errors"
	"github.com/harrier-search/harrier/pkg/rpc"
)

// RegisterRPC wires the ranking methods onto the internal JSON-over-TCP
// RPC server. This surface skips the cache and metadata enrichment: its
// consumers are offline batch drivers that want raw throughput, not
// presentation fields.
func RegisterRPC(s *rpc.Server, ranker *rank.Ranker, limits Limits) {
	s.Register("Ranker.Rank", func(ctx context.Context, params json.RawMessage) (any, error) {
		var req api.RankRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("%w: decoding params: %v", apperrors.ErrInvalidInput, err)
		}
		start := time.Now()
		k := clampTo(req.K, limits)
		var ids []string
		var scores []float64
		var err error
		if len(req.Tokens) > 0 {
			ids, scores, err = ranker.ClosestDocsTokens(req.Tokens, k)
		} else {
			ids, scores, err = ranker.ClosestDocs(req.Query, k)
		}
		if err != nil {
			return nil, err
		}
		return &api.RankResponse{
			Query:     req.Query,
			Results:   makeResults(ids, scores),
			LatencyMs: time.Since(start).Milliseconds(),
		}, nil
	})

	s.Register("Ranker.BatchRank", func(ctx context.Context, params json.RawMessage) (any, error) {
		var req api.BatchRankRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("%w: decoding params: %v", apperrors.ErrInvalidInput, err)
		}
		start := time.Now()
		k := clampTo(req.K, limits)
		workers := req.Workers
		if limits.MaxBatchWorkers > 0 && workers > limits.MaxBatchWorkers {
			workers = limits.MaxBatchWorkers
		}
		var rankings []rank.Ranking
		var err error
		if len(req.Queries) > 0 {
			rankings, err = ranker.BatchClosestDocs(ctx, req.Queries, k, workers)
		} else {
			rankings, err = ranker.BatchClosestDocsTokens(ctx, req.Tokens, k, workers)
		}
		if err != nil {
			return nil, err
		}
		resp := &api.BatchRankResponse{
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
			resp.Results[i] = api.RankResponse{
				Query:   query,
				Results: makeResults(ranking.DocIDs, ranking.Scores),
			}
		}
		return resp, nil
	})

	s.Register("Ranker.Similarity", func(ctx context.Context, params json.RawMessage) (any, error) {
		var req api.SimilarityRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("%w: decoding params: %v", apperrors.ErrInvalidInput, err)
		}
		sim, err := ranker.SimilarityWithDocument(req.Query, req.DocID)
		if err != nil {
			return nil, err
		}
		return &api.SimilarityResponse{DocID: req.DocID, Score: sim}, nil
	})
}

func clampTo(k int, limits Limits) int {
	if k <= 0 {
		if limits.DefaultK > 0 {
			return limits.DefaultK
		}
		return 10
	}
	if limits.MaxK > 0 && k > limits.MaxK {
		return limits.MaxK
	}
	return k
}
