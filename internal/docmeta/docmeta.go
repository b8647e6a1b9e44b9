// Package docmeta enriches ranked results with document metadata
// (title, URL) from PostgreSQL. The index bundle deliberately carries
// only opaque document IDs; presentation fields live in the metadata
// store so rebuilding the index never touches them.
//
// Enrichment is strictly best-effort: ranking results are complete and
// correct without it, so every failure here degrades to unenriched
// results rather than a failed request. A circuit breaker keeps a sick
// database from adding its timeout to every query.
package docmeta

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/harrier-search/harrier/pkg/api"
	"github.com/harrier-search/harrier/pkg/postgres"
	"github.com/harrier-search/harrier/pkg/resilience"
)

const fetchTimeout = 500 * time.Millisecond

// Meta is one document's presentation metadata.
type Meta struct {
	DocID string
	Title string
	URL   string
}

// Store reads document metadata from PostgreSQL.
type Store struct {
	pg     *postgres.Client
	cb     *resilience.CircuitBreaker
	logger *slog.Logger
}

// New creates a Store over an established PostgreSQL client.
func New(pg *postgres.Client) *Store {
	return &Store{
		pg:     pg,
		cb:     resilience.NewCircuitBreaker("docmeta", resilience.CircuitBreakerConfig{}),
		logger: slog.Default().With("component", "docmeta"),
	}
}

// Breaker exposes the circuit breaker for the metrics gauge.
func (s *Store) Breaker() *resilience.CircuitBreaker { return s.cb }

// Ping verifies database connectivity for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pg.DB.PingContext(ctx)
}

// Fetch returns metadata for the given document IDs. IDs with no
// metadata row are simply absent from the result.
func (s *Store) Fetch(ctx context.Context, docIDs []string) (map[string]Meta, error) {
	if len(docIDs) == 0 {
		return map[string]Meta{}, nil
	}
	metas := make(map[string]Meta, len(docIDs))
	err := s.cb.Execute(func() error {
		return resilience.WithTimeout(ctx, fetchTimeout, "docmeta-fetch", func(ctx context.Context) error {
			rows, err := s.pg.DB.QueryContext(ctx,
				`SELECT doc_id, title, url FROM documents WHERE doc_id = ANY($1)`,
				pq.Array(docIDs),
			)
			if err != nil {
				return fmt.Errorf("querying document metadata: %w", err)
			}
			defer rows.Close()
			for rows.Next() {
				var m Meta
				var title, url sql.NullString
				if err := rows.Scan(&m.DocID, &title, &url); err != nil {
					return fmt.Errorf("scanning metadata row: %w", err)
				}
				m.Title = title.String
				m.URL = url.String
				metas[m.DocID] = m
			}
			return rows.Err()
		})
	})
	if err != nil {
		return nil, err
	}
	return metas, nil
}

// Enrich fills Title and URL on each result in place. Failures are
// logged and leave the results unenriched.
func (s *Store) Enrich(ctx context.Context, results []api.RankResult) {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.DocID
	}
	metas, err := s.Fetch(ctx, ids)
	if err != nil {
		s.logger.Warn("metadata enrichment skipped", "docs", len(ids), "error", err)
		return
	}
	for i := range results {
		if m, ok := metas[results[i].DocID]; ok {
			results[i].Title = m.Title
			results[i].URL = m.URL
		}
	}
}
