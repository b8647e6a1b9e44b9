// Command loadtest drives a running rankerd over the internal RPC batch
// API and reports throughput and latency percentiles. Each worker holds
// its own connection and issues Ranker.BatchRank calls back to back for
// the configured duration.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harrier-search/harrier/pkg/api"
	apperrors "github.com/harrier-search/harrier/pkg/errors"
	"github.com/harrier-search/harrier/pkg/rpc"
)

type Config struct {
	Addr        string
	Concurrency int
	Duration    time.Duration
	K           int
	BatchSize   int
	Queries     []string
}

type Stats struct {
	totalCalls   atomic.Int64
	successCount atomic.Int64
	errorCount   atomic.Int64
	queriesDone  atomic.Int64
	latencies    []time.Duration
	latenciesMu  sync.Mutex
	errorKinds   map[string]*atomic.Int64
	errorKindsMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:  make([]time.Duration, 0, 100000),
		errorKinds: make(map[string]*atomic.Int64),
	}
}

func (s *Stats) RecordCall(duration time.Duration, queries int, err error) {
	s.totalCalls.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		kind := apperrors.Kind(err)
		s.errorKindsMu.Lock()
		if _, ok := s.errorKinds[kind]; !ok {
			s.errorKinds[kind] = &atomic.Int64{}
		}
		s.errorKinds[kind].Add(1)
		s.errorKindsMu.Unlock()
		return
	}
	s.successCount.Add(1)
	s.queriesDone.Add(int64(queries))
	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()
}

var builtinQueries = []string{
	"distributed ranking service",
	"sparse matrix inner product",
	"feature hashing collision",
	"inverse document frequency",
	"top k selection",
	"query vectorizer weights",
	"immutable document index",
	"batch worker pool",
	"murmur hash bucket",
	"stopword filtering",
	"bigram features",
	"result cache invalidation",
	"circuit breaker state",
	"metadata enrichment",
	"index bundle checksum",
}

func main() {
	addr := flag.String("addr", "localhost:9000", "rankerd RPC address")
	concurrency := flag.Int("concurrency", 8, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	k := flag.Int("k", 10, "results per query")
	batchSize := flag.Int("batch", 16, "queries per BatchRank call")
	queriesPath := flag.String("queries", "", "optional file with one query per line")
	flag.Parse()

	queries := builtinQueries
	if *queriesPath != "" {
		loaded, err := loadQueries(*queriesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading queries: %v\n", err)
			os.Exit(1)
		}
		queries = loaded
	}

	cfg := Config{
		Addr:        *addr,
		Concurrency: *concurrency,
		Duration:    *duration,
		K:           *k,
		BatchSize:   *batchSize,
		Queries:     queries,
	}

	fmt.Println("=== Harrier Ranking Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.Addr)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Batch size:  %d, k=%d\n", cfg.BatchSize, cfg.K)
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	fmt.Println()

	stats := runLoadTest(cfg)
	printReport(stats, cfg)
}

func loadQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			queries = append(queries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("no queries in %s", path)
	}
	return queries, nil
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			client, err := rpc.Dial(cfg.Addr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "\nworker %d: dial: %v\n", workerID, err)
				return
			}
			defer client.Close()

			queryIdx := workerID
			for ctx.Err() == nil {
				batch := make([]string, cfg.BatchSize)
				for i := range batch {
					batch[i] = cfg.Queries[queryIdx%len(cfg.Queries)]
					queryIdx++
				}

				req := api.BatchRankRequest{Queries: batch, K: cfg.K}
				var resp api.BatchRankResponse

				start := time.Now()
				err := client.Call("Ranker.BatchRank", &req, &resp)
				stats.RecordCall(time.Since(start), len(batch), err)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func printReport(stats *Stats, cfg Config) {
	total := stats.totalCalls.Load()
	success := stats.successCount.Load()
	errCount := stats.errorCount.Load()
	queries := stats.queriesDone.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Batch Calls:     %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", errCount)
	fmt.Printf("Queries Ranked:  %d\n", queries)

	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(errCount)/float64(total)*100)
		fmt.Printf("Calls/sec:       %.2f\n", float64(total)/cfg.Duration.Seconds())
		fmt.Printf("Queries/sec:     %.2f\n", float64(queries)/cfg.Duration.Seconds())
	}

	stats.latenciesMu.Lock()
	latencies := make([]time.Duration, len(stats.latencies))
	copy(latencies, stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool {
			return latencies[i] < latencies[j]
		})

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Println()
		fmt.Println("=== Batch Call Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P90:    %s\n", percentile(latencies, 90))
		fmt.Printf("P95:    %s\n", percentile(latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
	}

	stats.errorKindsMu.Lock()
	if len(stats.errorKinds) > 0 {
		fmt.Println()
		fmt.Println("=== Error Kinds ===")
		kinds := make([]string, 0, len(stats.errorKinds))
		for kind := range stats.errorKinds {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Printf("  %s: %d\n", kind, stats.errorKinds[kind].Load())
		}
	}
	stats.errorKindsMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No calls completed. Is rankerd running?")
		os.Exit(1)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
