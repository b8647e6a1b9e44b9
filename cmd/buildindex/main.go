// Command buildindex builds a ranking index bundle from a JSONL corpus.
// It is the offline half of the hashing contract: the tokenizer, n-gram
// order, stopword filter, hash, and weighting formula used here are the
// same code paths rankerd runs at query time, so the bundle and the
// queries served against it always agree.
//
// Corpus format: one JSON object per line, {"id": "...", "text": "..."}.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/harrier-search/harrier/internal/rank/index"
	"github.com/harrier-search/harrier/internal/tokenize"
	"github.com/harrier-search/harrier/pkg/logger"
)

const progressEvery = 10000

type corpusDoc struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func main() {
	corpusPath := flag.String("corpus", "", "path to JSONL corpus (required)")
	outPath := flag.String("out", "data/index.tfri", "output bundle path")
	hashSize := flag.Uint("hash-size", 1<<24, "dimensionality of the hashed feature space")
	ngram := flag.Int("ngram", 2, "n-gram order")
	tokenizerKind := flag.String("tokenizer", "simple", "tokenizer kind (simple or process)")
	tokenizerCmd := flag.String("tokenizer-cmd", "", "external tokenizer command (process kind)")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "text")

	if *corpusPath == "" {
		fmt.Fprintln(os.Stderr, "usage: buildindex -corpus corpus.jsonl [-out data/index.tfri] [-hash-size N] [-ngram N]")
		os.Exit(2)
	}
	if *hashSize == 0 || *hashSize > 1<<31 {
		slog.Error("hash size out of range", "hash_size", *hashSize)
		os.Exit(2)
	}

	var cmd []string
	if *tokenizerCmd != "" {
		cmd = []string{*tokenizerCmd}
	}
	tok, err := tokenize.New(*tokenizerKind, cmd...)
	if err != nil {
		slog.Error("failed to create tokenizer", "kind", *tokenizerKind, "error", err)
		os.Exit(1)
	}
	if closer, ok := tok.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	builder, err := index.NewBuilder(uint32(*hashSize), *ngram, tok)
	if err != nil {
		slog.Error("failed to create builder", "error", err)
		os.Exit(1)
	}

	f, err := os.Open(*corpusPath)
	if err != nil {
		slog.Error("failed to open corpus", "path", *corpusPath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	slog.Info("building index",
		"corpus", *corpusPath,
		"hash_size", *hashSize,
		"ngram_order", *ngram,
		"tokenizer", *tokenizerKind,
	)
	start := time.Now()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 64<<20)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var doc corpusDoc
		if err := json.Unmarshal(scanner.Bytes(), &doc); err != nil {
			slog.Error("malformed corpus line", "line", line, "error", err)
			os.Exit(1)
		}
		if err := builder.Add(doc.ID, doc.Text); err != nil {
			slog.Error("failed to add document", "line", line, "doc_id", doc.ID, "error", err)
			os.Exit(1)
		}
		if builder.NumDocs()%progressEvery == 0 {
			slog.Info("progress", "documents", builder.NumDocs())
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Error("reading corpus", "error", err)
		os.Exit(1)
	}

	idx, err := builder.Build()
	if err != nil {
		slog.Error("failed to build index", "error", err)
		os.Exit(1)
	}
	if err := index.Write(*outPath, idx); err != nil {
		slog.Error("failed to write bundle", "path", *outPath, "error", err)
		os.Exit(1)
	}

	info, _ := os.Stat(*outPath)
	var sizeBytes int64
	if info != nil {
		sizeBytes = info.Size()
	}
	slog.Info("index built",
		"path", *outPath,
		"documents", idx.NumDocs(),
		"hash_size", idx.HashSize(),
		"nonzeros", idx.NNZ(),
		"bundle_bytes", sizeBytes,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
}
