package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/config"
	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/embed"
	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/qdrant"
	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/retry"
	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/util"
)

const (
	embeddingDim  = 1024
	maxConcurrent = 8
	upsertBatch   = 300
	pointIDOffset = 100000000
)

type document struct {
	pointID uint64
	docID   int64
	title   string
	text    string
}

func main() {
	var (
		corpusPath = flag.String("corpus", "data/corpus.csv", "Corpus CSV with id,title,text columns")
		keysPath   = flag.String("keys", "api-keys.json", "Path to the API keys file")
		qdrantURL  = flag.String("qdrant", config.DefaultQdrantURL, "Vector store base URL")
		collection = flag.String("collection", config.DefaultCollection, "Vector store collection")
		maxRows    = flag.Int("rows", 0, "Maximum corpus rows to ingest (0 = all)")
	)
	flag.Parse()

	creds, err := config.LoadCredentials(*keysPath)
	if err != nil {
		logrus.Fatalf("load credentials: %v", err)
	}
	gateway, err := embed.NewGateway(embed.Config{
		URL:           config.Getenv("EMBEDDING_URL", config.DefaultEmbeddingURL),
		Model:         config.DefaultEmbeddingModel,
		Authorization: creds.Embedding.Authorization,
		TokenID:       creds.Embedding.TokenID,
		TokenKey:      creds.Embedding.TokenKey,
	}, retry.Default())
	if err != nil {
		logrus.Fatalf("embedding gateway: %v", err)
	}
	client, err := qdrant.NewClient(qdrant.Config{BaseURL: *qdrantURL, Collection: *collection})
	if err != nil {
		logrus.Fatalf("vector store client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.EnsureCollection(ctx, embeddingDim); err != nil {
		logrus.Fatalf("ensure collection: %v", err)
	}
	existing, err := client.ExistingIDs(ctx)
	if err != nil {
		logrus.Fatalf("scroll existing points: %v", err)
	}
	if len(existing) > 0 {
		logrus.WithField("existing", len(existing)).Info("skipping already ingested points")
	}

	docs, skipped, err := loadCorpus(*corpusPath, *maxRows, existing)
	if err != nil {
		logrus.Fatalf("load corpus: %v", err)
	}
	logrus.WithFields(logrus.Fields{
		"pending": len(docs),
		"skipped": skipped,
	}).Info("corpus loaded")

	watch := util.NewStopwatch()
	ingested := 0
	for start := 0; start < len(docs); start += upsertBatch {
		if ctx.Err() != nil {
			logrus.Warn("ingestion interrupted")
			break
		}
		end := start + upsertBatch
		if end > len(docs) {
			end = len(docs)
		}
		points, failures := embedBatch(ctx, gateway, docs[start:end])
		if failures > 0 {
			logrus.WithField("failures", failures).Warn("some documents could not be embedded")
		}
		if len(points) == 0 {
			continue
		}
		if err := client.UpsertPoints(ctx, points); err != nil {
			logrus.Fatalf("upsert batch at %d: %v", start, err)
		}
		ingested += len(points)
		logrus.WithFields(logrus.Fields{
			"ingested": ingested,
			"pending":  len(docs) - end,
		}).Info("batch upserted")
	}
	logrus.WithFields(logrus.Fields{
		"ingested": ingested,
		"took":     watch.Elapsed().Round(time.Millisecond),
	}).Info("ingestion finished")
}

// embedBatch embeds a slice of documents with bounded concurrency and builds
// the points to upsert. Documents whose embedding fails are dropped; a later
// rerun picks them up via the resume scan.
func embedBatch(ctx context.Context, gateway *embed.Gateway, docs []document) ([]qdrant.Point, int) {
	type result struct {
		idx   int
		dense []float32
		err   error
	}

	sem := make(chan struct{}, maxConcurrent)
	results := make([]result, len(docs))
	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			dense, err := gateway.EmbedDense(ctx, text)
			results[i] = result{idx: i, dense: dense, err: err}
		}(i, doc.text)
	}
	wg.Wait()

	points := make([]qdrant.Point, 0, len(docs))
	failures := 0
	for i, res := range results {
		if res.err != nil {
			logrus.WithError(res.err).WithField("point_id", docs[i].pointID).Warn("embedding failed")
			failures++
			continue
		}
		sparseIdx, sparseVal := gateway.EmbedSparse(docs[i].text)
		points = append(points, qdrant.Point{
			ID:        docs[i].pointID,
			DocID:     docs[i].docID,
			Title:     docs[i].title,
			Text:      docs[i].text,
			Dense:     res.dense,
			SparseIdx: sparseIdx,
			SparseVal: sparseVal,
		})
	}
	return points, failures
}

func loadCorpus(path string, maxRows int, existing map[uint64]struct{}) ([]document, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"id", "title", "text"} {
		if _, ok := col[required]; !ok {
			return nil, 0, fmt.Errorf("corpus missing %q column", required)
		}
	}

	var docs []document
	skipped := 0
	row := 0
	for {
		if maxRows > 0 && row >= maxRows {
			break
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read row %d: %w", row, err)
		}
		pointID := uint64(pointIDOffset + row)
		row++

		text := strings.TrimSpace(record[col["text"]])
		if text == "" {
			continue
		}
		if _, ok := existing[pointID]; ok {
			skipped++
			continue
		}
		docID, _ := strconv.ParseInt(strings.TrimSpace(record[col["id"]]), 10, 64)
		docs = append(docs, document{
			pointID: pointID,
			docID:   docID,
			title:   record[col["title"]],
			text:    text,
		})
	}
	return docs, skipped, nil
}
