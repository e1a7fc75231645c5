package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/api"
	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/config"
	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/embed"
	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/llm"
	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/pipeline"
	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/qdrant"
	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/retry"
	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/store"
)

func main() {
	var (
		questionsPath = flag.String("questions", "test.json", "Path to the question JSON file")
		keysPath      = flag.String("keys", "api-keys.json", "Path to the API keys file")
		outputDir     = flag.String("out", "output", "Directory for checkpoint and result files")
		dbPath        = flag.String("db", "", "Optional SQLite database for run tracking")
		qdrantURL     = flag.String("qdrant", config.DefaultQdrantURL, "Vector store base URL")
		collection    = flag.String("collection", config.DefaultCollection, "Vector store collection")
		topK          = flag.Int("topk", 30, "Candidates retrieved per question")
		threshold     = flag.Float64("threshold", 7.0, "Minimum relevance score to keep a document")
		maxDocs       = flag.Int("max-docs", 5, "Maximum documents passed to answering")
		interval      = flag.Int("checkpoint", 5, "Questions between checkpoint writes")
		delay         = flag.Duration("delay", time.Second, "Pause between questions")
		startIndex    = flag.Int("start", 0, "First question index to answer")
		endIndex      = flag.Int("end", 0, "Question index to stop before (0 = all)")
		serveAddr     = flag.String("serve", "", "Optional listen address for the progress API (e.g. :2000)")
	)
	flag.Parse()

	creds, err := config.LoadCredentials(*keysPath)
	if err != nil {
		logrus.Fatalf("load credentials: %v", err)
	}
	questions, err := pipeline.LoadQuestions(*questionsPath)
	if err != nil {
		logrus.Fatalf("load questions: %v", err)
	}
	if *endIndex > 0 && *endIndex < len(questions) {
		questions = questions[:*endIndex]
	}
	if *startIndex > 0 {
		if *startIndex >= len(questions) {
			logrus.Fatalf("start index %d beyond %d questions", *startIndex, len(questions))
		}
		questions = questions[*startIndex:]
	}
	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logrus.Fatalf("create output directory: %v", err)
	}

	policy := retry.Default()
	small, err := llm.NewClient(llm.Config{
		URL:           config.Getenv("LLM_SMALL_URL", config.DefaultSmallURL),
		Model:         config.DefaultSmallModel,
		Authorization: creds.Small.Authorization,
		TokenID:       creds.Small.TokenID,
		TokenKey:      creds.Small.TokenKey,
	}, policy)
	if err != nil {
		logrus.Fatalf("small model client: %v", err)
	}
	large, err := llm.NewClient(llm.Config{
		URL:           config.Getenv("LLM_LARGE_URL", config.DefaultLargeURL),
		Model:         config.DefaultLargeModel,
		Authorization: creds.Large.Authorization,
		TokenID:       creds.Large.TokenID,
		TokenKey:      creds.Large.TokenKey,
	}, policy)
	if err != nil {
		logrus.Fatalf("large model client: %v", err)
	}
	embedder, err := embed.NewGateway(embed.Config{
		URL:           config.Getenv("EMBEDDING_URL", config.DefaultEmbeddingURL),
		Model:         config.DefaultEmbeddingModel,
		Authorization: creds.Embedding.Authorization,
		TokenID:       creds.Embedding.TokenID,
		TokenKey:      creds.Embedding.TokenKey,
	}, policy)
	if err != nil {
		logrus.Fatalf("embedding gateway: %v", err)
	}
	searcher, err := qdrant.NewClient(qdrant.Config{BaseURL: *qdrantURL, Collection: *collection})
	if err != nil {
		logrus.Fatalf("vector store client: %v", err)
	}

	var sink pipeline.EventSink
	var runStore pipeline.RunStore
	if *serveAddr != "" {
		// serve progress over HTTP and websocket while the run executes
		serveDB := *dbPath
		if serveDB == "" {
			serveDB = filepath.Join(*outputDir, "runs.db")
		}
		server, err := api.NewServer(api.Config{DBPath: serveDB, SilentDB: true})
		if err != nil {
			logrus.Fatalf("progress api: %v", err)
		}
		defer server.Close()
		router, err := server.Router()
		if err != nil {
			logrus.Fatalf("configure progress api: %v", err)
		}
		go func() {
			if err := router.Run(*serveAddr); err != nil {
				logrus.WithError(err).Error("progress api exited")
			}
		}()
		sink = server.Notifier()
		runStore = server.Recorder()
		logrus.WithField("addr", *serveAddr).Info("progress api listening")
	} else if *dbPath != "" {
		db, err := store.Open(*dbPath, true)
		if err != nil {
			logrus.Fatalf("open database: %v", err)
		}
		defer db.Close()
		runStore = store.NewRunRecorder(db)
	}

	orchestrator := pipeline.NewOrchestrator(
		pipeline.NewClassifier(small),
		pipeline.NewRelevanceScorer(small, *threshold, *maxDocs),
		pipeline.NewSynthesizer(small, large, "A"),
		embedder, embedder, searcher,
		sink, runStore,
		pipeline.Options{
			TopK:               *topK,
			CheckpointInterval: *interval,
			OutputDir:          *outputDir,
			BranchDelay:        *delay,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	preds, err := orchestrator.Run(ctx, questions)
	if err != nil {
		logrus.Fatalf("run failed after %d answers: %v", len(preds), err)
	}
	logrus.WithFields(logrus.Fields{
		"answered":   len(preds),
		"submission": filepath.Join(*outputDir, "submission.csv"),
	}).Info("run completed")
}
