// Command indexer turns snapshots into the searchable index: it loads the
// snapshot NDJSON, embeds every chunk, fully replaces the Qdrant
// collection, and rebuilds the directory graph in Neo4j. It consumes
// snapshot-ready events from NATS, or indexes the latest snapshot once
// with -once.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/SiteSageAI/sitesage-mvp/engine/domain"
	"github.com/SiteSageAI/sitesage-mvp/engine/graph"
	"github.com/SiteSageAI/sitesage-mvp/engine/pipeline"
	"github.com/SiteSageAI/sitesage-mvp/engine/semantic"
	"github.com/SiteSageAI/sitesage-mvp/pkg/fn"
	"github.com/SiteSageAI/sitesage-mvp/pkg/llm"
	"github.com/SiteSageAI/sitesage-mvp/pkg/metrics"
	"github.com/SiteSageAI/sitesage-mvp/pkg/natsutil"
)

var met = metrics.New()

var (
	mSnapshots = met.Counter("sitesage_indexer_snapshots_total", "Snapshots indexed")
	mErrors    = func(stage string) *metrics.Counter {
		return met.Counter(metrics.WithLabels("sitesage_indexer_errors_total", "stage", stage), "Indexing errors per stage")
	}
	mEmbeddings = met.Counter("sitesage_indexer_embeddings_total", "Embeddings generated")
	mVectors    = met.Counter("sitesage_indexer_vectors_total", "Vectors upserted")
	mEmbedDur   = met.Histogram("sitesage_indexer_embed_duration_seconds", "Embed batch call time", nil)
	mEmbedBatch = met.Histogram("sitesage_indexer_embed_batch_size", "Chunks per embed call", []float64{1, 5, 10, 25, 50, 100, 250, 500})
	mIndexDur   = met.Histogram("sitesage_indexer_index_duration_seconds", "Full reindex time", nil)
	mLastIndex  = met.Gauge("sitesage_indexer_last_index_timestamp", "Epoch of last completed reindex")
)

// Config holds all flag/environment configuration.
type Config struct {
	NATSURL      string
	ProcessedDir string

	QdrantURL  string
	Collection string
	EmbedDims  int

	Neo4jURL  string
	Neo4jUser string
	Neo4jPass string

	OpenAIKey  string
	OpenAIBase string
	EmbedModel string
	EmbedRPS   float64
	BatchSize  int

	MetricsPort int
	Once        bool
	Snapshot    string
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.NATSURL, "nats", envOr("NATS_URL", nats.DefaultURL), "NATS URL for snapshot events")
	flag.StringVar(&cfg.ProcessedDir, "processed", envOr("PROCESSED_DIR", "data/processed"), "processed artifacts directory")
	flag.StringVar(&cfg.QdrantURL, "qdrant", envOr("QDRANT_URL", "localhost:6334"), "Qdrant gRPC address")
	flag.StringVar(&cfg.Collection, "collection", envOr("QDRANT_COLLECTION", "sitesage"), "Qdrant collection name")
	flag.IntVar(&cfg.EmbedDims, "dims", envInt("EMBED_DIMS", 1536), "embedding dimensions, must match the embed model")
	flag.StringVar(&cfg.Neo4jURL, "neo4j", envOr("NEO4J_URL", "neo4j://localhost:7687"), "Neo4j bolt URL, empty disables the graph")
	flag.StringVar(&cfg.Neo4jUser, "neo4j-user", envOr("NEO4J_USER", "neo4j"), "Neo4j username")
	flag.StringVar(&cfg.Neo4jPass, "neo4j-pass", envOr("NEO4J_PASS", "password"), "Neo4j password")
	flag.StringVar(&cfg.OpenAIKey, "openai-key", os.Getenv("OPENAI_API_KEY"), "API key for the embedding endpoint")
	flag.StringVar(&cfg.OpenAIBase, "openai-base", envOr("OPENAI_BASE_URL", ""), "OpenAI-compatible base URL, empty for api.openai.com")
	flag.StringVar(&cfg.EmbedModel, "model", envOr("EMBED_MODEL", llm.DefaultEmbedModel), "embedding model")
	flag.Float64Var(&cfg.EmbedRPS, "embed-rps", envFloat("EMBED_RPS", 4), "embedding requests per second, 0 disables pacing")
	flag.IntVar(&cfg.BatchSize, "batch", envInt("EMBED_BATCH", 64), "chunks per embedding request")
	flag.IntVar(&cfg.MetricsPort, "metrics-port", envInt("METRICS_PORT", 9092), "metrics port")
	flag.BoolVar(&cfg.Once, "once", false, "index one snapshot and exit instead of consuming events")
	flag.StringVar(&cfg.Snapshot, "snapshot", "", "snapshot path for -once, empty picks the latest")
	flag.Parse()
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func main() {
	godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("indexer exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	store, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()
	logger.Info("connected to Qdrant", "collection", cfg.Collection, "dims", cfg.EmbedDims)

	var builder *graph.Builder
	if cfg.Neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		defer driver.Close(ctx)
		if err := driver.VerifyConnectivity(ctx); err != nil {
			return fmt.Errorf("neo4j verify: %w", err)
		}
		builder = graph.NewBuilder(graph.New(driver))
		logger.Info("connected to Neo4j")
	} else {
		logger.Warn("graph disabled, directory queries will be unavailable")
	}

	ix := &indexer{
		embed: llm.New(llm.Config{
			APIKey:            cfg.OpenAIKey,
			BaseURL:           cfg.OpenAIBase,
			EmbedModel:        cfg.EmbedModel,
			RequestsPerSecond: cfg.EmbedRPS,
		}),
		store:  store,
		graph:  builder,
		dims:   cfg.EmbedDims,
		batch:  cfg.BatchSize,
		logger: logger,
	}

	if cfg.Once {
		snapshot := cfg.Snapshot
		if snapshot == "" {
			snapshot, err = pipeline.LatestSnapshot(cfg.ProcessedDir)
			if err != nil {
				return err
			}
		}
		return ix.reindex(ctx, snapshot)
	}

	met.CollectRuntime("sitesage_indexer", 15*time.Second)
	met.ServeAsync(cfg.MetricsPort)

	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	// Snapshots fully replace the index, so a queued event is worthless
	// the moment a newer one arrives; keep only the latest.
	events := make(chan pipeline.SnapshotReady, 1)
	sub, err := natsutil.Subscribe(nc, pipeline.SubjectSnapshotReady, func(_ context.Context, evt pipeline.SnapshotReady) {
		select {
		case events <- evt:
		default:
			select {
			case old := <-events:
				logger.Info("snapshot event superseded", "path", old.Path)
			default:
			}
			events <- evt
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	logger.Info("indexer waiting for snapshots",
		"subject", pipeline.SubjectSnapshotReady, "metrics_port", cfg.MetricsPort)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case evt := <-events:
			logger.Info("snapshot event received", "path", evt.Path, "chunks", evt.Chunks)
			if err := ix.reindex(ctx, evt.Path); err != nil {
				logger.Error("reindex failed, keeping previous index state", "path", evt.Path, "error", err)
			}
		}
	}
}

type indexer struct {
	embed  *llm.Client
	store  *semantic.VectorStore
	graph  *graph.Builder // nil when no graph is configured
	dims   int
	batch  int
	logger *slog.Logger
}

// indexState is threaded through the reindex stages.
type indexState struct {
	snapshot string
	chunks   []domain.Chunk
	records  []semantic.VectorRecord
}

// reindexFlow composes the traced load→embed→store→graph stages. An error
// in any stage short-circuits the rest, so a failed embed never touches
// the existing index.
func (ix *indexer) reindexFlow() fn.Stage[string, indexState] {
	return fn.Then(fn.Then(fn.Then(
		fn.TracedStage("indexer.load", ix.loadStage),
		fn.TracedStage("indexer.embed", ix.embedStage)),
		fn.TracedStage("indexer.store", ix.storeStage)),
		fn.TracedStage("indexer.graph", ix.graphStage))
}

func (ix *indexer) reindex(ctx context.Context, snapshot string) error {
	start := time.Now()

	st, err := ix.reindexFlow()(ctx, snapshot).Unwrap()
	if err != nil {
		return err
	}

	mSnapshots.Inc()
	mIndexDur.Since(start)
	mLastIndex.Set(time.Now().Unix())
	ix.logger.Info("snapshot indexed",
		"path", snapshot, "vectors", len(st.records), "took", time.Since(start).Round(time.Millisecond).String())
	return nil
}

func (ix *indexer) loadStage(_ context.Context, snapshot string) fn.Result[indexState] {
	chunks, err := pipeline.ReadChunks(snapshot)
	if err != nil {
		mErrors("load").Inc()
		return fn.Err[indexState](err)
	}
	ix.logger.Info("snapshot loaded", "path", snapshot, "chunks", len(chunks))
	return fn.Ok(indexState{snapshot: snapshot, chunks: chunks})
}

func (ix *indexer) embedStage(ctx context.Context, st indexState) fn.Result[indexState] {
	records, err := ix.embedAll(ctx, st.chunks)
	if err != nil {
		mErrors("embed").Inc()
		return fn.Err[indexState](err)
	}
	st.records = records
	return fn.Ok(st)
}

func (ix *indexer) storeStage(ctx context.Context, st indexState) fn.Result[indexState] {
	if err := ix.store.EnsureCollection(ctx, ix.dims); err != nil {
		mErrors("qdrant").Inc()
		return fn.Err[indexState](err)
	}
	if err := ix.store.ReplaceAll(ctx, st.records); err != nil {
		mErrors("qdrant").Inc()
		return fn.Err[indexState](err)
	}
	mVectors.Add(int64(len(st.records)))
	return fn.Ok(st)
}

func (ix *indexer) graphStage(ctx context.Context, st indexState) fn.Result[indexState] {
	if ix.graph == nil {
		return fn.Ok(st)
	}
	dir, err := ix.graph.Sync(ctx, st.chunks)
	if err != nil {
		mErrors("graph").Inc()
		return fn.Err[indexState](err)
	}
	ix.logger.Info("directory graph synced",
		"divisions", len(dir.Divisions), "persons", len(dir.Persons), "equipment", len(dir.Equipment))
	return fn.Ok(st)
}

// embedAll embeds chunk contents in batches and pairs each vector with its
// deterministic point ID and sanitized payload.
func (ix *indexer) embedAll(ctx context.Context, chunks []domain.Chunk) ([]semantic.VectorRecord, error) {
	records := make([]semantic.VectorRecord, 0, len(chunks))
	for _, batch := range fn.Chunk(chunks, ix.batch) {
		texts := fn.Map(batch, func(c domain.Chunk) string { return c.Content })

		embedStart := time.Now()
		vecs, err := ix.embed.EmbedBatch(ctx, texts)
		mEmbedDur.Since(embedStart)
		mEmbedBatch.Observe(float64(len(batch)))
		if err != nil {
			return nil, err
		}

		for i, c := range batch {
			records = append(records, semantic.VectorRecord{
				ID:        semantic.PointID(c.Content),
				Embedding: vecs[i],
				Payload:   semantic.Payload(c),
			})
		}
		mEmbeddings.Add(int64(len(batch)))
	}
	return records, nil
}
