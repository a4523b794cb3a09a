// Command pipeline builds one knowledge-base snapshot: it extracts the
// contacts PDF, classifies every raw scrape file, dedupes, writes the
// timestamped snapshot, and announces it over NATS. With -watch it reruns
// on an interval and serves metrics.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/SiteSageAI/sitesage-mvp/engine/ingest"
	"github.com/SiteSageAI/sitesage-mvp/engine/pipeline"
	"github.com/SiteSageAI/sitesage-mvp/pkg/metrics"
	"github.com/SiteSageAI/sitesage-mvp/pkg/natsutil"
)

var met = metrics.New()

var (
	mRunsTotal = met.Counter("sitesage_pipeline_runs_total", "Pipeline runs completed")
	mRunErrors = met.Counter("sitesage_pipeline_run_errors_total", "Pipeline runs failed")
	mRunDur    = met.Histogram("sitesage_pipeline_run_duration_seconds", "Full pipeline run time", nil)
	mLastRun   = met.Gauge("sitesage_pipeline_last_run_timestamp", "Epoch of last completed run")

	mChunksTotal = func(source string) *metrics.Counter {
		return met.Counter(metrics.WithLabels("sitesage_pipeline_chunks_total", "source", source), "Chunks emitted per source")
	}
	mDuplicates     = met.Counter("sitesage_pipeline_duplicates_total", "Chunks dropped as duplicates")
	mExpired        = met.Counter("sitesage_pipeline_expired_total", "Tenders dropped as expired")
	mMissingID      = met.Counter("sitesage_pipeline_missing_identity_total", "Records dropped for missing identity")
	mNoContent      = met.Counter("sitesage_pipeline_no_content_total", "Records dropped for empty content")
	mFilesSkipped   = met.Counter("sitesage_pipeline_files_skipped_total", "Raw files skipped")
	mContactsMerged = met.Counter("sitesage_pipeline_contacts_merged_total", "PDF contacts merged into snapshots")
	mSnapshotChunks = met.Gauge("sitesage_pipeline_snapshot_chunks", "Chunks in the last snapshot")
)

// Config holds all flag/environment configuration.
type Config struct {
	RawDir       string
	ProcessedDir string
	ContactsPDF  string
	NATSURL      string
	Watch        time.Duration
	MetricsPort  int
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.RawDir, "raw", envOr("RAW_DIR", "data/raw"), "raw scrape directory")
	flag.StringVar(&cfg.ProcessedDir, "processed", envOr("PROCESSED_DIR", "data/processed"), "processed artifacts directory")
	flag.StringVar(&cfg.ContactsPDF, "contacts", envOr("CONTACTS_PDF", "contacts.pdf"), "contacts PDF filename inside the raw directory")
	flag.StringVar(&cfg.NATSURL, "nats", envOr("NATS_URL", nats.DefaultURL), "NATS URL for snapshot events, empty disables publishing")
	flag.DurationVar(&cfg.Watch, "watch", 0, "rerun interval; 0 runs once and exits")
	flag.IntVar(&cfg.MetricsPort, "metrics-port", envInt("METRICS_PORT", 9091), "metrics port in watch mode")
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

func main() {
	godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("pipeline exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	// The snapshot event is a courtesy to online indexers; the snapshot
	// file is the product, so a missing broker degrades rather than fails.
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		var err error
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn("nats unavailable, snapshot events disabled", "url", cfg.NATSURL, "error", err)
			nc = nil
		} else {
			defer nc.Close()
		}
	}

	if cfg.Watch <= 0 {
		return runOnce(ctx, cfg, nc, logger)
	}

	met.CollectRuntime("sitesage_pipeline", 15*time.Second)
	met.ServeAsync(cfg.MetricsPort)
	logger.Info("pipeline watching", "interval", cfg.Watch, "metrics_port", cfg.MetricsPort)

	if err := runOnce(ctx, cfg, nc, logger); err != nil {
		logger.Error("pipeline run failed", "error", err)
	}
	ticker := time.NewTicker(cfg.Watch)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-ticker.C:
			if err := runOnce(ctx, cfg, nc, logger); err != nil {
				logger.Error("pipeline run failed", "error", err)
			}
		}
	}
}

func runOnce(ctx context.Context, cfg Config, nc *nats.Conn, logger *slog.Logger) error {
	start := time.Now()
	p := pipeline.New(pipeline.Config{
		RawDir:       cfg.RawDir,
		ProcessedDir: cfg.ProcessedDir,
		ContactsPDF:  cfg.ContactsPDF,
	}, logger)

	snapshot, err := p.Execute(ctx)
	if err != nil {
		mRunErrors.Inc()
		return err
	}

	stats := p.Stats()
	mirrorStats(stats)
	mRunDur.Since(start)
	mRunsTotal.Inc()
	mLastRun.Set(time.Now().Unix())
	mSnapshotChunks.Set(int64(stats.Total()))

	if nc != nil {
		evt := pipeline.SnapshotReady{
			Path:    snapshot,
			Chunks:  stats.Total(),
			Stats:   stats,
			BuiltAt: time.Now().UTC(),
		}
		if err := natsutil.Publish(ctx, nc, pipeline.SubjectSnapshotReady, evt); err != nil {
			logger.Warn("snapshot event publish failed", "error", err)
		} else {
			logger.Info("snapshot event published",
				"subject", pipeline.SubjectSnapshotReady, "path", snapshot, "chunks", evt.Chunks)
		}
	}
	return nil
}

func mirrorStats(s *ingest.Stats) {
	for source, n := range s.Chunks {
		mChunksTotal(string(source)).Add(int64(n))
	}
	mDuplicates.Add(int64(s.Duplicates))
	mExpired.Add(int64(s.Expired))
	mMissingID.Add(int64(s.MissingIdentity))
	mNoContent.Add(int64(s.NoContent))
	mFilesSkipped.Add(int64(s.FilesSkipped))
	mContactsMerged.Add(int64(s.ContactsMerged))
}
