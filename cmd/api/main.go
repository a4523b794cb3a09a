// Command api serves the institute knowledge base over HTTP: a chat
// endpoint backed by retrieval, a health probe, and Prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/SiteSageAI/sitesage-mvp/engine/domain"
	"github.com/SiteSageAI/sitesage-mvp/engine/graph"
	"github.com/SiteSageAI/sitesage-mvp/engine/rag"
	"github.com/SiteSageAI/sitesage-mvp/engine/semantic"
	"github.com/SiteSageAI/sitesage-mvp/pkg/llm"
	"github.com/SiteSageAI/sitesage-mvp/pkg/metrics"
	"github.com/SiteSageAI/sitesage-mvp/pkg/mid"
)

var met = metrics.New()

var (
	mChatRequests = met.Counter("sitesage_api_chat_requests_total", "Chat requests served")
	mChatErrors   = func(kind string) *metrics.Counter {
		return met.Counter(metrics.WithLabels("sitesage_api_chat_errors_total", "kind", kind), "Chat requests failed")
	}
	mChatDur = met.Histogram("sitesage_api_chat_duration_seconds", "Chat answer time", nil)
)

// Config holds all flag/environment configuration.
type Config struct {
	Port string

	OpenAIKey  string
	OpenAIBase string
	ChatModel  string
	EmbedModel string
	LLMRPS     float64

	QdrantURL  string
	Collection string

	Neo4jURL  string
	Neo4jUser string
	Neo4jPass string

	CORSOrigin string
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.Port, "port", envOr("PORT", "8080"), "HTTP listen port")
	flag.StringVar(&cfg.OpenAIKey, "openai-key", os.Getenv("OPENAI_API_KEY"), "API key for the LLM endpoint")
	flag.StringVar(&cfg.OpenAIBase, "openai-base", envOr("OPENAI_BASE_URL", ""), "OpenAI-compatible base URL, empty for api.openai.com")
	flag.StringVar(&cfg.ChatModel, "chat-model", envOr("CHAT_MODEL", llm.DefaultChatModel), "chat completion model")
	flag.StringVar(&cfg.EmbedModel, "embed-model", envOr("EMBED_MODEL", llm.DefaultEmbedModel), "embedding model, must match the indexer")
	flag.Float64Var(&cfg.LLMRPS, "llm-rps", envFloat("LLM_RPS", 8), "LLM requests per second, 0 disables pacing")
	flag.StringVar(&cfg.QdrantURL, "qdrant", envOr("QDRANT_URL", "localhost:6334"), "Qdrant gRPC address")
	flag.StringVar(&cfg.Collection, "collection", envOr("QDRANT_COLLECTION", "sitesage"), "Qdrant collection name")
	flag.StringVar(&cfg.Neo4jURL, "neo4j", envOr("NEO4J_URL", "neo4j://localhost:7687"), "Neo4j bolt URL, empty disables directory lookups")
	flag.StringVar(&cfg.Neo4jUser, "neo4j-user", envOr("NEO4J_USER", "neo4j"), "Neo4j username")
	flag.StringVar(&cfg.Neo4jPass, "neo4j-pass", envOr("NEO4J_PASS", "password"), "Neo4j password")
	flag.StringVar(&cfg.CORSOrigin, "cors", envOr("CORS_ORIGIN", "*"), "allowed CORS origin")
	flag.Parse()
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
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

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	var dir rag.DirectoryLookup
	if cfg.Neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		defer driver.Close(ctx)
		dir = graph.New(driver)
	} else {
		logger.Warn("directory lookups disabled, answers rely on retrieval only")
	}

	// One client serves both roles: query embedding and answer synthesis.
	client := llm.New(llm.Config{
		APIKey:            cfg.OpenAIKey,
		BaseURL:           cfg.OpenAIBase,
		ChatModel:         cfg.ChatModel,
		EmbedModel:        cfg.EmbedModel,
		RequestsPerSecond: cfg.LLMRPS,
	})

	ragSvc := rag.New(client, store, dir, client, rag.DefaultOptions(), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", handleHealth)
	mux.HandleFunc("POST /api/v1/chat", handleChat(ragSvc, logger))
	mux.Handle("GET /metrics", met.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.OTel("sitesage-api"),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ChatRequest is the JSON body for POST /api/v1/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the JSON response for POST /api/v1/chat.
type ChatResponse struct {
	Response  string       `json:"response"`
	Sources   []rag.Source `json:"sources"`
	Division  string       `json:"division,omitempty"`
	QueryType string       `json:"query_type"`
}

func handleChat(ragSvc *rag.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			http.Error(w, `{"error":"message is required"}`, http.StatusBadRequest)
			return
		}

		mChatRequests.Inc()
		start := time.Now()
		answer, err := ragSvc.Answer(r.Context(), req.Message)
		mChatDur.Since(start)
		if err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				mChatErrors("validation").Inc()
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Wrapped.Error()})
				return
			}
			mChatErrors("internal").Inc()
			logger.Error("chat answer failed", "error", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, ChatResponse{
			Response:  answer.Text,
			Sources:   answer.Sources,
			Division:  answer.Division,
			QueryType: answer.QueryType,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
