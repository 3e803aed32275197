// Package main is the Manabu CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/assist"
	"github.com/hyperjump/manabu/internal/auth"
	"github.com/hyperjump/manabu/internal/chunker"
	"github.com/hyperjump/manabu/internal/config"
	"github.com/hyperjump/manabu/internal/embedding"
	"github.com/hyperjump/manabu/internal/extract"
	"github.com/hyperjump/manabu/internal/ingest"
	"github.com/hyperjump/manabu/internal/keyword"
	"github.com/hyperjump/manabu/internal/llm"
	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/server"
	"github.com/hyperjump/manabu/internal/storage"
	"github.com/hyperjump/manabu/internal/vector"
	"github.com/hyperjump/manabu/internal/watcher"
	"github.com/hyperjump/manabu/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/manabu/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory wins so running from the project dir picks up the
// project's config. Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// API keys may live in a local .env during development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "delete":
		runDelete()
	case "ask":
		runAsk()
	case "quiz":
		runQuiz()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("manabu version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedPath),
		zap.Bool("debug", debugMode))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	rehydrated, err := components.Ingester.Rehydrate(context.Background())
	if err != nil {
		logger.Fatal("Failed to rehydrate indexes", zap.Error(err))
	}
	logger.Info("indexes rehydrated", zap.Int("chunks", rehydrated))

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watch *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		watch = watcher.New(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			func(ctx context.Context, path string) error {
				_, err := components.Ingester.IngestFile(ctx, path)
				return err
			},
			logger,
		)
		if err := watch.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start inbox watcher", zap.Error(err))
		}
		watch.IngestExisting(watchCtx)
	}

	srv := server.NewServer(
		components.Engine,
		components.Ingester,
		components.Storage,
		components.VectorIndex,
		components.Auth,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watch != nil {
		watch.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: manabu ingest [flags] <file> [file...]")
		os.Exit(1)
	}

	components, cleanup := mustComponents(*configPath)
	defer cleanup()

	ctx := context.Background()
	if _, err := components.Ingester.Rehydrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Rehydrate failed: %v\n", err)
		os.Exit(1)
	}
	for _, path := range fs.Args() {
		doc, err := components.Ingester.IngestFile(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest %s failed: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Ingested %s: id=%s pages=%d chunks=%d\n", path, doc.ID, doc.NumPages, doc.NumChunks)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: manabu delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	components, cleanup := mustComponents(*configPath)
	defer cleanup()

	if err := components.Ingester.DeleteDocument(context.Background(), docID); err != nil {
		fmt.Fprintf(os.Stderr, "Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

// answerResponse mirrors the /api/v1/answer response shape.
type answerResponse struct {
	models.ParsedAnswer
	ContextChunks int `json:"context_chunks"`
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = answer in-process)`)
	token := fs.String("token", os.Getenv("MANABU_TOKEN"), "bearer token for the server API")
	topK := fs.Int("top-k", 0, "number of chunks to retrieve")
	length := fs.String("length", "", "answer length: short, medium, or long")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: manabu ask [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	req := &models.AnswerRequest{Question: question, TopK: *topK, Length: *length}
	if err := req.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid question: %v\n", err)
		os.Exit(1)
	}

	var answer answerResponse
	if *serverURL != "" {
		if err := postJSON(*serverURL+"/api/v1/answer", *token, req, &answer); err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components, cleanup := mustComponents(*configPath)
		defer cleanup()
		ctx := context.Background()
		if _, err := components.Ingester.Rehydrate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Rehydrate failed: %v\n", err)
			os.Exit(1)
		}
		result, err := components.Engine.Answer(ctx, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		answer = answerResponse{ParsedAnswer: *result.ParsedAnswer, ContextChunks: result.ContextChunks}
	}

	if *outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(answer); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	fmt.Println(answer.Answer)
	for _, q := range answer.Quotes {
		fmt.Printf("  > [%d] %s\n", q.Source, q.Text)
	}
	for _, s := range answer.Sources {
		if s.Page != nil {
			fmt.Printf("  source %d: %s, page %d\n", s.SourceNumber, s.Title, *s.Page)
		} else {
			fmt.Printf("  source %d: %s\n", s.SourceNumber, s.Title)
		}
	}
}

func runQuiz() {
	fs := flag.NewFlagSet("quiz", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = generate in-process)`)
	token := fs.String("token", os.Getenv("MANABU_TOKEN"), "bearer token for the server API")
	docID := fs.String("doc", "", "generate over a whole document by id")
	kind := fs.String("kind", "mcq", "quiz kind: mcq or short")
	count := fs.Int("count", 5, "number of questions")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	req := &models.QuizRequest{Question: question, DocID: *docID, Kind: *kind, Count: *count}
	if err := req.Validate(); err != nil {
		fmt.Println("Usage: manabu quiz [flags] <topic>   (or --doc <document-id>)")
		os.Exit(1)
	}

	var quiz models.QuizResult
	if *serverURL != "" {
		if err := postJSON(*serverURL+"/api/v1/quiz", *token, req, &quiz); err != nil {
			fmt.Fprintf(os.Stderr, "Quiz failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components, cleanup := mustComponents(*configPath)
		defer cleanup()
		ctx := context.Background()
		if _, err := components.Ingester.Rehydrate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Rehydrate failed: %v\n", err)
			os.Exit(1)
		}
		result, err := components.Engine.Quiz(ctx, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Quiz failed: %v\n", err)
			os.Exit(1)
		}
		quiz = *result
	}

	if *outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(quiz); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if len(quiz.Items) == 0 {
		fmt.Println(quiz.Raw)
		return
	}
	letters := []string{"A", "B", "C", "D", "E", "F"}
	for i, item := range quiz.Items {
		fmt.Printf("%d. %s\n", i+1, item.Question)
		for j, opt := range item.Options {
			letter := fmt.Sprintf("%d", j+1)
			if j < len(letters) {
				letter = letters[j]
			}
			fmt.Printf("   %s) %s\n", letter, opt)
		}
		if item.CorrectOption != "" {
			fmt.Printf("   correct: %s\n", item.CorrectOption)
		}
		if item.Answer != "" {
			fmt.Printf("   answer: %s\n", item.Answer)
		}
		if item.Explanation != "" {
			fmt.Printf("   why: %s\n", item.Explanation)
		}
	}
}

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	Documents       int64                  `json:"documents"`
	Chunks          int64                  `json:"chunks"`
	VectorIndexSize int                    `json:"vector_index_size"`
	DiskUsageBytes  *int64                 `json:"disk_usage_bytes,omitempty"`
	Config          map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = read storage directly)`)
	token := fs.String("token", os.Getenv("MANABU_TOKEN"), "bearer token for the server API")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		if err := getJSON(*serverURL+"/api/v1/status", *token, &status); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		components, cleanup := mustComponents(*configPath)
		defer cleanup()
		ctx := context.Background()
		if _, err := components.Ingester.Rehydrate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Rehydrate failed: %v\n", err)
			os.Exit(1)
		}
		docCount, err := components.Storage.CountDocuments(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
			os.Exit(1)
		}
		chunkCount, err := components.Storage.CountChunks(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count chunks failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Documents:       docCount,
			Chunks:          chunkCount,
			VectorIndexSize: components.VectorIndex.Size(),
		}
		if diskBytes, diskErr := storage.DiskUsageBytes(
			cfg.Storage.DatabasePath,
			cfg.Storage.BleveIndexPath,
			cfg.Storage.UploadDir,
		); diskErr == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	if *outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	fmt.Printf("documents:          %d\n", status.Documents)
	fmt.Printf("chunks:             %d\n", status.Chunks)
	fmt.Printf("vector_index_size:  %d\n", status.VectorIndexSize)
	if status.DiskUsageBytes != nil {
		fmt.Printf("disk_usage_bytes:   %d\n", *status.DiskUsageBytes)
	}
	if len(status.Config) > 0 {
		fmt.Println()
		fmt.Println("# configuration")
		for _, key := range []string{
			"embedding_model", "embedding_dimensions", "llm_model",
			"llm_disabled", "chunk_size", "chunk_overlap", "keyword_enabled",
		} {
			if v, ok := status.Config[key]; ok {
				fmt.Printf("%-20s %v\n", key+":", v)
			}
		}
	}
}

func postJSON(url, token string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return doJSON(req, out)
}

func getJSON(url, token string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return doJSON(req, out)
}

func doJSON(req *http.Request, out interface{}) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	Embedder     embedding.Embedder
	VectorIndex  *vector.Index
	KeywordIndex keyword.Index
	Generator    llm.Generator
	Ingester     *ingest.Ingester
	Engine       *assist.Engine
	Auth         *auth.Service
}

func (c *Components) Close() {
	if c.Generator != nil {
		_ = c.Generator.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// mustComponents loads config, builds a logger, and initializes components,
// exiting on failure. Returns the components and a cleanup func.
func mustComponents(configPath string) (*Components, func()) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components, func() {
		components.Close()
		_ = logger.Sync()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var embedder embedding.Embedder
	if cfg.Embedding.Mock {
		logger.Warn("using mock embedder; vectors carry no semantics")
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		remote, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     cfg.Embedding.APIKey,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		embedder = remote
	}
	embedder = embedding.NewCached(embedder, cfg.Embedding.CacheSize)

	vectorIndex, err := vector.NewIndex(embedder)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}

	var keywordIndex keyword.Index
	if cfg.Search.KeywordEnabled {
		keywordIndex, err = keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
		}
	}

	var generator llm.Generator
	if !cfg.LLM.Disabled {
		generator, err = llm.NewOpenAIGenerator(llm.OpenAIGeneratorConfig{
			BaseURL:           cfg.LLM.BaseURL,
			APIKey:            cfg.LLM.APIKey,
			Model:             cfg.LLM.Model,
			Temperature:       cfg.LLM.Temperature,
			MaxTokens:         cfg.LLM.MaxTokens,
			RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize chat client: %w", err)
		}
	} else {
		logger.Info("generation disabled; answers fall back to document text")
	}

	chk, err := chunker.New(cfg.Search.ChunkSize, cfg.Search.ChunkOverlap)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("invalid chunking config: %w", err)
	}

	ingester := ingest.NewIngester(store, vectorIndex, keywordIndex, extract.NewExtractor(), chk, logger)
	engine := assist.NewEngine(vectorIndex, keywordIndex, store, generator, logger)

	var authSvc *auth.Service
	if !cfg.Auth.Disabled {
		authSvc = auth.NewService(store, time.Duration(cfg.Auth.SessionTTLHours)*time.Hour)
	}

	return &Components{
		Storage:      store,
		Embedder:     embedder,
		VectorIndex:  vectorIndex,
		KeywordIndex: keywordIndex,
		Generator:    generator,
		Ingester:     ingester,
		Engine:       engine,
		Auth:         authSvc,
	}, nil
}

func printUsage() {
	fmt.Println(`manabu - study assistant over your own documents

Usage:
  manabu server [flags]            Start the HTTP server
  manabu ingest [flags] <file...>  Ingest documents from the command line
  manabu delete [flags] <id>       Delete a document
  manabu ask [flags] <question>    Ask a question over ingested documents
  manabu quiz [flags] <topic>      Generate quiz questions
  manabu status [flags]            Show document/index status
  manabu version                   Show version
  manabu help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/manabu/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to answer in-process.
  --token string     Bearer token (default: $MANABU_TOKEN)
  --top-k int        Number of chunks to retrieve
  --length string    Answer length: short, medium, or long
  --output string    Output format: text or json (default: text)

Quiz Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to generate in-process.
  --token string     Bearer token (default: $MANABU_TOKEN)
  --doc string       Generate over a whole document by id
  --kind string      Quiz kind: mcq or short (default: mcq)
  --count int        Number of questions (default: 5)

Examples:
  manabu server
  manabu ingest lecture_notes.pdf
  manabu ask "What does the second law of thermodynamics state?"
  manabu quiz --count 10 thermodynamics
  manabu quiz --doc doc-123 --kind short
  manabu status --output json`)
}
