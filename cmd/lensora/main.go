// LensOra server — HTTP admin/webhook surface plus the ticket polling loop.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ruchirkulkarni22/LensOra/pkg/api"
	"github.com/ruchirkulkarni22/LensOra/pkg/config"
	"github.com/ruchirkulkarni22/LensOra/pkg/database"
	"github.com/ruchirkulkarni22/LensOra/pkg/jira"
	"github.com/ruchirkulkarni22/LensOra/pkg/llm"
	"github.com/ruchirkulkarni22/LensOra/pkg/notify"
	"github.com/ruchirkulkarni22/LensOra/pkg/ocr"
	"github.com/ruchirkulkarni22/LensOra/pkg/orchestrator"
	"github.com/ruchirkulkarni22/LensOra/pkg/polling"
	"github.com/ruchirkulkarni22/LensOra/pkg/rag"
	"github.com/ruchirkulkarni22/LensOra/pkg/store"
	"github.com/ruchirkulkarni22/LensOra/pkg/version"
	"github.com/ruchirkulkarni22/LensOra/pkg/websearch"
	"github.com/ruchirkulkarni22/LensOra/pkg/workflows"
)

func main() {
	seed := flag.Bool("seed", false, "Seed a demo knowledge base and solved-ticket corpus (idempotent upserts)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	log.Printf("Starting %s", version.UserAgent())

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("Error closing database client: %v", err)
		}
	}()
	log.Println("✓ Connected to PostgreSQL, schema up to date")

	st := store.New(dbClient.DB())

	// Embedding model stays cold until the first retrieval request (or a
	// health warm-up) so the HTTP surface is responsive immediately.
	embedder := rag.NewLazyEmbedder(func() (rag.Embedder, error) {
		if cfg.LLM.OpenAIAPIKey != "" {
			return rag.NewOpenAIEmbedder(cfg.LLM.OpenAIAPIKey)
		}
		log.Println("No embedding credential configured, using deterministic local embedder")
		return rag.NewHashEmbedder(), nil
	})
	ragService := rag.NewService(st, embedder)

	searchService := websearch.NewService(cfg.Search.TavilyAPIKey, cfg.Search.Enabled, st)
	ingestor := websearch.NewIngestor(st, embedder)
	modelService := llm.NewService(cfg.LLM)
	ticketClient := jira.NewHTTPClient(cfg.Jira.URL, cfg.Jira.Username, cfg.Jira.APIToken)
	extractor := ocr.NewService()
	notifier := notify.NewService(cfg.Slack)

	activities := workflows.NewActivities(st, ragService, modelService, searchService, ingestor, ticketClient, extractor)
	activities.SetNotifier(notifier)
	orch := orchestrator.New(cfg.Temporal, activities)
	defer orch.Close()

	if *seed {
		if err := seedDemoData(context.Background(), st, ragService); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		log.Println("✓ Demo data seeded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller := polling.NewService(ticketClient, st, orch, cfg.Jira.ProjectKey, cfg.PollInterval, cfg.PollMaxKeys)
	go poller.Run(ctx)

	server := api.NewServer(cfg, dbClient, st, ragService, orch, ticketClient, notifier)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
	log.Println("Shutdown complete")
}
