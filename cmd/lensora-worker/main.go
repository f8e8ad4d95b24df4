// LensOra worker — hosts the durable workflow and activity code on the
// engine task queue.
package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/ruchirkulkarni22/LensOra/pkg/config"
	"github.com/ruchirkulkarni22/LensOra/pkg/database"
	"github.com/ruchirkulkarni22/LensOra/pkg/jira"
	"github.com/ruchirkulkarni22/LensOra/pkg/llm"
	"github.com/ruchirkulkarni22/LensOra/pkg/notify"
	"github.com/ruchirkulkarni22/LensOra/pkg/ocr"
	"github.com/ruchirkulkarni22/LensOra/pkg/rag"
	"github.com/ruchirkulkarni22/LensOra/pkg/store"
	"github.com/ruchirkulkarni22/LensOra/pkg/version"
	"github.com/ruchirkulkarni22/LensOra/pkg/websearch"
	"github.com/ruchirkulkarni22/LensOra/pkg/workflows"
)

const dialRetries = 5

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}
	log.Printf("Starting %s worker", version.UserAgent())

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
	defer func() { _ = dbClient.Close() }()

	st := store.New(dbClient.DB())
	embedder := rag.NewLazyEmbedder(func() (rag.Embedder, error) {
		if cfg.LLM.OpenAIAPIKey != "" {
			return rag.NewOpenAIEmbedder(cfg.LLM.OpenAIAPIKey)
		}
		return rag.NewHashEmbedder(), nil
	})
	ragService := rag.NewService(st, embedder)
	activities := workflows.NewActivities(
		st,
		ragService,
		llm.NewService(cfg.LLM),
		websearch.NewService(cfg.Search.TavilyAPIKey, cfg.Search.Enabled, st),
		websearch.NewIngestor(st, embedder),
		jira.NewHTTPClient(cfg.Jira.URL, cfg.Jira.Username, cfg.Jira.APIToken),
		ocr.NewService(),
	)
	activities.SetNotifier(notify.NewService(cfg.Slack))

	c := dialWithRetry(cfg.Temporal)
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	workflows.Register(w, activities)

	log.Printf("Worker listening on task queue %q", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("Worker stopped: %v", err)
	}
}

// dialWithRetry connects to the engine with linear backoff. The worker is
// useless without the engine, so exhausted retries are fatal.
func dialWithRetry(cfg config.TemporalConfig) client.Client {
	var lastErr error
	for attempt := 1; attempt <= dialRetries; attempt++ {
		c, err := client.Dial(client.Options{
			HostPort:  cfg.Address,
			Namespace: cfg.Namespace,
		})
		if err == nil {
			log.Printf("Connected to workflow engine at %s", cfg.Address)
			return c
		}
		lastErr = err
		wait := time.Duration(attempt) * 3 * time.Second
		log.Printf("Engine connection attempt %d/%d failed: %v; retrying in %s",
			attempt, dialRetries, err, wait)
		time.Sleep(wait)
	}
	log.Fatalf("Could not connect to workflow engine after %d attempts: %v", dialRetries, lastErr)
	return nil
}
