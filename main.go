package main

import (
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"spcflow/adapters/llm"
	"spcflow/adapters/llm/heuristic"
	"spcflow/adapters/postgres"
	"spcflow/internal/analysis"
	"spcflow/internal/config"
	"spcflow/internal/errors"
	"spcflow/internal/retry"
	"spcflow/ports"
	"spcflow/ui"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_reports (
	id TEXT PRIMARY KEY,
	dataset_id TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT,
	chunks_succeeded INTEGER NOT NULL DEFAULT 0,
	chunks_total INTEGER NOT NULL DEFAULT 0,
	payload JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_analysis_reports_dataset ON analysis_reports (dataset_id, created_at DESC);
`

// initDatabase initializes the PostgreSQL database connection
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "failed to ensure schema")
	}

	return db, nil
}

// buildInterpreters selects the interpretation backend: the chat-completion
// adapter when a key is configured, the heuristic one otherwise.
func buildInterpreters(appConfig *config.Config) (ports.TextInterpreter, ports.ChunkAnalyzer, ports.IdentifierSuggester, error) {
	if !appConfig.AI.Enabled {
		log.Println("No OPENAI_API_KEY configured, using heuristic interpretation")
		h := heuristic.NewInterpreter()
		return h, h, nil, nil
	}

	client, err := llm.NewClient(llm.Config{
		APIKey:      appConfig.AI.OpenAIKey,
		BaseURL:     appConfig.AI.BaseURL,
		Model:       appConfig.AI.OpenAIModel,
		Timeout:     appConfig.AI.Timeout,
		Temperature: appConfig.AI.Temperature,
		MaxTokens:   appConfig.AI.MaxTokens,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	interp := llm.NewInterpreter(client, appConfig.AI.OpenAIModel, appConfig.AI.MaxTokens)
	return interp, interp, interp, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := initDatabase(appConfig)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer db.Close()

	repo := postgres.NewReportRepository(db)

	interpreter, analyzer, suggester, err := buildInterpreters(appConfig)
	if err != nil {
		log.Fatalf("Failed to set up interpretation backend: %v", err)
	}

	pipeline := analysis.NewPipeline(repo, interpreter, analyzer, suggester, analysis.Options{
		ChunkSize:  appConfig.Analysis.ChunkSize,
		ChunkDelay: appConfig.Analysis.ChunkDelay,
		Workers:    appConfig.Analysis.Workers,
		Retry: retry.Policy{
			MaxAttempts: appConfig.Analysis.RetryAttempts,
			Backoff:     appConfig.Analysis.RetryBackoff,
		},
	})

	app := ui.NewApp(ui.Config{Port: appConfig.Server.Port}, repo, pipeline)
	if err := app.Start(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
