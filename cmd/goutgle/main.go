package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"goutgle/internal/assistant"
	"goutgle/internal/backend"
	"goutgle/internal/cache"
	"goutgle/internal/config"
	"goutgle/internal/evidence"
	"goutgle/internal/knowledge"
	"goutgle/internal/media"
	"goutgle/internal/telemetry"
	"goutgle/internal/websearch"
)

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	flag.StringVar(&cfg.Backend, "backend", config.BackendOpenAI, "LLM backend (openai|ollama|anthropic)")
	flag.StringVar(&cfg.DataDir, "data", "data", "Directory holding part_*.json knowledge files")
	flag.BoolVar(&cfg.WebSearch, "web", false, "Enable web search context")
	flag.StringVar(&cfg.OllamaModel, "ollama-model", "llama3:latest", "Ollama model specification (format: model:version)")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	flag.Parse()
	cfg.FromEnv()

	logger, err := telemetry.InitLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize telemetry: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	db, err := telemetry.InitDB("goutgle.db")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	store := knowledge.Load(cfg.DataDir, logger)
	for _, w := range store.Warnings() {
		fmt.Printf("Attention : %s\n", w)
	}

	client := backend.NewClient(cfg, logger, tracer, meter)
	web := websearch.New(cfg, logger, tracer)
	extractor := media.NewExtractor(client, logger)
	assembler := evidence.NewAssembler(store, web, extractor, logger)
	responses := cache.New(db, logger)

	bot := assistant.New(cfg, assembler, client, responses, logger, tracer, meter)
	if err := bot.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
