package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/ksmt/ava/internal/types"
	cfgPkg "github.com/ksmt/ava/pkg/config"
	"github.com/ksmt/ava/pkg/history"
	"github.com/ksmt/ava/pkg/knowledge"
	"github.com/ksmt/ava/pkg/llm"
	"github.com/ksmt/ava/pkg/orchestrator"
	"github.com/ksmt/ava/pkg/search"
	"github.com/ksmt/ava/pkg/watcher"
	"github.com/ksmt/ava/server"
)

type flags struct {
	configPath string
	cli        bool
	seed       bool
}

func main() {
	f := parseFlags()

	if err := run(f); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.BoolVar(&f.cli, "cli", false, "Run an interactive chat instead of the HTTP server")
	flag.BoolVar(&f.seed, "seed", true, "Seed the knowledge base with starter documents when empty")
	flag.Parse()

	return f
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(f flags) error {
	cfg, err := cfgPkg.LoadConfig(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Printf("config error: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	// Embedder is optional: without it the knowledge base runs in
	// lexical mode.
	var embedder types.Embedder
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.LLM.EmbedModel,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		log.Printf("embedder unavailable, knowledge base degrades to lexical matching: %v", err)
	} else {
		embedder = emb
	}

	kb, closeKB, err := buildKnowledgeBase(cfg, embedder)
	if err != nil {
		return err
	}
	defer closeKB()

	store, err := buildHistoryStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	writer := history.NewWriter(store, cfg.History.QueueSize, 5*time.Second)
	defer writer.Close()

	provider := search.NewWithConfig(search.ProviderConfig{
		BaseURL:    cfg.Search.BaseURL,
		RateLimit:  cfg.Search.RateLimit,
		MaxResults: cfg.Search.MaxResults,
		Timeout:    time.Duration(cfg.Search.TimeoutSec) * time.Second,
	})

	var composer types.Composer
	if cfg.LLM.Compose {
		c, err := llm.NewComposerWithConfig(llm.ComposerConfig{
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			BaseURL:     cfg.LLM.BaseURL,
		})
		if err != nil {
			log.Printf("composer unavailable, using template answers: %v", err)
		} else {
			composer = c
		}
	}

	orch, err := orchestrator.NewWithConfig(orchestrator.Options{
		KnowledgeBase:  kb,
		SearchProvider: provider,
		History:        store,
		Writer:         writer,
		Composer:       composer,
	}, types.OrchestratorConfig{
		SimilarityThreshold: cfg.Knowledge.SimilarityThreshold,
		TopK:                cfg.Knowledge.TopK,
		SearchTimeout:       time.Duration(cfg.Search.TimeoutSec) * time.Second,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if f.seed {
		bar := getProgressBar(len(knowledge.SampleDocuments()), "Seeding knowledge base...")
		seeded, err := knowledge.Seed(ctx, kb, func() { bar.Add(1) })
		if err != nil {
			return fmt.Errorf("failed to seed knowledge base: %v", err)
		}
		bar.Finish()
		if seeded > 0 {
			color.Green("\n✓ Seeded %d starter documents\n", seeded)
		}
	}

	if cfg.Knowledge.SeedDir != "" {
		seeded, err := knowledge.SeedFromDir(ctx, kb, cfg.Knowledge.SeedDir, nil)
		if err != nil {
			return fmt.Errorf("failed to seed from %s: %v", cfg.Knowledge.SeedDir, err)
		}
		log.Printf("ingested %d documents from %s", seeded, cfg.Knowledge.SeedDir)
	}

	if cfg.Knowledge.WatchDir != "" {
		w, err := watcher.New(kb)
		if err != nil {
			return fmt.Errorf("failed to initialize watcher: %v", err)
		}
		defer w.Stop()
		if err := w.Watch(ctx, cfg.Knowledge.WatchDir); err != nil {
			return fmt.Errorf("failed to watch %s: %v", cfg.Knowledge.WatchDir, err)
		}
		log.Printf("watching %s for knowledge documents", cfg.Knowledge.WatchDir)
	}

	if f.cli {
		return chatLoop(ctx, orch)
	}

	srv := server.New(server.Options{
		Orchestrator:   orch,
		KnowledgeBase:  kb,
		SearchProvider: provider,
		History:        store,
	})
	return srv.Start(cfg.Server.Port)
}

func buildKnowledgeBase(cfg *cfgPkg.Config, embedder types.Embedder) (types.KnowledgeBase, func(), error) {
	if cfg.Knowledge.DatabaseURL != "" {
		if embedder == nil {
			return nil, nil, fmt.Errorf("the database-backed knowledge base requires a reachable embedder")
		}
		pg, err := knowledge.NewPgStore(embedder, knowledge.PgStoreConfig{
			ConnString:   cfg.Knowledge.DatabaseURL,
			TableName:    cfg.Knowledge.TableName,
			VectorDim:    cfg.Knowledge.VectorDim,
			ChunkSize:    cfg.Knowledge.ChunkSize,
			ChunkOverlap: cfg.Knowledge.ChunkOverlap,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize knowledge base: %v", err)
		}
		return pg, pg.Close, nil
	}

	mem := knowledge.NewMemoryStore(embedder, knowledge.StoreConfig{
		ChunkSize:    cfg.Knowledge.ChunkSize,
		ChunkOverlap: cfg.Knowledge.ChunkOverlap,
	})
	return mem, func() {}, nil
}

func buildHistoryStore(cfg *cfgPkg.Config) (types.HistoryStore, error) {
	if cfg.History.Backend == "bolt" {
		store, err := history.NewBoltStore(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open history store: %v", err)
		}
		return store, nil
	}
	return history.NewMemoryStore(), nil
}

func chatLoop(ctx context.Context, orch *orchestrator.Orchestrator) error {
	color.Cyan("\nChat with ava (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	chatID := ""

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := scanner.Text()
		if strings.ToLower(query) == "exit" {
			break
		}

		reply := orch.Handle(ctx, query, chatID)
		chatID = reply.ChatID

		assistantPrompt("\nAssistant: %s\n", reply.Response)
		color.Yellow("[source: %s]\n", reply.Source)
	}

	return scanner.Err()
}
