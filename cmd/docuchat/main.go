package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ternarybob/arbor"

	"github.com/docuchat/docuchat/internal/app"
	"github.com/docuchat/docuchat/internal/common"
	"github.com/docuchat/docuchat/internal/interfaces"
)

// configPaths allows repeatable -config flags; files are applied in order,
// later files overriding earlier ones.
type configPaths []string

func (c *configPaths) String() string {
	return strings.Join(*c, ",")
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFlag  configPaths
	userID      = flag.String("user", "default", "User identifier scoping the vector collection and memory")
	topK        = flag.Int("topk", 0, "Number of chunks surfaced to generation (overrides config)")
	persona     = flag.String("persona", "", "Answer persona (overrides config)")
	noMemory    = flag.Bool("no-memory", false, "Disable conversational memory context")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func init() {
	flag.Var(&configFlag, "config", "Path to TOML config file (repeatable)")
	flag.Var(&configFlag, "c", "Path to TOML config file (repeatable, shorthand)")
	flag.BoolVar(showVersion, "v", false, "Print version and exit (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(common.GetFullVersion())
		os.Exit(0)
	}

	// Best-effort .env load; API keys usually arrive this way in development.
	_ = godotenv.Load()

	configFiles := []string(configFlag)
	if len(configFiles) == 0 {
		if _, err := os.Stat("docuchat.toml"); err == nil {
			configFiles = append(configFiles, "docuchat.toml")
		}
	}

	// Startup order: config (defaults -> files -> env), CLI overrides,
	// logger, banner, application.
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *persona, *topK)

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Debug().
		Str("storage_backend", config.Storage.Backend).
		Str("qdrant_url", config.Qdrant.URL).
		Str("default_provider", string(config.LLM.DefaultProvider)).
		Str("persona", config.Answer.Persona).
		Int("top_k", config.Retrieval.TopK).
		Msg("Resolved configuration (sanitized)")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" {
		query = readQueryFromStdin()
	}
	if query == "" {
		logger.Fatal().Msg("No query provided (pass it as arguments or on stdin)")
		os.Exit(1)
	}

	opts := &interfaces.AnswerOptions{TopK: *topK}
	if *noMemory {
		useMemory := false
		opts.UseMemory = &useMemory
	}

	result, err := application.AnswerService.Answer(context.Background(), *userID, query, opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("Answer request rejected")
		os.Exit(1)
	}

	fmt.Println(result.Answer)
	if len(result.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, source := range result.Sources {
			fmt.Printf("  - %s\n", source)
		}
	}

	logger.Info().
		Bool("greeting", result.Diagnostics.Greeting).
		Bool("hyde_used", result.Diagnostics.HydeUsed).
		Bool("rerank_applied", result.Diagnostics.RerankApplied).
		Int("fused_count", result.Diagnostics.FusedCount).
		Int("memory_items", result.Diagnostics.MemoryItems).
		Str("model", result.Diagnostics.Model).
		Msg("Answer produced")
}

func readQueryFromStdin() string {
	info, err := os.Stdin.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice != 0 {
		return ""
	}
	var lines []string
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
