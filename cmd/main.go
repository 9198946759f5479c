package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rachid48133/studygenie/internal/config"
	"github.com/rachid48133/studygenie/internal/db"
	"github.com/rachid48133/studygenie/internal/embedding"
	"github.com/rachid48133/studygenie/internal/helper"
	"github.com/rachid48133/studygenie/internal/llmservice"
	"github.com/rachid48133/studygenie/internal/rag"
	"github.com/rachid48133/studygenie/internal/store"
)

const (
	configFilePath = "./configs/config.yaml"
	defaultUser    = "local"
)

var (
	flagConfig string
	flagUser   string
	flagCourse string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "studygenie",
	Short:         "Course-grounded question answering and study aids",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(flagConfig)
		if err != nil {
			return err
		}
		helper.SetupLogger(cfg.Log.Level, cfg.Log.Pretty)
		log.Debug().Interface("config", cfg).Msg("Loaded config")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", configFilePath, "path to the YAML config")
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", defaultUser, "owner of the course")
	rootCmd.PersistentFlags().StringVar(&flagCourse, "course", "", "course identifier")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func requireCourse() error {
	if flagCourse == "" {
		return errors.New("--course is required")
	}
	return nil
}

func newGenerator() (llmservice.Generator, error) {
	model, err := llmservice.NewModel(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm: %w", err)
	}
	return llmservice.NewLangChain(model), nil
}

// newPipeline wires the course pipeline. The generator is only created
// when withLLM is set, so indexing works without a model API key.
func newPipeline(withLLM bool) (*rag.RAG, llmservice.Generator, error) {
	provider, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	var gen llmservice.Generator
	if withLLM {
		if gen, err = newGenerator(); err != nil {
			return nil, nil, err
		}
	}

	r, err := rag.NewRAG(store.New(cfg.DataDir), embedding.NewService(provider, cfg.Embedding), gen, cfg)
	if err != nil {
		return nil, nil, err
	}
	return r, gen, nil
}

// openHistory connects the query history when a database is configured.
// It returns a nil history otherwise.
func openHistory(ctx context.Context) (*db.History, func(), error) {
	if cfg.Database.DSN == "" {
		return nil, func() {}, nil
	}
	sqldb, err := db.ConnectDB(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	bunDB := db.NewDB(sqldb, cfg.Database.Debug)
	if err := db.InitDB(ctx, bunDB); err != nil {
		bunDB.Close()
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db.NewHistory(bunDB), func() { bunDB.Close() }, nil
}
