package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rachid48133/studygenie/internal/chromemdb"
	"github.com/rachid48133/studygenie/internal/db"
	"github.com/rachid48133/studygenie/internal/embedding"
	"github.com/rachid48133/studygenie/internal/helper"
	"github.com/rachid48133/studygenie/internal/rag"
	"github.com/rachid48133/studygenie/internal/store"
	"github.com/rachid48133/studygenie/internal/studytools"
)

const contentTopK = 30

var (
	flagCourseName string
	flagPlan       string
	flagLang       string
	flagTopK       int
	flagCards      int
	flagQuestions  int
	flagLength     string
	flagPages      int
	flagOut        string
	flagCompress   bool
	flagLimit      int
	flagFile       string
	flagK          int
)

var indexCmd = &cobra.Command{
	Use:   "index <file>",
	Short: "Extract, chunk and embed a course document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireCourse(); err != nil {
			return err
		}
		r, _, err := newPipeline(false)
		if err != nil {
			return err
		}
		stats, err := r.IndexCourse(cmd.Context(), flagUser, flagCourse, args[0], flagCourseName)
		if err != nil {
			return err
		}
		helper.PrettyPrint(stats)
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from an indexed course",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireCourse(); err != nil {
			return err
		}
		r, _, err := newPipeline(true)
		if err != nil {
			return err
		}
		res, err := r.Answer(cmd.Context(), rag.AnswerRequest{
			UserID:   flagUser,
			CourseID: flagCourse,
			Question: strings.Join(args, " "),
			Plan:     flagPlan,
			TopK:     flagTopK,
			Language: flagLang,
		})
		if err != nil {
			return err
		}

		history, closeDB, err := openHistory(cmd.Context())
		if err != nil {
			log.Warn().Err(err).Msg("Query history unavailable")
		} else {
			defer closeDB()
			if history != nil {
				if err := history.Save(cmd.Context(), flagUser, flagCourse, res); err != nil {
					log.Warn().Err(err).Msg("Failed to save query history")
				}
			}
		}

		helper.PrettyPrint(res)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete an indexed course and its history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireCourse(); err != nil {
			return err
		}
		if err := store.New(cfg.DataDir).Delete(flagUser, flagCourse); err != nil {
			return err
		}
		history, closeDB, err := openHistory(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()
		if history != nil {
			if err := history.Delete(cmd.Context(), flagUser, flagCourse); err != nil {
				return err
			}
		}
		log.Info().Str("course", flagCourse).Msg("Course deleted")
		return nil
	},
}

// studyContent loads the course material the study tools work from.
func studyContent(cmd *cobra.Command) (*studytools.Tools, string, error) {
	if err := requireCourse(); err != nil {
		return nil, "", err
	}
	r, gen, err := newPipeline(true)
	if err != nil {
		return nil, "", err
	}
	content, _, err := r.CourseContent(cmd.Context(), flagUser, flagCourse, flagLang, contentTopK)
	if err != nil {
		return nil, "", err
	}
	return studytools.New(gen, cfg.LLM), content, nil
}

var flashcardsCmd = &cobra.Command{
	Use:   "flashcards",
	Short: "Generate flashcards from a course",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tools, content, err := studyContent(cmd)
		if err != nil {
			return err
		}
		cards, err := tools.Flashcards(cmd.Context(), content, studytools.FlashcardCount(planOrDefault(), flagCards), flagLang, planOrDefault())
		if err != nil {
			return err
		}
		helper.PrettyPrint(cards)
		return nil
	},
}

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Generate a multiple choice quiz from a course",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tools, content, err := studyContent(cmd)
		if err != nil {
			return err
		}
		questions, err := tools.Quiz(cmd.Context(), content, studytools.QuizCount(planOrDefault(), flagQuestions), flagLang, planOrDefault())
		if err != nil {
			return err
		}
		helper.PrettyPrint(questions)
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize a course",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tools, content, err := studyContent(cmd)
		if err != nil {
			return err
		}
		length := studytools.SummaryLength(planOrDefault(), flagLength)
		summary, err := tools.Summary(cmd.Context(), content, length, flagPages, flagLang, planOrDefault())
		if err != nil {
			return err
		}
		fmt.Println(summary)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a course as a chromem-go collection file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireCourse(); err != nil {
			return err
		}
		r, _, err := newPipeline(false)
		if err != nil {
			return err
		}
		snap, err := r.Snapshot(flagUser, flagCourse)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(flagOut, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		key := cfg.RAG.EncryptionKey
		path := filepath.Join(flagOut, chromemdb.FileName(flagCourse, flagCompress, key != ""))
		n, err := chromemdb.ExportCourse(cmd.Context(), snap, flagCourse, path, key, flagCompress)
		if err != nil {
			return err
		}
		imported, err := chromemdb.ImportCount(path, key, flagCourse)
		if err != nil {
			return fmt.Errorf("failed to verify export: %w", err)
		}
		if imported != n {
			return fmt.Errorf("export verification failed: wrote %d documents, read back %d", n, imported)
		}
		log.Info().Str("file", path).Int("documents", n).Int("skipped", len(snap.Chunks)-n).Msg("Course exported")
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the questions asked about a course",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireCourse(); err != nil {
			return err
		}
		history, closeDB, err := openHistory(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()
		if history == nil {
			return fmt.Errorf("query history requires database.dsn in %s", flagConfig)
		}
		records, err := history.List(cmd.Context(), flagUser, flagCourse, flagLimit)
		if err != nil {
			return err
		}
		printHistory(records)
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the metadata of an indexed course",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireCourse(); err != nil {
			return err
		}
		r, _, err := newPipeline(false)
		if err != nil {
			return err
		}
		meta, err := r.Metadata(flagUser, flagCourse)
		if err != nil {
			return err
		}
		helper.PrettyPrint(meta)
		return nil
	},
}

var searchExportCmd = &cobra.Command{
	Use:   "search-export <query>",
	Short: "Search a course exported with the export command",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireCourse(); err != nil {
			return err
		}
		provider, err := embedding.NewProvider(cfg.Embedding)
		if err != nil {
			return fmt.Errorf("failed to initialize embedder: %w", err)
		}
		query, err := embedding.NewService(provider, cfg.Embedding).EmbedQuery(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		path := flagFile
		if path == "" {
			path = filepath.Join(flagOut, chromemdb.FileName(flagCourse, flagCompress, cfg.RAG.EncryptionKey != ""))
		}
		results, err := chromemdb.Search(cmd.Context(), path, cfg.RAG.EncryptionKey, flagCourse, query, flagK)
		if err != nil {
			return err
		}
		printExportResults(results)
		return nil
	},
}

func printExportResults(results []chromem.Result) {
	for _, r := range results {
		where := "N/A"
		if p, ok := r.Metadata[chromemdb.MetaPage]; ok {
			where = "Page " + p
		} else if s, ok := r.Metadata[chromemdb.MetaSlide]; ok {
			where = "Slide " + s
		}
		fmt.Printf("[%s] %s (similarity %.3f)\n%s\n\n", r.ID, where, r.Similarity, helper.Truncate(r.Content, 300))
	}
}

func printHistory(records []db.QueryRecord) {
	for _, r := range records {
		fmt.Printf("[%s] (%.0f%%) %s\n%s\n\n", r.CreatedAt.Format("2006-01-02 15:04"), r.Confidence*100, r.Question, helper.Truncate(r.Answer, 300))
	}
}

func planOrDefault() string {
	if flagPlan == "" {
		return cfg.LLM.DefaultPlan
	}
	return flagPlan
}

func init() {
	indexCmd.Flags().StringVar(&flagCourseName, "name", "", "course name used to scope answers")

	for _, c := range []*cobra.Command{askCmd, flashcardsCmd, quizCmd, summaryCmd} {
		c.Flags().StringVar(&flagPlan, "plan", "", "subscription plan selecting the model")
		c.Flags().StringVar(&flagLang, "lang", "", "output language (fr or en)")
	}
	askCmd.Flags().IntVar(&flagTopK, "top-k", 0, "number of chunks to retrieve")
	flashcardsCmd.Flags().IntVar(&flagCards, "count", 10, "number of flashcards")
	quizCmd.Flags().IntVar(&flagQuestions, "count", 5, "number of questions")
	summaryCmd.Flags().StringVar(&flagLength, "length", "medium", "summary length: short, medium or long")
	summaryCmd.Flags().IntVar(&flagPages, "pages", 0, "target length in pages")
	for _, c := range []*cobra.Command{exportCmd, searchExportCmd} {
		c.Flags().StringVar(&flagOut, "out", "./export", "export directory")
		c.Flags().BoolVar(&flagCompress, "compress", false, "gzip the exported file")
	}
	searchExportCmd.Flags().StringVar(&flagFile, "file", "", "exported file (defaults to the course export in --out)")
	searchExportCmd.Flags().IntVar(&flagK, "k", 5, "number of results")
	historyCmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum number of entries")

	rootCmd.AddCommand(indexCmd, askCmd, deleteCmd, flashcardsCmd, quizCmd, summaryCmd, exportCmd, searchExportCmd, infoCmd, historyCmd)
}
