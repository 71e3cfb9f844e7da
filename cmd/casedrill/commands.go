package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/casedrill/internal/analysis"
	appI18n "github.com/pavelanni/casedrill/internal/i18n"
	"github.com/pavelanni/casedrill/internal/model"
	"github.com/pavelanni/casedrill/internal/recommend"
	"github.com/pavelanni/casedrill/internal/resources"
	"github.com/pavelanni/casedrill/internal/scoring"
	"github.com/pavelanni/casedrill/internal/store"
)

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "-", "Output file path (- for stdout)")
}

// writeJSON writes v as indented JSON to the --output file or stdout.
func writeJSON(v *viper.Viper, data any) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}

// readInput returns the contents of path, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func openStore(v *viper.Viper) (*store.Store, error) {
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func importFiles(db *store.Store, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := db.ImportProblems(path, data); err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
	}
	return nil
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import past exam problems from JSON files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			v := viperForCmd(cmd)
			db, err := openStore(v)
			if err != nil {
				return err
			}
			defer db.Close()
			return importFiles(db, args)
		},
	}
	cmd.Flags().String("db", "casedrill.db", "SQLite database path")
	addLogFlags(cmd)
	return cmd
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one answer against a question JSON file",
		RunE:  runScore,
	}
	f := cmd.Flags()
	f.StringP("question", "q", "", "Question JSON file (prompt, max_score, model_answer, keywords)")
	f.StringP("answer", "A", "", "Answer text")
	f.String("answer-file", "", "Read the answer from a file (- for stdin)")
	_ = cmd.MarkFlagRequired("question")
	addScoringFlags(cmd)
	addOutputFlag(cmd)
	addLogFlags(cmd)
	return cmd
}

func runScore(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	data, err := os.ReadFile(v.GetString("question"))
	if err != nil {
		return fmt.Errorf("read question: %w", err)
	}
	var q model.QuestionSpec
	if err := json.Unmarshal(data, &q); err != nil {
		return fmt.Errorf("parse question: %w", err)
	}

	answer := v.GetString("answer")
	if path := v.GetString("answer-file"); path != "" {
		raw, err := readInput(path)
		if err != nil {
			return fmt.Errorf("read answer: %w", err)
		}
		answer = string(raw)
	}

	cat, err := appI18n.New(v.GetString("lang"))
	if err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	engine := scoring.New(cat, scoring.WithWeights(weightsFromConfig(v)))
	return writeJSON(v, engine.ScoreAnswer(answer, q))
}

func recommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Generate learning plans for one or all learners",
		RunE:  runRecommend,
	}
	f := cmd.Flags()
	f.String("db", "casedrill.db", "SQLite database path")
	f.Int64P("user", "u", 0, "Learner ID")
	f.Bool("all", false, "Plan for every learner with recorded attempts")
	f.Int("workers", recommend.DefaultWorkers, "Concurrent plans when using --all")
	f.StringP("lang", "l", "ja", "Message language (ja, en)")
	addPlanFlags(cmd)
	addOutputFlag(cmd)
	addLogFlags(cmd)
	cmd.MarkFlagsOneRequired("user", "all")
	cmd.MarkFlagsMutuallyExclusive("user", "all")
	return cmd
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	lib, err := resources.Load(v.GetString("resources"))
	if err != nil {
		return fmt.Errorf("load resources: %w", err)
	}
	cat, err := appI18n.New(v.GetString("lang"))
	if err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = appI18n.WithCatalog(ctx, cat)

	svc := recommend.NewService(db, lib, limitsFromConfig(v))
	if !v.GetBool("all") {
		plan, err := svc.Plan(ctx, v.GetInt64("user"))
		if err != nil {
			return fmt.Errorf("generate plan: %w", err)
		}
		return writeJSON(v, plan)
	}

	users, err := db.ListUserIDs()
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	plans, err := recommend.NewBatchPlanner(svc, v.GetInt("workers")).PlanAll(ctx, users)
	if err != nil {
		return fmt.Errorf("generate plans: %w", err)
	}
	if plans == nil {
		plans = []model.LearningPlan{}
	}
	return writeJSON(v, plans)
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyse the past exam corpus and answers",
	}

	keywords := &cobra.Command{
		Use:   "keywords",
		Short: "Keyword cloud and TF-IDF themes over stored problems",
		RunE:  runAnalyzeKeywords,
	}
	f := keywords.Flags()
	f.String("db", "casedrill.db", "SQLite database path")
	f.Int("recent-years", 0, "Only use the most recent N years (0 = all)")
	f.Int("top-n", 40, "Keywords per cloud")
	f.Int("min-occurrence", 2, "Minimum keyword count")
	f.Int("theme-top-n", 8, "Themes per case")
	addOutputFlag(keywords)
	addLogFlags(keywords)

	types := &cobra.Command{
		Use:   "question-types",
		Short: "Question type frequency, sequences and a suggested learning order",
		RunE:  runAnalyzeQuestionTypes,
	}
	f = types.Flags()
	f.String("db", "casedrill.db", "SQLite database path")
	f.String("csv", "", "Question type history CSV (year,case,question_no,question_type); empty = stored problems")
	f.Int("recent-years", 3, "Only use the most recent N years (0 = all)")
	f.Int("min-sequence-count", analysis.DefaultMinSequenceCount, "Transitions needed to constrain the order")
	addOutputFlag(types)
	addLogFlags(types)

	scan := &cobra.Command{
		Use:   "scan [FILE]",
		Short: "Scan an answer for repetition, flat enumerations and missing connectives",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			v := viperForCmd(cmd)
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			text, err := readInput(path)
			if err != nil {
				return fmt.Errorf("read text: %w", err)
			}
			return writeJSON(v, analysis.Scan(string(text)))
		},
	}
	addOutputFlag(scan)
	addLogFlags(scan)

	cmd.AddCommand(keywords, types, scan)
	return cmd
}

func runAnalyzeKeywords(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	problems, err := db.ListProblems()
	if err != nil {
		return fmt.Errorf("list problems: %w", err)
	}
	insights := analysis.Insights(analysis.BuildCorpus(problems), analysis.InsightOptions{
		RecentYears:   v.GetInt("recent-years"),
		TopN:          v.GetInt("top-n"),
		MinOccurrence: v.GetInt("min-occurrence"),
		ThemeTopN:     v.GetInt("theme-top-n"),
	})
	return writeJSON(v, insights)
}

func runAnalyzeQuestionTypes(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	var records []analysis.QuestionTypeRecord
	if path := v.GetString("csv"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()
		if records, err = analysis.ParseQuestionTypes(f); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	} else {
		db, err := openStore(v)
		if err != nil {
			return err
		}
		defer db.Close()
		problems, err := db.ListProblems()
		if err != nil {
			return fmt.Errorf("list problems: %w", err)
		}
		records = analysis.RecordsFromProblems(problems)
	}
	if len(records) == 0 {
		return errors.New("no question type records")
	}

	recent := v.GetInt("recent-years")
	slog.Info("analysing question types", "records", len(records), "recent_years", recent)
	return writeJSON(v, map[string]any{
		"frequency":      analysis.ComputeFrequencyTable(records, recent),
		"sequences":      analysis.ComputeSequenceCounts(records, recent),
		"learning_order": analysis.LearningOrder(records, recent, v.GetInt("min-sequence-count")),
	})
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all attempts with their answers as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(cmd)
			v := viperForCmd(cmd)
			db, err := openStore(v)
			if err != nil {
				return err
			}
			defer db.Close()

			exports, err := db.ExportAttempts()
			if err != nil {
				return fmt.Errorf("export attempts: %w", err)
			}
			if exports == nil {
				exports = []model.AttemptExport{}
			}
			slog.Info("exported attempts", "count", len(exports))
			return writeJSON(v, exports)
		},
	}
	cmd.Flags().String("db", "casedrill.db", "SQLite database path")
	addOutputFlag(cmd)
	addLogFlags(cmd)
	return cmd
}
