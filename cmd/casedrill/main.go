package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/casedrill/internal/handler"
	appI18n "github.com/pavelanni/casedrill/internal/i18n"
	"github.com/pavelanni/casedrill/internal/model"
	"github.com/pavelanni/casedrill/internal/resources"
	"github.com/pavelanni/casedrill/internal/scoring"
	"github.com/pavelanni/casedrill/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "casedrill",
		Short: "Self-study scoring and recommendations for the 中小企業診断士 case exam",
	}

	serve := serveCmd()
	root.AddCommand(serve, importCmd(), scoreCmd(), recommendCmd(), analyzeCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `casedrill --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addScoringFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("lang", "l", "ja", "Feedback language (ja, en)")
	f.Float64("weight-keyword", scoring.DefaultWeights.Keyword, "Weight of the keyword criterion")
	f.Float64("weight-structure", scoring.DefaultWeights.Structure, "Weight of the structure criterion")
	f.Float64("weight-clarity", scoring.DefaultWeights.Clarity, "Weight of the clarity criterion")
}

func addPlanFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("resources", "", "YAML resource library (empty = built-in)")
	f.Int("problem-limit", model.DefaultPlanLimit, "Maximum problem recommendations")
	f.Int("question-limit", model.DefaultPlanLimit, "Maximum question recommendations")
	f.Int("resource-limit", model.DefaultPlanLimit, "Maximum resource recommendations")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP JSON API",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "casedrill.db", "SQLite database path")
	f.StringSliceP("problems", "p", nil, "Problems JSON files to import at startup (repeatable)")
	f.StringSlice("cors-origins", nil, "Allowed CORS origins (empty disables CORS)")
	f.String("admin-token", "", "Bearer token for /api/admin routes (or set CASEDRILL_ADMIN_TOKEN)")
	addScoringFlags(cmd)
	addPlanFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("CASEDRILL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("casedrill")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/casedrill")
	v.AddConfigPath("/etc/casedrill")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func weightsFromConfig(v *viper.Viper) scoring.Weights {
	return scoring.Weights{
		Keyword:   v.GetFloat64("weight-keyword"),
		Structure: v.GetFloat64("weight-structure"),
		Clarity:   v.GetFloat64("weight-clarity"),
	}
}

func limitsFromConfig(v *viper.Viper) model.PlanLimits {
	return model.PlanLimits{
		Problems:  v.GetInt("problem-limit"),
		Questions: v.GetInt("question-limit"),
		Resources: v.GetInt("resource-limit"),
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := importFiles(db, v.GetStringSlice("problems")); err != nil {
		return fmt.Errorf("load problems: %w", err)
	}

	lang := v.GetString("lang")
	if _, err := appI18n.New(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	lib, err := resources.Load(v.GetString("resources"))
	if err != nil {
		return fmt.Errorf("load resources: %w", err)
	}

	h, err := handler.New(db, handler.Config{
		Weights:    weightsFromConfig(v),
		Library:    lib,
		Limits:     limitsFromConfig(v),
		AdminToken: v.GetString("admin-token"),
	})
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	origins := v.GetStringSlice("cors-origins")
	if len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	if v.GetString("admin-token") == "" {
		slog.Warn("admin routes are not protected; set --admin-token")
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"lang", lang,
		"cors_origins", origins,
		"resources", v.GetString("resources"),
	)
	return http.ListenAndServe(addr, r)
}
