package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/gradeboard/internal/analytics"
	"github.com/pavelanni/gradeboard/internal/export"
	"github.com/pavelanni/gradeboard/internal/handler"
	appI18n "github.com/pavelanni/gradeboard/internal/i18n"
	"github.com/pavelanni/gradeboard/internal/llm"
	"github.com/pavelanni/gradeboard/internal/llm/prompts"
	"github.com/pavelanni/gradeboard/internal/model"
	"github.com/pavelanni/gradeboard/internal/ocr"
	"github.com/pavelanni/gradeboard/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gradeboard",
		Short: "Classroom test grading and analytics server",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), reportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `gradeboard --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the grading HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "gradeboard.db", "SQLite database path")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name for answer verification")
	f.String("ocr-model", "llama3.2-vision", "Vision model name for text extraction")
	f.StringP("lang", "l", "en", "Server language (en, ru)")
	f.Float64("pass-threshold", analytics.DefaultPassThreshold, "Passing percentage")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("prompt-variant", string(prompts.PromptStandard), "Grading prompt variant (strict, standard, lenient)")
	f.Int64("max-image-bytes", 5<<20, "Maximum upload size for test images")
	f.String("admin-password", "", "Initial admin password (or set GRADEBOARD_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export graded results for a test",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "gradeboard.db", "SQLite database path")
	f.StringP("test", "t", "", "Test name (required)")
	f.String("format", "json", "Output format (json, csv, tsv)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("test")

	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the analytics snapshot for a test as JSON",
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.String("db", "gradeboard.db", "SQLite database path")
	f.StringP("test", "t", "", "Test name (required)")
	f.Float64("pass-threshold", analytics.DefaultPassThreshold, "Passing percentage")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("test")

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

	v.SetEnvPrefix("GRADEBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("gradeboard")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/gradeboard")
	v.AddConfigPath("/etc/gradeboard")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Seed default admin user if no users exist.
	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	if err := prompts.LoadEmbedded(); err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	promptVariant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(promptVariant) {
		slog.Warn("invalid prompt-variant, using standard", "variant", promptVariant)
		promptVariant = string(prompts.PromptStandard)
	}
	llmClient := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
		promptVariant,
	)
	if err := llmClient.Ping(cmd.Context()); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))

	ocrClient := ocr.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("ocr-model"),
	)

	cfg := model.ServerConfig{
		PassThreshold: v.GetFloat64("pass-threshold"),
		PromptVariant: promptVariant,
		SecureCookies: v.GetBool("secure-cookies"),
		MaxImageBytes: v.GetInt64("max-image-bytes"),
	}

	h := handler.New(db, llmClient, ocrClient, cfg)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go h.Maintain(ctx, time.Hour)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"ocr_model", v.GetString("ocr-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
		"pass_threshold", cfg.PassThreshold,
		"prompt_variant", promptVariant,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	testName := v.GetString("test")
	results, err := db.ListResultsByTest(testName)
	if err != nil {
		return fmt.Errorf("load results: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("no results found for test %q", testName)
	}

	w, closeFn, err := openOutput(v.GetString("output"))
	if err != nil {
		return err
	}
	defer closeFn()

	switch strings.ToLower(v.GetString("format")) {
	case "csv":
		return export.WriteGradesCSV(w, results)
	case "tsv":
		return export.WriteSheetsTSV(w, results)
	case "json":
		info, err := db.ClassInfo()
		if err != nil {
			return fmt.Errorf("load class info: %w", err)
		}
		out := model.ResultsExport{
			ClassName:  info.ClassName,
			TestName:   testName,
			ExportedAt: time.Now(),
			Results:    results,
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		_, _ = fmt.Fprintln(w)
		return nil
	default:
		return fmt.Errorf("unknown format %q (json, csv, tsv)", v.GetString("format"))
	}
}

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	testName := v.GetString("test")
	results, err := db.ListResultsByTest(testName)
	if err != nil {
		return fmt.Errorf("load results: %w", err)
	}

	snap := analytics.Analyze(results, v.GetFloat64("pass-threshold"))
	if snap == nil {
		return fmt.Errorf("no results found for test %q", testName)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or GRADEBOARD_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
