package main

import (
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

	"github.com/marketpulse/diagnostic/internal/catalog"
	"github.com/marketpulse/diagnostic/internal/flow"
	"github.com/marketpulse/diagnostic/internal/handler"
	appI18n "github.com/marketpulse/diagnostic/internal/i18n"
	"github.com/marketpulse/diagnostic/internal/model"
	"github.com/marketpulse/diagnostic/internal/session"
	"github.com/marketpulse/diagnostic/internal/store"
	"github.com/marketpulse/diagnostic/internal/webhook"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "diagnostic",
		Short: "Marketing maturity diagnostic service",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `diagnostic --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the diagnostic HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "diagnostic.db", "SQLite database path")
	f.StringP("lang", "l", "en", "UI language (en, es)")
	f.String("webhook-url", "", "Lead delivery webhook endpoint (empty disables delivery)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /diag)")
	f.Bool("secure-cookies", true, "Set Secure flag on client cookies")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored in-progress sessions as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "diagnostic.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
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

	v.SetEnvPrefix("DIAGNOSTIC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("diagnostic")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/diagnostic")
	v.AddConfigPath("/etc/diagnostic")
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

	// Open database.
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Load and validate the embedded catalog.
	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if err := checkCatalog(db, cat); err != nil {
		return fmt.Errorf("check catalog: %w", err)
	}

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Lead delivery webhook (optional).
	hook, err := webhook.New(v.GetString("webhook-url"))
	if err != nil {
		return fmt.Errorf("create webhook client: %w", err)
	}
	if hook == nil {
		slog.Info("lead delivery disabled: no webhook URL configured")
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.ServeConfig{
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
		WebhookURL:    v.GetString("webhook-url"),
		Lang:          lang,
	}

	sessions := session.New(db)
	manager := flow.NewManager(cat, sessions, hook)
	h := handler.New(manager, cat, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"questions", cat.Len(),
		"pillars", len(cat.Pillars()),
		"lang", lang,
		"base_path", basePath,
		"webhook", cfg.WebhookURL != "",
	)
	return http.ListenAndServe(addr, r)
}

// checkCatalog records the catalog fingerprint and warns when it changed
// while sessions are still stored: answers recorded against the old
// catalog may no longer line up with question positions.
func checkCatalog(db *store.Store, cat *catalog.Catalog) error {
	stored, err := db.GetMetadata(store.MetaCatalogChecksum)
	if err != nil {
		return err
	}
	if stored != "" && stored != cat.Checksum() {
		clients, err := db.ListClients()
		if err != nil {
			return err
		}
		if len(clients) > 0 {
			slog.Warn("catalog changed since sessions were stored",
				"stored_sessions", len(clients))
		}
	}
	return db.SetMetadata(store.MetaCatalogChecksum, cat.Checksum())
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	sessions, err := db.ExportAllSessions()
	if err != nil {
		return fmt.Errorf("export sessions: %w", err)
	}

	export := model.SessionExport{
		ExportedAt: time.Now().UTC(),
		Sessions:   sessions,
	}

	data, err := json.MarshalIndent(export, "", "  ")
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

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}
