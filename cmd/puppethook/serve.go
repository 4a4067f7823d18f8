package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"puppethook/internal/auth"
	"puppethook/internal/config"
	"puppethook/internal/dispatch"
	"puppethook/internal/filter"
	"puppethook/internal/report"
	"puppethook/internal/rpc"
	"puppethook/internal/security"
	"puppethook/internal/server"
	"puppethook/internal/store"
	"puppethook/internal/webhook"
	"puppethook/pkg/fileutil"

	"github.com/spf13/cobra"
)

const configFileName = "puppethook.yaml"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long: `Start the HTTP server to receive repository webhooks.

POST /payload deploys the environment named by the pushed branch, POST /module
deploys the module named by the repository. Every flag can also be set through
the environment, e.g. PUPPETHOOK_PORT=8088.`,
	RunE: runServe,
}

func init() {
	// Flags for serve command
	serveCmd.Flags().String("log", "./puppethook.log", "Path to log file")
	serveCmd.Flags().String("host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().IntP("port", "p", 8088, "Port to listen on")
	serveCmd.Flags().Bool("test-mode", false, "Enable test mode (no rate limits)")
}

func runServe(cmd *cobra.Command, args []string) error {
	v, err := settings(cmd)
	if err != nil {
		return err
	}

	configFile, err := resolveConfigFile(v.GetString("config"))
	if err != nil {
		return err
	}

	// Set up logging
	logger, logFileHandle, err := setupLogging(v.GetString("log"))
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logFileHandle.Close()

	logger.Info("Starting puppethook", "version", version)

	// Load configuration
	logger.Info("Loading configuration", "config", configFile)
	cfg, err := config.Load(configFile)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := security.ValidateSecurePermissions(configFile); err != nil {
		logger.Warn("Configuration file permissions are too open", "error", err)
	}
	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	// Initialize dispatch store
	dbPath := v.GetString("db")
	logger.Info("Initializing dispatch store", "db", dbPath)
	db, err := openStore(dbPath)
	if err != nil {
		logger.Error("Failed to initialize dispatch store", "error", err)
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, err := buildOrchestrator(ctx, cfg, db, logger)
	if err != nil {
		logger.Error("Failed to build webhook handler", "error", err)
		return err
	}

	logger.Info("Configuration validated successfully",
		"dispatch_mode", cfg.DispatchMode,
		"protected", cfg.IsProtected(),
		"auth_strategies", cfg.AuthStrategies)

	// Create and run server until a signal arrives
	srv := server.NewServer(cfg, orch, db, logger, v.GetBool("test-mode"))
	if err := srv.Run(ctx, v.GetString("host"), v.GetInt("port")); err != nil {
		logger.Error("Server failed", "error", err)
		return err
	}

	logger.Info("Server stopped")
	return nil
}

func resolveConfigFile(configFile string) (string, error) {
	if configFile != "" {
		return configFile, nil
	}

	// Search in default locations using pkg/fileutil
	searchPaths := fileutil.DefaultConfigPaths(configFileName)
	configFile = fileutil.SearchPathsOptional(searchPaths)
	if configFile == "" {
		fmt.Fprintf(os.Stderr, "Error: No configuration file found in default locations:\n")
		for _, path := range searchPaths {
			fmt.Fprintf(os.Stderr, "  - %s\n", path)
		}
		fmt.Fprintf(os.Stderr, "Use --config flag or PUPPETHOOK_CONFIG to specify a custom location\n")
		return "", fmt.Errorf("configuration file not found")
	}
	return configFile, nil
}

func openStore(dbPath string) (*store.Store, error) {
	if err := fileutil.EnsureParentDir(dbPath, security.PermDirectory); err != nil {
		return nil, err
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dispatch store: %w", err)
	}
	return db, nil
}

// buildOrchestrator wires the pipeline stages selected by cfg.
func buildOrchestrator(ctx context.Context, cfg *config.Config, db *store.Store, logger *slog.Logger) (*webhook.Orchestrator, error) {
	var chain *auth.Chain
	if cfg.IsProtected() {
		var err error
		chain, err = auth.FromConfig(cfg, db, logger)
		if err != nil {
			return nil, err
		}
	}

	f, err := filter.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	var invoker rpc.Invoker
	if cfg.DispatchMode == config.ModeRPC {
		client, err := rpc.NewClient(cfg.RPC.URL, cfg.RPC.Token, logger)
		if err != nil {
			return nil, err
		}
		invoker = client
	}

	executor, err := dispatch.New(cfg, invoker, logger)
	if err != nil {
		return nil, err
	}

	reporter, err := buildReporter(ctx, cfg, db, logger)
	if err != nil {
		return nil, err
	}

	return webhook.New(webhook.Options{
		Config:   cfg,
		Auth:     chain,
		Filter:   f,
		Executor: executor,
		Reporter: reporter,
		Logger:   logger,
	})
}

func buildReporter(ctx context.Context, cfg *config.Config, db *store.Store, logger *slog.Logger) (*report.Reporter, error) {
	sinks := []report.Sink{report.NewHistorySink(db)}

	if cfg.SlackWebhook != "" {
		slack, err := report.NewSlackNotifier(report.SlackOptions{
			WebhookURL: cfg.SlackWebhook,
			ProxyURL:   cfg.SlackProxyURL,
			Channel:    cfg.SlackChannel,
			Username:   cfg.SlackUsername,
			IconEmoji:  cfg.SlackIcon,
		}, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, slack)
	}

	if cfg.GitHubToken != "" {
		sinks = append(sinks, report.NewGitHubStatusNotifier(report.NewGitHubClient(ctx, cfg.GitHubToken), logger))
	}

	reporter := report.NewReporter(logger, sinks...)
	logger.Info("Status reporting enabled", "sinks", reporter.Sinks())
	return reporter, nil
}

// setupLogging configures slog for file logging
// Returns both the logger and the file handle (caller must close the file)
func setupLogging(logPath string) (*slog.Logger, *os.File, error) {
	// Create log directory if needed
	if err := fileutil.EnsureParentDir(logPath, security.PermDirectory); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Open log file with secure permissions
	file, err := security.OpenAppendFile(logPath, security.PermLogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	// Create multi-writer to log to both file and console
	multiWriter := io.MultiWriter(os.Stdout, file)

	// Create JSON handler for structured logging
	handler := slog.NewJSONHandler(multiWriter, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	logger := slog.New(handler)

	return logger, file, nil
}
