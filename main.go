package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ikmalsaid/mindful-agents/internal/api"
	"github.com/ikmalsaid/mindful-agents/internal/config"
	"github.com/ikmalsaid/mindful-agents/internal/observability"
	"github.com/ikmalsaid/mindful-agents/internal/preset"
	"github.com/ikmalsaid/mindful-agents/internal/session"
	"github.com/ikmalsaid/mindful-agents/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := observability.Logger()

	// Overlay .env values onto the environment before flags read defaults.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env file", "error", err)
	}

	cfg, serve, addr := parseFlags()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	presets, err := preset.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Preset error: %v\n", err)
		os.Exit(1)
	}

	engine, err := session.New(cfg, presets, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Startup error: %v\n", err)
		os.Exit(1)
	}

	if serve {
		runServer(ctx, engine, addr, logger)
		return
	}

	agent := cfg.Agent
	if cfg.Instruction != "" {
		agent = preset.AgentCustom
	}
	if err := ui.Run(ctx, engine, cfg.Model, agent); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "UI error: %v\n", err)
		os.Exit(1)
	}
}

// runServer hosts the REST façade until the context is cancelled. No image
// generator backend is wired here; the passthrough endpoint reports
// unavailable until one is.
func runServer(ctx context.Context, engine *session.Engine, addr string, logger *slog.Logger) {
	server := &http.Server{
		Addr:    addr,
		Handler: api.NewRouter(engine, nil, logger),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("starting API server", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// parseFlags builds the configuration from command-line flags with env
// fallbacks for the save location.
func parseFlags() (*config.Config, bool, string) {
	cfg := config.New()
	if saveTo := os.Getenv("MINDFUL_SAVE_TO"); saveTo != "" {
		cfg.SaveTo = saveTo
	}

	flag.StringVar(&cfg.Model, "model", cfg.Model, "Model name (omni, mod1, mod2)")
	flag.StringVar(&cfg.Agent, "agent", cfg.Agent, "Agent name (default, vision, prompt, caption, custom)")
	flag.StringVar(&cfg.Instruction, "instruction", cfg.Instruction, "Custom system prompt (forces the custom agent)")
	flag.StringVar(&cfg.SaveTo, "save-to", cfg.SaveTo, "Directory to save chat history")
	flag.StringVar(&cfg.SaveAs, "save-as", cfg.SaveAs, "History export format (json, txt, md)")

	timeoutSeconds := flag.Int("timeout", 60, "Completion request timeout in seconds")
	serve := flag.Bool("serve", false, "Run the REST API server instead of the interactive chat")
	addr := flag.String("addr", ":5754", "API server listen address (with -serve)")

	flag.Parse()

	cfg.Timeout = time.Duration(*timeoutSeconds) * time.Second
	return cfg, *serve, *addr
}
