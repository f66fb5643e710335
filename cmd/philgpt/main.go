package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slack-go/slack"

	"github.com/philbarbeau/philgpt/internal/config"
	"github.com/philbarbeau/philgpt/internal/gateway"
	"github.com/philbarbeau/philgpt/internal/names"
	"github.com/philbarbeau/philgpt/internal/openai"
	"github.com/philbarbeau/philgpt/internal/reply"
	"github.com/philbarbeau/philgpt/internal/schedule"
	"github.com/philbarbeau/philgpt/internal/slackbot"
)

const (
	randomPostMin = 24 * time.Hour
	randomPostMax = 3 * 24 * time.Hour

	// The first scheduled picture lands shortly after startup.
	firstPictureDelay = 2 * time.Minute
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("philgpt starting", "port", cfg.Port)

	if cfg.OpenAIAPIKey == "" {
		slog.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	if cfg.SlackBotToken == "" {
		slog.Error("SLACK_BOT_TOKEN is required")
		os.Exit(1)
	}
	if cfg.SigningSecret == "" {
		slog.Error("SLACK_SIGNING_SECRET is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := slack.New(cfg.SlackBotToken)

	resolver := names.NewResolver(api, slog.Default())
	resolver.SetAlias(cfg.BotAlias, cfg.Persona)

	llm := openai.NewClient(cfg.OpenAIAPIKey, cfg.CompletionModel, cfg.ChatModel)
	poster := slackbot.NewPoster(api, slog.Default())
	responder := reply.NewResponder(api, poster, llm, resolver, cfg.Persona, slog.Default())

	dispatcher := gateway.NewDispatcher(ctx, int64(cfg.ReplyWorkers), slog.Default())
	srv := gateway.NewServer(cfg.SigningSecret, dispatcher, responder, slog.Default())

	// Unprompted posting loops. The prompts carry a literal backslash-n
	// before the persona cue, matching the prompts the completion model was
	// tuned on.
	messageLoop := &schedule.Loop{
		Name:    "random-messages",
		Initial: schedule.Between(randomPostMin, randomPostMax),
		Min:     randomPostMin,
		Max:     randomPostMax,
		Logger:  slog.Default(),
		Fire: func(ctx context.Context) {
			prompt := fmt.Sprintf("What are you up to %s?\\n%s:", cfg.Persona, cfg.Persona)
			if err := responder.PostText(ctx, cfg.ScheduleChannel, prompt); err != nil {
				slog.Error("scheduled message failed", "error", err)
			}
		},
	}
	pictureLoop := &schedule.Loop{
		Name:    "random-pictures",
		Initial: firstPictureDelay,
		Min:     randomPostMin,
		Max:     randomPostMax,
		Logger:  slog.Default(),
		Fire: func(ctx context.Context) {
			prompt := fmt.Sprintf("Describe a cool scene %s\\n%s:", cfg.Persona, cfg.Persona)
			if err := responder.PostImage(ctx, cfg.ScheduleChannel, prompt, true); err != nil {
				slog.Error("scheduled picture failed", "error", err)
			}
		},
	}
	go messageLoop.Run(ctx)
	go pictureLoop.Run(ctx)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Handler(),
	}
	go func() {
		slog.Info("webhook server listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("shutdown incomplete", "error", err)
	}
	slog.Info("philgpt stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
