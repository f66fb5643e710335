// Command extract walks an exported Slack workspace dump and writes
// prompt/completion training pairs for the persona completion model as JSON
// Lines, reporting how many examples were accepted and the projected
// fine-tuning cost.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/slack-go/slack"

	"github.com/philbarbeau/philgpt/internal/config"
	"github.com/philbarbeau/philgpt/internal/export"
	"github.com/philbarbeau/philgpt/internal/names"
)

func main() {
	exportDir := flag.String("export", "../slack", "root of the Slack export (one directory per channel)")
	outPath := flag.String("out", "payload.jsonl", "output JSON Lines file")
	channels := flag.String("channels", "general,random", "comma-separated channels to extract from")
	flag.Parse()

	if err := run(*exportDir, *outPath, strings.Split(*channels, ",")); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(exportDir, outPath string, channels []string) error {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if cfg.SlackBotToken == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN is required for name resolution")
	}
	if cfg.TargetUser == "" {
		return fmt.Errorf("PHIL_USERNAME is required")
	}

	api := slack.New(cfg.SlackBotToken)
	resolver := names.NewResolver(api, logger)

	counter, err := export.NewTiktokenCounter()
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	ext := export.New(resolver, cfg.TargetUser, cfg.Persona, channels, counter, logger)
	sum, err := ext.Run(context.Background(), exportDir, out)
	if err != nil {
		return err
	}

	fmt.Printf("%d\n", sum.Examples)
	fmt.Printf("Estimated cost: %g\n", sum.EstimatedCost())
	return nil
}
