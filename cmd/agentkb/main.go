package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/viant/agentkb/indexer"
	"github.com/viant/agentkb/schema"
	"github.com/viant/agentkb/service"
	"go.uber.org/zap"
)

func main() {
	startGops()
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "index":
		indexCmd(os.Args[2:])
	case "ask":
		askCmd(os.Args[2:])
	case "chat":
		chatCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: agentkb <command> [options]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  index   Build the knowledge-base collection from configured sources")
	fmt.Fprintln(os.Stderr, "  ask     Answer one question against the collection")
	fmt.Fprintln(os.Stderr, "  chat    Answer questions interactively from stdin")
}

func indexCmd(args []string) {
	flags := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := flags.String("config", "config.yaml", "config yaml path")
	rebuild := flags.Bool("rebuild", false, "rebuild even when a collection exists")
	tabular := flags.String("tabular", "", "extra tabular source directory")
	narrative := flags.String("narrative", "", "extra narrative source directory")
	flags.Parse(args)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, logger := newService(ctx, *configPath, func(cfg *service.Config) {
		if *rebuild {
			cfg.Rebuild = true
		}
		if *tabular != "" {
			cfg.Sources = append(cfg.Sources, indexer.Source{Location: *tabular, Kind: schema.KindTabular})
		}
		if *narrative != "" {
			cfg.Sources = append(cfg.Sources, indexer.Source{Location: *narrative, Kind: schema.KindNarrative})
		}
	})
	defer func() { _ = svc.Close() }()
	defer func() { _ = logger.Sync() }()

	if err := svc.BuildOrLoad(ctx); err != nil {
		log.Fatalf("index: %v", err)
	}
	count, err := svc.Index().Count(ctx)
	if err != nil {
		log.Fatalf("index: %v", err)
	}
	fmt.Printf("collection ready: %d chunks, model %s\n", count, svc.Index().Model())
}

func askCmd(args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := flags.String("config", "config.yaml", "config yaml path")
	question := flags.String("q", "", "question to answer (required)")
	asJSON := flags.Bool("json", false, "print the structured answer as JSON")
	flags.Parse(args)

	if strings.TrimSpace(*question) == "" {
		flags.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, logger := newService(ctx, *configPath, nil)
	defer func() { _ = svc.Close() }()
	defer func() { _ = logger.Sync() }()

	if err := svc.BuildOrLoad(ctx); err != nil {
		log.Fatalf("ask: %v", err)
	}
	result, err := svc.Ask(ctx, *question)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ask degraded: %v\n", err)
	}
	printResult(result, *asJSON)
}

func chatCmd(args []string) {
	flags := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := flags.String("config", "config.yaml", "config yaml path")
	flags.Parse(args)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, logger := newService(ctx, *configPath, nil)
	defer func() { _ = svc.Close() }()
	defer func() { _ = logger.Sync() }()

	if err := svc.BuildOrLoad(ctx); err != nil {
		log.Fatalf("chat: %v", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		question := strings.TrimSpace(scanner.Text())
		if question == "" || question == "exit" || question == "quit" {
			break
		}
		result, err := svc.Ask(ctx, question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "degraded: %v\n", err)
		}
		printResult(result, false)
		fmt.Print("> ")
	}
}

func newService(ctx context.Context, configPath string, adjust func(*service.Config)) (*service.Service, *zap.Logger) {
	cfg, err := service.LoadConfig(ctx, configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if adjust != nil {
		adjust(cfg)
	}
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	svc, err := service.New(cfg, service.WithLogger(logger))
	if err != nil {
		log.Fatalf("service init: %v", err)
	}
	return svc, logger
}

func printResult(result *service.Result, asJSON bool) {
	if asJSON {
		data, err := json.MarshalIndent(&result.Answer, "", "  ")
		if err != nil {
			log.Fatalf("encode answer: %v", err)
		}
		fmt.Println(string(data))
		return
	}
	fmt.Printf("Customer answer: %s\n\n", result.Answer.CustomerAnswer)
	if result.Answer.InternalNotes != "" {
		fmt.Printf("Internal notes: %s\n\n", result.Answer.InternalNotes)
	}
	if result.Answer.AgentSteps != "" {
		fmt.Printf("Agent steps: %s\n\n", result.Answer.AgentSteps)
	}
	if !result.Evidence.Empty() {
		fmt.Println("Evidence:")
		for i, hit := range result.Evidence {
			source := ""
			if hit.Meta != nil {
				source = hit.Meta.Source()
			}
			fmt.Printf("  %d. %s (%s, score %.2f)\n", i+1, hit.Chunk.ID(), source, hit.Score)
		}
	}
}

func startGops() {
	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		log.Printf("gops: %v", err)
	}
}
