// cmd/tools/dlq-replay/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"loan-prequal/internal/common/config"
	"loan-prequal/internal/common/logger"
	"loan-prequal/internal/common/messaging"
	"loan-prequal/internal/common/stage"
)

func main() {
	replayCmd := flag.NewFlagSet("replay", flag.ExitOnError)
	inspectCmd := flag.NewFlagSet("inspect", flag.ExitOnError)

	opts := map[*flag.FlagSet]*cliOptions{
		replayCmd:  registerFlags(replayCmd),
		inspectCmd: registerFlags(inspectCmd),
	}

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var (
		fs     *flag.FlagSet
		dryRun bool
	)
	switch os.Args[1] {
	case "replay":
		fs = replayCmd
	case "inspect":
		fs = inspectCmd
		dryRun = true
	case "help":
		help()
		return
	default:
		help()
		os.Exit(1)
	}
	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(1)
	}

	res, err := run(opts[fs], dryRun)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("scanned=%d replayed=%d skipped=%d dryRun=%t\n", res.Scanned, res.Replayed, res.Skipped, dryRun)
}

type cliOptions struct {
	brokers  *string
	topic    *string
	group    *string
	codes    *string
	service  *string
	max      *int
	idle     *time.Duration
	logLevel *string
}

func registerFlags(fs *flag.FlagSet) *cliOptions {
	defaultBrokers := os.Getenv("KAFKA_BOOTSTRAP_SERVERS")
	if defaultBrokers == "" {
		defaultBrokers = "localhost:9092"
	}
	return &cliOptions{
		brokers:  fs.String("brokers", defaultBrokers, "Comma-separated Kafka brokers"),
		topic:    fs.String("topic", "loan_processing_dlq", "Dead-letter topic"),
		group:    fs.String("group", "dlq-replay", "Consumer group that tracks replay progress"),
		codes:    fs.String("codes", strings.Join(stage.DefaultReplayCodes, ","), "Comma-separated error codes to replay"),
		service:  fs.String("service", "", "Only replay entries from this service (credit-service, decision-service)"),
		max:      fs.Int("max", 0, "Stop after scanning this many entries (0 = until idle)"),
		idle:     fs.Duration("idle", 10*time.Second, "Stop when no entry arrives for this long"),
		logLevel: fs.String("log-level", "info", "Log level"),
	}
}

func run(o *cliOptions, dryRun bool) (stage.ReplayResult, error) {
	zapLog, err := logger.New(logger.Options{Level: *o.logLevel, Format: "console", Service: "dlq-replay"})
	if err != nil {
		return stage.ReplayResult{}, err
	}
	defer func() { _ = zapLog.Sync() }()
	log := logger.NewZapAdapter(zapLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kcfg := config.KafkaConfig{
		Brokers:  strings.Split(*o.brokers, ","),
		Producer: config.ProducerConfig{MaxAttempts: 3, RetryBackoff: 100, Compression: "gzip"},
		Consumer: config.ConsumerConfig{StartOffset: "earliest", MaxWait: 1000},
	}
	if err := messaging.Ping(ctx, kcfg.Brokers); err != nil {
		return stage.ReplayResult{}, err
	}

	reader := messaging.NewReader(kcfg, *o.topic, *o.group)
	defer func() { _ = reader.Close() }()
	producer := messaging.NewProducer(messaging.NewWriter(kcfg), messaging.DefaultRetryConfig, log)
	defer func() { _ = producer.Close() }()

	var codes []string
	for _, c := range strings.Split(*o.codes, ",") {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}

	return stage.Replay(ctx, reader, producer, stage.ReplayOptions{
		Codes:   codes,
		Service: *o.service,
		Max:     *o.max,
		Idle:    *o.idle,
		DryRun:  dryRun,
	}, log)
}

func help() {
	fmt.Println("Usage: dlq-replay <command> [flags]")
	fmt.Println("Commands:")
	fmt.Println("  replay   Republish matching dead-letter entries to their source topic")
	fmt.Println("  inspect  Log matching entries without publishing or committing")
	fmt.Println("  help     Show this help")
	fmt.Println("Run 'dlq-replay <command> -h' for flags.")
}
