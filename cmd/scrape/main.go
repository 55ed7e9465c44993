// Package main implements the scrape CLI: it bulk-scrapes legal sites and
// either publishes the results to NATS for ingestion or prints them as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Sergey0703/aiassistant/engine/ingest"
	"github.com/Sergey0703/aiassistant/engine/scraper"
	"github.com/Sergey0703/aiassistant/pkg/natsutil"
)

func main() {
	var (
		list        = flag.String("list", "", "curated url list: ukraine or ireland")
		urlsFlag    = flag.String("urls", "", "comma-separated urls to scrape")
		sitesFile   = flag.String("sites", "", "yaml file with extra site extraction configs")
		delay       = flag.Duration("delay", 2*time.Second, "minimum interval between fetches")
		concurrency = flag.Int("concurrency", scraper.DefaultMaxConcurrent, "max in-flight fetches")
		natsURL     = flag.String("nats", "", "publish results to this NATS server instead of stdout")
		jsonOut     = flag.Bool("json", false, "print scraped documents as JSON")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	urls := collectURLs(*list, *urlsFlag)
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "no urls: pass -list ukraine|ireland or -urls")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(urls, *sitesFile, *delay, *concurrency, *natsURL, *jsonOut, logger); err != nil {
		logger.Error("scrape run failed", "err", err)
		os.Exit(1)
	}
}

func collectURLs(list, urlsFlag string) []string {
	var urls []string
	switch list {
	case "ukraine":
		urls = append(urls, scraper.UkraineLegalURLs...)
	case "ireland":
		urls = append(urls, scraper.IrelandLegalURLs...)
	}
	for _, u := range strings.Split(urlsFlag, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func run(urls []string, sitesFile string, delay time.Duration, concurrency int, natsURL string, jsonOut bool, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := scraper.DefaultRegistry()
	if sitesFile != "" {
		var err error
		registry, err = scraper.LoadRegistry(sitesFile)
		if err != nil {
			return err
		}
	}

	engine := scraper.New(registry, nil, logger)
	coordinator := scraper.NewCoordinator(engine, logger)

	docs := coordinator.ScrapeMany(ctx, urls, scraper.BulkOptions{
		Delay:         delay,
		MaxConcurrent: concurrency,
	})

	if natsURL != "" {
		nc, err := nats.Connect(natsURL)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer nc.Close()

		published := 0
		for _, doc := range docs {
			if doc == nil {
				continue
			}
			if err := natsutil.Publish(ctx, nc, ingest.Subject, ingest.FromScraped(doc)); err != nil {
				return fmt.Errorf("publish %s: %w", doc.URL, err)
			}
			published++
		}
		if err := nc.Flush(); err != nil {
			return fmt.Errorf("flush nats: %w", err)
		}
		logger.Info("published scrape results", "count", published, "subject", ingest.Subject)
		return nil
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}

	for i, doc := range docs {
		if doc == nil {
			fmt.Printf("%3d. (skipped) %s\n", i+1, urls[i])
			continue
		}
		mark := "demo"
		if doc.RealScrape() {
			mark = "real"
		}
		fmt.Printf("%3d. [%s] %-60s %s (%d chars)\n", i+1, mark, doc.Title, doc.Category, len(doc.Content))
	}
	return nil
}
