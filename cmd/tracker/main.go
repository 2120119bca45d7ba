package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"crypto-tracker/internal/config"
	"crypto-tracker/internal/events"
	"crypto-tracker/internal/interfaces"
	"crypto-tracker/internal/logger"
	"crypto-tracker/internal/models"
	"crypto-tracker/internal/render"
	"crypto-tracker/internal/sources"
	"crypto-tracker/internal/sources/bitcoin"
	"crypto-tracker/internal/sources/evm"
	"crypto-tracker/internal/storage"
	"crypto-tracker/internal/trace"
	"crypto-tracker/internal/validation"
	"crypto-tracker/internal/watchlist"
)

type options struct {
	crypto    string
	depth     int
	fanOut    int
	apiKey    string
	out       string
	jsonOut   string
	watchlist string
	address   string
}

func parseFlags(cfg *config.Config, args []string) (*options, error) {
	fs := flag.NewFlagSet("tracker", flag.ContinueOnError)
	opts := &options{}
	fs.StringVar(&opts.crypto, "crypto", "btc", "blockchain to analyze (btc or eth)")
	fs.IntVar(&opts.depth, "depth", cfg.Trace.MaxDepth, "maximum traversal depth")
	fs.IntVar(&opts.fanOut, "fanout", cfg.Trace.FanOut, "transactions expanded per address")
	fs.StringVar(&opts.apiKey, "api-key", "", "explorer API key (required for Ethereum)")
	fs.StringVar(&opts.out, "out", "transaction_graph.html", "path of the interactive HTML graph")
	fs.StringVar(&opts.jsonOut, "json", "", "optional path of the graph as JSON")
	fs.StringVar(&opts.watchlist, "watchlist", cfg.WatchlistPath, "YAML file with exchange and mixer addresses")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: tracker [flags] <address>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("expected exactly one address, got %d", fs.NArg())
	}
	opts.address = fs.Arg(0)
	return opts, nil
}

// flagExitCode reports a parseFlags failure. -h exits cleanly since the usage was
// already printed.
func flagExitCode(w io.Writer, err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 2
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().Error().Interface("panic", r).Msg("Application panicked, recovering")
			os.Exit(2)
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel)
	log := logger.GetLogger()

	opts, err := parseFlags(cfg, os.Args[1:])
	if err != nil {
		os.Exit(flagExitCode(os.Stderr, err))
	}

	if err := run(cfg, opts, log); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, opts *options, log *zerolog.Logger) error {
	chain, err := models.ParseBlockchain(opts.crypto)
	if err != nil {
		return err
	}
	if err := validation.ValidateDepth(opts.depth); err != nil {
		return err
	}
	if err := validation.ValidateAddress(opts.address, chain); err != nil {
		return err
	}

	chainCfg := cfg.Chains[chain]
	if opts.apiKey != "" {
		chainCfg.ApiKey = opts.apiKey
	}
	if chain == models.Ethereum && chainCfg.ApiKey == "" {
		return fmt.Errorf("ethereum analysis requires -api-key or ETHERSCAN_API_KEY")
	}
	if err := validation.ValidateURL(chainCfg.Endpoint); err != nil {
		return fmt.Errorf("invalid %s endpoint: %w", chain, err)
	}

	lists, err := watchlist.Load(opts.watchlist)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	base := sources.NewBaseSource(chain, chainCfg.RateLimit, chainCfg.Endpoint, chainCfg.ApiKey, chainCfg.ExplorerBaseURL, cfg.HTTP.Timeout, log)
	base.MaxRetries = cfg.MaxRetries
	base.RetryDelay = cfg.RetryDelay
	defer base.CloseHTTPClient()

	if cfg.Cache.Path != "" {
		db, err := storage.NewPebbleDB(cfg.Cache.Path)
		if err != nil {
			log.Warn().Err(err).Msg("Response cache disabled")
		} else {
			defer db.Close()
			cache := storage.NewResponseCache(db, cfg.Cache.TTL, log)
			if n, err := cache.Prune(); err != nil {
				log.Warn().Err(err).Msg("Failed to prune response cache")
			} else if n > 0 {
				log.Debug().Int("entries", n).Msg("Pruned response cache")
			}
			base.Cache = cache
		}
	}

	var source interfaces.TransactionSource
	switch chain {
	case models.Ethereum:
		source = evm.NewEthereumSource(base)
	default:
		source = bitcoin.NewBitcoinSource(base)
	}

	runID := uuid.NewString()
	started := time.Now().UTC()
	fmt.Printf("\n[+] Analyzing %s at depth %d\n", opts.address, opts.depth)

	tracer := trace.New(source, trace.Options{FanOut: opts.fanOut}, log)
	res := tracer.Build(ctx, opts.address, opts.depth)

	cls := watchlist.Classify(res.Transactions, lists)

	printLegend(os.Stdout, res.Legend)
	printSummary(os.Stdout, res, cls, lists)

	if err := writeOutputs(opts, res); err != nil {
		log.Error().Err(err).Msg("Visualization error")
	}

	s := openSinks(ctx, cfg, log)
	defer s.close(context.Background())
	matches := events.BuildMatchEvents(runID, res.Seed, chain, cls, source.GetExplorerURL)
	s.record(ctx, runID, res, started, matches)

	return nil
}

func writeOutputs(opts *options, res *trace.Result) error {
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.out, err)
		}
		title := fmt.Sprintf("Transaction graph for %s", res.Seed)
		if err := render.WriteHTML(f, title, res); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("\n[+] Interactive graph saved to %s\n", opts.out)
		fmt.Printf("[+] Open %s in your browser to view the visualization\n", opts.out)
	}

	if opts.jsonOut != "" {
		f, err := os.Create(opts.jsonOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.jsonOut, err)
		}
		if err := render.WriteJSON(f, res); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("[+] Graph data saved to %s\n", opts.jsonOut)
	}
	return nil
}
