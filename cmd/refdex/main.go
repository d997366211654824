package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/refdex"
	"github.com/fwojciec/refdex/chi"
	"github.com/fwojciec/refdex/crawl"
	"github.com/fwojciec/refdex/edlib"
	"github.com/fwojciec/refdex/gemini"
	"github.com/fwojciec/refdex/goquery"
	"github.com/fwojciec/refdex/htmltomarkdown"
	refhttp "github.com/fwojciec/refdex/http"
	"github.com/fwojciec/refdex/koanf"
	"github.com/fwojciec/refdex/openai"
	"github.com/fwojciec/refdex/readability"
	"github.com/fwojciec/refdex/redis"
	"github.com/fwojciec/refdex/rod"
	"github.com/fwojciec/refdex/search"
	rslog "github.com/fwojciec/refdex/slog"
	"github.com/fwojciec/refdex/sqlite"
	"github.com/fwojciec/refdex/summarize"
	"github.com/fwojciec/refdex/trafilatura"
	"google.golang.org/genai"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Overrides the configured path when set.
	DBPath string

	// Config is the loaded configuration, available after Run.
	Config *refdex.Config

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Services for end-to-end testing.
	NodeService refdex.NodeService
	RunService  refdex.RunService

	closers []io.Closer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		errs = append(errs, m.closers[i].Close())
	}
	m.closers = nil
	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}
	return errors.Join(errs...)
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("refdex"),
		kong.Description("Index an API reference site and answer questions with page URLs"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'refdex --help' to see available commands")
	}

	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := koanf.Load(cli.Config)
	if err != nil {
		fmt.Fprintf(stderr, "Hint: check %s and REFDEX_* environment variables\n", cli.Config)
		return fmt.Errorf("failed to load config: %w", err)
	}
	switch {
	case cli.DB != "":
		cfg.DBPath = cli.DB
	case m.DBPath != "":
		cfg.DBPath = m.DBPath
	}
	m.Config = cfg

	logger := newLogger(stderr, cli.Verbose)
	logger.Debug("config loaded", "config", cfg.String())

	m.DB = sqlite.NewDB(cfg.DBPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set --db or REFDEX_DB_PATH to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", cfg.DBPath, err)
	}
	defer m.Close()

	m.NodeService = sqlite.NewNodeService(m.DB)
	m.RunService = sqlite.NewRunService(m.DB)
	deps.Config = cfg
	deps.Logger = logger
	deps.Nodes = m.NodeService
	deps.Runs = m.RunService

	switch cmd := strings.Fields(kongCtx.Command())[0]; cmd {
	case "crawl":
		if cli.Crawl.Browser {
			cfg.Crawl.Browser = true
		}
		deps.Crawler, err = m.newCrawler(ctx, cfg, logger, cli.Verbose, stderr)
		if err != nil {
			return err
		}
	case "ask", "serve":
		resolver, err := m.newResolver(ctx, cfg, logger, cli.Verbose, stderr)
		if err != nil {
			return err
		}
		deps.Resolver = resolver
		if cmd == "serve" {
			addr := cfg.Server.Addr
			if cli.Serve.Addr != "" {
				addr = cli.Serve.Addr
			}
			deps.Server = chi.NewServer(addr, resolver, logger)
		}
	}

	return kongCtx.Run(deps)
}

func (m *Main) newCrawler(ctx context.Context, cfg *refdex.Config, logger *slog.Logger, verbose bool, stderr io.Writer) (*crawl.Crawler, error) {
	var fetcher refdex.Fetcher
	if cfg.Crawl.Browser {
		f, err := rod.NewFetcher(rod.WithFetchTimeout(cfg.Crawl.FetchTimeout))
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed")
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		fetcher = f
	} else {
		fetcher = refhttp.NewFetcher(refhttp.WithTimeout(cfg.Crawl.FetchTimeout))
	}
	if verbose {
		fetcher = rslog.NewLoggingFetcher(fetcher, logger)
	}
	m.closers = append(m.closers, fetcher)

	var extractor refdex.ContentExtractor
	switch cfg.Crawl.Extractor {
	case "readability":
		extractor = readability.NewExtractor(readability.DefaultMinText)
	default:
		extractor = trafilatura.NewExtractor()
	}

	summarizer, err := m.newSummarizer(ctx, cfg.LLM, logger, verbose, stderr)
	if err != nil {
		return nil, err
	}

	tokenCounter, err := gemini.NewTokenCounter(gemini.DefaultTokenizerModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create token counter: %w", err)
	}

	return &crawl.Crawler{
		Nodes:        m.NodeService,
		Runs:         m.RunService,
		Fetcher:      fetcher,
		Parser:       goquery.NewParser(),
		Extractor:    extractor,
		Converter:    htmltomarkdown.NewConverter(),
		Summarizer:   summarizer,
		TokenCounter: tokenCounter,
		RateLimiter:  crawl.NewDomainLimiter(cfg.Crawl.RequestsPerSecond),
		StopList:     refdex.NewStopList(cfg.Crawl.StopWords...),
		Concurrency:  cfg.Crawl.Concurrency,
		MaxDepth:     cfg.Crawl.MaxDepth,
		Logger:       logger,
	}, nil
}

func (m *Main) newResolver(ctx context.Context, cfg *refdex.Config, logger *slog.Logger, verbose bool, stderr io.Writer) (refdex.Resolver, error) {
	scope, err := search.ParseScope(cfg.Search.Scope)
	if err != nil {
		return nil, err
	}
	granularity, err := search.ParseGranularity(cfg.Search.Granularity)
	if err != nil {
		return nil, err
	}

	summarizer, err := m.newSummarizer(ctx, cfg.LLM, logger, verbose, stderr)
	if err != nil {
		return nil, err
	}

	r := &search.Resolver{
		Nodes:       m.NodeService,
		Summarizer:  summarizer,
		Matcher:     edlib.NewMatcher(),
		StopList:    refdex.NewStopList(cfg.Crawl.StopWords...),
		Threshold:   cfg.Search.Threshold,
		Floor:       cfg.Search.Floor,
		MinKeywords: cfg.Search.MinKeywords,
		MaxDepth:    cfg.Search.MaxDepth,
		Scope:       scope,
		Granularity: granularity,
		Logger:      logger,
	}

	if cfg.Redis.Addr != "" {
		cache, err := redis.Open(ctx, cfg.Redis.Addr, cfg.Redis.TTL)
		if err != nil {
			// The resolver works without the cache.
			logger.Warn("keyword cache unavailable", "addr", cfg.Redis.Addr, "err", err)
		} else {
			r.Cache = cache
			m.closers = append(m.closers, cache)
		}
	}

	if verbose {
		return rslog.NewLoggingResolver(r, logger), nil
	}
	return r, nil
}

func (m *Main) newSummarizer(ctx context.Context, cfg refdex.LLMConfig, logger *slog.Logger, verbose bool, stderr io.Writer) (*summarize.Summarizer, error) {
	completer, err := newCompleter(ctx, cfg, stderr)
	if err != nil {
		return nil, err
	}
	if verbose {
		completer = rslog.NewLoggingCompleter(completer, logger)
	}
	return summarize.New(completer, summarize.OptionsFromConfig(cfg))
}

func newCompleter(ctx context.Context, cfg refdex.LLMConfig, stderr io.Writer) (refdex.Completer, error) {
	switch cfg.Provider {
	case "gemini":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			fmt.Fprintln(stderr, "GEMINI_API_KEY environment variable not set. Get an API key at https://aistudio.google.com/apikey")
			return nil, fmt.Errorf("GEMINI_API_KEY not set. Get a key at https://aistudio.google.com/apikey")
		}

		httpOptions := genai.HTTPOptions{}
		if cfg.Timeout > 0 {
			httpOptions.Timeout = &cfg.Timeout
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:      apiKey,
			Backend:     genai.BackendGeminiAPI,
			HTTPOptions: httpOptions,
		})
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Check your GEMINI_API_KEY is valid")
			return nil, fmt.Errorf("failed to connect to Gemini API: %w", err)
		}
		return gemini.NewCompleter(client, cfg.Model, cfg.Temperature), nil

	case "openai":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		return openai.NewCompleter(apiKey, cfg.BaseURL, cfg.Model,
			openai.WithTemperature(cfg.Temperature),
			openai.WithTimeout(cfg.Timeout),
		), nil

	default:
		// Ollama ignores the key but the client requires one.
		return openai.NewCompleter("ollama", cfg.BaseURL, cfg.Model,
			openai.WithTemperature(cfg.Temperature),
			openai.WithTimeout(cfg.Timeout),
		), nil
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
