package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/ask"
	"github.com/fwojciec/corpus/bleve"
	"github.com/fwojciec/corpus/chunk"
	"github.com/fwojciec/corpus/crawl"
	corpusecho "github.com/fwojciec/corpus/echo"
	"github.com/fwojciec/corpus/etree"
	"github.com/fwojciec/corpus/excelize"
	"github.com/fwojciec/corpus/extract"
	"github.com/fwojciec/corpus/gemini"
	"github.com/fwojciec/corpus/goquery"
	"github.com/fwojciec/corpus/htmltomarkdown"
	corpushttp "github.com/fwojciec/corpus/http"
	"github.com/fwojciec/corpus/memory"
	"github.com/fwojciec/corpus/ollama"
	"github.com/fwojciec/corpus/pdf"
	corpusprom "github.com/fwojciec/corpus/prometheus"
	"github.com/fwojciec/corpus/rank"
	"github.com/fwojciec/corpus/readability"
	"github.com/fwojciec/corpus/resolve"
	"github.com/fwojciec/corpus/rod"
	corpusslog "github.com/fwojciec/corpus/slog"
	"github.com/fwojciec/corpus/sqlite"
	"github.com/fwojciec/corpus/trafilatura"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/genai"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

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
	// Database path. Set before calling Run(); the --db flag overrides it.
	DBPath string

	// SQLite database holding the snapshot and areas.
	DB *sqlite.DB

	// Store holds the documents restored from the snapshot.
	Store *memory.Store
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
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
		kong.Name("corpus"),
		kong.Description("Crawl a site, index its documents and answer questions about them."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'corpus --help' to see available commands")
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	deps.Logger = logger

	if cli.DB != "" {
		m.DBPath = cli.DB
	}
	m.DB = sqlite.NewDB(m.DBPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set CORPUS_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
	}
	defer m.Close()

	snapshots := sqlite.NewSnapshotService(m.DB)
	m.Store = memory.NewStore(chunk.NewSplitter())
	deps.Snapshots = snapshots
	deps.Areas = sqlite.NewAreaService(m.DB)
	deps.Store = m.Store

	if cmd != "areas" && cmd != "extract" {
		n, err := sqlite.Restore(ctx, snapshots, m.Store)
		if err != nil {
			return fmt.Errorf("failed to load documents: %w", err)
		}
		logger.Debug("restored snapshot", "documents", n, "chunks", m.Store.Snapshot().TotalChunks())
	}

	deps.Extractor = corpusslog.NewLoggingExtractor(newExtractor(logger), logger)

	var (
		reg     *prometheus.Registry
		metrics *corpusprom.Metrics
	)
	if cmd == "serve" {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = corpusprom.NewMetrics(reg)
	}

	// Wire the crawler for "crawl" and for "serve" with a startup crawl.
	crawlOpts := cli.Crawl.CrawlOptions
	if cmd == "serve" {
		crawlOpts = cli.Serve.CrawlOptions
	}
	if cmd == "crawl" || (cmd == "serve" && cli.Serve.Root != "") {
		plain := corpushttp.NewFetcher(corpushttp.WithTimeout(cli.Timeout))

		var fetcher corpus.Fetcher = plain
		if crawlOpts.Render {
			// Chrome is launched on the first HTML page.
			fetcher = rod.NewFetcher(plain, rod.WithRenderTimeout(cli.Timeout))
		}
		defer fetcher.Close()

		fetcher = corpusslog.NewLoggingFetcher(fetcher, logger)
		if metrics != nil {
			fetcher = corpusprom.NewMetricsFetcher(fetcher, metrics)
		}

		deps.Crawler = &crawl.Crawler{
			Fetcher:   fetcher,
			Parser:    corpusslog.NewLoggingPageParser(goquery.NewParser(), logger),
			Extractor: deps.Extractor,
			Meta:      metaExtractors(crawlOpts.Meta),
			Sitemaps:  corpusslog.NewLoggingSitemapService(corpushttp.NewSitemapService(plain), logger),
			Splitter:  chunk.NewSplitter(),
			Logger:    logger,
		}
		if crawlOpts.RPS > 0 {
			deps.Crawler.RateLimiter = crawl.NewDomainLimiter(crawlOpts.RPS)
		}
	}

	if cmd == "search" || cmd == "ask" || cmd == "serve" {
		var gen corpus.Generator
		if cmd != "search" || cli.Ranker == "delegated" {
			g, err := newGenerator(ctx, cli, stderr)
			if err != nil {
				return err
			}
			gen = corpusslog.NewLoggingGenerator(g, logger)
			if metrics != nil {
				gen = corpusprom.NewMetricsGenerator(gen, metrics)
			}
		}

		budget := rank.DefaultBudget()
		if cli.Tokenizer != "" {
			counter, err := gemini.NewTokenCounter(cli.Tokenizer)
			if err != nil {
				return fmt.Errorf("failed to create token counter: %w", err)
			}
			budget.Counter = counter
		}

		ranker := newRanker(cli.Ranker, m.Store, gen, budget)
		if c, ok := ranker.(io.Closer); ok {
			defer c.Close()
		}
		ranker = corpusslog.NewLoggingRanker(ranker, logger)
		if metrics != nil {
			ranker = corpusprom.NewMetricsRanker(ranker, metrics)
		}
		deps.Ranker = ranker

		if cmd != "search" {
			gate := ask.NewGate(cli.MaxRequests)
			deps.Ask = &ask.Service{
				Store:     m.Store,
				Ranker:    ranker,
				Generator: gen,
				Resolver:  resolve.NewResolver(m.Store),
				Extractor: deps.Extractor,
				Gate:      gate,
				Logger:    logger,
			}

			if cmd == "serve" {
				corpusprom.RegisterGate(reg, func() (active, queued, total int64) {
					s := gate.Stats()
					return s.Active, s.Queued, s.Total
				})
				corpusprom.RegisterStore(reg, m.Store)

				srv := corpusecho.NewServer()
				srv.Ask = deps.Ask
				srv.Store = m.Store
				srv.Gatherer = reg
				srv.Logger = logger
				srv.Config = newServerConfig(cli)
				deps.Server = srv
			}
		}
	}

	return kongCtx.Run(deps)
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "corpus.db"
	}
	dir := filepath.Join(home, ".corpus")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "corpus.db")
}

// newExtractor registers a parser for every supported document format.
func newExtractor(logger *slog.Logger) *extract.Registry {
	return extract.NewRegistry(
		extract.WithParser(extract.FormatPDF, pdf.NewParser(logger)),
		extract.WithParser(extract.FormatDOCX, extract.ParserFunc(etree.ParseDOCX)),
		extract.WithParser(extract.FormatPPTX, extract.ParserFunc(etree.ParsePPTX)),
		extract.WithParser(extract.FormatXLSX, extract.ParserFunc(excelize.ParseXLSX)),
		extract.WithParser(extract.FormatHTML, htmltomarkdown.NewConverter()),
		extract.WithLogger(logger),
	)
}

// metaExtractors returns the metadata extractors in priority order. The
// other extractor fills whatever keys the preferred one leaves empty.
func metaExtractors(name string) []corpus.MetaExtractor {
	switch name {
	case "none":
		return nil
	case "readability":
		return []corpus.MetaExtractor{readability.NewExtractor(), trafilatura.NewExtractor()}
	default:
		return []corpus.MetaExtractor{trafilatura.NewExtractor(), readability.NewExtractor()}
	}
}

func newGenerator(ctx context.Context, cli *CLI, stderr io.Writer) (corpus.Generator, error) {
	if cli.Generator == "gemini" {
		if cli.GeminiAPIKey == "" {
			fmt.Fprintln(stderr, "GEMINI_API_KEY environment variable not set. Get an API key at https://aistudio.google.com/apikey")
			return nil, fmt.Errorf("GEMINI_API_KEY not set")
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cli.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Check your GEMINI_API_KEY is valid")
			return nil, fmt.Errorf("failed to connect to Gemini API: %w", err)
		}
		return gemini.NewGenerator(client, gemini.WithModel(cli.GeminiModel)), nil
	}

	g, err := ollama.NewGenerator(cli.OllamaHost, cli.OllamaModel, nil)
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Set OLLAMA_HOST to the Ollama base URL")
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}
	return g, nil
}

func newRanker(name string, store *memory.Store, gen corpus.Generator, budget rank.Budget) corpus.Ranker {
	switch name {
	case "bleve":
		return bleve.NewRanker(store, budget)
	case "delegated":
		return rank.NewDelegated(store, gen, budget)
	default:
		return rank.NewLexical(store, budget)
	}
}
