package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/ask"
	"github.com/fwojciec/corpus/crawl"
	corpusecho "github.com/fwojciec/corpus/echo"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx       context.Context
	Stdout    io.Writer
	Stderr    io.Writer
	Logger    *slog.Logger
	Store     corpus.Store
	Snapshots corpus.SnapshotService
	Areas     corpus.AreaService
	Extractor corpus.Extractor
	Crawler   *crawl.Crawler
	Ranker    corpus.Ranker
	Ask       *ask.Service
	Server    *corpusecho.Server
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	DB      string `name:"db" env:"CORPUS_DB" type:"path" help:"Database path (default ~/.corpus/corpus.db)"`
	Verbose bool   `short:"v" help:"Log debug output to stderr"`

	Generator    string        `enum:"ollama,gemini" default:"ollama" env:"CORPUS_GENERATOR" help:"Text generation backend (ollama, gemini)"`
	OllamaHost   string        `name:"ollama-host" env:"OLLAMA_HOST" default:"http://localhost:11434" help:"Ollama base URL"`
	OllamaModel  string        `name:"ollama-model" env:"OLLAMA_MODEL" default:"llama3" help:"Ollama model"`
	GeminiAPIKey string        `name:"gemini-api-key" env:"GEMINI_API_KEY" help:"Gemini API key"`
	GeminiModel  string        `name:"gemini-model" env:"GEMINI_MODEL" default:"gemini-2.5-flash" help:"Gemini model"`
	Ranker       string        `enum:"lexical,delegated,bleve" default:"lexical" env:"CORPUS_RANKER" help:"Retrieval strategy (lexical, delegated, bleve)"`
	Tokenizer    string        `env:"CORPUS_TOKENIZER" help:"Count tokens with this Gemini tokenizer model instead of estimating"`
	Timeout      time.Duration `name:"request-timeout" env:"REQUEST_TIMEOUT" default:"15s" help:"Per-request fetch timeout"`
	MaxRequests  int           `name:"max-concurrent-requests" env:"MAX_CONCURRENT_REQUESTS" default:"2" help:"Concurrent generations allowed"`

	Crawl   CrawlCmd   `cmd:"" help:"Crawl a site and save it to the database"`
	Extract ExtractCmd `cmd:"" help:"Extract text and assets from a local file"`
	Search  SearchCmd  `cmd:"" help:"Retrieve the chunks most relevant to a query"`
	Ask     AskCmd     `cmd:"" help:"Answer a question from the crawled documents"`
	Docs    DocsCmd    `cmd:"" help:"List indexed documents"`
	Chunks  ChunksCmd  `cmd:"" help:"Preview indexed chunks"`
	Areas   AreasCmd   `cmd:"" help:"Manage knowledge-base areas"`
	Export  ExportCmd  `cmd:"" help:"Write the documents to a directory as markdown"`
	Serve   ServeCmd   `cmd:"" help:"Serve the question-answering API over HTTP"`
}

// CrawlOptions are the flags shared by commands that crawl.
type CrawlOptions struct {
	MaxPages int     `env:"MAX_PAGES" default:"50" help:"Maximum documents to produce"`
	MaxDepth int     `env:"MAX_DEPTH" default:"3" help:"Maximum link depth"`
	Render   bool    `help:"Render HTML pages in a headless browser"`
	RPS      float64 `name:"rps" default:"1" help:"Requests per second per host (0 disables limiting)"`
	Meta     string  `enum:"trafilatura,readability,none" default:"trafilatura" help:"Preferred page metadata extractor (trafilatura, readability, none)"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	URL  string `arg:"" optional:"" help:"Root URL to crawl"`
	Area string `short:"a" help:"Crawl the URL registered for this area"`

	CrawlOptions `embed:""`
}

// ExtractCmd is the "extract" subcommand.
type ExtractCmd struct {
	File string `arg:"" type:"existingfile" help:"File to extract"`
	Name string `help:"Filename hint used for format detection (defaults to the file's name)"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query string `arg:"" help:"Search query"`
	K     int    `short:"k" default:"5" help:"Number of chunks to return"`
}

// AskCmd is the "ask" subcommand.
type AskCmd struct {
	Question string `arg:"" help:"Question to answer"`
	File     string `short:"f" type:"existingfile" help:"File to attach to the question"`
	K        int    `short:"k" default:"5" help:"Number of chunks used as context"`
}

// DocsCmd is the "docs" subcommand.
type DocsCmd struct {
	JSON bool `help:"Print JSON instead of a table"`
}

// ChunksCmd is the "chunks" subcommand.
type ChunksCmd struct {
	Doc   string `help:"Only show chunks of this document ID"`
	Limit int    `short:"n" default:"50" help:"Maximum chunks to show (0 shows all)"`
	JSON  bool   `help:"Print JSON instead of a table"`
}

// AreasCmd groups the area subcommands.
type AreasCmd struct {
	List   AreasListCmd   `cmd:"" default:"1" help:"List areas"`
	Add    AreasAddCmd    `cmd:"" help:"Register an area"`
	Delete AreasDeleteCmd `cmd:"" help:"Delete an area"`
}

// AreasListCmd is the "areas list" subcommand.
type AreasListCmd struct{}

// AreasAddCmd is the "areas add" subcommand.
type AreasAddCmd struct {
	Name        string `arg:"" help:"Area name"`
	URL         string `arg:"" help:"Root URL"`
	DisplayName string `help:"Human-readable name"`
	Description string `help:"Description"`
}

// AreasDeleteCmd is the "areas delete" subcommand.
type AreasDeleteCmd struct {
	Name string `arg:"" help:"Area name"`
}

// ExportCmd is the "export" subcommand.
type ExportCmd struct {
	Dir string `arg:"" type:"path" help:"Output directory (replaced atomically)"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr string `env:"CORPUS_ADDR" default:":8080" help:"Listen address"`
	Root string `env:"ROOT_URL" help:"Crawl this URL in the background after startup"`

	CrawlOptions `embed:""`
}
