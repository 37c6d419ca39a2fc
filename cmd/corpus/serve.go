package main

import "fmt"

// serverConfig is the configuration reported at /config. Secrets are
// left out.
type serverConfig struct {
	Generator      string `json:"generator"`
	OllamaHost     string `json:"ollama_host"`
	OllamaModel    string `json:"ollama_model"`
	GeminiModel    string `json:"gemini_model"`
	Ranker         string `json:"ranker"`
	RootURL        string `json:"root_url,omitempty"`
	MaxPages       int    `json:"max_pages"`
	MaxDepth       int    `json:"max_depth"`
	RequestTimeout string `json:"request_timeout"`
	MaxConcurrent  int    `json:"max_concurrent_requests"`
}

func newServerConfig(cli *CLI) serverConfig {
	return serverConfig{
		Generator:      cli.Generator,
		OllamaHost:     cli.OllamaHost,
		OllamaModel:    cli.OllamaModel,
		GeminiModel:    cli.GeminiModel,
		Ranker:         cli.Ranker,
		RootURL:        cli.Serve.Root,
		MaxPages:       cli.Serve.MaxPages,
		MaxDepth:       cli.Serve.MaxDepth,
		RequestTimeout: cli.Timeout.String(),
		MaxConcurrent:  cli.MaxRequests,
	}
}

// Run executes the serve command. It blocks until the context is done.
func (c *ServeCmd) Run(deps *Dependencies) error {
	deps.Server.Addr = c.Addr
	if err := deps.Server.Open(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}
	fmt.Fprintf(deps.Stdout, "Listening on %s\n", deps.Server.URL())

	crawled := make(chan struct{})
	if c.Root != "" && deps.Crawler != nil {
		go func() {
			defer close(crawled)
			result, err := crawlAndSave(deps, c.Root, c.CrawlOptions)
			if err != nil {
				deps.Logger.Error("startup crawl", "url", c.Root, "err", err)
				return
			}
			deps.Logger.Info("startup crawl", "url", c.Root, "documents", len(result.Documents), "failed", result.Failed)
		}()
	} else {
		close(crawled)
	}

	<-deps.Ctx.Done()
	<-crawled
	return deps.Server.Close()
}
