// Package echo serves the question-answering API over HTTP.
package echo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/ask"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxUploadBytes caps the size of an uploaded file.
const DefaultMaxUploadBytes = 64 << 20

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 5 * time.Second

// Server is the HTTP shell around an ask.Service.
type Server struct {
	ln   net.Listener
	echo *echo.Echo

	// Addr is the bind address, e.g. ":8080".
	Addr string

	Ask   *ask.Service
	Store corpus.Store

	// Config is served verbatim at /config.
	Config any

	// Gatherer provides the metrics served at /metrics. Nil disables the
	// endpoint.
	Gatherer prometheus.Gatherer

	// MaxUploadBytes caps uploads. Zero means DefaultMaxUploadBytes.
	MaxUploadBytes int64

	Logger *slog.Logger
}

// NewServer returns a new Server with routes registered.
func NewServer() *Server {
	s := &Server{echo: echo.New()}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleError
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	s.echo.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	s.echo.POST("/ask_stream", s.handleAskStream)
	s.echo.GET("/config", s.handleConfig)
	s.echo.GET("/debug/documents", s.handleDocuments)
	s.echo.GET("/debug/chunks", s.handleChunks)
	s.echo.GET("/metrics", s.handleMetrics)
	return s
}

// ServeHTTP routes a request. It makes Server usable with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Open begins listening on Addr and serving in the background.
func (s *Server) Open() (err error) {
	if s.ln, err = net.Listen("tcp", s.Addr); err != nil {
		return err
	}
	s.echo.Listener = s.ln
	go func() {
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger().Error("server stopped", "err", err)
		}
	}()
	return nil
}

// URL returns the local base URL of the running server.
func (s *Server) URL() string {
	if s.ln == nil {
		return ""
	}
	return "http://" + s.ln.Addr().String()
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleAskStream(c echo.Context) error {
	req := ask.Request{Question: c.FormValue("question")}

	fh, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return corpus.Errorf(corpus.EINVALID, "invalid upload: %v", err)
	default:
		if fh.Size > s.maxUploadBytes() {
			return corpus.Errorf(corpus.EINVALID, "upload exceeds %d bytes", s.maxUploadBytes())
		}
		f, err := fh.Open()
		if err != nil {
			return corpus.Errorf(corpus.EINVALID, "invalid upload: %v", err)
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, s.maxUploadBytes()))
		if err != nil {
			return corpus.Errorf(corpus.EINVALID, "invalid upload: %v", err)
		}
		req.Upload = &ask.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Data:        data,
		}
	}

	w := &streamWriter{c: c}
	err = s.Ask.Stream(c.Request().Context(), w, req)
	if err != nil && w.started {
		// The error event has been written; the status can no longer change.
		s.logger().Warn("ask stream failed", "err", err)
		return nil
	}
	if err != nil {
		return err
	}
	if !w.started {
		w.start()
	}
	return nil
}

// streamWriter commits the NDJSON response on the first event so that
// failures before any output still map to an HTTP error status.
type streamWriter struct {
	c       echo.Context
	nd      *ask.NDJSONWriter
	started bool
}

func (w *streamWriter) start() {
	res := w.c.Response()
	res.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	w.nd = ask.NewNDJSONWriter(res)
	w.started = true
}

func (w *streamWriter) WriteEvent(e ask.Event) error {
	if !w.started {
		w.start()
	}
	return w.nd.WriteEvent(e)
}

func (s *Server) handleConfig(c echo.Context) error {
	out := map[string]any{"config": s.Config}
	if s.Ask != nil && s.Ask.Gate != nil {
		out["gate"] = s.Ask.Gate.Stats()
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleDocuments(c echo.Context) error {
	docs := corpus.Summarize(s.Store.Snapshot())
	if docs == nil {
		docs = []corpus.DocumentSummary{}
	}
	return c.JSON(http.StatusOK, map[string]any{"count": len(docs), "documents": docs})
}

func (s *Server) handleChunks(c echo.Context) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return corpus.Errorf(corpus.EINVALID, "invalid limit %q", v)
		}
		limit = n
	}
	chunks := corpus.PreviewChunks(s.Store.Snapshot(), c.QueryParam("doc"), limit)
	if chunks == nil {
		chunks = []corpus.ChunkPreview{}
	}
	return c.JSON(http.StatusOK, map[string]any{"count": len(chunks), "chunks": chunks})
}

func (s *Server) handleMetrics(c echo.Context) error {
	if s.Gatherer == nil {
		return corpus.Errorf(corpus.ENOTFOUND, "metrics disabled")
	}
	promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}).ServeHTTP(c.Response(), c.Request())
	return nil
}

// handleError writes application errors as JSON with a matching status.
func (s *Server) handleError(err error, c echo.Context) {
	code := ErrorStatusCode(corpus.ErrorCode(err))
	msg := corpus.ErrorMessage(err)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = http.StatusText(he.Code)
	}

	req := c.Request()
	if code >= http.StatusInternalServerError {
		s.logger().Error("http error", "method", req.Method, "path", req.URL.Path, "status", code, "err", err)
	}
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

var codes = map[string]int{
	corpus.ECONFLICT: http.StatusConflict,
	corpus.EINVALID:  http.StatusBadRequest,
	corpus.ENOTFOUND: http.StatusNotFound,
	corpus.EINTERNAL: http.StatusInternalServerError,
}

// ErrorStatusCode returns the HTTP status for an application error code.
func ErrorStatusCode(code string) int {
	if v, ok := codes[code]; ok {
		return v
	}
	return http.StatusInternalServerError
}

func (s *Server) maxUploadBytes() int64 {
	if s.MaxUploadBytes > 0 {
		return s.MaxUploadBytes
	}
	return DefaultMaxUploadBytes
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.DiscardHandler)
}
