package ask_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/ask"
	"github.com/fwojciec/corpus/crawl"
	"github.com/fwojciec/corpus/extract"
	"github.com/fwojciec/corpus/goquery"
	corpushttp "github.com/fwojciec/corpus/http"
	"github.com/fwojciec/corpus/internal/pdftest"
	"github.com/fwojciec/corpus/mock"
	"github.com/fwojciec/corpus/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_StreamCrawledPDFImage(t *testing.T) {
	t.Parallel()

	img := pdftest.JPEG()
	report := pdftest.Build(pdftest.Page{Lines: []string{"Annual report"}, JPEG: img})
	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><p>Annual report summary.</p><a href="report.pdf">report</a></body></html>`))
	})
	mux.HandleFunc("/report.pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(report)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := &crawl.Crawler{
		Fetcher:     corpushttp.NewFetcher(corpushttp.WithTimeout(5 * time.Second)),
		Parser:      goquery.NewParser(),
		Extractor:   extract.NewRegistry(extract.WithParser(extract.FormatPDF, pdf.NewParser(nil))),
		MaxDepth:    1,
		RetryDelays: []time.Duration{},
	}
	result, err := c.Crawl(context.Background(), srv.URL+"/", nil)
	require.NoError(t, err)

	page := result.ByID()["docs://"+srv.URL+"/"]
	require.NotNil(t, page)
	require.Len(t, page.Images, 1)
	source := page.Images[0].Source
	assert.True(t, strings.HasPrefix(source, corpus.EmbeddedPrefix))

	svc, _ := newService(t, mock.Reply("The chart: ", corpus.ImageMarker(source)), result.Documents...)

	var buf bytes.Buffer
	require.NoError(t, svc.Stream(context.Background(), ask.NewNDJSONWriter(&buf), ask.Request{Question: "annual report"}))

	var images []ask.Event
	for _, e := range decode(t, &buf) {
		if e.Type == ask.EventImage {
			images = append(images, e)
		}
	}
	require.Len(t, images, 1)
	assert.Empty(t, images[0].URL)
	assert.Equal(t, "image/jpeg", images[0].MIME)
	got, err := base64.StdEncoding.DecodeString(images[0].ContentB64)
	require.NoError(t, err)
	assert.Equal(t, img, got)
}
