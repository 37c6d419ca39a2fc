// Package ask answers questions over the indexed corpus. It ingests an
// optional upload, retrieves context, streams the model's answer and
// resolves the asset markers the answer contains.
package ask

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/resolve"
	"github.com/google/uuid"
)

// Defaults for Service.
const (
	DefaultK              = 5
	DefaultMaxInlineBytes = 8 << 20
)

// Upload is a file attached to a question.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Request is a question with an optional upload.
type Request struct {
	Question string
	Upload   *Upload
}

// Service answers questions over a Store.
type Service struct {
	Store     corpus.Store
	Ranker    corpus.Ranker
	Generator corpus.Generator
	Resolver  corpus.Resolver
	Extractor corpus.Extractor

	// Gate bounds concurrent generations. Nil means unbounded.
	Gate *Gate

	// K is the number of chunks to retrieve. Zero means DefaultK.
	K int

	// MaxInlineBytes caps payloads sent inline as base64. Larger assets
	// are resolved but not sent. Zero means DefaultMaxInlineBytes.
	MaxInlineBytes int

	Logger *slog.Logger
}

// Ingest adds an upload to the store as a document and returns it. Image
// uploads keep their raw bytes as an image asset even when extraction
// surfaces none.
func (s *Service) Ingest(ctx context.Context, u *Upload) (*corpus.Document, error) {
	if u == nil || len(u.Data) == 0 {
		return nil, corpus.Errorf(corpus.EINVALID, "empty upload")
	}
	image := isImage(u)

	name := corpus.FileName(u.Name)
	if name == "" {
		name = "blob"
		if image {
			name = "blob.jpg"
		}
	}
	id := uploadID(name)

	hint := name
	if !strings.Contains(name, ".") && u.ContentType != "" {
		hint = u.ContentType
	}
	ext := s.Extractor.Extract(u.Data, hint)

	doc := &corpus.Document{
		ID:          id,
		ContentType: contentType(u),
		Text:        ext.Text,
		Images:      ext.Images,
		Files:       ext.Files,
		Meta:        map[string]string{corpus.MetaFilename: name},
	}
	if image && len(doc.Images) == 0 {
		mime := doc.ContentType
		if !strings.HasPrefix(mime, "image/") {
			mime = "image/jpeg"
		}
		doc.Images = []corpus.Asset{{
			Content:  u.Data,
			MIME:     mime,
			Source:   id,
			Filename: name,
		}}
	}

	if err := s.Store.AddDocument(ctx, doc); err != nil {
		return nil, err
	}
	s.logger().Info("upload ingested", "doc_id", id, "bytes", len(u.Data), "images", len(doc.Images), "files", len(doc.Files))
	return doc, nil
}

// Contexts retrieves the chunks for question. If uploaded is set and none
// of its chunks were retrieved, the whole upload is appended as a final
// context block.
func (s *Service) Contexts(ctx context.Context, question string, uploaded *corpus.Document) ([]*corpus.Chunk, error) {
	chunks, err := s.Ranker.Retrieve(ctx, question, s.k())
	if err != nil {
		return nil, err
	}
	if uploaded == nil {
		return chunks, nil
	}
	for _, c := range chunks {
		if c.ParentID == uploaded.ID || c.ID == uploaded.ID {
			return chunks, nil
		}
	}
	return append(chunks, &corpus.Chunk{
		ID:         uploaded.ID,
		ParentID:   uploaded.ID,
		Text:       uploaded.Text,
		CharLength: len([]rune(uploaded.Text)),
		Images:     uploaded.Images,
		Files:      uploaded.Files,
	}), nil
}

// Prepare ingests the upload, retrieves context and returns the prompt for
// req.
func (s *Service) Prepare(ctx context.Context, req Request) (*Prompt, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, corpus.Errorf(corpus.EINVALID, "question required")
	}

	p := &Prompt{Question: req.Question}
	if req.Upload != nil && len(req.Upload.Data) > 0 {
		doc, err := s.Ingest(ctx, req.Upload)
		if err != nil {
			return nil, err
		}
		p.Uploaded = doc
		if isImage(req.Upload) {
			p.UploadedImage = req.Upload.Data
		}
	}

	contexts, err := s.Contexts(ctx, req.Question, p.Uploaded)
	if err != nil {
		return nil, err
	}
	p.Contexts = contexts
	return p, nil
}

// Stream answers req, writing text events as the model produces them and
// asset events for the markers in the completed answer. If generation
// fails after the stream has started, an error event is written and the
// error is returned.
func (s *Service) Stream(ctx context.Context, w EventWriter, req Request) error {
	p, err := s.Prepare(ctx, req)
	if err != nil {
		return err
	}

	answer, err := s.generate(ctx, p.Messages(), func(fragment string) error {
		return w.WriteEvent(Event{Type: EventText, Content: fragment})
	})
	if err != nil {
		if ctx.Err() == nil {
			_ = w.WriteEvent(Event{Type: EventError, Content: corpus.ErrorMessage(err)})
		}
		return err
	}

	session := resolve.NewSession(s.Resolver)
	for _, m := range corpus.ParseMarkers(answer) {
		for _, e := range session.Resolve(ctx, m) {
			ev, ok := s.assetEvent(e)
			if !ok {
				continue
			}
			if err := w.WriteEvent(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// generate runs the model behind the gate and returns the full answer.
func (s *Service) generate(ctx context.Context, messages []corpus.Message, fn corpus.GenerateFunc) (string, error) {
	if s.Gate != nil {
		release, err := s.Gate.Acquire(ctx)
		if err != nil {
			return "", err
		}
		defer release()
	}

	var answer strings.Builder
	err := s.Generator.Generate(ctx, messages, func(fragment string) error {
		if fragment == "" {
			return nil
		}
		answer.WriteString(fragment)
		return fn(fragment)
	})
	return answer.String(), err
}

func (s *Service) assetEvent(e resolve.Emission) (Event, bool) {
	a := e.Asset
	ev := Event{
		Type:  EventImage,
		DocID: e.Marker.ID,
		MIME:  a.MIME,
		Size:  a.Size(),
	}
	if e.Marker.Kind == corpus.MarkerFile {
		ev.Type = EventFile
		ev.Filename = a.Filename
		if ev.Filename == "" {
			ev.Filename = "file.bin"
		}
		if ev.MIME == "" {
			ev.MIME = "application/octet-stream"
		}
	}

	if u := a.URL(); u != "" {
		ev.URL = u
		return ev, true
	}
	if a.Size() > s.maxInlineBytes() {
		s.logger().Warn("asset too large to inline", "doc_id", e.Marker.ID, "bytes", a.Size())
		return Event{}, false
	}
	ev.ContentB64 = base64.StdEncoding.EncodeToString(a.Content)
	return ev, true
}

func (s *Service) k() int {
	if s.K > 0 {
		return s.K
	}
	return DefaultK
}

func (s *Service) maxInlineBytes() int {
	if s.MaxInlineBytes > 0 {
		return s.MaxInlineBytes
	}
	return DefaultMaxInlineBytes
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func uploadID(name string) string {
	u := uuid.New()
	return corpus.UploadedPrefix + "img-" + hex.EncodeToString(u[:]) + "-" + name
}

func isImage(u *Upload) bool {
	if strings.HasPrefix(strings.ToLower(u.ContentType), "image/") {
		return true
	}
	return strings.HasPrefix(http.DetectContentType(u.Data), "image/")
}

func contentType(u *Upload) string {
	ct := u.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(u.Data)
	}
	return ct
}
