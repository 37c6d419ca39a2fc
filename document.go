package corpus

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// Document identifier prefixes.
const (
	CrawledPrefix  = "docs://"
	UploadedPrefix = "uploaded://"

	// EmbeddedPrefix marks the source of an asset carved out of another
	// payload, such as a PDF image or an archive member.
	EmbeddedPrefix = "embedded:"
)

// Well-known Document.Meta keys.
const (
	MetaTitle       = "title"
	MetaStatus      = "status"
	MetaContentHash = "content_hash"
	MetaAuthor      = "author"
	MetaDescription = "description"
	MetaSiteName    = "site_name"
	MetaFilename    = "filename"
	MetaRendered    = "rendered"
)

// chunkSeparator joins a parent document ID and a chunk index.
const chunkSeparator = "#chunk-"

// Asset is a binary payload (image or file) owned by a Document.
type Asset struct {
	Content  []byte `json:"-"`
	MIME     string `json:"mime"`
	Source   string `json:"source"`
	Filename string `json:"filename,omitempty"`
}

// Size returns the payload length in bytes.
func (a Asset) Size() int {
	return len(a.Content)
}

// URL returns the asset's source when it is an absolute http(s) URL a
// client can fetch directly, or "" otherwise.
func (a Asset) URL() string {
	if strings.HasPrefix(a.Source, EmbeddedPrefix) {
		return ""
	}
	u, err := url.Parse(a.Source)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return a.Source
}

// Key returns the identity used to deduplicate asset payloads.
func (a Asset) Key() AssetKey {
	return AssetKey{Source: a.Source, Size: len(a.Content), MIME: a.MIME}
}

// AssetKey identifies an asset payload independent of its owner.
type AssetKey struct {
	Source string
	Size   int
	MIME   string
}

// Document represents a crawled page, a crawled binary resource or an
// uploaded file.
type Document struct {
	ID          string            `json:"docId"`
	SourceURL   string            `json:"sourceUrl,omitempty"`
	ContentType string            `json:"contentType"`
	Text        string            `json:"text"`
	Images      []Asset           `json:"images,omitempty"`
	Files       []Asset           `json:"files,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`

	// Parent is set on chunk-documents emitted for large pages.
	// Their assets are always resolved through the parent.
	Parent string `json:"parent,omitempty"`
}

// Validate returns an error if the document contains invalid fields.
func (d *Document) Validate() error {
	if d.ID == "" {
		return Errorf(EINVALID, "document ID required")
	}
	if d.Parent == d.ID {
		return Errorf(EINVALID, "document %q cannot be its own parent", d.ID)
	}
	return nil
}

// HasAssets reports whether the document owns any images or files.
func (d *Document) HasAssets() bool {
	return len(d.Images) > 0 || len(d.Files) > 0
}

// CrawledID returns the document ID for a crawled absolute URL.
func CrawledID(absoluteURL string) string {
	return CrawledPrefix + absoluteURL
}

// EmbeddedID returns the source ID of an asset found inside the payload
// called name, qualified by parts such as "page1" and "xref6". A name
// that is already embedded is not prefixed twice.
func EmbeddedID(name string, parts ...string) string {
	if !strings.HasPrefix(name, EmbeddedPrefix) {
		name = EmbeddedPrefix + name
	}
	if len(parts) == 0 {
		return name
	}
	return name + ":" + strings.Join(parts, ":")
}

// ChunkID returns the ID of the n-th chunk of a parent document.
func ChunkID(parentID string, n int) string {
	return parentID + chunkSeparator + strconv.Itoa(n)
}

// TrimFragment strips everything from the last '#' in id.
// The bool result is false if id has no fragment.
func TrimFragment(id string) (string, bool) {
	i := strings.LastIndex(id, "#")
	if i < 0 {
		return id, false
	}
	return id[:i], true
}

// Store holds documents and the chunks derived from them.
//
// Adding a document is atomic with respect to readers: a Snapshot never
// contains a partially written document.
type Store interface {
	// AddDocument adds a document, replacing any document with the same ID.
	// Returns EINVALID if the document fails validation.
	AddDocument(ctx context.Context, doc *Document) error

	// FindDocumentByID retrieves a document by ID.
	// Returns ENOTFOUND if document does not exist.
	FindDocumentByID(ctx context.Context, id string) (*Document, error)

	// Snapshot returns a consistent, read-only view of the store.
	Snapshot() *Snapshot
}

// Snapshot is an immutable view of a Store. Callers must not modify it.
type Snapshot struct {
	// Documents in insertion order.
	Documents []*Document

	// Chunks of all documents in insertion order.
	Chunks []*Chunk

	// DocFreq maps a term to the number of chunks containing it.
	DocFreq map[string]int

	byID map[string]*Document
}

// NewSnapshot returns a snapshot over the given documents and chunks.
func NewSnapshot(docs []*Document, chunks []*Chunk, docFreq map[string]int) *Snapshot {
	byID := make(map[string]*Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}
	return &Snapshot{
		Documents: docs,
		Chunks:    chunks,
		DocFreq:   docFreq,
		byID:      byID,
	}
}

// Document returns the document with the given ID, or nil.
func (s *Snapshot) Document(id string) *Document {
	if s == nil {
		return nil
	}
	return s.byID[id]
}

// TotalChunks returns the number of chunks in the snapshot.
func (s *Snapshot) TotalChunks() int {
	if s == nil {
		return 0
	}
	return len(s.Chunks)
}

// SnapshotService persists whole-store snapshots.
type SnapshotService interface {
	// SaveSnapshot replaces the persisted snapshot with docs.
	SaveSnapshot(ctx context.Context, docs []*Document) error

	// LoadSnapshot returns the persisted documents in insertion order.
	LoadSnapshot(ctx context.Context) ([]*Document, error)
}
