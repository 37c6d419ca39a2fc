package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fwojciec/corpus"
)

// Asset kinds stored in the assets table.
const (
	kindImage = "image"
	kindFile  = "file"
)

// Compile-time interface verification.
var _ corpus.SnapshotService = (*SnapshotService)(nil)

// SnapshotService implements corpus.SnapshotService using SQLite.
type SnapshotService struct {
	db *DB
}

// NewSnapshotService creates a new SnapshotService.
func NewSnapshotService(db *DB) *SnapshotService {
	return &SnapshotService{db: db}
}

// SaveSnapshot atomically replaces the stored documents with docs.
func (s *SnapshotService) SaveSnapshot(ctx context.Context, docs []*corpus.Document) error {
	for _, doc := range docs {
		if err := doc.Validate(); err != nil {
			return err
		}
	}

	savedAt := time.Now().UTC().Format(time.RFC3339)
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM assets"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
			return err
		}

		docStmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO documents (id, position, source_url, content_type, text, meta, parent, saved_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer docStmt.Close()

		assetStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO assets (document_id, kind, position, mime, source, filename, content, content_hash)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer assetStmt.Close()

		for i, doc := range docs {
			meta, err := json.Marshal(doc.Meta)
			if err != nil {
				return fmt.Errorf("failed to encode meta of %s: %w", doc.ID, err)
			}
			if doc.Meta == nil {
				meta = []byte("{}")
			}
			if _, err := docStmt.ExecContext(ctx, doc.ID, i, doc.SourceURL, doc.ContentType, doc.Text, string(meta), doc.Parent, savedAt); err != nil {
				return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
			}
			// A repeated ID replaces the earlier row; drop its assets too.
			if _, err := tx.ExecContext(ctx, "DELETE FROM assets WHERE document_id = ?", doc.ID); err != nil {
				return err
			}
			if err := insertAssets(ctx, assetStmt, doc.ID, kindImage, doc.Images); err != nil {
				return err
			}
			if err := insertAssets(ctx, assetStmt, doc.ID, kindFile, doc.Files); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertAssets(ctx context.Context, stmt *sql.Stmt, docID, kind string, assets []corpus.Asset) error {
	for i, a := range assets {
		content := a.Content
		if content == nil {
			content = []byte{}
		}
		if _, err := stmt.ExecContext(ctx, docID, kind, i, a.MIME, a.Source, a.Filename, content, hashContent(content)); err != nil {
			return fmt.Errorf("failed to save %s asset %d of %s: %w", kind, i, docID, err)
		}
	}
	return nil
}

// LoadSnapshot returns the stored documents in their saved order.
func (s *SnapshotService) LoadSnapshot(ctx context.Context) ([]*corpus.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_url, content_type, text, meta, parent
		FROM documents
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*corpus.Document
	byID := make(map[string]*corpus.Document)
	for rows.Next() {
		var doc corpus.Document
		var meta string
		if err := rows.Scan(&doc.ID, &doc.SourceURL, &doc.ContentType, &doc.Text, &meta, &doc.Parent); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &doc.Meta); err != nil {
			return nil, fmt.Errorf("failed to decode meta of %s: %w", doc.ID, err)
		}
		if len(doc.Meta) == 0 {
			doc.Meta = nil
		}
		docs = append(docs, &doc)
		byID[doc.ID] = &doc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadAssets(ctx, byID); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *SnapshotService) loadAssets(ctx context.Context, byID map[string]*corpus.Document) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, kind, mime, source, filename, content
		FROM assets
		ORDER BY document_id, kind, position
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var docID, kind string
		var a corpus.Asset
		if err := rows.Scan(&docID, &kind, &a.MIME, &a.Source, &a.Filename, &a.Content); err != nil {
			return err
		}
		doc, ok := byID[docID]
		if !ok {
			continue
		}
		switch kind {
		case kindImage:
			doc.Images = append(doc.Images, a)
		case kindFile:
			doc.Files = append(doc.Files, a)
		}
	}
	return rows.Err()
}

// Restore loads the stored snapshot into store and returns the number of
// documents added.
func Restore(ctx context.Context, snapshots corpus.SnapshotService, store corpus.Store) (int, error) {
	docs, err := snapshots.LoadSnapshot(ctx)
	if err != nil {
		return 0, err
	}
	for _, doc := range docs {
		if err := store.AddDocument(ctx, doc); err != nil {
			return 0, err
		}
	}
	return len(docs), nil
}
