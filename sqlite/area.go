package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fwojciec/corpus"
)

// Compile-time interface verification.
var _ corpus.AreaService = (*AreaService)(nil)

// AreaService implements corpus.AreaService using SQLite.
type AreaService struct {
	db *DB
}

// NewAreaService creates a new AreaService.
func NewAreaService(db *DB) *AreaService {
	return &AreaService{db: db}
}

// CreateArea creates a new area.
func (s *AreaService) CreateArea(ctx context.Context, area *corpus.Area) error {
	if err := area.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	area.CreatedAt = now
	area.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO areas (name, display_name, url, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO NOTHING
	`, area.Name, area.DisplayName, area.URL, area.Description,
		area.CreatedAt.Format(time.RFC3339), area.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return corpus.Errorf(corpus.ECONFLICT, "area %q already exists", area.Name)
	}
	return nil
}

// FindAreaByName retrieves an area by name.
func (s *AreaService) FindAreaByName(ctx context.Context, name string) (*corpus.Area, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, display_name, url, description, created_at, updated_at
		FROM areas
		WHERE name = ?
	`, name)

	area, err := scanArea(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, corpus.Errorf(corpus.ENOTFOUND, "area %q not found", name)
	}
	return area, err
}

// FindAreas retrieves all areas ordered by name.
func (s *AreaService) FindAreas(ctx context.Context) ([]*corpus.Area, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, display_name, url, description, created_at, updated_at
		FROM areas
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var areas []*corpus.Area
	for rows.Next() {
		area, err := scanArea(rows)
		if err != nil {
			return nil, err
		}
		areas = append(areas, area)
	}
	return areas, rows.Err()
}

// UpdateArea updates an existing area.
func (s *AreaService) UpdateArea(ctx context.Context, name string, upd corpus.AreaUpdate) (*corpus.Area, error) {
	area, err := s.FindAreaByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if upd.DisplayName != nil {
		area.DisplayName = *upd.DisplayName
	}
	if upd.URL != nil {
		area.URL = *upd.URL
	}
	if upd.Description != nil {
		area.Description = *upd.Description
	}

	if err := area.Validate(); err != nil {
		return nil, err
	}

	area.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE areas
		SET display_name = ?, url = ?, description = ?, updated_at = ?
		WHERE name = ?
	`, area.DisplayName, area.URL, area.Description, area.UpdatedAt.Format(time.RFC3339), name)
	if err != nil {
		return nil, err
	}

	return area, nil
}

// DeleteArea permanently removes an area.
func (s *AreaService) DeleteArea(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM areas WHERE name = ?", name)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return corpus.Errorf(corpus.ENOTFOUND, "area %q not found", name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArea(row scanner) (*corpus.Area, error) {
	var area corpus.Area
	var createdAt, updatedAt string
	if err := row.Scan(&area.Name, &area.DisplayName, &area.URL, &area.Description, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if area.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if area.UpdatedAt, err = parseRFC3339(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &area, nil
}
