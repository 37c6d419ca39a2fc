package corpus

import (
	"context"
	"time"
)

// Area is a named knowledge-base area backed by a crawlable site.
type Area struct {
	Name        string    `json:"area_name"`
	DisplayName string    `json:"display_name"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate returns an error if the area contains invalid fields.
func (a *Area) Validate() error {
	if a.Name == "" {
		return Errorf(EINVALID, "area name required")
	}
	if a.URL == "" {
		return Errorf(EINVALID, "area URL required")
	}
	return nil
}

// AreaService represents a service for managing knowledge-base areas.
type AreaService interface {
	// CreateArea creates a new area.
	// Returns ECONFLICT if an area with the same name exists.
	CreateArea(ctx context.Context, area *Area) error

	// FindAreaByName retrieves an area by name.
	// Returns ENOTFOUND if area does not exist.
	FindAreaByName(ctx context.Context, name string) (*Area, error)

	// FindAreas retrieves all areas ordered by name.
	FindAreas(ctx context.Context) ([]*Area, error)

	// UpdateArea updates an existing area.
	// Returns ENOTFOUND if area does not exist.
	UpdateArea(ctx context.Context, name string, upd AreaUpdate) (*Area, error)

	// DeleteArea permanently removes an area.
	// Returns ENOTFOUND if area does not exist.
	DeleteArea(ctx context.Context, name string) error
}

// AreaUpdate represents fields that can be updated on an area.
type AreaUpdate struct {
	DisplayName *string `json:"display_name"`
	URL         *string `json:"url"`
	Description *string `json:"description"`
}
