package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const itemPrefix = "item:"

// TestItem is a free-form record used to exercise the database from the debug routes.
type TestItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AddTestItem stores a new item and returns it.
func (s *Store) AddTestItem(ctx context.Context, name string, description *string) (TestItem, error) {
	if name == "" {
		return TestItem{}, fmt.Errorf("name is required")
	}
	now := time.Now().UTC()
	it := TestItem{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Put(ctx, itemPrefix+it.ID, it); err != nil {
		return TestItem{}, err
	}
	return it, nil
}

// ListTestItems returns every test item.
func (s *Store) ListTestItems(ctx context.Context) ([]TestItem, error) {
	items, err := s.List(ctx, itemPrefix, 0)
	if err != nil {
		return nil, err
	}
	out := make([]TestItem, 0, len(items))
	for _, raw := range items {
		var it TestItem
		if err := raw.Decode(&it); err != nil {
			return nil, fmt.Errorf("decode item %s: %w", raw.Key, err)
		}
		out = append(out, it)
	}
	return out, nil
}
