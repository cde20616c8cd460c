package store

import (
	"context"
	"fmt"
)

// ListApps returns every App row, ordered by name.
func (s *Store) ListApps(ctx context.Context) ([]App, error) {
	var apps []App
	err := s.DB.WithContext(ctx).Order("name ASC").Find(&apps).Error
	if err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}
	return apps, nil
}
