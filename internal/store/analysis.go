package store

import (
	"context"
	"fmt"
)

// RecordAnalysis stores the classification result for a snapshot's
// screenshot in its own transaction, separate from the tick that created
// the snapshot. Failed classifications are recorded with category "error"
// by the caller rather than surfaced as tick failures.
func (s *Store) RecordAnalysis(ctx context.Context, snapshotID int64, category, description string) error {
	analysis := SnapshotAnalysis{
		SnapshotID:  snapshotID,
		Category:    category,
		Description: description,
	}
	if err := s.DB.WithContext(ctx).Create(&analysis).Error; err != nil {
		return fmt.Errorf("record snapshot analysis: %w", err)
	}
	return nil
}
