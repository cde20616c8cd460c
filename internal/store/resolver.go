package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Describer provides a description for a newly seen application. The call
// is a network round trip; resolveApp invokes it only on the slow path.
type Describer interface {
	Describe(ctx context.Context, name, bundleID string) (string, error)
}

// resolveApp returns the App id for a bundle identifier, creating the row
// on first sight. Runs inside the caller's transaction.
//
// The protocol is optimistic insert-then-reconcile: a concurrent agent
// instance may insert the same bundle id between our lookup and our insert,
// in which case the uniqueness constraint rejects the insert and the
// re-query finds the winner's row. If the re-query still finds nothing the
// failure was not the benign race and the original insert error is
// returned.
func resolveApp(ctx context.Context, tx *gorm.DB, describer Describer, bundleID, nameHint string) (int64, error) {
	var app App
	err := tx.WithContext(ctx).Where("bundle_id = ?", bundleID).First(&app).Error
	if err == nil {
		return app.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("look up app %s: %w", bundleID, err)
	}

	name := nameHint
	if name == "" {
		name = bundleID
	}

	description, err := describer.Describe(ctx, name, bundleID)
	if err != nil {
		return 0, fmt.Errorf("get description for app %s: %w", name, err)
	}

	created := App{BundleID: bundleID, Name: name, Description: description}
	if insertErr := tx.WithContext(ctx).Create(&created).Error; insertErr != nil {
		var existing App
		if err := tx.WithContext(ctx).Where("bundle_id = ?", bundleID).First(&existing).Error; err == nil {
			return existing.ID, nil
		}
		return 0, fmt.Errorf("insert app %s: %w", name, insertErr)
	}

	return created.ID, nil
}
