package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// launchTolerance is how far (in seconds) an observed launch time may drift
// from a session's stored launch time and still count as the same run
// instance. The comparison is always against the originally stored value,
// never a sliding average. Two instances of one app launched within the
// tolerance of each other collapse into a single session.
const launchTolerance = 10

// correlateSession returns the AppSession id for an app observed with the
// given launch time, reusing an existing session within the tolerance or
// creating a new one. Runs inside the caller's transaction.
func correlateSession(ctx context.Context, tx *gorm.DB, appID, launchTime int64) (int64, error) {
	var session AppSession
	err := tx.WithContext(ctx).
		Where("app_id = ? AND launch_time BETWEEN ? AND ?",
			appID, launchTime-launchTolerance, launchTime+launchTolerance).
		First(&session).Error
	if err == nil {
		return session.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("look up session for app %d: %w", appID, err)
	}

	created := AppSession{AppID: appID, LaunchTime: launchTime}
	if err := tx.WithContext(ctx).Create(&created).Error; err != nil {
		return 0, fmt.Errorf("insert session for app %d: %w", appID, err)
	}
	return created.ID, nil
}
