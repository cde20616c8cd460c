package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/worklens/worklens/internal/observe"
)

// RecordError wraps any failure of a snapshot-recording transaction. The
// tick that produced it is entirely lost; callers log it and wait for the
// next scheduled tick rather than retrying.
type RecordError struct {
	Err error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record snapshot: %v", e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Recorder turns one tick's normalized observations into a durable
// snapshot.
type Recorder struct {
	store     *Store
	describer Describer
	browsers  map[string]struct{}
}

// NewRecorder builds a recorder. browserBundleIDs is the set of bundle
// identifiers eligible for tab attribution.
func NewRecorder(store *Store, describer Describer, browserBundleIDs []string) *Recorder {
	browsers := make(map[string]struct{}, len(browserBundleIDs))
	for _, id := range browserBundleIDs {
		browsers[id] = struct{}{}
	}
	return &Recorder{store: store, describer: describer, browsers: browsers}
}

// appGroup collects one tick's windows for a single bundle identifier.
type appGroup struct {
	bundleID   string
	name       string
	launchTime int64 // earliest reported launch time in the group; 0 if none
	windows    []observe.WindowObservation
}

// RecordSnapshot writes one capture tick inside a single transaction:
// snapshot row, app identities, session correlation, session links, and one
// window row per observation with tab attribution applied. Either every row
// commits or none do. Returns the snapshot id.
func (r *Recorder) RecordSnapshot(ctx context.Context, windows []observe.WindowObservation, frontmostApp string, frontmostTab *observe.Tab, screenshotPath string) (int64, error) {
	now := time.Now()
	var snapshotID int64

	err := r.store.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		snap := Snapshot{
			Timestamp:      now.Format(time.RFC3339),
			TimestampEpoch: now.UnixMilli(),
			ScreenshotPath: nullString(screenshotPath),
		}
		if err := tx.Create(&snap).Error; err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}

		// Tab metadata attaches to at most one window per tick.
		tabAttributed := false

		for _, group := range groupByBundle(windows) {
			appID, err := resolveApp(ctx, tx, r.describer, group.bundleID, group.name)
			if err != nil {
				return err
			}

			var sessionID sql.NullInt64
			if group.launchTime > 0 {
				id, err := correlateSession(ctx, tx, appID, group.launchTime)
				if err != nil {
					return err
				}
				sessionID = sql.NullInt64{Int64: id, Valid: true}

				link := SnapshotAppSession{SnapshotID: snap.ID, AppSessionID: id}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
					return fmt.Errorf("link session %d to snapshot: %w", id, err)
				}
			}

			for _, w := range group.windows {
				row := Window{
					SnapshotID:   snap.ID,
					AppID:        appID,
					AppSessionID: sessionID,
					Width:        w.Width,
					Height:       w.Height,
					Title:        w.Title,
					IsFrontmost:  w.Frontmost,
				}
				if !tabAttributed && r.attributeTab(w, frontmostApp, frontmostTab) {
					row.TabURL = nullString(frontmostTab.URL)
					row.TabTitle = nullString(frontmostTab.Title)
					tabAttributed = true
				}
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("insert window %q: %w", w.Title, err)
				}
			}
		}

		snapshotID = snap.ID
		return nil
	})
	if err != nil {
		return 0, &RecordError{Err: err}
	}

	return snapshotID, nil
}

// attributeTab reports whether a window should receive the frontmost tab's
// url/title: the window must belong to a recognized browser, that browser
// must be the reported frontmost application, and the window title must
// exactly equal the tab title. Title equality is the only available linkage
// between an enumerated window and a tab, so identically titled tabs can
// misattribute; that imprecision is inherent, not corrected here.
func (r *Recorder) attributeTab(w observe.WindowObservation, frontmostApp string, tab *observe.Tab) bool {
	if tab == nil {
		return false
	}
	if _, ok := r.browsers[w.BundleID]; !ok {
		return false
	}
	return w.BundleID == frontmostApp && w.Title == tab.Title
}

// groupByBundle groups observations by bundle id, preserving the order of
// first appearance. Each group keeps the earliest reported launch time.
func groupByBundle(windows []observe.WindowObservation) []appGroup {
	index := make(map[string]int)
	var groups []appGroup

	for _, w := range windows {
		i, ok := index[w.BundleID]
		if !ok {
			index[w.BundleID] = len(groups)
			groups = append(groups, appGroup{
				bundleID:   w.BundleID,
				name:       w.AppName,
				launchTime: w.LaunchTime,
				windows:    []observe.WindowObservation{w},
			})
			continue
		}

		g := &groups[i]
		g.windows = append(g.windows, w)
		if w.LaunchTime > 0 && (g.launchTime == 0 || w.LaunchTime < g.launchTime) {
			g.launchTime = w.LaunchTime
		}
	}

	return groups
}
