package store

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// App is the persistent identity of an application. Rows are created lazily
// on first observation of a bundle id and never updated or deleted; name and
// description stay fixed even if later observations report a different name.
type App struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	BundleID    string `gorm:"column:bundle_id;uniqueIndex;not null"`
	Name        string `gorm:"not null"`
	Description string `gorm:"not null"`
}

func (App) TableName() string { return "app" }

// Snapshot is one capture tick. Immutable once the owning transaction
// commits; partial snapshots never exist.
type Snapshot struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	Timestamp      string `gorm:"not null"`
	TimestampEpoch int64  `gorm:"index:idx_snapshot_time,sort:desc;not null"`
	ScreenshotPath sql.NullString
}

func (Snapshot) TableName() string { return "snapshot" }

// BeforeCreate hook to ensure timestamps are set.
func (s *Snapshot) BeforeCreate(tx *gorm.DB) error {
	if s.TimestampEpoch == 0 {
		s.TimestampEpoch = time.Now().UnixMilli()
	}
	if s.Timestamp == "" {
		s.Timestamp = time.Now().Format(time.RFC3339)
	}
	return nil
}

// AppSession is one continuous run instance of an App, identified by its
// approximate launch time. Sessions are never merged or split after
// creation.
type AppSession struct {
	ID         int64 `gorm:"primaryKey;autoIncrement"`
	AppID      int64 `gorm:"column:app_id;index:idx_app_session_lookup,priority:1;not null"`
	LaunchTime int64 `gorm:"index:idx_app_session_lookup,priority:2;not null"` // epoch seconds
}

func (AppSession) TableName() string { return "app_session" }

// SnapshotAppSession links a session to every snapshot it was observed in.
// The composite primary key makes the link row idempotent.
type SnapshotAppSession struct {
	SnapshotID   int64 `gorm:"primaryKey;autoIncrement:false"`
	AppSessionID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (SnapshotAppSession) TableName() string { return "snapshot_app_session" }

// Window is one observed window within one snapshot. Write-once; the
// session link is null when the helper reported no launch time.
type Window struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	SnapshotID   int64 `gorm:"index;not null"`
	AppID        int64 `gorm:"column:app_id;not null"`
	AppSessionID sql.NullInt64
	Width        int            `gorm:"not null"`
	Height       int            `gorm:"not null"`
	Title        string         `gorm:"not null;check:title <> ''"`
	IsFrontmost  bool           `gorm:"not null"`
	TabURL       sql.NullString `gorm:"column:tab_url"`
	TabTitle     sql.NullString
}

func (Window) TableName() string { return "window" }

// SnapshotAnalysis stores the vision classification of a snapshot's
// screenshot. Failed classifications are recorded under category "error"
// rather than propagated.
type SnapshotAnalysis struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	SnapshotID     int64  `gorm:"index;not null"`
	Category       string `gorm:"not null"`
	Description    string `gorm:"not null"`
	CreatedAt      string `gorm:"not null"`
	CreatedAtEpoch int64  `gorm:"not null"`
}

func (SnapshotAnalysis) TableName() string { return "snapshot_analysis" }

// BeforeCreate hook to ensure timestamps are set.
func (a *SnapshotAnalysis) BeforeCreate(tx *gorm.DB) error {
	if a.CreatedAtEpoch == 0 {
		a.CreatedAtEpoch = time.Now().UnixMilli()
	}
	if a.CreatedAt == "" {
		a.CreatedAt = time.Now().Format(time.RFC3339)
	}
	return nil
}

// nullString converts a string to sql.NullString.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
