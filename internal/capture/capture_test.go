package capture

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/worklens/worklens/internal/config"
	"github.com/worklens/worklens/internal/enrich"
	"github.com/worklens/worklens/internal/observe"
	"github.com/worklens/worklens/internal/store"
)

type fakeEnumerator struct {
	enumeration *observe.Enumeration
	err         error
}

func (f *fakeEnumerator) Enumerate(ctx context.Context) (*observe.Enumeration, error) {
	return f.enumeration, f.err
}

type fakeDescriber struct{}

func (fakeDescriber) Describe(ctx context.Context, name, bundleID string) (string, error) {
	return "a test app", nil
}

type fakeClassifier struct {
	result *enrich.Classification
	err    error
}

func (f *fakeClassifier) Classify(ctx context.Context, png []byte) (*enrich.Classification, error) {
	return f.result, f.err
}

type fakeScreens struct {
	path string
	data []byte
	err  error
}

func (f *fakeScreens) Capture(ctx context.Context) (string, []byte, error) {
	return f.path, f.data, f.err
}

func testAgent(t *testing.T, cfg *config.Config, enumerator observe.Enumerator, screens Screenshotter, classifier Classifier) (*Agent, *store.Store) {
	t.Helper()

	st, err := store.NewStore(store.Config{
		Path:     filepath.Join(t.TempDir(), "worklens.db"),
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	recorder := store.NewRecorder(st, fakeDescriber{}, cfg.Browsers)
	return NewAgent(cfg, st, recorder, enumerator, screens, classifier, true), st
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.IntervalSeconds = 1
	cfg.MinWindowArea = 100
	return cfg
}

func TestTick_RecordsSnapshot(t *testing.T) {
	enumerator := &fakeEnumerator{
		enumeration: &observe.Enumeration{
			Lines: []string{
				"Safari|com.apple.Safari|1756600000|1|1440|900|Docs|1",
				"broken line",
				"Terminal|com.apple.Terminal|2|800|600|zsh|0",
			},
			FrontmostApp: "com.apple.Safari",
			FrontmostTab: &observe.Tab{URL: "https://docs.example.com", Title: "Docs"},
		},
	}

	agent, st := testAgent(t, testConfig(), enumerator, nil, nil)
	require.NoError(t, agent.tick(context.Background()))

	var snapshots, windows, tabbed int64
	require.NoError(t, st.DB.Model(&store.Snapshot{}).Count(&snapshots).Error)
	require.NoError(t, st.DB.Model(&store.Window{}).Count(&windows).Error)
	require.NoError(t, st.DB.Model(&store.Window{}).Where("tab_url IS NOT NULL").Count(&tabbed).Error)

	assert.EqualValues(t, 1, snapshots)
	assert.EqualValues(t, 2, windows, "the malformed line is dropped, not errored")
	assert.EqualValues(t, 1, tabbed)
}

func TestTick_EnumerationFailure(t *testing.T) {
	enumerator := &fakeEnumerator{
		err: &observe.EnumerationError{Err: errors.New("helper crashed")},
	}

	agent, st := testAgent(t, testConfig(), enumerator, nil, nil)
	err := agent.tick(context.Background())
	require.Error(t, err)

	var enumErr *observe.EnumerationError
	assert.ErrorAs(t, err, &enumErr)

	var snapshots int64
	require.NoError(t, st.DB.Model(&store.Snapshot{}).Count(&snapshots).Error)
	assert.EqualValues(t, 0, snapshots)
}

func TestTick_ClassificationFailureRecordsErrorRow(t *testing.T) {
	cfg := testConfig()
	cfg.Screenshots.Enabled = true

	enumerator := &fakeEnumerator{
		enumeration: &observe.Enumeration{
			Lines: []string{"Safari|com.apple.Safari|1|1440|900|Docs|1"},
		},
	}
	screens := &fakeScreens{path: "/tmp/shot.png", data: []byte("png")}
	classifier := &fakeClassifier{err: errors.New("vision service down")}

	agent, st := testAgent(t, cfg, enumerator, screens, classifier)

	// Classification failures must never fail the tick.
	require.NoError(t, agent.tick(context.Background()))

	var analysis store.SnapshotAnalysis
	require.NoError(t, st.DB.First(&analysis).Error)
	assert.Equal(t, "error", analysis.Category)
	assert.Contains(t, analysis.Description, "vision service down")
}

func TestTick_ClassificationRecorded(t *testing.T) {
	cfg := testConfig()
	cfg.Screenshots.Enabled = true

	enumerator := &fakeEnumerator{
		enumeration: &observe.Enumeration{
			Lines: []string{"Safari|com.apple.Safari|1|1440|900|Docs|1"},
		},
	}
	screens := &fakeScreens{path: "/tmp/shot.png", data: []byte("png")}
	classifier := &fakeClassifier{
		result: &enrich.Classification{Category: "browsing", Description: "Reading docs"},
	}

	agent, st := testAgent(t, cfg, enumerator, screens, classifier)
	require.NoError(t, agent.tick(context.Background()))

	var analysis store.SnapshotAnalysis
	require.NoError(t, st.DB.First(&analysis).Error)
	assert.Equal(t, "browsing", analysis.Category)

	var snap store.Snapshot
	require.NoError(t, st.DB.First(&snap).Error)
	assert.Equal(t, "/tmp/shot.png", snap.ScreenshotPath.String)
}

func TestTick_ScreenshotFailureStillRecords(t *testing.T) {
	cfg := testConfig()
	cfg.Screenshots.Enabled = true

	enumerator := &fakeEnumerator{
		enumeration: &observe.Enumeration{
			Lines: []string{"Safari|com.apple.Safari|1|1440|900|Docs|1"},
		},
	}
	screens := &fakeScreens{err: errors.New("no display")}
	classifier := &fakeClassifier{}

	agent, st := testAgent(t, cfg, enumerator, screens, classifier)
	require.NoError(t, agent.tick(context.Background()))

	var snap store.Snapshot
	require.NoError(t, st.DB.First(&snap).Error)
	assert.False(t, snap.ScreenshotPath.Valid)

	var analyses int64
	require.NoError(t, st.DB.Model(&store.SnapshotAnalysis{}).Count(&analyses).Error)
	assert.EqualValues(t, 0, analyses, "nothing to classify without an image")
}

func TestRun_ContinuesAfterFailedTick(t *testing.T) {
	enumerator := &fakeEnumerator{
		err: &observe.EnumerationError{Err: errors.New("flaky helper")},
	}
	agent, _ := testAgent(t, testConfig(), enumerator, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// The failed tick is logged; cancellation ends the loop cleanly.
	require.NoError(t, agent.Run(ctx))
}
