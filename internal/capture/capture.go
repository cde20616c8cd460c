// Package capture runs the fixed-interval tick loop that samples the
// desktop and records one snapshot per tick.
package capture

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/worklens/worklens/internal/config"
	"github.com/worklens/worklens/internal/enrich"
	"github.com/worklens/worklens/internal/observe"
	"github.com/worklens/worklens/internal/store"
)

// Classifier categorizes a screenshot. Classification failures are never
// fatal; they are recorded as an "error" analysis row.
type Classifier interface {
	Classify(ctx context.Context, png []byte) (*enrich.Classification, error)
}

// Agent owns one capture loop. Ticks never overlap: the next tick is
// scheduled only after the current one has fully completed.
type Agent struct {
	cfg        *config.Config
	store      *store.Store
	recorder   *store.Recorder
	enumerator observe.Enumerator
	screens    Screenshotter
	classifier Classifier
	quiet      bool
}

// NewAgent wires a capture agent. screens and classifier may be nil when
// the screenshots capability is disabled.
func NewAgent(cfg *config.Config, st *store.Store, recorder *store.Recorder, enumerator observe.Enumerator, screens Screenshotter, classifier Classifier, quiet bool) *Agent {
	return &Agent{
		cfg:        cfg,
		store:      st,
		recorder:   recorder,
		enumerator: enumerator,
		screens:    screens,
		classifier: classifier,
		quiet:      quiet,
	}
}

// Run executes ticks until the context is cancelled. Tick failures are
// logged and the loop continues; one bad tick must never stop the schedule.
func (a *Agent) Run(ctx context.Context) error {
	if !a.quiet {
		log.Info().
			Int("interval_seconds", a.cfg.IntervalSeconds).
			Bool("screenshots", a.cfg.Screenshots.Enabled).
			Msg("worklens started, capturing snapshots")
	}

	for {
		if err := a.tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Msg("Tick failed, waiting for next interval")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(a.cfg.Interval()):
		}
	}
}

// tick performs one capture: enumerate, normalize, record, and optionally
// screenshot + classify. All suspension points are I/O waits.
func (a *Agent) tick(ctx context.Context) error {
	start := time.Now()

	enumeration, err := a.enumerator.Enumerate(ctx)
	if err != nil {
		return err
	}

	windows := slices.Collect(observe.Normalize(enumeration.Lines, a.cfg.MinWindowArea))

	var screenshotPath string
	var png []byte
	if a.cfg.Screenshots.Enabled && a.screens != nil {
		path, data, err := a.screens.Capture(ctx)
		if err != nil {
			// The snapshot is still worth recording without the image.
			log.Warn().Err(err).Msg("Screenshot capture failed, recording snapshot without it")
		} else {
			screenshotPath = path
			png = data
		}
	}

	snapshotID, err := a.recorder.RecordSnapshot(ctx, windows, enumeration.FrontmostApp, enumeration.FrontmostTab, screenshotPath)
	if err != nil {
		return err
	}

	if png != nil && a.classifier != nil {
		a.classify(ctx, snapshotID, png)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Int("windows", len(windows)).
		Dur("elapsed", time.Since(start)).
		Msg("Snapshot captured")
	return nil
}

// classify records the vision classification for a snapshot. Failures are
// stored under category "error" and logged, never propagated.
func (a *Agent) classify(ctx context.Context, snapshotID int64, png []byte) {
	result, err := a.classifier.Classify(ctx, png)
	if err != nil {
		log.Warn().Err(err).Int64("snapshot_id", snapshotID).Msg("Screenshot classification failed")
		if recErr := a.store.RecordAnalysis(ctx, snapshotID, "error", "Analysis failed: "+err.Error()); recErr != nil {
			log.Error().Err(recErr).Int64("snapshot_id", snapshotID).Msg("Failed to record analysis error")
		}
		return
	}

	if err := a.store.RecordAnalysis(ctx, snapshotID, result.Category, result.Description); err != nil {
		log.Error().Err(err).Int64("snapshot_id", snapshotID).Msg("Failed to record analysis")
	}
}
