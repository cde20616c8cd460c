// Package observe turns the native helper's raw window records into
// validated observations ready for persistence.
package observe

import (
	"iter"
	"strconv"
	"strings"
)

// WindowObservation is one raw, validated window record for a single tick.
// It is ephemeral: observations exist only between enumeration and the
// snapshot recorder, and are never persisted as-is.
type WindowObservation struct {
	AppName    string
	BundleID   string
	LaunchTime int64 // epoch seconds; 0 when the helper did not report one
	WindowID   int
	Width      int
	Height     int
	Title      string
	Frontmost  bool
}

// Area returns the window surface in pixels.
func (o WindowObservation) Area() int {
	return o.Width * o.Height
}

// Parse splits one pipe-delimited helper record into a WindowObservation.
// Records carry either 7 fields (no launch time) or 8 fields:
//
//	appName|bundleId|launchTime|windowId|width|height|title|frontmost
//
// The boolean frontmost flag is encoded as "0"/"1". Parse reports ok=false
// for records with the wrong field count or non-integer numeric fields;
// malformed records are dropped, never errored.
func Parse(line string) (WindowObservation, bool) {
	fields := strings.Split(line, "|")

	var obs WindowObservation
	var numeric []string

	switch len(fields) {
	case 7:
		obs.AppName = fields[0]
		obs.BundleID = fields[1]
		obs.Title = fields[5]
		obs.Frontmost = fields[6] == "1"
		numeric = fields[2:5]
	case 8:
		obs.AppName = fields[0]
		obs.BundleID = fields[1]
		obs.Title = fields[6]
		obs.Frontmost = fields[7] == "1"

		launch, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return WindowObservation{}, false
		}
		obs.LaunchTime = launch
		numeric = fields[3:6]
	default:
		return WindowObservation{}, false
	}

	ints := make([]int, len(numeric))
	for i, f := range numeric {
		n, err := strconv.Atoi(f)
		if err != nil {
			return WindowObservation{}, false
		}
		ints[i] = n
	}
	obs.WindowID, obs.Width, obs.Height = ints[0], ints[1], ints[2]

	return obs, true
}

// Normalize yields the validated observations from a batch of raw records,
// preserving input order. Dropped without error: malformed records,
// duplicate window ids (first occurrence wins), non-positive dimensions,
// empty titles, and windows smaller than minArea. The sequence is lazy and
// meant for a single pass; normalization performs no I/O.
func Normalize(lines []string, minArea int) iter.Seq[WindowObservation] {
	return func(yield func(WindowObservation) bool) {
		seen := make(map[int]struct{})
		for _, line := range lines {
			obs, ok := Parse(line)
			if !ok {
				continue
			}
			if _, dup := seen[obs.WindowID]; dup {
				continue
			}
			seen[obs.WindowID] = struct{}{}

			if obs.Width <= 0 || obs.Height <= 0 || obs.Title == "" {
				continue
			}
			if obs.Area() < minArea {
				continue
			}
			if !yield(obs) {
				return
			}
		}
	}
}
