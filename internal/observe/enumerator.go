package observe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Tab is the frontmost browser tab reported by the helper.
type Tab struct {
	URL   string
	Title string
}

// Enumeration is everything the native helper reports for one tick: the raw
// window records, the frontmost application's bundle id, and, when the
// frontmost app is a known browser, its active tab.
type Enumeration struct {
	Lines        []string
	FrontmostApp string
	FrontmostTab *Tab
}

// Enumerator is the boundary to the native window-enumeration mechanism.
type Enumerator interface {
	Enumerate(ctx context.Context) (*Enumeration, error)
}

// EnumerationError wraps a failure of the native observation source.
type EnumerationError struct {
	Err error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("enumerate windows: %v", e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// HelperEnumerator shells out to the platform helper binary. The helper
// prints one pipe-delimited window record per line for `windows`, the
// frontmost bundle id for `frontmost`, and a `url|title` pair for
// `frontmost-tab` (empty output when the frontmost app is not a browser).
type HelperEnumerator struct {
	Path string
}

// NewHelperEnumerator returns an enumerator backed by the helper at path.
func NewHelperEnumerator(path string) *HelperEnumerator {
	return &HelperEnumerator{Path: path}
}

// Enumerate runs the helper and collects one tick's worth of observations.
func (h *HelperEnumerator) Enumerate(ctx context.Context) (*Enumeration, error) {
	windows, err := h.run(ctx, "windows")
	if err != nil {
		return nil, &EnumerationError{Err: err}
	}

	lines := splitLines(windows)
	if len(lines) == 0 {
		return nil, &EnumerationError{Err: fmt.Errorf("helper returned no windows")}
	}

	frontmost, err := h.run(ctx, "frontmost")
	if err != nil {
		return nil, &EnumerationError{Err: err}
	}

	result := &Enumeration{
		Lines:        lines,
		FrontmostApp: strings.TrimSpace(frontmost),
	}

	if result.FrontmostApp != "" {
		tabOut, err := h.run(ctx, "frontmost-tab")
		if err != nil {
			return nil, &EnumerationError{Err: err}
		}
		if tab := strings.TrimSpace(tabOut); tab != "" {
			url, title, found := strings.Cut(tab, "|")
			if found {
				result.FrontmostTab = &Tab{URL: url, Title: title}
			}
		}
	}

	return result, nil
}

func (h *HelperEnumerator) run(ctx context.Context, subcommand string) (string, error) {
	cmd := exec.CommandContext(ctx, h.Path, subcommand)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("helper %s: %w (%s)", subcommand, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
