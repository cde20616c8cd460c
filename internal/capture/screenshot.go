package capture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Screenshotter captures the display to a PNG file and returns its path
// and contents.
type Screenshotter interface {
	Capture(ctx context.Context) (string, []byte, error)
}

// ScreencaptureTool shells out to the OS screenshot utility
// (`screencapture -x -t png` on macOS).
type ScreencaptureTool struct {
	Dir string
}

// Capture takes one screenshot into a timestamped file under Dir.
func (t *ScreencaptureTool) Capture(ctx context.Context) (string, []byte, error) {
	filename := fmt.Sprintf("screenshot-%s.png", time.Now().Format("20060102-150405"))
	path := filepath.Join(t.Dir, filename)

	cmd := exec.CommandContext(ctx, "screencapture", "-x", "-t", "png", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", nil, fmt.Errorf("capture screenshot: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read screenshot file: %w", err)
	}
	return path, data, nil
}
