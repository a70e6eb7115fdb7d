// Package transcode converts synthesized WAV replies into the compressed
// delivery format with an ffmpeg binary.
package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

var execCommandContext = exec.CommandContext

// FFmpeg runs the ffmpeg binary at Path.
type FFmpeg struct {
	Path string
}

func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{Path: path}
}

// Convert encodes input into output as AAC audio. The container follows the
// output extension. A non-zero exit status is returned as an error carrying
// the tail of ffmpeg's stderr.
func (f *FFmpeg) Convert(ctx context.Context, input, output string) error {
	cmd := execCommandContext(ctx, f.Path,
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", input,
		"-c:a", "aac", "-b:a", "64k",
		output,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[len(msg)-512:]
		}
		if msg == "" {
			return fmt.Errorf("ffmpeg %s: %w", input, err)
		}
		return fmt.Errorf("ffmpeg %s: %w: %s", input, err, msg)
	}
	return nil
}
