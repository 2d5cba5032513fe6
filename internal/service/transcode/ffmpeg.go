package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// FFmpeg invokes the external ffmpeg binary to normalize captured clips into
// the mono WAV layout the ASR providers expect.
type FFmpeg struct {
	binPath string
}

// NewFFmpeg returns an adapter around the given ffmpeg binary path.
func NewFFmpeg(binPath string) *FFmpeg {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	return &FFmpeg{binPath: binPath}
}

// ToWAV converts sourcePath into a mono WAV at sampleRate, overwriting
// targetPath. A non-zero exit surfaces as an error carrying ffmpeg's stderr.
func (f *FFmpeg) ToWAV(ctx context.Context, sourcePath, targetPath string, sampleRate int) error {
	cmd := exec.CommandContext(ctx, f.binPath,
		"-y",
		"-i", sourcePath,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		targetPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg 转码失败: %v: %s", err, stderr.String())
	}
	return nil
}
