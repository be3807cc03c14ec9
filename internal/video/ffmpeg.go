package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/saucelabs/sauce-playwright-reporter/internal/logger"
)

// DefaultFFmpegPath is looked up on PATH when no explicit binary is configured.
const DefaultFFmpegPath = "ffmpeg"

// concatWaitDelay bounds how long Concat waits for ffmpeg's output pipes to
// close once the process has exited or been killed.
const concatWaitDelay = 5 * time.Second

// ErrFFmpegNotFound is returned when the ffmpeg binary cannot be invoked.
var ErrFFmpegNotFound = errors.New("ffmpeg could not be found, ensure ffmpeg is available in your PATH")

// execCommandContext is replaced in tests to fake the ffmpeg process.
var execCommandContext = exec.CommandContext

// FFmpegWrapper runs the ffmpeg command line tool
type FFmpegWrapper struct {
	logger     *logger.Logger
	ffmpegPath string
}

// CommandError reports a failed ffmpeg invocation together with its output.
type CommandError struct {
	Args   []string
	Stdout string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ffmpeg %s: %v", strings.Join(e.Args, " "), e.Err)
	if out := strings.TrimSpace(e.Stdout); out != "" {
		fmt.Fprintf(&b, "\nstdout: %s", out)
	}
	if out := strings.TrimSpace(e.Stderr); out != "" {
		fmt.Fprintf(&b, "\nstderr: %s", out)
	}
	return b.String()
}

func (e *CommandError) Unwrap() error { return e.Err }

// NewFFmpegWrapper creates a wrapper for the binary at path. An empty path
// selects DefaultFFmpegPath. The binary is not probed until Probe is called.
func NewFFmpegWrapper(path string, log *logger.Logger) *FFmpegWrapper {
	if path == "" {
		path = DefaultFFmpegPath
	}
	return &FFmpegWrapper{
		logger:     log,
		ffmpegPath: path,
	}
}

// Path returns the binary the wrapper invokes.
func (f *FFmpegWrapper) Path() string {
	return f.ffmpegPath
}

// Probe checks that ffmpeg can be executed by running a version query.
// For the default binary name a few common install locations are tried
// before giving up, and the first one that works is kept.
func (f *FFmpegWrapper) Probe(ctx context.Context) error {
	candidates := []string{f.ffmpegPath}
	if f.ffmpegPath == DefaultFFmpegPath {
		candidates = append(candidates, "/usr/bin/ffmpeg", "/usr/local/bin/ffmpeg")
	}

	var lastErr error
	for _, path := range candidates {
		cmd := execCommandContext(ctx, path, "-version")
		if err := cmd.Run(); err != nil {
			lastErr = err
			continue
		}
		if path != f.ffmpegPath {
			f.logger.Debug("Using ffmpeg from fallback location", "path", path)
			f.ffmpegPath = path
		}
		return nil
	}

	return fmt.Errorf("%w (%s: %v)", ErrFFmpegNotFound, f.ffmpegPath, lastErr)
}

// GetVersion returns the first line of ffmpeg's version banner
func (f *FFmpegWrapper) GetVersion(ctx context.Context) (string, error) {
	output, err := f.BuildCommand(ctx, []string{"-version"}).Output()
	if err != nil {
		return "", fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	line, _, _ := strings.Cut(string(output), "\n")
	if line = strings.TrimSpace(line); line != "" {
		return line, nil
	}
	return "unknown", nil
}

// BuildCommand builds an ffmpeg command bound to ctx
func (f *FFmpegWrapper) BuildCommand(ctx context.Context, args []string) *exec.Cmd {
	return execCommandContext(ctx, f.ffmpegPath, args...)
}

// Concat losslessly concatenates the segments listed in manifestPath into
// outputPath using the concat demuxer. Any existing output is overwritten.
func (f *FFmpegWrapper) Concat(ctx context.Context, manifestPath, outputPath string) error {
	args := concatArgs(manifestPath, outputPath)

	cmd := f.concatCommand(ctx, args)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	f.logger.Debug("Running ffmpeg", "args", args)

	if err := cmd.Run(); err != nil {
		return &CommandError{
			Args:   args,
			Stdout: stdout.String(),
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return nil
}

func (f *FFmpegWrapper) concatCommand(ctx context.Context, args []string) *exec.Cmd {
	cmd := f.BuildCommand(ctx, args)
	cmd.WaitDelay = concatWaitDelay
	return cmd
}

// concatArgs builds the argument list for a concat demuxer run. -safe 0
// admits absolute input paths.
func concatArgs(manifestPath, outputPath string) []string {
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-threads", "1",
		"-y",
		"-i", manifestPath,
		outputPath,
	}
}
