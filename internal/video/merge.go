package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/saucelabs/sauce-playwright-reporter/internal/logger"
)

const (
	workDirPattern = "pw-sauce-video-"
	manifestName   = "videos.txt"
	outputName     = "video.mp4"

	// DefaultMergeTimeout bounds a single ffmpeg concat run.
	DefaultMergeTimeout = 2 * time.Minute
)

// MergeKind discriminates the outcome of MergeSyncer.Merge.
type MergeKind int

const (
	// MergeSkipped means there was nothing to merge.
	MergeSkipped MergeKind = iota
	// MergeFailed means merging was attempted and did not produce a video.
	MergeFailed
	// MergeOK means Path holds the merged video.
	MergeOK
)

func (k MergeKind) String() string {
	switch k {
	case MergeSkipped:
		return "skipped"
	case MergeFailed:
		return "failed"
	case MergeOK:
		return "ok"
	default:
		return fmt.Sprintf("MergeKind(%d)", int(k))
	}
}

// MergeResult is the outcome of a merge. Err is set only for MergeFailed and
// Path only for MergeOK.
type MergeResult struct {
	Kind MergeKind
	Path string
	Err  error

	workDir string
}

// Cleanup removes the directory holding the merged video. It is a no-op for
// results that carry no file and is safe to call more than once.
func (r MergeResult) Cleanup() error {
	if r.workDir == "" {
		return nil
	}
	if err := os.RemoveAll(r.workDir); err != nil {
		return fmt.Errorf("failed to remove merge directory %s: %w", r.workDir, err)
	}
	return nil
}

func mergeFailed(err error) MergeResult {
	return MergeResult{Kind: MergeFailed, Err: fmt.Errorf("failed to merge videos: %w", err)}
}

// MergeSyncerConfig contains merge pipeline configuration
type MergeSyncerConfig struct {
	FFmpegPath string        // ffmpeg binary, defaults to "ffmpeg" on PATH
	TempDir    string        // parent of the per-merge working directory, defaults to os.TempDir()
	Timeout    time.Duration // bound on the ffmpeg run, defaults to DefaultMergeTimeout
}

// MergeSyncer synchronizes the video start time of a test case with a
// collection of video segments. Segments are aggregated in call order and
// their cumulative runtime marks the video start time of the next test.
// Once all tests are synced, Merge renders the segments as one video.
//
// A MergeSyncer is not safe for concurrent use.
type MergeSyncer struct {
	logger  *logger.Logger
	ffmpeg  *FFmpegWrapper
	tempDir string
	timeout time.Duration

	duration   time.Duration
	videoFiles []VideoFile
	merged     bool
}

// NewMergeSyncer creates a new merge syncer
func NewMergeSyncer(config MergeSyncerConfig, log *logger.Logger) *MergeSyncer {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultMergeTimeout
	}

	return &MergeSyncer{
		logger:  log,
		ffmpeg:  NewFFmpegWrapper(config.FFmpegPath, log),
		tempDir: config.TempDir,
		timeout: timeout,
	}
}

// Sync appends video to the timeline and returns the time at which it
// starts. Segments without a path or duration are dropped and get no
// timestamp.
func (s *MergeSyncer) Sync(_ time.Time, video VideoFile) (float64, bool) {
	if s.merged {
		s.logger.Warn("Ignoring video segment synced after merge", "path", video.Path)
		return 0, false
	}
	if video.Path == "" || video.Duration <= 0 {
		s.logger.Debug("Skipping test without video segment",
			"path", video.Path,
			"duration", video.Duration,
		)
		return 0, false
	}

	ts := seconds(s.duration)
	s.videoFiles = append(s.videoFiles, video)
	s.duration += video.Duration
	return ts, true
}

// Duration returns the total runtime of all accepted segments.
func (s *MergeSyncer) Duration() time.Duration {
	return s.duration
}

// VideoFiles returns a copy of the accepted segments in timeline order.
func (s *MergeSyncer) VideoFiles() []VideoFile {
	files := make([]VideoFile, len(s.videoFiles))
	copy(files, s.videoFiles)
	return files
}

// Merge concatenates the accepted segments into a single video inside a
// fresh temporary directory. On success the caller owns the directory and
// releases it with MergeResult.Cleanup; on failure nothing is left behind.
// Merge is meant to be called once, after the last Sync.
func (s *MergeSyncer) Merge(ctx context.Context) MergeResult {
	if s.merged {
		return mergeFailed(errors.New("videos have already been merged"))
	}
	s.merged = true

	if len(s.videoFiles) == 0 {
		return MergeResult{Kind: MergeSkipped}
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.ffmpeg.Probe(runCtx); err != nil {
		return mergeFailed(err)
	}

	workDir, err := os.MkdirTemp(s.tempDir, workDirPattern)
	if err != nil {
		return mergeFailed(fmt.Errorf("could not create temp dir: %w", err))
	}

	keep := false
	defer func() {
		if keep {
			return
		}
		if err := os.RemoveAll(workDir); err != nil {
			s.logger.Warn("Failed to remove merge directory", "dir", workDir, "error", err)
		}
	}()

	manifestPath := filepath.Join(workDir, manifestName)
	outputPath := filepath.Join(workDir, outputName)

	if err := writeManifest(manifestPath, s.videoFiles); err != nil {
		return mergeFailed(fmt.Errorf("could not write manifest: %w", err))
	}

	start := time.Now()
	if err := s.ffmpeg.Concat(runCtx, manifestPath, outputPath); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return mergeFailed(fmt.Errorf("ffmpeg did not finish within %s: %w", s.timeout, err))
		}
		return mergeFailed(err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return mergeFailed(fmt.Errorf("ffmpeg produced no output: %w", err))
	}
	if info.Size() == 0 {
		return mergeFailed(fmt.Errorf("ffmpeg produced an empty file at %s", outputPath))
	}

	if err := os.Remove(manifestPath); err != nil {
		s.logger.Debug("Failed to remove manifest", "path", manifestPath, "error", err)
	}

	s.logger.Info("Merged videos",
		"segments", len(s.videoFiles),
		"duration", s.duration,
		"output", outputPath,
		"elapsed", time.Since(start),
	)

	keep = true
	return MergeResult{Kind: MergeOK, Path: outputPath, workDir: workDir}
}

// writeManifest writes a concat demuxer list with one "file '<path>'" line
// per segment, in the given order. The concat demuxer resolves relative
// entries against the manifest's directory, so paths are made absolute.
func writeManifest(path string, files []VideoFile) error {
	lines := make([]string, len(files))
	for i, f := range files {
		abs, err := filepath.Abs(f.Path)
		if err != nil {
			return fmt.Errorf("could not resolve %s: %w", f.Path, err)
		}
		lines[i] = fmt.Sprintf("file '%s'", quoteManifestPath(abs))
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644)
}

// quoteManifestPath escapes single quotes for a quoted concat entry.
func quoteManifestPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}
