package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saucelabs/sauce-playwright-reporter/internal/logger"
)

// TestHelperProcess isn't a real test. It stands in for ffmpeg when a test
// installs useFakeFFmpeg.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+2:] // drop "--" and the binary name
			break
		}
	}

	if len(args) == 1 && args[0] == "-version" {
		fmt.Println("ffmpeg version 6.1-fake Copyright (c) 2000-2023 the FFmpeg developers")
		os.Exit(0)
	}

	if f := os.Getenv("FAKE_FFMPEG_ARGS_FILE"); f != "" {
		_ = os.WriteFile(f, []byte(strings.Join(args, "\n")), 0o644)
	}

	var manifest string
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-i" {
			manifest = args[i+1]
		}
	}
	output := args[len(args)-1]

	switch os.Getenv("FAKE_FFMPEG_MODE") {
	case fakeModeFail:
		fmt.Fprintln(os.Stdout, "progress=end")
		fmt.Fprintf(os.Stderr, "%s: Invalid data found when processing input\n", manifest)
		os.Exit(1)
	case fakeModeHang:
		time.Sleep(time.Minute)
		os.Exit(0)
	case fakeModeEmpty:
		_ = os.WriteFile(output, nil, 0o644)
		os.Exit(0)
	case fakeModeOrphan:
		child := exec.Command(os.Args[0], "-test.run=TestHelperProcess", "--", "ffmpeg", "-y", output)
		child.Env = append(os.Environ(), "FAKE_FFMPEG_MODE="+fakeModeHang, "FAKE_FFMPEG_ARGS_FILE=")
		child.Stdout = os.Stdout
		child.Stderr = os.Stderr
		if err := child.Start(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		time.Sleep(time.Minute)
		os.Exit(0)
	}

	// The "merged video" is the manifest itself, which lets tests check what
	// ffmpeg was asked to concatenate.
	data, err := os.ReadFile(manifest)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestMerge_NothingToMerge(t *testing.T) {
	tmp := t.TempDir()
	syncer := setupTestMergeSyncer(t, tmp)
	syncer.Sync(time.Now(), VideoFile{})

	result := syncer.Merge(context.Background())

	assert.Equal(t, MergeSkipped, result.Kind)
	assert.NoError(t, result.Err)
	assert.Empty(t, result.Path)
	assert.NoError(t, result.Cleanup())
	assert.Empty(t, dirEntries(t, tmp))
}

func TestMerge_FFmpegMissing(t *testing.T) {
	tmp := t.TempDir()
	syncer := NewMergeSyncer(MergeSyncerConfig{
		FFmpegPath: filepath.Join(tmp, "no-such-ffmpeg"),
		TempDir:    tmp,
	}, logger.NewNopLogger())
	syncer.Sync(time.Now(), VideoFile{Path: "a.webm", Duration: ms(1000)})

	result := syncer.Merge(context.Background())

	require.Equal(t, MergeFailed, result.Kind)
	assert.True(t, errors.Is(result.Err, ErrFFmpegNotFound))
	assert.Contains(t, result.Err.Error(), "ffmpeg could not be found")
	assert.Empty(t, result.Path)
	assert.Empty(t, dirEntries(t, tmp))
}

func TestMerge_EndToEndWithFakeFFmpeg(t *testing.T) {
	tmp := t.TempDir()
	argsFile := filepath.Join(t.TempDir(), "args.txt")
	useFakeFFmpeg(t, fakeModeOK, argsFile)

	syncer := setupTestMergeSyncer(t, tmp)
	ts1, ok1 := syncer.Sync(time.Now(), VideoFile{Path: "a.webm", Duration: ms(1000)})
	ts2, ok2 := syncer.Sync(time.Now(), VideoFile{Path: "b.webm", Duration: ms(2500)})
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, 0.0, ts1)
	assert.Equal(t, 1.0, ts2)
	assert.Equal(t, ms(3500), syncer.Duration())

	result := syncer.Merge(context.Background())
	require.Equal(t, MergeOK, result.Kind, "merge error: %v", result.Err)
	assert.NoError(t, result.Err)
	assert.Equal(t, outputName, filepath.Base(result.Path))

	merged, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	absA, err := filepath.Abs("a.webm")
	require.NoError(t, err)
	absB, err := filepath.Abs("b.webm")
	require.NoError(t, err)
	assert.Equal(t, "file '"+absA+"'\nfile '"+absB+"'", string(merged))

	argv, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	workDir := filepath.Dir(result.Path)
	assert.Equal(t, []string{
		"-f", "concat",
		"-safe", "0",
		"-threads", "1",
		"-y",
		"-i", filepath.Join(workDir, manifestName),
		result.Path,
	}, strings.Split(string(argv), "\n"))

	// Only the merged video survives the call.
	assert.Equal(t, []string{outputName}, dirEntries(t, workDir))

	require.NoError(t, result.Cleanup())
	assert.NoDirExists(t, workDir)
	assert.NoError(t, result.Cleanup())
}

func TestMerge_FFmpegFailureIncludesOutput(t *testing.T) {
	tmp := t.TempDir()
	useFakeFFmpeg(t, fakeModeFail, "")

	syncer := setupTestMergeSyncer(t, tmp)
	syncer.Sync(time.Now(), VideoFile{Path: "a.webm", Duration: ms(1000)})

	result := syncer.Merge(context.Background())

	require.Equal(t, MergeFailed, result.Kind)
	assert.Empty(t, result.Path)

	var cmdErr *CommandError
	require.True(t, errors.As(result.Err, &cmdErr))
	assert.Contains(t, cmdErr.Stdout, "progress=end")
	assert.Contains(t, cmdErr.Stderr, "Invalid data found")
	assert.Contains(t, result.Err.Error(), "stderr:")
	assert.Contains(t, result.Err.Error(), "stdout:")

	assert.Empty(t, dirEntries(t, tmp))
}

func TestMerge_EmptyOutputIsFailure(t *testing.T) {
	tmp := t.TempDir()
	useFakeFFmpeg(t, fakeModeEmpty, "")

	syncer := setupTestMergeSyncer(t, tmp)
	syncer.Sync(time.Now(), VideoFile{Path: "a.webm", Duration: ms(1000)})

	result := syncer.Merge(context.Background())

	require.Equal(t, MergeFailed, result.Kind)
	assert.Contains(t, result.Err.Error(), "empty file")
	assert.Empty(t, dirEntries(t, tmp))
}

func TestMerge_Timeout(t *testing.T) {
	tmp := t.TempDir()
	useFakeFFmpeg(t, fakeModeHang, "")

	syncer := NewMergeSyncer(MergeSyncerConfig{
		TempDir: tmp,
		Timeout: 300 * time.Millisecond,
	}, logger.NewNopLogger())
	syncer.Sync(time.Now(), VideoFile{Path: "a.webm", Duration: ms(1000)})

	start := time.Now()
	result := syncer.Merge(context.Background())

	require.Equal(t, MergeFailed, result.Kind)
	assert.Contains(t, result.Err.Error(), "did not finish within")
	assert.Less(t, time.Since(start), 30*time.Second)
	assert.Empty(t, dirEntries(t, tmp))
}

func TestMerge_TimeoutWithChildHoldingPipes(t *testing.T) {
	tmp := t.TempDir()
	useFakeFFmpeg(t, fakeModeOrphan, "")

	syncer := NewMergeSyncer(MergeSyncerConfig{
		TempDir: tmp,
		Timeout: 300 * time.Millisecond,
	}, logger.NewNopLogger())
	syncer.Sync(time.Now(), VideoFile{Path: "a.webm", Duration: ms(1000)})

	start := time.Now()
	result := syncer.Merge(context.Background())

	require.Equal(t, MergeFailed, result.Kind)
	assert.Contains(t, result.Err.Error(), "did not finish within")
	assert.Less(t, time.Since(start), concatWaitDelay+20*time.Second)
	assert.Empty(t, dirEntries(t, tmp))
}

func TestMerge_TempDirUnavailable(t *testing.T) {
	useFakeFFmpeg(t, fakeModeOK, "")

	missing := filepath.Join(t.TempDir(), "does", "not", "exist")
	syncer := setupTestMergeSyncer(t, missing)
	syncer.Sync(time.Now(), VideoFile{Path: "a.webm", Duration: ms(1000)})

	result := syncer.Merge(context.Background())

	require.Equal(t, MergeFailed, result.Kind)
	assert.Contains(t, result.Err.Error(), "could not create temp dir")
}

func TestMerge_OnlyOnce(t *testing.T) {
	useFakeFFmpeg(t, fakeModeOK, "")

	syncer := setupTestMergeSyncer(t, t.TempDir())
	syncer.Sync(time.Now(), VideoFile{Path: "a.webm", Duration: ms(1000)})

	first := syncer.Merge(context.Background())
	require.Equal(t, MergeOK, first.Kind)
	t.Cleanup(func() { _ = first.Cleanup() })

	second := syncer.Merge(context.Background())
	assert.Equal(t, MergeFailed, second.Kind)
	assert.Contains(t, second.Err.Error(), "already been merged")

	_, ok := syncer.Sync(time.Now(), VideoFile{Path: "late.webm", Duration: ms(1000)})
	assert.False(t, ok)
	assert.Equal(t, ms(1000), syncer.Duration())
}

func TestWriteManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), manifestName)
	files := []VideoFile{
		{Path: "/tmp/results/test-1/video.webm", Duration: ms(10)},
		{Path: "relative/b.webm", Duration: ms(20)},
		{Path: "/tmp/results/test-1/video.webm", Duration: ms(30)},
	}

	require.NoError(t, writeManifest(path, files))

	relative, err := filepath.Abs("relative/b.webm")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"file '/tmp/results/test-1/video.webm'\nfile '"+relative+"'\nfile '/tmp/results/test-1/video.webm'",
		string(data))
	assert.Equal(t, "relative/b.webm", files[1].Path)
}

func TestWriteManifest_EscapesQuotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), manifestName)
	files := []VideoFile{{Path: "/home/o'brien/it's.webm", Duration: ms(10)}}

	require.NoError(t, writeManifest(path, files))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `file '/home/o'\''brien/it'\''s.webm'`, string(data))
}

func TestMerge_RelativePathsResolvedFromWorkingDir(t *testing.T) {
	cwd := t.TempDir()
	chdir(t, cwd)
	require.NoError(t, os.MkdirAll("test-results", 0o755))
	for _, name := range []string{"a.webm", "b.webm"} {
		require.NoError(t, os.WriteFile(filepath.Join("test-results", name), []byte(name), 0o644))
	}
	useFakeFFmpeg(t, fakeModeOK, "")

	syncer := setupTestMergeSyncer(t, t.TempDir())
	syncer.Sync(time.Now(), VideoFile{Path: "test-results/a.webm", Duration: ms(1000)})
	syncer.Sync(time.Now(), VideoFile{Path: "test-results/b.webm", Duration: ms(1000)})

	result := syncer.Merge(context.Background())
	require.Equal(t, MergeOK, result.Kind, "merge error: %v", result.Err)
	t.Cleanup(func() { _ = result.Cleanup() })

	merged, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	lines := strings.Split(string(merged), "\n")
	require.Len(t, lines, 2)
	for i, name := range []string{"a.webm", "b.webm"} {
		entry := strings.TrimSuffix(strings.TrimPrefix(lines[i], "file '"), "'")
		assert.True(t, filepath.IsAbs(entry), "entry %q is not absolute", entry)
		assert.Equal(t, name, filepath.Base(entry))
		assert.FileExists(t, entry)
	}

	// The recorded segments keep the paths they were synced with.
	videos := syncer.VideoFiles()
	require.Len(t, videos, 2)
	assert.Equal(t, "test-results/a.webm", videos[0].Path)
	assert.Equal(t, "test-results/b.webm", videos[1].Path)
}

func TestMergeKind_String(t *testing.T) {
	assert.Equal(t, "skipped", MergeSkipped.String())
	assert.Equal(t, "failed", MergeFailed.String())
	assert.Equal(t, "ok", MergeOK.String())
	assert.Equal(t, "MergeKind(9)", MergeKind(9).String())
}

// TestMerge_RealFFmpeg renders two synthetic segments and checks the merged
// runtime with ffprobe when it is installed.
func TestMerge_RealFFmpeg(t *testing.T) {
	ffmpegPath := requireFFmpeg(t)
	if testing.Short() {
		t.Skip("skipping ffmpeg render in short mode")
	}

	src := t.TempDir()
	segments := []struct {
		name     string
		duration time.Duration
	}{
		{"a.mp4", ms(1000)},
		{"b.mp4", ms(2500)},
	}

	syncer := NewMergeSyncer(MergeSyncerConfig{FFmpegPath: ffmpegPath, TempDir: t.TempDir()}, logger.NewNopLogger())
	for _, seg := range segments {
		path := filepath.Join(src, seg.name)
		gen := exec.Command(ffmpegPath,
			"-hide_banner", "-loglevel", "error",
			"-f", "lavfi",
			"-i", fmt.Sprintf("testsrc=duration=%.1f:size=64x64:rate=10", seg.duration.Seconds()),
			"-c:v", "mpeg4",
			"-y", path,
		)
		if out, err := gen.CombinedOutput(); err != nil {
			t.Skipf("cannot generate test segment: %v: %s", err, out)
		}
		_, ok := syncer.Sync(time.Now(), VideoFile{Path: path, Duration: seg.duration})
		require.True(t, ok)
	}

	result := syncer.Merge(context.Background())
	require.Equal(t, MergeOK, result.Kind, "merge error: %v", result.Err)
	t.Cleanup(func() { _ = result.Cleanup() })
	assert.FileExists(t, result.Path)

	ffprobe, err := exec.LookPath("ffprobe")
	if err != nil {
		return
	}
	out, err := exec.Command(ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		result.Path,
	).Output()
	require.NoError(t, err)
	got, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, got, 0.3)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
