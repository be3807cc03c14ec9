package video

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/saucelabs/sauce-playwright-reporter/internal/logger"
)

// Fake ffmpeg behaviours selected through FAKE_FFMPEG_MODE.
const (
	fakeModeOK    = "ok"
	fakeModeFail  = "fail"
	fakeModeHang  = "hang"
	fakeModeEmpty = "empty"
	// fakeModeOrphan leaves a hanging child that keeps the output pipes open.
	fakeModeOrphan = "orphan"
)

func setupTestMergeSyncer(t *testing.T, tempDir string) *MergeSyncer {
	t.Helper()
	return NewMergeSyncer(MergeSyncerConfig{
		TempDir: tempDir,
		Timeout: 5 * time.Second,
	}, logger.NewNopLogger())
}

// useFakeFFmpeg routes ffmpeg invocations to TestHelperProcess for the
// duration of the test. argsFile, when set, receives the concat argv.
func useFakeFFmpeg(t *testing.T, mode, argsFile string) {
	t.Helper()
	prev := execCommandContext
	execCommandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(),
			"GO_WANT_HELPER_PROCESS=1",
			"FAKE_FFMPEG_MODE="+mode,
			"FAKE_FFMPEG_ARGS_FILE="+argsFile,
		)
		return cmd
	}
	t.Cleanup(func() { execCommandContext = prev })
}

// requireFFmpeg skips the test when a real ffmpeg binary is not installed.
func requireFFmpeg(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skipf("FFmpeg not available, skipping test: %v", err)
	}
	return path
}
