package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/saucelabs/sauce-playwright-reporter/internal/sauce"
)

const (
	mergedVideoName = "video.mp4"
	consoleLogName  = "console.log"
	reportName      = "sauce-test-report.json"
)

// Attachment types the Sauce Labs web UI can display.
var webAssetTypes = map[string]bool{
	".log":  true,
	".json": true,
	".xml":  true,
	".txt":  true,
	".mp4":  true,
	".webm": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".svg":  true,
}

func isWebAsset(filename string) bool {
	return webAssetTypes[filepath.Ext(filename)]
}

func (r *Reporter) webAssetSyncEnabled() bool {
	return r.cfg.Reporter.WebAssetsDir != ""
}

// resolveAssetName prefixes web assets with the test name when web asset
// sync is on, so attachments of different tests don't overwrite each other.
func (r *Reporter) resolveAssetName(testName, filename string) string {
	if filename == "" || !r.webAssetSyncEnabled() || !isWebAsset(filename) {
		return filename
	}
	return testName + "-" + filename
}

// syncAssets copies file-backed web assets into the web assets directory.
func (r *Reporter) syncAssets(assets []sauce.Asset) {
	for _, asset := range assets {
		if asset.Path == "" || !isWebAsset(asset.Filename) {
			continue
		}
		dst := filepath.Join(r.cfg.Reporter.WebAssetsDir, asset.Filename)
		if err := copyFile(asset.Path, dst); err != nil {
			r.logger.Warn("Failed to sync web asset", "src", asset.Path, "dst", dst, "error", err)
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
