package video

import (
	"context"
	"time"
)

// VideoFile describes one completed recording segment on disk.
// An empty Path means there is no playable segment (e.g. a skipped test);
// a zero Duration means the segment contributes nothing to a timeline.
type VideoFile struct {
	Path     string
	Duration time.Duration
}

// Syncer assigns a test its video timestamp.
//
// Sync returns the offset, in seconds, of the test's start within the display
// video. ok is false when the strategy has no timestamp for this test, in
// which case the caller must leave the test's timestamp unset.
type Syncer interface {
	Sync(start time.Time, video VideoFile) (seconds float64, ok bool)
}

// Merger is implemented by syncers that render their own display video once
// every test has been synced.
type Merger interface {
	Merge(ctx context.Context) MergeResult
}

// seconds converts d to fractional seconds with a single rounding step, so a
// whole number of milliseconds yields exactly ms/1000.
func seconds(d time.Duration) float64 {
	return float64(d) / float64(time.Second)
}
