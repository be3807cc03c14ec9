package video

import "time"

// OffsetSyncer synchronizes the video start time of a test case against a
// fixed wall-clock offset: the moment an already existing display video
// started recording.
type OffsetSyncer struct {
	videoOffset time.Time
}

// NewOffsetSyncer creates a syncer for a display video that began at offset.
func NewOffsetSyncer(offset time.Time) *OffsetSyncer {
	return &OffsetSyncer{videoOffset: offset}
}

// NewOffsetSyncerMillis creates a syncer from an offset expressed in
// milliseconds since the Unix epoch.
func NewOffsetSyncerMillis(offset int64) *OffsetSyncer {
	return NewOffsetSyncer(time.UnixMilli(offset))
}

// Offset returns the display video start time.
func (s *OffsetSyncer) Offset() time.Time {
	return s.videoOffset
}

// Sync ignores the segment and projects start onto the display video.
// Tests that started before the video yield a negative timestamp.
func (s *OffsetSyncer) Sync(start time.Time, _ VideoFile) (float64, bool) {
	return seconds(start.Sub(s.videoOffset)), true
}
