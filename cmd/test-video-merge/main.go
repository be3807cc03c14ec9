package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/saucelabs/sauce-playwright-reporter/internal/logger"
	"github.com/saucelabs/sauce-playwright-reporter/internal/video"
)

// Merges recorded segments the way the reporter does and prints the
// resulting timeline. Segments are given as path:milliseconds.
func main() {
	ffmpegPath := flag.String("ffmpeg", video.DefaultFFmpegPath, "ffmpeg binary")
	output := flag.String("o", "", "Move the merged video here")
	timeout := flag.Duration("timeout", video.DefaultMergeTimeout, "Merge timeout")
	flag.Parse()

	fmt.Println("=== Video Merge Test ===")
	fmt.Println()

	log, err := logger.New(logger.LogConfig{
		Level:  "debug",
		Format: "text",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: test-video-merge [flags] segment.webm:1500 ...")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+10*time.Second)
	defer cancel()

	fmt.Println("Checking ffmpeg...")
	version, err := video.NewFFmpegWrapper(*ffmpegPath, log).GetVersion(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ffmpeg not usable: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ %s\n\n", version)

	syncer := video.NewMergeSyncer(video.MergeSyncerConfig{
		FFmpegPath: *ffmpegPath,
		Timeout:    *timeout,
	}, log)

	start := time.Now()
	for _, arg := range flag.Args() {
		segment, err := parseSegment(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid segment %q: %v\n", arg, err)
			os.Exit(2)
		}
		if ts, ok := syncer.Sync(start, segment); ok {
			fmt.Printf("  %8.3fs  %s\n", ts, segment.Path)
		} else {
			fmt.Printf("  %9s  %s\n", "-", segment.Path)
		}
		start = start.Add(segment.Duration)
	}
	fmt.Printf("\nTimeline: %d segments, %s\n\n", len(syncer.VideoFiles()), syncer.Duration())

	result := syncer.Merge(ctx)
	switch result.Kind {
	case video.MergeSkipped:
		fmt.Println("Nothing to merge")
	case video.MergeFailed:
		fmt.Fprintf(os.Stderr, "❌ %v\n", result.Err)
		os.Exit(1)
	case video.MergeOK:
		if *output == "" {
			fmt.Printf("✅ Merged video: %s\n", result.Path)
			return
		}
		if err := os.Rename(result.Path, *output); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to move merged video: %v\n", err)
			fmt.Printf("Merged video left at %s\n", result.Path)
			os.Exit(1)
		}
		if err := result.Cleanup(); err != nil {
			log.Warn("Cleanup failed", "error", err)
		}
		fmt.Printf("✅ Merged video: %s\n", *output)
	}
}

func parseSegment(arg string) (video.VideoFile, error) {
	i := strings.LastIndex(arg, ":")
	if i < 0 {
		return video.VideoFile{}, fmt.Errorf("missing :milliseconds")
	}
	ms, err := strconv.ParseInt(arg[i+1:], 10, 64)
	if err != nil {
		return video.VideoFile{}, err
	}
	return video.VideoFile{Path: arg[:i], Duration: time.Duration(ms) * time.Millisecond}, nil
}
