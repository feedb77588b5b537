package gtfs

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const downloadTimeout = 2 * time.Minute

// Downloader fetches a GTFS feed zip over HTTP and keeps a copy on disk.
// A cached feed is reused as long as its feed_info service window still
// covers the requested date; otherwise it is downloaded again.
type Downloader struct {
	url      string
	cacheDir string
	client   *http.Client
}

// NewDownloader creates a downloader writing into cacheDir.
func NewDownloader(url, cacheDir string) *Downloader {
	return &Downloader{
		url:      url,
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: downloadTimeout},
	}
}

// CachePath returns the location of the cached feed zip.
func (d *Downloader) CachePath() string {
	return filepath.Join(d.cacheDir, "gtfs_feed.zip")
}

// Fetch returns a path to a feed zip valid for the given service date
// (YYYYMMDD), downloading a fresh copy only when needed.
func (d *Downloader) Fetch(ctx context.Context, serviceDate string) (string, error) {
	path := d.CachePath()

	if _, err := os.Stat(path); err == nil {
		ok, err := d.cacheCovers(path, serviceDate)
		if err != nil {
			log.Printf("Warning: could not validate cached feed, re-downloading: %v", err)
		} else if ok {
			log.Printf("Using cached GTFS feed at %s", path)
			return path, nil
		}
	}

	if err := d.download(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

// cacheCovers reports whether the cached feed's advertised service window
// includes the requested date. Feeds without feed_info are never trusted.
func (d *Downloader) cacheCovers(path, serviceDate string) (bool, error) {
	tempDir, err := os.MkdirTemp("", "gtfs-check-*")
	if err != nil {
		return false, err
	}
	defer os.RemoveAll(tempDir)

	if err := extractZip(path, tempDir); err != nil {
		return false, fmt.Errorf("cached feed unreadable: %w", err)
	}

	info, err := ParseFeedInfo(filepath.Join(tempDir, "feed_info.txt"))
	if err != nil {
		return false, err
	}
	if info.StartDate == "" || info.EndDate == "" {
		return false, fmt.Errorf("feed_info has no service window")
	}

	// YYYYMMDD strings compare correctly as text
	return info.StartDate <= serviceDate && serviceDate <= info.EndDate, nil
}

func (d *Downloader) download(ctx context.Context, destPath string) error {
	start := time.Now()
	log.Printf("Downloading GTFS feed from %s", d.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "ReachMap/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download gtfs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := os.MkdirAll(d.cacheDir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	// Write to a temp file first so a failed download never clobbers a
	// usable cached feed.
	tmpPath := destPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}

	written, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write cache file: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close cache file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalize cache file: %w", err)
	}

	log.Printf("Downloaded GTFS feed (%.2f MB) in %v",
		float64(written)/(1024*1024), time.Since(start).Round(time.Millisecond))

	return nil
}
