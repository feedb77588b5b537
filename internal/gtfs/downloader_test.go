package gtfs

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedZip builds an in-memory GTFS zip containing only feed_info.txt.
func feedZip(t *testing.T, startDate, endDate string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("feed_info.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte(
		"feed_publisher_name,feed_start_date,feed_end_date,feed_version\n" +
			"Metro," + startDate + "," + endDate + ",1\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

func TestFetchDownloadsAndCaches(t *testing.T) {
	payload := feedZip(t, "20240101", "20241231")

	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write(payload)
	}))
	defer srv.Close()

	d := NewDownloader(srv.URL, t.TempDir())

	path, err := d.Fetch(context.Background(), "20240108")
	require.NoError(t, err)
	assert.Equal(t, d.CachePath(), path)
	assert.Equal(t, 1, requests)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	// Second fetch for a covered date reuses the cache
	_, err = d.Fetch(context.Background(), "20240601")
	require.NoError(t, err)
	assert.Equal(t, 1, requests)
}

func TestFetchRedownloadsWhenDateNotCovered(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write(feedZip(t, "20240101", "20240131"))
	}))
	defer srv.Close()

	d := NewDownloader(srv.URL, t.TempDir())

	_, err := d.Fetch(context.Background(), "20240108")
	require.NoError(t, err)
	require.Equal(t, 1, requests)

	// A date outside the cached window forces a new download
	_, err = d.Fetch(context.Background(), "20240301")
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDownloader(srv.URL, t.TempDir())

	_, err := d.Fetch(context.Background(), "20240108")
	assert.Error(t, err)
}
