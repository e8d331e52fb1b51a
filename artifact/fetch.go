package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/aexvir/tap"
)

// DefaultTimeout bounds a whole download.
const DefaultTimeout = 10 * time.Minute

// Fetcher downloads archives over http.
type Fetcher struct {
	client    *http.Client
	userAgent string
	progress  bool
	log       io.Writer
}

// FetchOpt configures a [Fetcher].
type FetchOpt func(f *Fetcher)

// WithHTTPClient sets a custom http client.
func WithHTTPClient(client *http.Client) FetchOpt {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithProgress enables the progress bar; it's still only shown on terminals.
func WithProgress(enabled bool) FetchOpt {
	return func(f *Fetcher) {
		f.progress = enabled
	}
}

// WithUserAgent sets the User-Agent header sent with requests.
func WithUserAgent(ua string) FetchOpt {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithFetchLog redirects the status lines.
func WithFetchLog(w io.Writer) FetchOpt {
	return func(f *Fetcher) {
		if w != nil {
			f.log = w
		}
	}
}

// NewFetcher creates a fetcher.
func NewFetcher(opts ...FetchOpt) *Fetcher {
	f := Fetcher{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: "tap",
		log:       color.Output,
	}

	for _, opt := range opts {
		opt(&f)
	}

	return &f
}

// Fetch downloads url into destination.
// Data is streamed into a temporary file next to destination which is only renamed into
// place once the whole body was received, so destination never holds a partial download.
// Nothing is retried.
func (f *Fetcher) Fetch(ctx context.Context, url, destination string) (err error) {
	tap.LogDetail(f.log, fmt.Sprintf("downloading %s", url))

	start := time.Now()
	defer func() {
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			color.New(color.FgRed).Fprintf(f.log, "     ✘ %s\n", elapsed)
			return
		}
		color.New(color.FgGreen).Fprintf(f.log, "     ✔ %s\n", elapsed)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return tap.Fail("artifact.fetch", tap.KindFetch, url, fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return tap.Fail("artifact.fetch", tap.KindFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return tap.Fail("artifact.fetch", tap.KindFetch, url, fmt.Errorf("received unexpected response: http%d", resp.StatusCode))
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return tap.Fail("artifact.fetch", tap.KindFilesystem, filepath.Dir(destination), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destination), filepath.Base(destination)+".*.part")
	if err != nil {
		return tap.Fail("artifact.fetch", tap.KindFilesystem, destination, err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	body := io.Reader(resp.Body)
	if f.progress {
		var finish func()
		body, finish = progress(resp.Body, resp.ContentLength)
		defer finish()
	}

	if _, err := io.Copy(tmp, body); err != nil {
		return tap.Fail("artifact.fetch", tap.KindFetch, url, fmt.Errorf("failed to read response: %w", err))
	}

	if err := tmp.Close(); err != nil {
		return tap.Fail("artifact.fetch", tap.KindFilesystem, tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), destination); err != nil {
		return tap.Fail("artifact.fetch", tap.KindFilesystem, destination, err)
	}

	return nil
}

// CachePath returns where an archive for a formula version is kept, {cache}/{name}/{version}/{file}.
func CachePath(cachedir, name, version, url string) string {
	return filepath.Join(cachedir, name, version, filepath.Base(url))
}

// Cached reports whether a non empty file exists at path.
func Cached(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}
