package fetcher

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lobbying-cli/internal/resilience"
)

// HTTPFetcher downloads files with retries.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	retry     resilience.RetryConfig
}

// NewHTTPFetcher creates a fetcher. timeout <= 0 uses five minutes.
func NewHTTPFetcher(userAgent string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("fetcher", "download")
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		retry:     retry,
	}
}

// DownloadToFile fetches url into path and returns the bytes written.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, url, path string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrap(err, "fetcher: create dir")
	}
	n, err := resilience.DoVal(ctx, f.retry, func(ctx context.Context) (int64, error) {
		return f.download(ctx, url, path)
	})
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: download %s", url)
	}
	zap.L().Info("fetcher: downloaded", zap.String("url", url), zap.Int64("bytes", n))
	return n, nil
}

func (f *HTTPFetcher) download(ctx context.Context, url, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, eris.Wrap(err, "build request")
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return 0, resilience.StatusError("fetcher", resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}
	defer out.Close() //nolint:errcheck

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return n, eris.Wrap(err, "write file")
	}
	return n, nil
}
