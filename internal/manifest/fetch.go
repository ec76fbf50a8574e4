package manifest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// fetchLogger implements the retryablehttp.LeveledLogger interface.
// Only warnings and errors are surfaced; retry chatter stays quiet.
type fetchLogger struct{}

func (l *fetchLogger) Error(msg string, keysAndValues ...interface{}) {
	fmt.Printf("[RETRY ERROR] %s %v\n", msg, keysAndValues)
}

func (l *fetchLogger) Warn(msg string, keysAndValues ...interface{}) {
	fmt.Printf("[RETRY WARN] %s %v\n", msg, keysAndValues)
}

func (l *fetchLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *fetchLogger) Debug(msg string, keysAndValues ...interface{}) {}

// newFetchClient builds the HTTP client used for the single manifest GET.
// Transient server and network errors are retried with backoff.
func newFetchClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 5
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 15 * time.Second
	retryClient.HTTPClient.Timeout = 30 * time.Second
	retryClient.Logger = &fetchLogger{}
	return retryClient.StandardClient()
}

// Fetch retrieves and parses the manifest from the given URL. Transport
// or HTTP-status failures are reported as ErrManifestFetch; structural
// failures as ErrMalformedManifest. Both abort the run.
func Fetch(ctx context.Context, manifestURL string) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestFetch, err)
	}

	resp, err := newFetchClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrManifestFetch, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestFetch, err)
	}

	return Parse(data)
}
