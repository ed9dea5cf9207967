package loadgen

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const healthTimeout = 5 * time.Second

// CheckHealth probes baseURL+path once. A transport failure means the target
// is unreachable; any HTTP answer is returned so the caller can decide how
// strict to be about non-2xx statuses.
func CheckHealth(ctx context.Context, client *http.Client, baseURL, path string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	target := Endpoint(baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrTargetUnavailable, target, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

// Endpoint joins a base URL and a request path.
func Endpoint(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
