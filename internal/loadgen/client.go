package loadgen

import (
	"net/http"
	"time"
)

// NewHTTPClient returns a client whose idle pool can hold one connection per
// worker. Per-request deadlines come from contexts, so the client has no timeout.
func NewHTTPClient(concurrency int) *http.Client {
	idle := concurrency
	if idle < 16 {
		idle = 16
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        idle,
			MaxIdleConnsPerHost: idle,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
