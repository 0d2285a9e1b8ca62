package httpclient

import (
	"net/http"
	"time"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Default returns the client used when the caller does not inject one.
// The timeout is the only guard against a hung request stalling a cycle.
func Default() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
