package ports

import "net/http"

// HTTPClient is the outbound HTTP surface the scrapers use, so tests can
// substitute a stub transport
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
