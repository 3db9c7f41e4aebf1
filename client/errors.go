package client

import "fmt"

// HTTPError represents a non-2xx HTTP response from a provider.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.URL)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// IsNotFound returns true if the error represents a 404 response.
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsRateLimit returns true for 403 and 429 responses.
func (e *HTTPError) IsRateLimit() bool {
	return e.StatusCode == 403 || e.StatusCode == 429
}
