// Package utils provides common utility functions.
package utils

import (
	"net/http"
	"net/url"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "CouncilReader/1.0"

// HTTPHelper provides HTTP utility functions.
type HTTPHelper struct {
	userAgent string
}

// NewHTTPHelper creates a new HTTP helper sending userAgent.
func NewHTTPHelper(userAgent string) *HTTPHelper {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &HTTPHelper{userAgent: userAgent}
}

// IsValidURL reports whether raw is an absolute http(s) URL.
func (h *HTTPHelper) IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// BuildHeaders creates HTTP headers with defaults.
func (h *HTTPHelper) BuildHeaders(customHeaders map[string]string) http.Header {
	headers := http.Header{}

	// Add default headers
	headers.Set("User-Agent", h.userAgent)
	headers.Set("Accept", "application/json, text/html")

	// Add custom headers
	for key, value := range customHeaders {
		if value != "" {
			headers.Set(key, value)
		}
	}

	return headers
}
