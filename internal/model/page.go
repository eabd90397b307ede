package model

import "time"

// Page is a fetched HTML page.
type Page struct {
	// URL is the address that was requested. Redirects are followed by the
	// HTTP client, but the page keeps the requested address.
	URL string `json:"url"`

	// FinalURL is the address after redirects. Relative links are resolved
	// against it.
	FinalURL string `json:"final_url,omitempty"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the Content-Type response header.
	ContentType string `json:"content_type,omitempty"`

	// Body is the response body, decoded to UTF-8.
	Body []byte `json:"-"`

	// FetchedAt is when the response was received.
	FetchedAt time.Time `json:"fetched_at"`
}

// BaseURL returns the address relative links on the page resolve against.
func (p *Page) BaseURL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}
