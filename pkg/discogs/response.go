package discogs

import "fmt"

// SearchResponse wraps a database search.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// SearchResult is one hit from a release search. Discogs returns the year
// as a string here and as an int on the release itself.
type SearchResult struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Year    string   `json:"year,omitempty"`
	Label   []string `json:"label,omitempty"`
	Format  []string `json:"format,omitempty"`
	Country string   `json:"country,omitempty"`
	Thumb   string   `json:"thumb,omitempty"`
}

// Release is full release metadata.
type Release struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Year      int     `json:"year,omitempty"`
	Labels    []Label `json:"labels,omitempty"`
	Thumb     string  `json:"thumb,omitempty"`
	Tracklist []Track `json:"tracklist,omitempty"`
}

// Label is a record label credit on a release.
type Label struct {
	Name  string `json:"name"`
	CatNo string `json:"catno,omitempty"`
}

// Track is one tracklist entry.
type Track struct {
	Position string `json:"position"`
	Title    string `json:"title"`
	Duration string `json:"duration,omitempty"`
}

type errorResponse struct {
	Message string `json:"message,omitempty"`
}

// APIError is a non-2xx response from Discogs. StatusCode 429 means the
// quota was exceeded despite pacing.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("discogs: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("discogs: unexpected status %d", e.StatusCode)
}
