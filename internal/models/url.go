// Package models defines the entities shared between the storage, service and
// API layers.
package models

import "time"

// URL represents a shortened URL and its associated metadata.
type URL struct {
	// ID is the unique identifier for the shortened URL record.
	ID int64
	// ShortCode is the short code or key associated with the original URL.
	ShortCode string
	// OriginalURL is the original, full-length URL that the short code points to.
	OriginalURL string
	// IsCustom reports whether the short code was supplied by the caller
	// rather than generated.
	IsCustom bool
	// ClickCount tracks the number of times the shortened URL has been resolved.
	ClickCount int64
	// CreatedAt is the timestamp indicating when the shortened URL was created.
	CreatedAt time.Time
	// UpdatedAt is the timestamp indicating when the shortened URL was last updated.
	UpdatedAt time.Time
}

// Sort keys accepted by list queries. Unknown keys fall back to SortByCreatedAt.
const (
	SortByCreatedAt  = "created_at"
	SortByUpdatedAt  = "updated_at"
	SortByClickCount = "click_count"
	SortByShortCode  = "short_code"
)

// Sort directions accepted by list queries. Unknown directions fall back to OrderDesc.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListParams describes the filter, sort and page window of a list query.
type ListParams struct {
	// Page is the 1-based page number.
	Page int
	// Limit is the page size.
	Limit int
	// Search, when non-empty, restricts the result to records whose original
	// URL or short code contains the text, case-insensitively.
	Search string
	// SortBy is one of the SortBy* keys.
	SortBy string
	// SortOrder is OrderAsc or OrderDesc.
	SortOrder string
	// CustomOnly, when true, restricts the result to caller-supplied codes.
	CustomOnly bool
}

// Page is one page of URL records together with its pagination metadata.
// Total counts all records matching the filters before pagination.
type Page struct {
	URLs       []URL
	Page       int
	Limit      int
	Total      int64
	TotalPages int64
}
