package models

// PageMeta mirrors the "meta" object of the pages API.
type PageMeta struct {
	Type             string `json:"type"`
	Slug             string `json:"slug"`
	FirstPublishedAt string `json:"first_published_at,omitempty"`
}

// PageItem is a partial page record as returned by the listing endpoint.
// Only the fields requested through the "fields" parameter are populated.
type PageItem struct {
	ID    uint     `json:"id"`
	Meta  PageMeta `json:"meta"`
	Title string   `json:"title"`

	Date  string   `json:"date,omitempty"`
	Body  string   `json:"body,omitempty"`
	Intro string   `json:"intro,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// ListingMeta carries the listing totals.
type ListingMeta struct {
	TotalCount int64 `json:"total_count"`
}

// PageListing is one page of results. Next is nil on the last page.
type PageListing struct {
	Meta  ListingMeta `json:"meta"`
	Items []PageItem  `json:"items"`
	Next  *string     `json:"next"`
}
