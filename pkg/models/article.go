package models

import "time"

// Article represents a Markdown file in the Hugo content directory.
type Article struct {
	Path        string                 `json:"path"`
	Name        string                 `json:"name"`
	Title       string                 `json:"title"`
	Slug        string                 `json:"slug"`
	Date        time.Time              `json:"date"`
	Tags        []string               `json:"tags,omitempty"`
	Draft       bool                   `json:"draft"`
	FrontMatter map[string]interface{} `json:"frontmatter,omitempty"`
	Body        string                 `json:"body,omitempty"`
	Format      string                 `json:"format,omitempty"` // yaml, toml
}
