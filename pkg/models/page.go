package models

import "time"

const (
	TypeNewsIndex = "news.NewsIndexPage"
	TypeNewsPage  = "news.NewsPage"
)

// Page is a node in the CMS page tree. The news index and its articles share
// the table and are told apart by Type.
type Page struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Type     string `gorm:"size:100;index;not null" json:"type"`
	ParentID *uint  `gorm:"uniqueIndex:idx_pages_parent_slug" json:"parent_id,omitempty"`
	Slug     string `gorm:"size:255;uniqueIndex:idx_pages_parent_slug;not null" json:"slug"`
	Title    string `gorm:"not null" json:"title"`

	Intro string    `gorm:"type:text" json:"intro,omitempty"`
	Date  time.Time `gorm:"index" json:"date"`
	Body  string    `gorm:"type:text" json:"body,omitempty"`
	Tags  []Tag     `gorm:"many2many:page_tags;" json:"tags,omitempty"`

	Live             bool       `gorm:"index;not null;default:false" json:"live"`
	FirstPublishedAt *time.Time `json:"first_published_at,omitempty"`
	LastPublishedAt  *time.Time `json:"last_published_at,omitempty"`
}

// TagNames lists the page's tag labels in stored order.
func (p *Page) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		names = append(names, tag.Name)
	}
	return names
}

// Tag is a free-form label shared between pages.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug string `gorm:"size:100;index" json:"slug"`
}

// PageRevision is the snapshot stored each time a page is published.
type PageRevision struct {
	ID        uint      `gorm:"primaryKey"`
	PageID    uint      `gorm:"index;not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time
}

// PageQuery filters and paginates page listings.
type PageQuery struct {
	Type     string
	ParentID *uint
	Tag      string
	LiveOnly bool
	Offset   int
	Limit    int
}
