package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"news-cms/pkg/logging"
	"news-cms/pkg/models"
	"news-cms/pkg/services"
	"news-cms/pkg/store"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// API serves the pages listing and detail endpoints over the record store.
type API struct {
	store    *store.Store
	importer *services.Importer
	logger   logging.Logger
}

// NewAPI builds the handlers. importer may be nil when imports are not
// exposed.
func NewAPI(s *store.Store, importer *services.Importer, logger logging.Logger) *API {
	return &API{
		store:    s,
		importer: importer,
		logger:   logging.OrNoOp(logger),
	}
}

func (a *API) ListPages(c *gin.Context) {
	q := models.PageQuery{
		Type:     c.Query("type"),
		Tag:      c.Query("tag"),
		LiveOnly: true,
		Limit:    defaultLimit,
	}
	switch q.Type {
	case "", models.TypeNewsIndex, models.TypeNewsPage:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "type doesn't exist"})
		return
	}

	if raw := c.Query("child_of"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 0)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "child_of must be a positive integer"})
			return
		}
		parentID := uint(id)
		q.ParentID = &parentID
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "limit must be a positive integer"})
			return
		}
		q.Limit = min(limit, maxLimit)
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "offset must be a non-negative integer"})
			return
		}
		q.Offset = offset
	}

	pages, total, err := a.store.List(c.Request.Context(), q)
	if err != nil {
		a.logger.Error("list pages failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch pages"})
		return
	}

	fields := parseFields(c.Query("fields"))
	listing := models.PageListing{
		Meta:  models.ListingMeta{TotalCount: total},
		Items: make([]models.PageItem, 0, len(pages)),
	}
	for i := range pages {
		listing.Items = append(listing.Items, toItem(&pages[i], fields))
	}
	if nextOffset := q.Offset + len(pages); len(pages) > 0 && int64(nextOffset) < total {
		next := nextURL(c, nextOffset)
		listing.Next = &next
	}

	c.JSON(http.StatusOK, listing)
}

func (a *API) GetPage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Page not found"})
		return
	}
	page, err := a.store.PageByID(c.Request.Context(), uint(id))
	if err != nil {
		a.logger.Error("get page failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch page"})
		return
	}
	if page == nil || !page.Live {
		c.JSON(http.StatusNotFound, gin.H{"message": "Page not found"})
		return
	}

	item := toItem(page, map[string]bool{"*": true})
	detail := gin.H{
		"id":    item.ID,
		"meta":  item.Meta,
		"title": item.Title,
		"date":  item.Date,
		"tags":  page.TagNames(),
	}
	switch page.Type {
	case models.TypeNewsIndex:
		detail["intro"] = page.Intro
	default:
		detail["body"] = page.Body
		detail["parent_id"] = page.ParentID
	}
	c.JSON(http.StatusOK, detail)
}

func (a *API) HandleImport(c *gin.Context) {
	if a.importer == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"status": "error", "error": "import not configured"})
		return
	}
	result, err := a.importer.Run(c.Request.Context())
	if err != nil {
		a.logger.Error("import failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "result": result})
}

func parseFields(raw string) map[string]bool {
	fields := map[string]bool{}
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields[f] = true
		}
	}
	return fields
}

func toItem(page *models.Page, fields map[string]bool) models.PageItem {
	want := func(name string) bool { return fields["*"] || fields[name] }

	item := models.PageItem{
		ID:    page.ID,
		Title: page.Title,
		Meta: models.PageMeta{
			Type: page.Type,
			Slug: page.Slug,
		},
	}
	if page.FirstPublishedAt != nil {
		item.Meta.FirstPublishedAt = page.FirstPublishedAt.Format(time.RFC3339)
	}
	if want("date") && !page.Date.IsZero() {
		item.Date = page.Date.Format(time.RFC3339)
	}
	if want("body") {
		item.Body = page.Body
	}
	if want("intro") {
		item.Intro = page.Intro
	}
	if want("tags") && len(page.Tags) > 0 {
		item.Tags = page.TagNames()
	}
	return item
}

func nextURL(c *gin.Context, offset int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	u := url.URL{
		Scheme: scheme,
		Host:   c.Request.Host,
		Path:   c.Request.URL.Path,
	}
	query := c.Request.URL.Query()
	query.Set("offset", strconv.Itoa(offset))
	u.RawQuery = query.Encode()
	return u.String()
}
