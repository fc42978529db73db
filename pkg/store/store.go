package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"news-cms/pkg/models"
)

// RecordStore is the persistence surface the importer works against.
type RecordStore interface {
	// Index returns the first live news index, or nil when there is none.
	Index(ctx context.Context) (*models.Page, error)
	// PageBySlug returns the news page with slug, or nil when there is none.
	PageBySlug(ctx context.Context, slug string) (*models.Page, error)
	// CreateChild stores page as a news page below parent.
	CreateChild(ctx context.Context, parent *models.Page, page *models.Page) error
	// ChildrenOf lists the pages below parentID.
	ChildrenOf(ctx context.Context, parentID uint, q models.PageQuery) ([]models.Page, int64, error)
	// AttachTags adds the named tags to page, creating unknown tags.
	AttachTags(ctx context.Context, page *models.Page, names []string) error
	// Publish makes page live and records a revision.
	Publish(ctx context.Context, page *models.Page) error
	// Transaction runs fn atomically; an error from fn rolls everything back.
	Transaction(ctx context.Context, fn func(tx RecordStore) error) error
}

// Store is the gorm-backed RecordStore.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ RecordStore = (*Store)(nil)

// New wraps an open gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open opens (or creates) the sqlite database at path and migrates it.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := New(db)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Migrate runs database migrations for the page tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&models.Page{}, &models.Tag{}, &models.PageRevision{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Index(ctx context.Context) (*models.Page, error) {
	var index models.Page
	err := s.db.WithContext(ctx).
		Where("type = ? AND live = ?", models.TypeNewsIndex, true).
		Order("id ASC").
		First(&index).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find news index: %w", err)
	}
	return &index, nil
}

// EnsureIndex returns the live news index, creating and publishing one with
// title when none exists.
func (s *Store) EnsureIndex(ctx context.Context, title string) (*models.Page, error) {
	index, err := s.Index(ctx)
	if err != nil || index != nil {
		return index, err
	}
	index = &models.Page{
		Type:  models.TypeNewsIndex,
		Title: title,
		Slug:  models.Slugify(title),
		Date:  s.now(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(index).Error; err != nil {
			return fmt.Errorf("failed to create news index: %w", err)
		}
		return (&Store{db: tx, now: s.now}).Publish(ctx, index)
	})
	if err != nil {
		return nil, err
	}
	return index, nil
}

func (s *Store) PageBySlug(ctx context.Context, slug string) (*models.Page, error) {
	var page models.Page
	err := s.db.WithContext(ctx).
		Where("type = ? AND slug = ?", models.TypeNewsPage, slug).
		First(&page).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get page %s: %w", slug, err)
	}
	return &page, nil
}

// PageByID loads any page with its tags, or nil when it does not exist.
func (s *Store) PageByID(ctx context.Context, id uint) (*models.Page, error) {
	var page models.Page
	if err := s.db.WithContext(ctx).Preload("Tags").First(&page, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return &page, nil
}

func (s *Store) CreateChild(ctx context.Context, parent *models.Page, page *models.Page) error {
	if parent == nil || parent.ID == 0 {
		return fmt.Errorf("failed to create page %s: parent is not stored", page.Slug)
	}
	parentID := parent.ID
	page.ParentID = &parentID
	page.Type = models.TypeNewsPage
	if err := s.db.WithContext(ctx).Omit("Tags").Create(page).Error; err != nil {
		return fmt.Errorf("failed to create page %s: %w", page.Slug, err)
	}
	return nil
}

func (s *Store) ChildrenOf(ctx context.Context, parentID uint, q models.PageQuery) ([]models.Page, int64, error) {
	q.ParentID = &parentID
	return s.List(ctx, q)
}

// List returns the pages matching q ordered by date, newest first, together
// with the total number of matches before pagination.
func (s *Store) List(ctx context.Context, q models.PageQuery) ([]models.Page, int64, error) {
	filtered := func() *gorm.DB {
		query := s.db.WithContext(ctx).Model(&models.Page{})
		if q.Type != "" {
			query = query.Where("pages.type = ?", q.Type)
		}
		if q.ParentID != nil {
			query = query.Where("pages.parent_id = ?", *q.ParentID)
		}
		if q.LiveOnly {
			query = query.Where("pages.live = ?", true)
		}
		if tag := strings.TrimSpace(q.Tag); tag != "" {
			query = query.
				Joins("JOIN page_tags ON page_tags.page_id = pages.id").
				Joins("JOIN tags ON tags.id = page_tags.tag_id").
				Where("tags.name = ? OR tags.slug = ?", tag, tag)
		}
		return query
	}

	// Count total
	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count pages: %w", err)
	}

	query := filtered().Order("pages.date DESC").Order("pages.id DESC")
	if q.Limit > 0 {
		query = query.Offset(q.Offset).Limit(q.Limit)
	}

	var pages []models.Page
	if err := query.Preload("Tags").Find(&pages).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list pages: %w", err)
	}
	return pages, total, nil
}

func (s *Store) AttachTags(ctx context.Context, page *models.Page, names []string) error {
	db := s.db.WithContext(ctx)
	seen := map[string]struct{}{}
	var tags []models.Tag
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		var tag models.Tag
		if err := db.Where(models.Tag{Name: name}).Attrs(models.Tag{Slug: models.Slugify(name)}).FirstOrCreate(&tag).Error; err != nil {
			return fmt.Errorf("failed to store tag %q: %w", name, err)
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil
	}
	if err := db.Model(page).Association("Tags").Append(tags); err != nil {
		return fmt.Errorf("failed to tag page %s: %w", page.Slug, err)
	}
	return nil
}

func (s *Store) Publish(ctx context.Context, page *models.Page) error {
	now := s.now()
	updates := map[string]any{
		"live":              true,
		"last_published_at": now,
	}
	if page.FirstPublishedAt == nil {
		updates["first_published_at"] = now
	}

	db := s.db.WithContext(ctx)
	if err := db.Model(page).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to publish page %s: %w", page.Slug, err)
	}
	page.Live = true
	page.LastPublishedAt = &now
	if page.FirstPublishedAt == nil {
		page.FirstPublishedAt = &now
	}

	snapshot, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to snapshot page %s: %w", page.Slug, err)
	}
	revision := models.PageRevision{PageID: page.ID, Content: string(snapshot)}
	if err := db.Create(&revision).Error; err != nil {
		return fmt.Errorf("failed to save revision for %s: %w", page.Slug, err)
	}
	return nil
}

func (s *Store) Transaction(ctx context.Context, fn func(tx RecordStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, now: s.now})
	})
}

// Revisions lists the stored revisions of a page, oldest first.
func (s *Store) Revisions(ctx context.Context, pageID uint) ([]models.PageRevision, error) {
	var revisions []models.PageRevision
	if err := s.db.WithContext(ctx).Where("page_id = ?", pageID).Order("id ASC").Find(&revisions).Error; err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	return revisions, nil
}
