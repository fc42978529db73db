package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"news-cms/pkg/models"
	"news-cms/pkg/store"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *captureLogger) count(level, contains string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level && strings.Contains(e.msg, contains) {
			n++
		}
	}
	return n
}

// memStore is an in-memory RecordStore. Transactions work on a copy that is
// only kept when fn succeeds.
type memStore struct {
	index   *models.Page
	pages   map[string]*models.Page
	nextID  uint
	failTag string
}

var _ store.RecordStore = (*memStore)(nil)

func newMemStore(withIndex bool) *memStore {
	s := &memStore{pages: map[string]*models.Page{}, nextID: 1}
	if withIndex {
		s.index = &models.Page{ID: s.nextID, Type: models.TypeNewsIndex, Title: "Nieuws", Slug: "nieuws", Live: true}
		s.nextID++
	}
	return s
}

func (s *memStore) Index(context.Context) (*models.Page, error) { return s.index, nil }

func (s *memStore) PageBySlug(_ context.Context, slug string) (*models.Page, error) {
	return s.pages[slug], nil
}

func (s *memStore) CreateChild(_ context.Context, parent *models.Page, page *models.Page) error {
	if _, exists := s.pages[page.Slug]; exists {
		return fmt.Errorf("unique constraint failed: %s", page.Slug)
	}
	parentID := parent.ID
	page.ID = s.nextID
	page.ParentID = &parentID
	page.Type = models.TypeNewsPage
	s.nextID++
	s.pages[page.Slug] = page
	return nil
}

func (s *memStore) ChildrenOf(_ context.Context, parentID uint, _ models.PageQuery) ([]models.Page, int64, error) {
	var out []models.Page
	for _, p := range s.pages {
		if p.ParentID != nil && *p.ParentID == parentID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (s *memStore) AttachTags(_ context.Context, page *models.Page, names []string) error {
	for _, name := range names {
		if name == s.failTag {
			return errors.New("tag attach failed")
		}
		page.Tags = append(page.Tags, models.Tag{Name: name, Slug: models.Slugify(name)})
	}
	return nil
}

func (s *memStore) Publish(_ context.Context, page *models.Page) error {
	now := time.Now()
	page.Live = true
	page.FirstPublishedAt = &now
	page.LastPublishedAt = &now
	return nil
}

func (s *memStore) Transaction(ctx context.Context, fn func(tx store.RecordStore) error) error {
	tx := &memStore{index: s.index, pages: map[string]*models.Page{}, nextID: s.nextID, failTag: s.failTag}
	for slug, page := range s.pages {
		tx.pages[slug] = page
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.pages = tx.pages
	s.nextID = tx.nextID
	return nil
}

func writeMarkdown(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
