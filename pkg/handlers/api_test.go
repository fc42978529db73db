package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"news-cms/pkg/models"
	"news-cms/pkg/services"
	"news-cms/pkg/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupStore(t *testing.T) (*store.Store, *models.Page) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "news.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	index, err := s.EnsureIndex(context.Background(), "Nieuws")
	require.NoError(t, err)
	return s, index
}

func seedPages(t *testing.T, s *store.Store, index *models.Page, n int) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		page := &models.Page{
			Title: fmt.Sprintf("Bericht %02d", i),
			Slug:  fmt.Sprintf("bericht-%02d", i),
			Date:  base.AddDate(0, 0, i),
			Body:  fmt.Sprintf("<p>nummer %d</p>", i),
		}
		require.NoError(t, s.CreateChild(ctx, index, page))
		if i%2 == 0 {
			require.NoError(t, s.AttachTags(ctx, page, []string{"even"}))
		}
		require.NoError(t, s.Publish(ctx, page))
	}
}

func doRequest(r http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestListPagesThroughFetcher(t *testing.T) {
	s, index := setupStore(t)
	seedPages(t, s, index, 25)

	srv := httptest.NewServer(NewRouter(NewAPI(s, nil, nil), nil))
	defer srv.Close()

	f, err := services.NewFetcher(srv.Client(), srv.URL+"/api/v2/pages/", nil)
	require.NoError(t, err)

	indexID, err := f.FindIndex(context.Background(), models.TypeNewsIndex)
	require.NoError(t, err)
	assert.Equal(t, index.ID, indexID)

	items, err := f.FetchChildren(context.Background(), models.TypeNewsPage, indexID, []string{"date", "body", "tags"})
	require.NoError(t, err)
	require.Len(t, items, 25)

	seen := map[string]bool{}
	for _, item := range items {
		assert.False(t, seen[item.Meta.Slug], "duplicate %s", item.Meta.Slug)
		seen[item.Meta.Slug] = true
	}
	assert.Equal(t, "bericht-24", items[0].Meta.Slug)
	assert.Equal(t, "2024-01-25T12:00:00Z", items[0].Date)
	assert.Equal(t, "<p>nummer 24</p>", items[0].Body)
	assert.Equal(t, []string{"even"}, items[0].Tags)
	assert.Empty(t, items[1].Tags)
}

func TestListPagesResponseShape(t *testing.T) {
	s, index := setupStore(t)
	seedPages(t, s, index, 3)
	r := NewRouter(NewAPI(s, nil, nil), nil)

	w := doRequest(r, http.MethodGet, fmt.Sprintf("/api/v2/pages/?type=%s&child_of=%d&limit=2", models.TypeNewsPage, index.ID))
	require.Equal(t, http.StatusOK, w.Code)

	var listing models.PageListing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Equal(t, int64(3), listing.Meta.TotalCount)
	require.Len(t, listing.Items, 2)
	assert.Empty(t, listing.Items[0].Body, "body only when requested")
	require.NotNil(t, listing.Next)
	assert.True(t, strings.HasPrefix(*listing.Next, "http://example.com/api/v2/pages/?"))
	assert.Contains(t, *listing.Next, "offset=2")
	assert.Contains(t, *listing.Next, "limit=2")

	w = doRequest(r, http.MethodGet, fmt.Sprintf("/api/v2/pages/?type=%s&child_of=%d&limit=2&offset=2", models.TypeNewsPage, index.ID))
	require.Equal(t, http.StatusOK, w.Code)
	listing = models.PageListing{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Len(t, listing.Items, 1)
	assert.Nil(t, listing.Next)

	w = doRequest(r, http.MethodGet, "/api/v2/pages/?type=news.NewsPage&tag=even")
	require.Equal(t, http.StatusOK, w.Code)
	listing = models.PageListing{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Equal(t, int64(2), listing.Meta.TotalCount)
}

func TestListPagesRejectsBadParameters(t *testing.T) {
	s, _ := setupStore(t)
	r := NewRouter(NewAPI(s, nil, nil), nil)

	for _, target := range []string{
		"/api/v2/pages/?type=blog.BlogPage",
		"/api/v2/pages/?child_of=abc",
		"/api/v2/pages/?limit=0",
		"/api/v2/pages/?offset=-1",
	} {
		w := doRequest(r, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestGetPage(t *testing.T) {
	s, index := setupStore(t)
	seedPages(t, s, index, 1)
	ctx := context.Background()

	draft := &models.Page{Title: "Concept", Slug: "concept", Date: time.Now()}
	require.NoError(t, s.CreateChild(ctx, index, draft))

	page, err := s.PageBySlug(ctx, "bericht-00")
	require.NoError(t, err)
	require.NotNil(t, page)

	r := NewRouter(NewAPI(s, nil, nil), nil)

	w := doRequest(r, http.MethodGet, fmt.Sprintf("/api/v2/pages/%d/", page.ID))
	require.Equal(t, http.StatusOK, w.Code)
	var detail map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "Bericht 00", detail["title"])
	assert.Equal(t, "<p>nummer 0</p>", detail["body"])
	assert.Equal(t, []any{"even"}, detail["tags"])
	assert.Equal(t, float64(index.ID), detail["parent_id"])

	w = doRequest(r, http.MethodGet, fmt.Sprintf("/api/v2/pages/%d/", index.ID))
	require.Equal(t, http.StatusOK, w.Code)
	detail = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Contains(t, detail, "intro")
	assert.NotContains(t, detail, "body")

	for _, target := range []string{
		fmt.Sprintf("/api/v2/pages/%d/", draft.ID),
		"/api/v2/pages/9999/",
		"/api/v2/pages/abc/",
	} {
		w = doRequest(r, http.MethodGet, target)
		assert.Equal(t, http.StatusNotFound, w.Code, target)
	}
}

func TestImportRequiresSession(t *testing.T) {
	s, _ := setupStore(t)
	conf := &oauth2.Config{ClientID: "id", ClientSecret: "secret"}
	r := NewRouter(NewAPI(s, nil, nil), NewAuth(conf, "test-secret"))

	w := doRequest(r, http.MethodPost, "/api/import")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, http.MethodGet, "/auth/callback?state=forged&code=x")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodGet, "/login/github")
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), sessionName+"=")
}

func TestAdminRoutesOffWithoutAuth(t *testing.T) {
	s, _ := setupStore(t)
	r := NewRouter(NewAPI(s, nil, nil), nil)

	w := doRequest(r, http.MethodPost, "/api/import")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleImport(t *testing.T) {
	s, _ := setupStore(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nieuw.md"), []byte("---\ntitle: Nieuw\ntags: [club]\n---\nTekst.\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "concept.md"), []byte("---\ntitle: Concept\ndraft: true\n---\n"), 0644))

	importer := services.NewImporter(s, services.NewDateNormalizer(time.UTC, nil), nil, services.ImporterConfig{ContentDir: dir}, nil)
	api := NewAPI(s, importer, nil)

	r := gin.New()
	r.POST("/import", api.HandleImport)

	w := doRequest(r, http.MethodPost, "/import")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string                `json:"status"`
		Result services.ImportResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Result.Created, 1)
	assert.Len(t, resp.Result.Skipped, 1)

	page, err := s.PageBySlug(context.Background(), "nieuw")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.True(t, page.Live)

	unconfigured := gin.New()
	unconfigured.POST("/import", NewAPI(s, nil, nil).HandleImport)
	w = doRequest(unconfigured, http.MethodPost, "/import")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestLogoutClearsSession(t *testing.T) {
	s, _ := setupStore(t)
	conf := &oauth2.Config{ClientID: "id", ClientSecret: "secret"}
	r := NewRouter(NewAPI(s, nil, nil), NewAuth(conf, "test-secret"))

	w := doRequest(r, http.MethodGet, "/logout")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/api/v2/pages/", w.Header().Get("Location"))
}
