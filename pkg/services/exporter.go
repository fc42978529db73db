package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"news-cms/pkg/logging"
	"news-cms/pkg/models"
)

// exportFields are requested for every article on export.
var exportFields = []string{"date", "body", "tags"}

// PageSource is the part of the Fetcher the exporter depends on.
type PageSource interface {
	FindIndex(ctx context.Context, indexType string) (uint, error)
	FetchChildren(ctx context.Context, pageType string, parentID uint, fields []string) ([]models.PageItem, error)
}

// ExporterConfig tells the exporter what to fetch and where to write it.
type ExporterConfig struct {
	OutputDir string
	Format    string
	IndexType string
	PageType  string
}

// Exporter writes every CMS news article to <OutputDir>/<slug>.md.
type Exporter struct {
	source PageSource
	dates  *DateNormalizer
	cfg    ExporterConfig
	logger logging.Logger
}

// NewExporter builds an Exporter.
func NewExporter(source PageSource, dates *DateNormalizer, cfg ExporterConfig, logger logging.Logger) *Exporter {
	if cfg.Format == "" {
		cfg.Format = "yaml"
	}
	return &Exporter{
		source: source,
		dates:  dates,
		cfg:    cfg,
		logger: logging.OrNoOp(logger),
	}
}

// Run exports all articles and returns the number of files written. A fetch
// or write failure aborts the run.
func (e *Exporter) Run(ctx context.Context) (int, error) {
	created, err := ensureDir(e.cfg.OutputDir)
	if err != nil {
		return 0, err
	}
	if created {
		e.logger.Info("created directory", "dir", e.cfg.OutputDir)
	}

	indexID, err := e.source.FindIndex(ctx, e.cfg.IndexType)
	if err != nil {
		return 0, fmt.Errorf("find news index: %w", err)
	}
	e.logger.Info("found news index", "id", indexID)

	pages, err := e.source.FetchChildren(ctx, e.cfg.PageType, indexID, exportFields)
	if err != nil {
		return 0, fmt.Errorf("fetch news pages: %w", err)
	}
	e.logger.Info("found news pages", "count", len(pages))

	written := 0
	for _, page := range pages {
		path, err := e.WriteArticle(page)
		if err != nil {
			return written, err
		}
		if path == "" {
			continue
		}
		written++
		e.logger.Info("created", "file", path)
	}

	e.logger.Info("export complete", "files", written, "dir", e.cfg.OutputDir)
	return written, nil
}

// WriteArticle renders one page and writes it, overwriting an existing
// file. It returns "" when the page has no usable slug.
func (e *Exporter) WriteArticle(page models.PageItem) (string, error) {
	path := SafeJoin(e.cfg.OutputDir, page.Meta.Slug+".md")
	if page.Meta.Slug == "" || path == "" || filepath.Dir(path) != filepath.Clean(e.cfg.OutputDir) {
		e.logger.Warn("skipping page without usable slug", "id", page.ID, "slug", page.Meta.Slug)
		return "", nil
	}

	content, err := e.Render(page)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", page.Meta.Slug, err)
	}
	if err := writeFile(path, content); err != nil {
		return "", err
	}
	return path, nil
}

// Render builds the Markdown document for page.
func (e *Exporter) Render(page models.PageItem) ([]byte, error) {
	var dateValue any
	if page.Date != "" {
		dateValue = page.Date
	}
	date := e.dates.Normalize(dateValue)

	body, err := HTMLToMarkdown(page.Body)
	if err != nil {
		return nil, err
	}

	fm := map[string]interface{}{
		"title": page.Title,
		"date":  date.Format(time.RFC3339),
		"draft": false,
	}
	if len(page.Tags) > 0 {
		fm["tags"] = page.Tags
	}

	return ConstructFileContent(fm, body, e.cfg.Format)
}
