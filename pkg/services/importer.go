package services

import (
	"context"
	"errors"
	"fmt"

	"news-cms/pkg/logging"
	"news-cms/pkg/models"
	"news-cms/pkg/store"
)

// ImporterConfig tells the importer where the Markdown files live.
type ImporterConfig struct {
	ContentDir string
	DryRun     bool
}

// ImportResult lists the files by outcome.
type ImportResult struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
	Failed  []string `json:"failed"`
}

// Importer turns Markdown files into published news pages. Import is
// additive: pages whose slug already exists are left alone.
type Importer struct {
	store    store.RecordStore
	dates    *DateNormalizer
	renderer *MarkdownRenderer
	cfg      ImporterConfig
	logger   logging.Logger

	// planned holds the slugs a dry run would create in the current batch.
	planned map[string]struct{}
}

// NewImporter builds an Importer writing to records.
func NewImporter(records store.RecordStore, dates *DateNormalizer, renderer *MarkdownRenderer, cfg ImporterConfig, logger logging.Logger) *Importer {
	if renderer == nil {
		renderer = NewMarkdownRenderer()
	}
	return &Importer{
		store:    records,
		dates:    dates,
		renderer: renderer,
		cfg:      cfg,
		logger:   logging.OrNoOp(logger),
	}
}

// errSkip marks a file that was deliberately not imported.
type errSkip struct{ reason string }

func (e errSkip) Error() string { return e.reason }

// Run imports every Markdown file of the content directory. Only a missing
// index or an unreadable directory fail the run; per-file problems are
// logged and recorded in the result.
func (i *Importer) Run(ctx context.Context) (*ImportResult, error) {
	index, err := i.store.Index(ctx)
	if err != nil {
		return nil, err
	}
	if index == nil {
		return nil, fmt.Errorf("%w: create a news index page first", ErrIndexNotFound)
	}

	articles, err := ScanMarkdown(i.cfg.ContentDir)
	if err != nil {
		return nil, err
	}
	i.logger.Info("found markdown files to process", "count", len(articles), "dir", i.cfg.ContentDir)

	if i.cfg.DryRun {
		i.planned = map[string]struct{}{}
	}
	result := &ImportResult{}
	for n := range articles {
		article := &articles[n]
		if err := ctx.Err(); err != nil {
			return result, err
		}

		err := i.ImportArticle(ctx, index, article)
		var skip errSkip
		switch {
		case err == nil:
			result.Created = append(result.Created, article.Path)
		case errors.As(err, &skip):
			result.Skipped = append(result.Skipped, article.Path)
		default:
			i.logger.Error("error processing file", "file", article.Path, "error", err)
			result.Failed = append(result.Failed, article.Path)
		}
	}

	i.logger.Info("import completed",
		"created", len(result.Created),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
	)
	return result, nil
}

// ImportArticle runs read, decode, validate, create and publish for one
// file. Creation happens in its own transaction so a failure leaves nothing
// behind. Skips are reported as errSkip.
func (i *Importer) ImportArticle(ctx context.Context, index *models.Page, article *models.Article) error {
	if err := LoadArticle(article, i.dates); err != nil {
		if errors.Is(err, ErrNoFrontMatter) || errors.Is(err, ErrInvalidFrontMatter) {
			i.logger.Warn("no frontmatter found, skipping", "file", article.Path, "error", err)
			return errSkip{reason: err.Error()}
		}
		return err
	}

	if article.Slug == "" {
		i.logger.Warn("no usable slug, skipping", "file", article.Path)
		return errSkip{reason: "empty slug"}
	}
	i.logger.Debug("resolved slug", "file", article.Path, "slug", article.Slug)

	if article.Draft {
		i.logger.Info("skipping draft post", "title", article.Title)
		return errSkip{reason: "draft"}
	}

	body, err := i.renderer.Render([]byte(article.Body))
	if err != nil {
		return err
	}

	if i.cfg.DryRun {
		existing, err := i.store.PageBySlug(ctx, article.Slug)
		if err != nil {
			return err
		}
		_, planned := i.planned[article.Slug]
		if existing != nil || planned {
			i.logger.Warn("page already exists, skipping", "slug", article.Slug, "title", article.Title)
			return errSkip{reason: "exists"}
		}
		if i.planned == nil {
			i.planned = map[string]struct{}{}
		}
		i.planned[article.Slug] = struct{}{}
		i.logger.Info("would create post", "title", article.Title, "slug", article.Slug)
		return errSkip{reason: "dry run"}
	}

	return i.store.Transaction(ctx, func(tx store.RecordStore) error {
		existing, err := tx.PageBySlug(ctx, article.Slug)
		if err != nil {
			return err
		}
		if existing != nil {
			i.logger.Warn("page already exists, skipping", "slug", article.Slug, "title", article.Title)
			return errSkip{reason: "exists"}
		}

		page := &models.Page{
			Title: article.Title,
			Slug:  article.Slug,
			Date:  article.Date,
			Body:  body,
		}
		if err := tx.CreateChild(ctx, index, page); err != nil {
			return err
		}
		if err := tx.AttachTags(ctx, page, article.Tags); err != nil {
			return err
		}
		if err := tx.Publish(ctx, page); err != nil {
			return err
		}

		i.logger.Info("created post", "title", article.Title, "slug", article.Slug)
		return nil
	})
}
