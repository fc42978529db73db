package services

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"news-cms/pkg/models"
)

// ScanMarkdown lists the *.md files directly inside dir, sorted by name.
// Sub-directories are not visited.
func ScanMarkdown(dir string) ([]models.Article, error) {
	var articles []models.Article

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			articles = append(articles, models.Article{
				Path: path,
				Name: d.Name(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	sort.Slice(articles, func(i, j int) bool {
		return articles[i].Name < articles[j].Name
	})
	return articles, nil
}

// LoadArticle reads the file behind article and fills in its frontmatter,
// body, title, slug, date, tags and draft flag.
func LoadArticle(article *models.Article, dates *DateNormalizer) error {
	content, err := os.ReadFile(article.Path)
	if err != nil {
		return fmt.Errorf("read %s: %w", article.Path, err)
	}

	fm, body, format, err := ParseFrontMatter(content)
	if err != nil {
		return err
	}

	stem := strings.TrimSuffix(article.Name, filepath.Ext(article.Name))

	article.FrontMatter = fm
	article.Body = body
	article.Format = format

	// Default to file name
	article.Title = stringValue(fm, "title")
	if article.Title == "" {
		article.Title = stem
	}
	article.Slug = stringValue(fm, "slug")
	if article.Slug == "" {
		article.Slug = models.Slugify(stem)
	}
	article.Date = dates.Normalize(fm["date"])
	article.Tags = listValue(fm, "tags")
	article.Draft = boolValue(fm, "draft")
	return nil
}
