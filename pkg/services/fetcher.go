package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"news-cms/pkg/logging"
	"news-cms/pkg/models"
)

var ErrIndexNotFound = errors.New("no news index found")

// APIError reports a non-success response from the pages API.
type APIError struct {
	URL    string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pages api: %s returned %d: %s", e.URL, e.Status, e.Body)
}

// Fetcher reads pages from a paged listing endpoint.
type Fetcher struct {
	client   *http.Client
	pagesURL *url.URL
	logger   logging.Logger
}

// NewFetcher builds a Fetcher for the listing endpoint at pagesURL
// (e.g. http://host/api/v2/pages/).
func NewFetcher(client *http.Client, pagesURL string, logger logging.Logger) (*Fetcher, error) {
	u, err := url.Parse(pagesURL)
	if err != nil {
		return nil, fmt.Errorf("parse pages url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("pages url %q must be absolute", pagesURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client:   client,
		pagesURL: u,
		logger:   logging.OrNoOp(logger),
	}, nil
}

// FindIndex returns the id of the first page of indexType.
func (f *Fetcher) FindIndex(ctx context.Context, indexType string) (uint, error) {
	listing, err := f.listing(ctx, f.listURL(url.Values{
		"type":   {indexType},
		"fields": {"id,title"},
	}))
	if err != nil {
		return 0, err
	}
	if len(listing.Items) == 0 {
		return 0, ErrIndexNotFound
	}
	return listing.Items[0].ID, nil
}

// FetchChildren returns every page of pageType below parentID, following
// the continuation links until the last page. Any failed request aborts the
// whole fetch.
func (f *Fetcher) FetchChildren(ctx context.Context, pageType string, parentID uint, fields []string) ([]models.PageItem, error) {
	next := f.listURL(url.Values{
		"type":     {pageType},
		"child_of": {strconv.FormatUint(uint64(parentID), 10)},
		"fields":   {strings.Join(fields, ",")},
	})

	var all []models.PageItem
	seen := map[string]struct{}{}
	for next != "" {
		if _, dup := seen[next]; dup {
			return nil, fmt.Errorf("pages api: continuation loop at %s", next)
		}
		seen[next] = struct{}{}

		f.logger.Debug("requesting page listing", "url", next)
		listing, err := f.listing(ctx, next)
		if err != nil {
			return nil, err
		}
		all = append(all, listing.Items...)

		if listing.Next == nil || *listing.Next == "" {
			break
		}
		resolved, err := resolveNext(next, *listing.Next)
		if err != nil {
			return nil, err
		}
		next = resolved
		f.logger.Info("fetched pages, getting more", "count", len(all))
	}
	return all, nil
}

// FetchDetail returns the flat field mapping of a single page.
func (f *Fetcher) FetchDetail(ctx context.Context, id uint) (map[string]any, error) {
	detail := f.pagesURL.JoinPath(strconv.FormatUint(uint64(id), 10))
	if !strings.HasSuffix(detail.Path, "/") {
		detail.Path += "/"
	}
	var out map[string]any
	if err := f.getJSON(ctx, detail.String(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Fetcher) listURL(params url.Values) string {
	u := *f.pagesURL
	u.RawQuery = params.Encode()
	return u.String()
}

func (f *Fetcher) listing(ctx context.Context, target string) (*models.PageListing, error) {
	var listing models.PageListing
	if err := f.getJSON(ctx, target, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (f *Fetcher) getJSON(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("pages api: request %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{URL: target, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("pages api: decode %s: %w", target, err)
	}
	return nil
}

func resolveNext(current, next string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", fmt.Errorf("parse url %s: %w", current, err)
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("parse continuation %q: %w", next, err)
	}
	return base.ResolveReference(ref).String(), nil
}
