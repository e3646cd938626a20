// Package search queries a Pushshift-compatible submission index.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"subgrab/internal/config"
	"subgrab/internal/consts"
	"subgrab/internal/entity"
	"subgrab/internal/errs"
	"subgrab/internal/observability"

	"golang.org/x/time/rate"
)

const fields = "id,author,title,url,created_utc,subreddit"

type page struct {
	Data []struct {
		ID         string  `json:"id"`
		Author     string  `json:"author"`
		Title      string  `json:"title"`
		URL        string  `json:"url"`
		Subreddit  string  `json:"subreddit"`
		CreatedUTC float64 `json:"created_utc"`
	} `json:"data"`
}

// Client searches submissions page by page, newest first.
type Client struct {
	log     *slog.Logger
	http    *http.Client
	metrics *observability.Metrics
	limiter *rate.Limiter
	cfg     config.Search
}

// New creates a search client limited to cfg.RPS requests per second.
func New(log *slog.Logger, httpClient *http.Client, metrics *observability.Metrics, cfg config.Search) *Client {
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.PageSize = max(cfg.PageSize, 1)

	return &Client{
		log:     log.With(slog.String("package", "search")),
		http:    httpClient,
		metrics: metrics,
		limiter: rate.NewLimiter(limit, max(cfg.Burst, 1)),
		cfg:     cfg,
	}
}

// Search returns up to the configured limit of submissions in subreddit
// matching term. Links back into reddit and incomplete records are dropped.
func (c *Client) Search(ctx context.Context, subreddit, term string) ([]entity.Submission, error) {
	log := c.log.With(slog.String("subreddit", subreddit), slog.String("term", term))

	var (
		subs    []entity.Submission
		fetched int
		before  int64
		seen    = make(map[string]struct{})
	)

	// before is exclusive upstream, so the cursor normally sits one second
	// past the oldest item seen to pick up its same-second siblings.
	for c.cfg.Limit <= 0 || fetched < c.cfg.Limit {
		size := c.cfg.PageSize
		if c.cfg.Limit > 0 {
			size = min(size, c.cfg.Limit-fetched)
		}

		p, err := c.page(ctx, subreddit, term, size, before)
		if err != nil {
			c.metrics.RecordSearchRequest(subreddit, "error")

			return nil, err
		}

		c.metrics.RecordSearchRequest(subreddit, "ok")

		if len(p.Data) == 0 {
			break
		}

		var (
			oldest int64
			added  int
		)

		for _, item := range p.Data {
			created := int64(item.CreatedUTC)
			if oldest == 0 || created < oldest {
				oldest = created
			}

			if _, dup := seen[item.ID]; dup {
				continue
			}

			seen[item.ID] = struct{}{}
			fetched++
			added++

			sub := entity.Submission{
				ID:         item.ID,
				Title:      item.Title,
				URL:        item.URL,
				Author:     item.Author,
				Subreddit:  item.Subreddit,
				CreatedUTC: created,
			}

			if !sub.Complete() || strings.Contains(sub.URL, consts.SelfReferenceMarker) {
				continue
			}

			subs = append(subs, sub)
		}

		if added > 0 {
			before = oldest + 1

			continue
		}

		// the whole page was repeats: step past its oldest second
		if oldest == before {
			break
		}

		before = oldest
	}

	c.metrics.RecordSearchResults(subreddit, len(subs))
	log.InfoContext(ctx, "search finished", slog.Int("fetched", fetched), slog.Int("kept", len(subs)))

	return subs, nil
}

func (c *Client) page(ctx context.Context, subreddit, term string, size int, before int64) (*page, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: rate limit: %w", errs.ErrSearchFailed, err)
	}

	q := url.Values{}
	q.Set("q", term)
	q.Set("subreddit", subreddit)
	q.Set("fields", fields)
	q.Set("size", strconv.Itoa(size))

	if before > 0 {
		q.Set("before", strconv.FormatInt(before, 10))
	}

	endpoint := c.cfg.BaseURL + "/reddit/search/submission/?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: new request: %w", errs.ErrSearchFailed, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %w: %d", errs.ErrSearchFailed, errs.ErrUnexpectedStatus, resp.StatusCode)
	}

	var p page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: decode page: %w", errs.ErrSearchFailed, err)
	}

	c.log.DebugContext(ctx, "search page", slog.Int("size", len(p.Data)), slog.Int64("before", before))

	return &p, nil
}
