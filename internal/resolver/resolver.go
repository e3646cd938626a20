// Package resolver turns submission links into direct media URLs.
package resolver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"subgrab/internal/entity"
	"subgrab/internal/errs"
	"subgrab/internal/observability"
	"subgrab/pkg/urls"

	"github.com/PuerkitoBio/goquery"
)

// maxPageSize bounds how much of a layout page is scanned.
const maxPageSize = 8 << 20

var reAlbumItem = regexp.MustCompile(`\{"hash":"([a-zA-Z0-9]+)".*?"ext":"(\.[a-zA-Z0-9]+)"`)

// AlbumLister lists album images through an authenticated API.
type AlbumLister interface {
	AlbumImages(ctx context.Context, albumID string) ([]string, error)
}

// Options configures the image host endpoints.
type Options struct {
	ImgurBaseURL   string
	ImgurDirectURL string
	// Albums is optional; without it restricted albums resolve to their own URL.
	Albums AlbumLister
}

// Resolver maps raw submission links to a Resolution.
type Resolver struct {
	log     *slog.Logger
	http    *http.Client
	metrics *observability.Metrics
	opt     Options
}

// New creates a Resolver.
func New(log *slog.Logger, httpClient *http.Client, metrics *observability.Metrics, opt Options) *Resolver {
	opt.ImgurBaseURL = strings.TrimRight(opt.ImgurBaseURL, "/")
	opt.ImgurDirectURL = strings.TrimRight(opt.ImgurDirectURL, "/")

	return &Resolver{
		log:     log.With(slog.String("package", "resolver")),
		http:    httpClient,
		metrics: metrics,
		opt:     opt,
	}
}

// Resolve applies the host rules to raw. Errors are carried in the result.
func (r *Resolver) Resolve(ctx context.Context, raw string) entity.Resolution {
	link := urls.StripQuery(strings.TrimSpace(raw))
	if strings.HasSuffix(link, ".gifv") {
		link = strings.TrimSuffix(link, ".gifv") + ".mp4"
	}

	host := classify(link)

	var res entity.Resolution

	switch host {
	case HostClip:
		res = r.clipSource(ctx, link)
	case HostImgurSingle:
		res = r.imgurSingle(link)
	case HostImgurAlbum:
		res = r.imgurAlbum(ctx, link)
	case HostMedia, HostOther:
		res = entity.Found(link)
	}

	r.metrics.RecordResolution(host.String(), string(res.Status))

	log := r.log.With(slog.String("url", raw), slog.String("host", host.String()), slog.Any("resolution", res))
	if res.Status == entity.ResolutionFailed {
		log.WarnContext(ctx, "link not resolved")
	} else {
		log.DebugContext(ctx, "link resolved")
	}

	return res
}

func (r *Resolver) clipSource(ctx context.Context, link string) entity.Resolution {
	body, err := r.fetch(ctx, link)
	if err != nil {
		return entity.Failed(err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return entity.Failed(fmt.Errorf("parse clip page: %w", err))
	}

	var src string

	doc.Find("source").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, ok := s.Attr("src")
		if ok && strings.Contains(v, "webm") && !strings.Contains(v, "mobile") {
			src = v

			return false
		}

		return true
	})

	if src == "" {
		return entity.Absent()
	}

	return entity.Found(src)
}

func (r *Resolver) imgurSingle(link string) entity.Resolution {
	u, err := url.Parse(link)
	if err != nil {
		return entity.Failed(fmt.Errorf("parse imgur link: %w", err))
	}

	return entity.Found(r.opt.ImgurDirectURL + strings.TrimRight(u.Path, "/") + ".jpg")
}

func (r *Resolver) imgurAlbum(ctx context.Context, link string) entity.Resolution {
	key := albumKey(link)

	links, err := r.albumLayout(ctx, key)
	if err != nil {
		r.log.DebugContext(ctx, "album layout unavailable", slog.String("album", key), slog.Any("error", err))
	}

	if len(links) > 0 {
		return entity.FoundAlbum(links)
	}

	// no public layout, most likely a restricted album
	if r.opt.Albums == nil {
		return entity.Found(link)
	}

	links, err = r.opt.Albums.AlbumImages(ctx, key)
	if err != nil {
		return entity.Failed(fmt.Errorf("list album %s: %w", key, err))
	}

	if len(links) == 0 {
		return entity.Absent()
	}

	return entity.FoundAlbum(links)
}

// albumLayout scrapes (hash, ext) pairs from the album blog layout page.
func (r *Resolver) albumLayout(ctx context.Context, key string) ([]string, error) {
	body, err := r.fetch(ctx, r.opt.ImgurBaseURL+"/a/"+key+"/layout/blog")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	page, err := io.ReadAll(io.LimitReader(body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("read layout page: %w", err)
	}

	seen := make(map[string]struct{})

	var links []string

	for _, m := range reAlbumItem.FindAllStringSubmatch(string(page), -1) {
		name := m[1] + m[2]
		if _, dup := seen[name]; dup {
			continue
		}

		seen[name] = struct{}{}
		links = append(links, r.opt.ImgurDirectURL+"/"+name)
	}

	return links, nil
}

func (r *Resolver) fetch(ctx context.Context, link string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", link, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()

		return nil, fmt.Errorf("get %s: %w: %d", link, errs.ErrUnexpectedStatus, resp.StatusCode)
	}

	return resp.Body, nil
}
