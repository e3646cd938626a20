// Package imgur is a minimal authenticated client for the Imgur album API.
package imgur

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"subgrab/internal/config"
	"subgrab/internal/errs"
)

// Client lists album contents with an application Client-ID.
type Client struct {
	log      *slog.Logger
	http     *http.Client
	apiURL   string
	clientID string
}

type albumImagesResponse struct {
	Data []struct {
		Link string `json:"link"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

// New creates a client. It returns nil when the credentials are incomplete,
// which callers treat as "no authenticated access".
func New(log *slog.Logger, httpClient *http.Client, apiURL string, creds config.ImgurCredentials) *Client {
	if !creds.Complete() {
		return nil
	}

	return &Client{
		log:      log.With(slog.String("package", "imgur")),
		http:     httpClient,
		apiURL:   strings.TrimRight(apiURL, "/"),
		clientID: creds.ClientID,
	}
}

// AlbumImages returns the direct links of every image in the album.
func (c *Client) AlbumImages(ctx context.Context, albumID string) ([]string, error) {
	endpoint := c.apiURL + "/3/album/" + url.PathEscape(albumID) + "/images"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Authorization", "Client-ID "+c.clientID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get album images: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: imgur answered %d", errs.ErrCredentialsInvalid, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: %d", errs.ErrUnexpectedStatus, resp.StatusCode)
	}

	var body albumImagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode album images: %w", err)
	}

	links := make([]string, 0, len(body.Data))
	for _, img := range body.Data {
		if img.Link != "" {
			links = append(links, img.Link)
		}
	}

	c.log.DebugContext(ctx, "album images listed", slog.String("album", albumID), slog.Int("count", len(links)))

	return links, nil
}
