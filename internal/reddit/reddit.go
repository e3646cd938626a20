// Package reddit looks up current submission scores through the OAuth API.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"subgrab/internal/config"
	"subgrab/internal/errs"
	"subgrab/internal/observability"
	httpclient "subgrab/pkg/http/client"

	"golang.org/x/oauth2"
)

// BatchSize is the maximum number of fullnames per info request.
const BatchSize = 100

const fullnamePrefix = "t3_"

type listing struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				ID    string `json:"id"`
				Score *int   `json:"score"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Client is an authenticated score lookup client.
type Client struct {
	log       *slog.Logger
	http      *http.Client
	metrics   *observability.Metrics
	apiURL    string
	userAgent string
}

// New obtains a bearer token with the password grant. Incomplete credentials
// yield errs.ErrCredentialsMissing, a rejected grant errs.ErrCredentialsInvalid.
func New(ctx context.Context,
	log *slog.Logger,
	httpClient *http.Client,
	metrics *observability.Metrics,
	cfg config.Reddit,
	creds config.RedditCredentials,
) (*Client, error) {
	if !creds.Complete() {
		return nil, fmt.Errorf("%w: reddit client id, secret, username and password are required", errs.ErrCredentialsMissing)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
		Scopes: []string{"read"},
	}

	// the token request carries the app's own user agent too
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpclient.New(httpclient.Options{
		Timeout:   httpClient.Timeout,
		UserAgent: creds.UserAgent,
		Transport: httpClient.Transport,
	}))

	token, err := oauthCfg.PasswordCredentialsToken(ctx, creds.Username, creds.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: password grant: %w", errs.ErrCredentialsInvalid, err)
	}

	client := oauthCfg.Client(ctx, token)
	client.Timeout = httpClient.Timeout

	return &Client{
		log:       log.With(slog.String("package", "reddit")),
		http:      client,
		metrics:   metrics,
		apiURL:    strings.TrimRight(cfg.APIURL, "/"),
		userAgent: creds.UserAgent,
	}, nil
}

// Scores returns the current score of every id the API knows about.
// Ids missing from the result were deleted or never existed.
func (c *Client) Scores(ctx context.Context, ids []string) (map[string]int, error) {
	scores := make(map[string]int, len(ids))

	for batch := range slices.Chunk(ids, BatchSize) {
		err := c.lookup(ctx, batch, scores)
		if err != nil {
			c.metrics.RecordScoreLookup("error")

			return nil, err
		}

		c.metrics.RecordScoreLookup("ok")
	}

	c.log.InfoContext(ctx, "scores looked up", slog.Int("requested", len(ids)), slog.Int("found", len(scores)))

	return scores, nil
}

func (c *Client) lookup(ctx context.Context, ids []string, scores map[string]int) error {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = fullnamePrefix + id
	}

	q := url.Values{}
	q.Set("id", strings.Join(names, ","))
	q.Set("raw_json", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/api/info?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: new request: %w", errs.ErrScoreLookupFailed, err)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrScoreLookupFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: api answered %d", errs.ErrCredentialsInvalid, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %w: %d", errs.ErrScoreLookupFailed, errs.ErrUnexpectedStatus, resp.StatusCode)
	}

	var l listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return fmt.Errorf("%w: decode listing: %w", errs.ErrScoreLookupFailed, err)
	}

	for _, child := range l.Data.Children {
		if child.Data.ID == "" || child.Data.Score == nil {
			continue
		}

		scores[child.Data.ID] = *child.Data.Score
	}

	return nil
}
