package reddit_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"subgrab/internal/config"
	"subgrab/internal/errs"
	"subgrab/internal/observability"
	"subgrab/internal/reddit"
	httpclient "subgrab/pkg/http/client"
	"subgrab/pkg/logger"
)

var creds = config.RedditCredentials{
	ClientID:     "cid",
	ClientSecret: "secret",
	Username:     "bot",
	Password:     "hunter2",
	UserAgent:    "subgrab test agent",
}

type redditHits struct {
	info    atomic.Int32
	tokenUA atomic.Value
}

// fakeReddit scores every id as its length times ten, except ids starting with "gone".
func fakeReddit(t *testing.T, hits *redditHits) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		hits.tokenUA.Store(r.UserAgent())

		user, pass, ok := r.BasicAuth()
		if !ok || user != "cid" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "password" || r.Form.Get("password") != "hunter2" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("GET /api/info", func(w http.ResponseWriter, r *http.Request) {
		hits.info.Add(1)

		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		if r.UserAgent() != "subgrab test agent" {
			t.Errorf("User-Agent = %q", r.UserAgent())
		}

		names := strings.Split(r.URL.Query().Get("id"), ",")
		if len(names) > reddit.BatchSize {
			t.Errorf("batch of %d ids", len(names))
		}

		type child struct {
			Kind string         `json:"kind"`
			Data map[string]any `json:"data"`
		}

		var children []child

		for _, name := range names {
			id, ok := strings.CutPrefix(name, "t3_")
			if !ok {
				t.Errorf("id %q lacks the t3_ prefix", name)
			}

			if strings.HasPrefix(id, "gone") {
				continue
			}

			children = append(children, child{Kind: "t3", Data: map[string]any{"id": id, "score": len(id) * 10}})
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"children": children}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func redditConfig(srv *httptest.Server) config.Reddit {
	return config.Reddit{TokenURL: srv.URL + "/api/v1/access_token", APIURL: srv.URL}
}

func TestScores(t *testing.T) {
	var hits redditHits

	srv := fakeReddit(t, &hits)
	client := httpclient.New(httpclient.Options{UserAgent: "generic agent", Transport: srv.Client().Transport})

	c, err := reddit.New(t.Context(), logger.Discard(), client, observability.New(), redditConfig(srv), creds)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ids := []string{"gone1"}
	for i := range 150 {
		ids = append(ids, "id"+strconv.Itoa(i))
	}

	scores, err := c.Scores(t.Context(), ids)
	if err != nil {
		t.Fatalf("Scores() failed: %v", err)
	}

	if got := hits.tokenUA.Load(); got != "subgrab test agent" {
		t.Fatalf("token request User-Agent = %v", got)
	}

	if hits.info.Load() != 2 {
		t.Fatalf("info calls = %d, want 2 batches", hits.info.Load())
	}

	if len(scores) != 150 {
		t.Fatalf("got %d scores, want 150", len(scores))
	}

	if _, ok := scores["gone1"]; ok {
		t.Fatal("unknown id got a score")
	}

	if scores["id7"] != 30 || scores["id42"] != 40 {
		t.Fatalf("unexpected scores: id7=%d id42=%d", scores["id7"], scores["id42"])
	}
}

func TestNewCredentialErrors(t *testing.T) {
	var hits redditHits

	srv := fakeReddit(t, &hits)

	tests := []struct {
		name    string
		creds   config.RedditCredentials
		wantErr error
	}{
		{
			name:    "incomplete",
			creds:   config.RedditCredentials{ClientID: "cid"},
			wantErr: errs.ErrCredentialsMissing,
		},
		{
			name:    "wrong secret",
			creds:   config.RedditCredentials{ClientID: "cid", ClientSecret: "nope", Username: "bot", Password: "hunter2"},
			wantErr: errs.ErrCredentialsInvalid,
		},
		{
			name:    "wrong password",
			creds:   config.RedditCredentials{ClientID: "cid", ClientSecret: "secret", Username: "bot", Password: "nope"},
			wantErr: errs.ErrCredentialsInvalid,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reddit.New(t.Context(), logger.Discard(), srv.Client(), observability.New(), redditConfig(srv), tc.creds)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("New() error = %v, want %v", err, tc.wantErr)
			}
		})
	}

	if hits.info.Load() != 0 {
		t.Fatal("info endpoint called without a token")
	}
}
