// Package entity defines the core entities used in the application.
package entity

import (
	"log/slog"
	"strconv"
)

// Submission is a reddit submission returned by the search index.
type Submission struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Author     string `json:"author,omitempty"`
	Subreddit  string `json:"subreddit,omitempty"`
	CreatedUTC int64  `json:"createdUtc,omitempty"`
	Score      *int   `json:"score,omitempty"` // nil until enriched by the score lookup
}

// Complete reports whether the fields required for naming and resolving are present.
func (s Submission) Complete() bool {
	return s.ID != "" && s.Title != "" && s.URL != ""
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (s Submission) LogValue() slog.Value {
	score := "absent"
	if s.Score != nil {
		score = strconv.Itoa(*s.Score)
	}

	return slog.GroupValue(
		slog.String("id", s.ID),
		slog.String("subreddit", s.Subreddit),
		slog.String("url", s.URL),
		slog.String("score", score),
	)
}

// ResolutionStatus is the outcome of resolving a submission link.
type ResolutionStatus string

const (
	// ResolutionFound means at least one direct URL is available.
	ResolutionFound ResolutionStatus = "found"
	// ResolutionAbsent means the page was reachable but carried no media.
	ResolutionAbsent ResolutionStatus = "absent"
	// ResolutionFailed means a network or parsing error prevented resolution.
	ResolutionFailed ResolutionStatus = "failed"
)

// Resolution is the direct media link(s) derived from a submission URL.
type Resolution struct {
	Status ResolutionStatus
	URLs   []string
	// Multi marks album results, which are always named with an index.
	Multi bool
	Err   error
}

// Found builds a single-URL resolution.
func Found(url string) Resolution {
	return Resolution{Status: ResolutionFound, URLs: []string{url}}
}

// FoundAlbum builds a multi-URL resolution.
func FoundAlbum(urls []string) Resolution {
	return Resolution{Status: ResolutionFound, URLs: urls, Multi: true}
}

// Absent builds a resolution for a link with no media.
func Absent() Resolution {
	return Resolution{Status: ResolutionAbsent}
}

// Failed builds a resolution for a link that could not be resolved.
func Failed(err error) Resolution {
	return Resolution{Status: ResolutionFailed, Err: err}
}

// OK reports whether the resolution carries URLs.
func (r Resolution) OK() bool {
	return r.Status == ResolutionFound && len(r.URLs) > 0
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (r Resolution) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("status", string(r.Status)),
		slog.Int("urls", len(r.URLs)),
		slog.Bool("multi", r.Multi),
	}

	if r.Err != nil {
		attrs = append(attrs, slog.String("error", r.Err.Error()))
	}

	return slog.GroupValue(attrs...)
}

// Task is a named download unit. An empty URL means the link was unresolvable.
type Task struct {
	FileName     string `json:"fileName"`
	URL          string `json:"url,omitempty"`
	SubmissionID string `json:"submissionId"`
}

// Skippable reports whether the task has nothing to download.
func (t Task) Skippable() bool {
	return t.URL == ""
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (t Task) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("file_name", t.FileName),
		slog.String("url", t.URL),
		slog.String("submission_id", t.SubmissionID),
	)
}

// Failure records a task that could not be downloaded.
type Failure struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	Error    string `json:"error"`
}

// Report summarises a finished run.
type Report struct {
	RunID       string    `json:"runId"`
	Subreddits  []string  `json:"subreddits"`
	Term        string    `json:"term"`
	Threshold   *int      `json:"threshold,omitempty"`
	Folder      string    `json:"folder"`
	Found       int       `json:"found"`
	Submissions int       `json:"submissions"`
	Tasks       []Task    `json:"tasks"`
	Unresolved  int       `json:"unresolved"`
	Downloaded  int       `json:"downloaded"`
	Skipped     int       `json:"skipped"`
	Failures    []Failure `json:"failures"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("run_id", r.RunID),
		slog.String("folder", r.Folder),
		slog.Int("found", r.Found),
		slog.Int("submissions", r.Submissions),
		slog.Int("tasks", len(r.Tasks)),
		slog.Int("unresolved", r.Unresolved),
		slog.Int("downloaded", r.Downloaded),
		slog.Int("skipped", r.Skipped),
		slog.Int("failures", len(r.Failures)),
	)
}
