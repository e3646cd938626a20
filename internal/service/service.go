// Package service runs one search and download pass end to end.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"subgrab/internal/downloader"
	"subgrab/internal/entity"
	"subgrab/internal/namer"
	"subgrab/pkg/gen"
)

// Searcher finds submissions in one subreddit.
type Searcher interface {
	Search(ctx context.Context, subreddit, term string) ([]entity.Submission, error)
}

// ScoreLookup returns current scores by submission id.
type ScoreLookup interface {
	Scores(ctx context.Context, ids []string) (map[string]int, error)
}

// ScoreLookupFunc builds the score lookup on demand, so credentials are
// only needed when a threshold is given.
type ScoreLookupFunc func(ctx context.Context) (ScoreLookup, error)

// Resolver maps a submission link to direct media URLs.
type Resolver interface {
	Resolve(ctx context.Context, raw string) entity.Resolution
}

// Downloader fetches named tasks into a folder.
type Downloader interface {
	DownloadAll(ctx context.Context, folderName string, tasks []entity.Task) (downloader.Result, error)
}

// Query describes one run.
type Query struct {
	Subreddits []string
	Term       string
	Threshold  *int
}

// Service wires the pipeline stages together.
type Service struct {
	log        *slog.Logger
	out        io.Writer
	searcher   Searcher
	scores     ScoreLookupFunc
	resolver   Resolver
	downloader Downloader
}

// New creates a Service. User-facing progress lines are written to out.
func New(log *slog.Logger,
	out io.Writer,
	searcher Searcher,
	scores ScoreLookupFunc,
	resolver Resolver,
	dl Downloader,
) *Service {
	return &Service{
		log:        log.With(slog.String("package", "service")),
		out:        out,
		searcher:   searcher,
		scores:     scores,
		resolver:   resolver,
		downloader: dl,
	}
}

// Run searches, optionally filters by score, resolves, names and downloads.
// Download failures are part of the report; the error is reserved for
// conditions that stop the run before or instead of downloading.
func (svc *Service) Run(ctx context.Context, q Query) (entity.Report, error) {
	report := entity.Report{
		RunID:      gen.RunID(),
		Subreddits: q.Subreddits,
		Term:       q.Term,
		Threshold:  q.Threshold,
	}

	log := svc.log.With(slog.String("run_id", report.RunID))

	svc.printf("Searching for %q on %s for images and videos", q.Term, prefixed(q.Subreddits))

	if q.Threshold != nil {
		svc.printf(" with an upvote threshold of %d", *q.Threshold)
	}

	svc.printf("\n")

	var lookup ScoreLookup

	if q.Threshold != nil {
		var err error

		lookup, err = svc.scores(ctx)
		if err != nil {
			return report, fmt.Errorf("score lookup: %w", err)
		}
	}

	var found []entity.Submission

	for _, sub := range q.Subreddits {
		subs, err := svc.searcher.Search(ctx, sub, q.Term)
		if err != nil {
			return report, fmt.Errorf("search r/%s: %w", sub, err)
		}

		found = append(found, subs...)
	}

	report.Found = len(found)

	if len(found) == 0 {
		svc.printf("No results found. Check that the subreddit name and search term are spelled correctly\n")
	}

	subs := found

	if lookup != nil && len(found) > 0 {
		svc.printf("Gathering upvote data\n")

		var err error

		subs, err = filterByScore(ctx, lookup, found, *q.Threshold)
		if err != nil {
			return report, err
		}

		svc.printf("Gathering %d source links out of a possible %d links\n", len(subs), len(found))
	} else {
		svc.printf("Gathering %d source links\n", len(subs))
	}

	report.Submissions = len(subs)

	batch := make([]namer.Resolved, 0, len(subs))

	for _, sub := range subs {
		if ctx.Err() != nil {
			return report, fmt.Errorf("resolve: %w", ctx.Err())
		}

		res := svc.resolver.Resolve(ctx, sub.URL)
		if !res.OK() {
			report.Unresolved++

			log.WarnContext(ctx, "submission unresolved", slog.Any("submission", sub), slog.Any("resolution", res))
		}

		batch = append(batch, namer.Resolved{Submission: sub, Resolution: res})
	}

	report.Tasks = namer.NameAll(batch, q.Threshold != nil)

	svc.printf("Downloading %d files\n", len(report.Tasks))

	res, err := svc.downloader.DownloadAll(ctx, q.Term, report.Tasks)
	if err != nil {
		return report, fmt.Errorf("download: %w", err)
	}

	report.Folder = res.Folder
	report.Downloaded = res.Downloaded
	report.Skipped = res.Skipped
	report.Failures = res.Failures

	log.InfoContext(ctx, "run finished", slog.Any("report", report))

	return report, nil
}

// filterByScore attaches current scores and keeps those above threshold.
// Submissions the lookup does not return are dropped.
func filterByScore(ctx context.Context, lookup ScoreLookup, subs []entity.Submission, threshold int) ([]entity.Submission, error) {
	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.ID)
	}

	scores, err := lookup.Scores(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("score lookup: %w", err)
	}

	kept := make([]entity.Submission, 0, len(subs))

	for _, sub := range subs {
		score, ok := scores[sub.ID]
		if !ok || score <= threshold {
			continue
		}

		sub.Score = &score
		kept = append(kept, sub)
	}

	return kept, nil
}

func (svc *Service) printf(format string, args ...any) {
	if svc.out != nil {
		fmt.Fprintf(svc.out, format, args...)
	}
}

func prefixed(subreddits []string) string {
	names := make([]string, len(subreddits))
	for i, s := range subreddits {
		names[i] = "r/" + s
	}

	return strings.Join(names, ", ")
}
