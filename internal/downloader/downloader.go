// Package downloader fetches named tasks into the output folder.
package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"subgrab/internal/consts"
	"subgrab/internal/entity"
	"subgrab/internal/errs"
	"subgrab/internal/observability"
	"subgrab/internal/storage"
	"subgrab/pkg/gen"

	"golang.org/x/sync/errgroup"
)

// Outcome labels used for metrics and progress.
const (
	OutcomeDownloaded = "downloaded"
	OutcomeSkipped    = "skipped"
	OutcomeUnresolved = "unresolved"
	OutcomeFailed     = "failed"
)

// digits substituted after the transient host marker, in order.
const digits = "0123456789"

// Progress is reported once per finished task.
type Progress struct {
	Done    int
	Total   int
	Task    entity.Task
	Outcome string
	Started time.Time
}

// ProgressFunc receives progress updates; calls are serialised.
type ProgressFunc func(Progress)

// Options configures a Downloader.
type Options struct {
	BaseDir     string
	Policy      string
	Workers     int
	MaxAttempts int
	Progress    ProgressFunc
}

// Result is the outcome of DownloadAll. Failures keep task order.
type Result struct {
	Folder     string
	Failures   []entity.Failure
	Downloaded int
	Skipped    int
}

// Downloader downloads tasks over HTTP.
type Downloader struct {
	log     *slog.Logger
	http    *http.Client
	metrics *observability.Metrics
	opt     Options
}

// New creates a Downloader.
func New(log *slog.Logger, httpClient *http.Client, metrics *observability.Metrics, opt Options) *Downloader {
	opt.Workers = max(opt.Workers, 1)
	if opt.MaxAttempts < 1 {
		opt.MaxAttempts = consts.DefaultTransientAttempts
	}

	if opt.Policy == "" {
		opt.Policy = consts.PolicyFail
	}

	return &Downloader{
		log:     log.With(slog.String("package", "downloader")),
		http:    httpClient,
		metrics: metrics,
		opt:     opt,
	}
}

type outcome struct {
	status  string
	failure entity.Failure
}

// DownloadAll prepares folderName and downloads every task into it.
// The error is non-nil only when the folder could not be prepared.
func (d *Downloader) DownloadAll(ctx context.Context, folderName string, tasks []entity.Task) (Result, error) {
	folder, err := storage.Prepare(d.log, d.opt.BaseDir, folderName, d.opt.Policy)
	if err != nil {
		return Result{}, fmt.Errorf("prepare folder: %w", err)
	}

	log := d.log.With(slog.String("folder", folder.Path()))
	log.InfoContext(ctx, "download started", slog.Int("tasks", len(tasks)), slog.Int("workers", d.opt.Workers))

	var (
		outcomes = make([]outcome, len(tasks))
		started  = time.Now()
		mu       sync.Mutex
		done     int
		g        errgroup.Group
	)

	g.SetLimit(d.opt.Workers)

	for i, task := range tasks {
		g.Go(func() error {
			outcomes[i] = d.download(ctx, folder, task)

			d.metrics.RecordDownload(outcomes[i].status)

			mu.Lock()
			defer mu.Unlock()

			done++
			if d.opt.Progress != nil {
				d.opt.Progress(Progress{Done: done, Total: len(tasks), Task: task, Outcome: outcomes[i].status, Started: started})
			}

			return nil
		})
	}

	_ = g.Wait()

	res := Result{Folder: folder.Path()}

	for _, o := range outcomes {
		switch o.status {
		case OutcomeDownloaded:
			res.Downloaded++
		case OutcomeSkipped:
			res.Skipped++
		case OutcomeFailed:
			res.Failures = append(res.Failures, o.failure)
		}
	}

	log.InfoContext(ctx, "download finished",
		slog.Int("downloaded", res.Downloaded),
		slog.Int("skipped", res.Skipped),
		slog.Int("failures", len(res.Failures)),
		slog.Duration("elapsed", time.Since(started)))

	return res, nil
}

func (d *Downloader) download(ctx context.Context, folder storage.Storer, task entity.Task) outcome {
	if task.Skippable() {
		return outcome{status: OutcomeUnresolved}
	}

	log := d.log.With(slog.String("task_id", gen.TaskID(task.SubmissionID, task.FileName)))

	if folder.Exists(task.FileName) {
		log.DebugContext(ctx, "file exists, skipping", slog.Any("task", task))

		return outcome{status: OutcomeSkipped}
	}

	var (
		tried string
		err   error
	)

	for _, candidate := range Candidates(task.URL, d.opt.MaxAttempts) {
		if ctx.Err() != nil {
			if tried == "" {
				tried, err = candidate, ctx.Err()
			}

			break
		}

		tried = candidate

		err = d.fetch(ctx, folder, candidate, task.FileName)
		if err == nil {
			return outcome{status: OutcomeDownloaded}
		}

		log.DebugContext(ctx, "attempt failed", slog.String("url", candidate), slog.Any("error", err))
	}

	log.WarnContext(ctx, "download failed", slog.Any("task", task), slog.String("last_url", tried), slog.Any("error", err))

	return outcome{
		status:  OutcomeFailed,
		failure: entity.Failure{URL: tried, FileName: task.FileName, Error: err.Error()},
	}
}

func (d *Downloader) fetch(ctx context.Context, folder storage.Storer, url, fileName string) error {
	d.metrics.RecordDownloadAttempt()
	defer d.metrics.DownloadTimer()()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: new request: %w", errs.ErrDownloadFailed, err)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %w: %d", errs.ErrDownloadFailed, errs.ErrUnexpectedStatus, resp.StatusCode)
	}

	part, err := folder.Create(fileName)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrDownloadFailed, err)
	}

	_, err = io.Copy(part, resp.Body)
	if err != nil {
		part.Abort()

		return fmt.Errorf("%w: write body: %w", errs.ErrDownloadFailed, err)
	}

	err = part.Commit()
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrDownloadFailed, err)
	}

	d.metrics.RecordDownloadBytes(part.Written())

	return nil
}

// Candidates lists the URLs tried for one task. Links carrying the transient
// host marker get up to attempts variants, each after the first replacing the
// character following the marker with the next digit.
func Candidates(url string, attempts int) []string {
	idx := strings.Index(url, consts.TransientHostMarker)
	pos := idx + len(consts.TransientHostMarker)

	if idx < 0 || pos >= len(url) || attempts <= 1 {
		return []string{url}
	}

	attempts = min(attempts, len(digits)+1)
	_, width := utf8.DecodeRuneInString(url[pos:])

	candidates := make([]string, 0, attempts)
	candidates = append(candidates, url)

	for i := range attempts - 1 {
		candidates = append(candidates, url[:pos]+digits[i:i+1]+url[pos+width:])
	}

	return candidates
}
