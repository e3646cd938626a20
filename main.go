// entry point of the application
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"subgrab/internal/config"
	"subgrab/internal/consts"
	"subgrab/internal/downloader"
	"subgrab/internal/entity"
	"subgrab/internal/errs"
	"subgrab/internal/imgur"
	"subgrab/internal/infrastructure/delivery/cli/request"
	httprouter "subgrab/internal/infrastructure/delivery/http"
	"subgrab/internal/manifest"
	"subgrab/internal/observability"
	"subgrab/internal/proxymgr"
	"subgrab/internal/reddit"
	"subgrab/internal/resolver"
	"subgrab/internal/search"
	"subgrab/internal/service"
	"subgrab/pkg/calc"
	httpclient "subgrab/pkg/http/client"
	httpserver "subgrab/pkg/http/server"
	"subgrab/pkg/logger"
)

const manifestVersion = 1

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req, err := request.Parse(args, stdout)
	if err != nil {
		if !errors.Is(err, errs.ErrUsage) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}

		if request.IsUsage(err) {
			return consts.ExitUsage
		}

		return consts.ExitFatal
	}

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(stderr, "Error: config: %v\n", err)

		return consts.ExitFatal
	}

	log, err := logger.New(&logger.Options{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		Writer: stderr,
	})
	if err != nil {
		log.WarnContext(ctx, "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	if req.OnExisting != "" {
		cfg.Download.OnExisting = req.OnExisting
	}

	if req.Dir != "" {
		cfg.Download.Dir, err = filepath.Abs(req.Dir)
		if err != nil {
			fmt.Fprintf(stderr, "Error: download dir: %v\n", err)

			return consts.ExitFatal
		}
	}

	metrics := observability.New()
	observeRun := metrics.RunTimer()

	if cfg.Metrics.Addr != "" {
		metricsSrv := httpserver.New(httprouter.New(log, metrics), httpserver.Options{
			Addr:            cfg.Metrics.Addr,
			ShutdownTimeout: consts.DefaultMetricsShutdownTimeout,
		})

		go func() {
			for err := range metricsSrv.Notify() {
				log.WarnContext(ctx, "metrics server stopped", slog.Any("error", err))
			}
		}()

		defer func() {
			if err := metricsSrv.Shutdown(); err != nil {
				log.Warn("metrics server shutdown", slog.Any("error", err))
			}
		}()
	}

	proxyMgr := proxymgr.New(log, cfg.Proxy, metrics)
	proxyMgr.StartHealthChecker(ctx)

	client := httpclient.New(httpclient.Options{
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
		Transport: proxyMgr.Transport(http.DefaultTransport.(*http.Transport).Clone()),
	})

	resolverOpts := resolver.Options{
		ImgurBaseURL:   cfg.Imgur.BaseURL,
		ImgurDirectURL: cfg.Imgur.DirectURL,
	}

	imgurCreds, err := config.LoadImgurCredentials(cfg.Imgur.CredentialsFile)
	if err != nil {
		log.InfoContext(ctx, "imgur credentials unavailable; restricted albums resolve to themselves", slog.Any("error", err))
	} else if albums := imgur.New(log, client, cfg.Imgur.APIURL, imgurCreds); albums != nil {
		resolverOpts.Albums = albums
	}

	scores := func(ctx context.Context) (service.ScoreLookup, error) {
		creds, err := config.LoadRedditCredentials(cfg.Reddit.CredentialsFile)
		if err != nil {
			return nil, err
		}

		lookup, err := reddit.New(ctx, log, client, metrics, cfg.Reddit, creds)
		if err != nil {
			return nil, err
		}

		return lookup, nil
	}

	dl := downloader.New(log, client, metrics, downloader.Options{
		BaseDir:     cfg.Download.Dir,
		Policy:      cfg.Download.OnExisting,
		Workers:     cfg.Download.Workers,
		MaxAttempts: cfg.Download.MaxAttempts,
		Progress:    progressPrinter(stdout),
	})

	svc := service.New(log,
		stdout,
		search.New(log, client, metrics, cfg.Search),
		scores,
		resolver.New(log, client, metrics, resolverOpts),
		dl,
	)

	started := time.Now()
	report, runErr := svc.Run(ctx, service.Query{
		Subreddits: req.Subreddits,
		Term:       req.Term,
		Threshold:  req.Threshold,
	})

	observeRun()

	if cfg.Manifest.File != "" {
		err := manifest.Write(cfg.Manifest.File, manifest.Manifest{
			Version:    manifestVersion,
			StartedAt:  started,
			FinishedAt: time.Now(),
			Report:     report,
		})
		if err != nil {
			log.ErrorContext(ctx, "write manifest", slog.Any("error", err))
		}
	}

	if cfg.Metrics.File != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.File); err != nil {
			log.ErrorContext(ctx, "write metrics", slog.Any("error", err))
		}
	}

	if runErr != nil {
		fmt.Fprintf(stderr, "Error: %v\n", runErr)

		return consts.ExitFatal
	}

	printFailures(stdout, report.Failures)

	return consts.ExitOK
}

func progressPrinter(w io.Writer) downloader.ProgressFunc {
	return func(p downloader.Progress) {
		fmt.Fprintf(w, "\r%3d%% [%d/%d] eta %s   ",
			calc.Progress(p.Done, p.Total), p.Done, p.Total,
			calc.ETA(p.Done, p.Total, p.Started))

		if p.Done == p.Total {
			fmt.Fprintln(w)
		}
	}
}

func printFailures(w io.Writer, failures []entity.Failure) {
	if len(failures) == 0 {
		return
	}

	fmt.Fprintln(w, "These links are broken or can't be downloaded:")

	for _, f := range failures {
		fmt.Fprintf(w, "  %s  %s  (%s)\n", f.FileName, f.URL, f.Error)
	}
}
