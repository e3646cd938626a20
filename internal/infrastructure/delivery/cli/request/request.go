// Package request parses and validates command line invocations.
package request

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"subgrab/internal/config"
	"subgrab/internal/consts"
	"subgrab/internal/errs"
)

// Download is a validated download invocation.
type Download struct {
	Subreddits []string
	Term       string
	// Threshold is nil when no upvote threshold was given.
	Threshold *int
	// OnExisting and Dir override the configuration when set.
	OnExisting string
	Dir        string
}

// Parse reads flags and positional arguments. Usage text goes to out
// whenever ErrUsage is returned.
func Parse(args []string, out io.Writer) (*Download, error) {
	req := &Download{}

	fs := flag.NewFlagSet(consts.AppName, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&req.OnExisting, "on-existing", "", "what to do with a non-empty output folder: fail, merge or overwrite")
	fs.StringVar(&req.Dir, "dir", "", "base directory for the output folder")
	fs.Usage = func() {
		fmt.Fprint(out, consts.UsageText)
		fs.PrintDefaults()
	}

	err := fs.Parse(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrUsage, err)
	}

	positional := fs.Args()
	if len(positional) < 2 || len(positional) > 3 {
		fs.Usage()

		return nil, fmt.Errorf("%w: want 2 or 3 arguments, got %d", errs.ErrUsage, len(positional))
	}

	req.Subreddits = subreddits(positional[0])
	req.Term = strings.TrimSpace(positional[1])

	if len(positional) == 3 {
		threshold, err := strconv.Atoi(strings.TrimSpace(positional[2]))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errs.ErrInvalidThreshold, positional[2])
		}

		req.Threshold = &threshold
	}

	err = req.Validate()
	if err != nil {
		return nil, err
	}

	return req, nil
}

// Validate checks the fields that do not depend on parsing.
func (d *Download) Validate() error {
	if len(d.Subreddits) == 0 {
		return errs.ErrEmptySubreddit
	}

	if d.Term == "" {
		return errs.ErrEmptySearchTerm
	}

	switch d.OnExisting {
	case "", consts.PolicyFail, consts.PolicyMerge, consts.PolicyOverwrite:
	default:
		return fmt.Errorf("%w: %q", errs.ErrInvalidPolicy, d.OnExisting)
	}

	return nil
}

// IsUsage reports whether err should exit with the usage status.
func IsUsage(err error) bool {
	return errors.Is(err, errs.ErrUsage) ||
		errors.Is(err, errs.ErrInvalidThreshold) ||
		errors.Is(err, errs.ErrEmptySubreddit) ||
		errors.Is(err, errs.ErrEmptySearchTerm) ||
		errors.Is(err, errs.ErrInvalidPolicy)
}

// subreddits splits "pics, aww,r/cats" into names, dropping blanks and the r/ prefix.
func subreddits(list string) []string {
	names := config.SplitList(list)
	for i, name := range names {
		names[i] = strings.TrimPrefix(strings.TrimPrefix(name, "/"), "r/")
	}

	return names
}
