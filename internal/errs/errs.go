// Package errs defines common error variables used across the application.
package errs

import "errors"

// Usage errors.
var (
	// ErrUsage indicates that the positional argument count is out of range.
	ErrUsage = errors.New("invalid usage")
	// ErrInvalidThreshold indicates that the upvote threshold is not an integer.
	ErrInvalidThreshold = errors.New("upvote threshold is not an integer")
	// ErrEmptySubreddit indicates that no subreddit name survived parsing.
	ErrEmptySubreddit = errors.New("no subreddit given")
	// ErrEmptySearchTerm indicates that the search term is blank.
	ErrEmptySearchTerm = errors.New("search term is empty")
	// ErrInvalidPolicy indicates an unknown existing-folder policy.
	ErrInvalidPolicy = errors.New("invalid existing folder policy")
)

// Credential errors.
var (
	// ErrCredentialsMissing indicates that a credentials file is absent or incomplete.
	ErrCredentialsMissing = errors.New("credentials missing")
	// ErrCredentialsInvalid indicates that the remote service rejected the credentials.
	ErrCredentialsInvalid = errors.New("credentials invalid")
)

// Search and lookup errors.
var (
	// ErrSearchFailed indicates that the search index returned an error.
	ErrSearchFailed = errors.New("search failed")
	// ErrScoreLookupFailed indicates that the score lookup returned an error.
	ErrScoreLookupFailed = errors.New("score lookup failed")
)

// Transport errors.
var (
	// ErrUnexpectedStatus indicates that a remote server answered with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

// Downloader and storage errors.
var (
	// ErrDownloadFailed indicates that the download failed.
	ErrDownloadFailed = errors.New("download failed")
	// ErrFolderNotEmpty indicates that the output folder exists and holds files.
	ErrFolderNotEmpty = errors.New("output folder exists and is not empty")
	// ErrInvalidFileName indicates that a task file name would escape the output folder.
	ErrInvalidFileName = errors.New("invalid file name")
)
