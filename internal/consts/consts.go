// Package consts defines application-wide constants.
package consts

import "time"

const (
	// AppName is used for the metrics namespace and the default user agent.
	AppName = "subgrab"
	// DefaultTransientAttempts is the number of attempts for transient-host URLs.
	DefaultTransientAttempts = 10
	// DefaultMetricsShutdownTimeout bounds the metrics server shutdown.
	DefaultMetricsShutdownTimeout = 3 * time.Second
)

// File naming.
const (
	// UnresolvedExt is the extension placeholder for tasks whose link could not be resolved.
	UnresolvedExt = "None"
	// FallbackExt is used when a resolved URL path carries no extension.
	FallbackExt = "bin"
	// PartSuffix marks files that are still being written.
	PartSuffix = ".part"
)

// Hosting markers.
const (
	// TransientHostMarker marks CDN URLs whose following character must be brute-forced.
	TransientHostMarker = "thcf"
	// SelfReferenceMarker marks search results that point back into reddit itself.
	SelfReferenceMarker = "reddit.com/r/"
)

// Existing-folder policies.
const (
	// PolicyFail refuses to touch a non-empty output folder.
	PolicyFail = "fail"
	// PolicyMerge writes into a non-empty folder and skips files already present.
	PolicyMerge = "merge"
	// PolicyOverwrite removes a non-empty folder before downloading.
	PolicyOverwrite = "overwrite"
)

// CLI exit codes.
const (
	ExitOK    = 0
	ExitFatal = 1
	ExitUsage = 2
)

// UsageText is printed when the positional arguments are wrong.
const UsageText = `
Easily download a subreddit's images and videos

Format:
    $ subgrab [flags] <subreddit> <search term>
    or
    $ subgrab [flags] <subreddit> <search term> <upvote threshold>

Example:
    $ subgrab pics cat
    $ subgrab pics,aww "cute cat" 100

Files are saved to a folder with the same name as the search term.
Several subreddits can be given separated by commas.
If you omit the upvote threshold, reddit.yaml is not required.
If you want to download 18+ imgur albums, fill out imgur.yaml.

Use quotes if the search term has more than one word.

Flags:
`
