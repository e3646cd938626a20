package request_test

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"subgrab/internal/errs"
	"subgrab/internal/infrastructure/delivery/cli/request"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		want      *request.Download
		wantErr   error
		wantUsage bool
	}{
		{
			name: "subreddit and term",
			args: []string{"pics", "cat"},
			want: &request.Download{Subreddits: []string{"pics"}, Term: "cat"},
		},
		{
			name: "several subreddits with threshold and flags",
			args: []string{"-on-existing", "merge", "-dir", "/data", "pics, aww,,r/cats", "cute cat", "100"},
			want: &request.Download{
				Subreddits: []string{"pics", "aww", "cats"},
				Term:       "cute cat",
				OnExisting: "merge",
				Dir:        "/data",
			},
		},
		{
			name: "zero threshold is kept",
			args: []string{"pics", "cat", "0"},
			want: &request.Download{Subreddits: []string{"pics"}, Term: "cat"},
		},
		{
			name:      "too few arguments",
			args:      []string{"pics"},
			wantErr:   errs.ErrUsage,
			wantUsage: true,
		},
		{
			name:      "too many arguments",
			args:      []string{"pics", "cat", "1", "2"},
			wantErr:   errs.ErrUsage,
			wantUsage: true,
		},
		{
			name:    "threshold is not an integer",
			args:    []string{"pics", "cat", "lots"},
			wantErr: errs.ErrInvalidThreshold,
		},
		{
			name:    "only commas",
			args:    []string{",,", "cat"},
			wantErr: errs.ErrEmptySubreddit,
		},
		{
			name:    "blank term",
			args:    []string{"pics", "  "},
			wantErr: errs.ErrEmptySearchTerm,
		},
		{
			name:    "unknown policy",
			args:    []string{"-on-existing", "append", "pics", "cat"},
			wantErr: errs.ErrInvalidPolicy,
		},
		{
			name:      "unknown flag",
			args:      []string{"-verbose", "pics", "cat"},
			wantErr:   errs.ErrUsage,
			wantUsage: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer

			got, err := request.Parse(tc.args, &out)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Parse() error = %v, want %v", err, tc.wantErr)
			}

			if tc.wantErr != nil && !request.IsUsage(err) {
				t.Fatalf("IsUsage(%v) = false", err)
			}

			if printed := strings.Contains(out.String(), "Format:"); printed != tc.wantUsage {
				t.Fatalf("usage printed = %v, want %v", printed, tc.wantUsage)
			}

			if tc.want == nil {
				return
			}

			if !slices.Equal(got.Subreddits, tc.want.Subreddits) || got.Term != tc.want.Term ||
				got.OnExisting != tc.want.OnExisting || got.Dir != tc.want.Dir {
				t.Fatalf("Parse() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestParseThreshold(t *testing.T) {
	got, err := request.Parse([]string{"pics", "cat", " -5 "}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if got.Threshold == nil || *got.Threshold != -5 {
		t.Fatalf("Threshold = %v, want -5", got.Threshold)
	}

	got, err = request.Parse([]string{"pics", "cat"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if got.Threshold != nil {
		t.Fatalf("Threshold = %v, want nil", *got.Threshold)
	}
}
