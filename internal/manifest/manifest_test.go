package manifest_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subgrab/internal/entity"
	"subgrab/internal/manifest"
	"subgrab/pkg/ptr"
)

func sample() manifest.Manifest {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	return manifest.Manifest{
		Version:    1,
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Report: entity.Report{
			RunID:       "run-1",
			Subreddits:  []string{"pics", "aww"},
			Term:        "cat",
			Threshold:   ptr.Of(100),
			Folder:      "/tmp/cat",
			Found:       3,
			Submissions: 2,
			Tasks: []entity.Task{
				{FileName: "150,abc-0.jpg", URL: "https://i.imgur.com/a.jpg", SubmissionID: "abc"},
				{FileName: "120,def.None", SubmissionID: "def"},
			},
			Unresolved: 1,
			Downloaded: 0,
			Failures:   []entity.Failure{{URL: "https://i.imgur.com/a.jpg", FileName: "150,abc-0.jpg", Error: "404"}},
		},
	}
}

func TestWriteRead(t *testing.T) {
	xzMagic := []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

	for _, name := range []string{"run.json", "run.json.xz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			if err := manifest.Write(path, sample()); err != nil {
				t.Fatalf("Write() failed: %v", err)
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read: %v", err)
			}

			compressed := bytes.HasPrefix(raw, xzMagic)
			if compressed != (filepath.Ext(name) == ".xz") {
				t.Fatalf("compressed = %v for %s", compressed, name)
			}

			got, err := manifest.Read(path)
			if err != nil {
				t.Fatalf("Read() failed: %v", err)
			}

			want := sample()
			if got.Report.RunID != want.Report.RunID || *got.Report.Threshold != 100 ||
				len(got.Report.Tasks) != 2 || got.Report.Failures[0] != want.Report.Failures[0] ||
				!got.FinishedAt.Equal(want.FinishedAt) {
				t.Fatalf("Read() = %+v", got)
			}

			entries, _ := os.ReadDir(filepath.Dir(path))
			if len(entries) != 1 {
				t.Fatalf("temp files left behind: %v", entries)
			}
		})
	}
}
