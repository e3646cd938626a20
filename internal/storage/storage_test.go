package storage_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"subgrab/internal/consts"
	"subgrab/internal/errs"
	"subgrab/internal/storage"
	"subgrab/pkg/logger"
)

func writeFile(t *testing.T, name, content string) {
	t.Helper()

	if err := os.WriteFile(name, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestPrepare(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, dir string)
		policy    string
		wantErr   error
		wantFiles []string
	}{
		{
			name:      "missing folder is created",
			policy:    consts.PolicyFail,
			wantFiles: []string{},
		},
		{
			name: "empty folder is recreated",
			setup: func(t *testing.T, dir string) {
				if err := os.Mkdir(dir, 0o755); err != nil {
					t.Fatal(err)
				}
			},
			policy:    consts.PolicyFail,
			wantFiles: []string{},
		},
		{
			name: "non-empty folder fails",
			setup: func(t *testing.T, dir string) {
				if err := os.Mkdir(dir, 0o755); err != nil {
					t.Fatal(err)
				}

				writeFile(t, filepath.Join(dir, "old.jpg"), "old")
			},
			policy:    consts.PolicyFail,
			wantErr:   errs.ErrFolderNotEmpty,
			wantFiles: []string{"old.jpg"},
		},
		{
			name: "merge keeps files and sweeps parts",
			setup: func(t *testing.T, dir string) {
				if err := os.Mkdir(dir, 0o755); err != nil {
					t.Fatal(err)
				}

				writeFile(t, filepath.Join(dir, "old.jpg"), "old")
				writeFile(t, filepath.Join(dir, "half.mp4.part"), "ha")
			},
			policy:    consts.PolicyMerge,
			wantFiles: []string{"old.jpg"},
		},
		{
			name: "overwrite empties the folder",
			setup: func(t *testing.T, dir string) {
				if err := os.Mkdir(dir, 0o755); err != nil {
					t.Fatal(err)
				}

				writeFile(t, filepath.Join(dir, "old.jpg"), "old")
			},
			policy:    consts.PolicyOverwrite,
			wantFiles: []string{},
		},
		{
			name: "regular file in the way",
			setup: func(t *testing.T, dir string) {
				writeFile(t, dir, "not a dir")
			},
			policy:  consts.PolicyOverwrite,
			wantErr: errs.ErrFolderNotEmpty,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			base := t.TempDir()
			dir := filepath.Join(base, "cat")

			if tc.setup != nil {
				tc.setup(t, dir)
			}

			folder, err := storage.Prepare(logger.Discard(), base, "cat", tc.policy)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Prepare() error = %v, want %v", err, tc.wantErr)
			}

			if err == nil && folder.Path() != dir {
				t.Fatalf("Path() = %q, want %q", folder.Path(), dir)
			}

			if tc.wantFiles == nil {
				return
			}

			entries, err := os.ReadDir(dir)
			if err != nil {
				t.Fatalf("read dir: %v", err)
			}

			if len(entries) != len(tc.wantFiles) {
				t.Fatalf("folder holds %d entries, want %v", len(entries), tc.wantFiles)
			}

			for i, entry := range entries {
				if entry.Name() != tc.wantFiles[i] {
					t.Errorf("entry %d = %q, want %q", i, entry.Name(), tc.wantFiles[i])
				}
			}
		})
	}
}

func TestFolderName(t *testing.T) {
	tests := map[string]string{
		"cat":        "cat",
		" cute cat ": "cute cat",
		"AC/DC":      "AC_DC",
		"..":         "",
		"  ":         "",
	}

	for in, want := range tests {
		if got := storage.FolderName(in); got != want {
			t.Errorf("FolderName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPartFile(t *testing.T) {
	folder, err := storage.Prepare(logger.Discard(), t.TempDir(), "out", consts.PolicyFail)
	if err != nil {
		t.Fatalf("Prepare() failed: %v", err)
	}

	part, err := folder.Create("a.jpg")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if _, err := io.WriteString(part, "jpegdata"); err != nil {
		t.Fatalf("write: %v", err)
	}

	if folder.Exists("a.jpg") {
		t.Fatal("file visible before Commit()")
	}

	if err := part.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}

	if !folder.Exists("a.jpg") || part.Written() != 8 {
		t.Fatalf("committed file missing or wrong size %d", part.Written())
	}

	aborted, err := folder.Create("b.jpg")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	_, _ = io.WriteString(aborted, "half")
	aborted.Abort()

	entries, _ := os.ReadDir(folder.Path())
	if len(entries) != 1 || entries[0].Name() != "a.jpg" {
		t.Fatalf("unexpected folder contents after Abort(): %v", entries)
	}
}

func TestCreateRejectsEscapingNames(t *testing.T) {
	folder, err := storage.Prepare(logger.Discard(), t.TempDir(), "out", consts.PolicyFail)
	if err != nil {
		t.Fatalf("Prepare() failed: %v", err)
	}

	for _, name := range []string{"", "..", "../x.jpg", `a\b.jpg`, "sub/x.jpg"} {
		if _, err := folder.Create(name); !errors.Is(err, errs.ErrInvalidFileName) {
			t.Errorf("Create(%q) error = %v, want ErrInvalidFileName", name, err)
		}
	}
}
