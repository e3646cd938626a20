// Package storage manages the output folder and the files written into it.
package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"subgrab/internal/consts"
	"subgrab/internal/errs"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Storer is the subset of Folder the downloader writes through.
type Storer interface {
	Path() string
	Exists(fileName string) bool
	Create(fileName string) (*PartFile, error)
}

// Folder is a prepared output folder.
type Folder struct {
	log    *slog.Logger
	path   string
	policy string
}

// Prepare resolves name under baseDir and applies the existing-folder policy.
// An existing empty folder is removed and recreated.
func Prepare(log *slog.Logger, baseDir, name, policy string) (*Folder, error) {
	name = FolderName(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty folder name", errs.ErrInvalidFileName)
	}

	folder := &Folder{
		log:    log.With(slog.String("package", "storage")),
		path:   filepath.Join(baseDir, name),
		policy: policy,
	}

	err := folder.prepare()
	if err != nil {
		return nil, err
	}

	folder.log.Debug("output folder ready", slog.String("path", folder.path), slog.String("policy", policy))

	return folder, nil
}

// FolderName turns a search term into a single path element.
func FolderName(term string) string {
	name := strings.TrimSpace(term)
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(name)

	if name == "." || name == ".." {
		return ""
	}

	return name
}

func (f *Folder) prepare() error {
	info, err := os.Stat(f.path)

	switch {
	case errors.Is(err, os.ErrNotExist):
		return f.mkdir()
	case err != nil:
		return fmt.Errorf("stat output folder: %w", err)
	case !info.IsDir():
		return fmt.Errorf("%w: %s is not a directory", errs.ErrFolderNotEmpty, f.path)
	}

	empty, err := isEmpty(f.path)
	if err != nil {
		return err
	}

	if empty {
		return f.recreate()
	}

	switch f.policy {
	case consts.PolicyMerge:
		if _, err := f.SweepParts(); err != nil {
			return err
		}

		return nil
	case consts.PolicyOverwrite:
		f.log.Warn("overwriting output folder", slog.String("path", f.path))

		return f.recreate()
	case consts.PolicyFail:
		return fmt.Errorf("%w: %s", errs.ErrFolderNotEmpty, f.path)
	default:
		return fmt.Errorf("%w: %q", errs.ErrInvalidPolicy, f.policy)
	}
}

func (f *Folder) recreate() error {
	err := os.RemoveAll(f.path)
	if err != nil {
		return fmt.Errorf("remove output folder: %w", err)
	}

	return f.mkdir()
}

func (f *Folder) mkdir() error {
	err := os.MkdirAll(f.path, dirPerm)
	if err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}

	return nil
}

func isEmpty(dir string) (bool, error) {
	d, err := os.Open(dir)
	if err != nil {
		return false, fmt.Errorf("open output folder: %w", err)
	}
	defer d.Close()

	_, err = d.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}

	if err != nil {
		return false, fmt.Errorf("read output folder: %w", err)
	}

	return false, nil
}

// Path returns the absolute folder path.
func (f *Folder) Path() string {
	return f.path
}

// Exists reports whether a finished file with this name is already present.
func (f *Folder) Exists(fileName string) bool {
	p, err := f.file(fileName)
	if err != nil {
		return false
	}

	info, err := os.Stat(p)

	return err == nil && info.Mode().IsRegular()
}

// Create opens a partial file that becomes fileName on Commit.
func (f *Folder) Create(fileName string) (*PartFile, error) {
	final, err := f.file(fileName)
	if err != nil {
		return nil, err
	}

	part := final + consts.PartSuffix

	file, err := os.OpenFile(part, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
	if err != nil {
		return nil, fmt.Errorf("create part file: %w", err)
	}

	return &PartFile{file: file, part: part, final: final}, nil
}

func (f *Folder) file(fileName string) (string, error) {
	if fileName == "" || fileName == "." || fileName == ".." ||
		filepath.Base(fileName) != fileName || strings.ContainsAny(fileName, `/\`) {
		return "", fmt.Errorf("%w: %q", errs.ErrInvalidFileName, fileName)
	}

	return filepath.Join(f.path, fileName), nil
}

// PartFile is a file being written under a temporary ".part" name.
type PartFile struct {
	file    *os.File
	part    string
	final   string
	written int64
}

func (p *PartFile) Write(b []byte) (int, error) {
	n, err := p.file.Write(b)
	p.written += int64(n)

	return n, err
}

// Written returns the number of bytes written so far.
func (p *PartFile) Written() int64 {
	return p.written
}

// Commit closes the file and moves it to its final name.
func (p *PartFile) Commit() error {
	err := p.file.Close()
	if err != nil {
		_ = os.Remove(p.part)

		return fmt.Errorf("close part file: %w", err)
	}

	err = os.Rename(p.part, p.final)
	if err != nil {
		_ = os.Remove(p.part)

		return fmt.Errorf("rename part file: %w", err)
	}

	return nil
}

// Abort closes and removes the partial file.
func (p *PartFile) Abort() {
	_ = p.file.Close()
	_ = os.Remove(p.part)
}
