// Package manifest writes a JSON description of a finished run.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"subgrab/internal/entity"

	"github.com/ulikunitz/xz"
)

const compressedSuffix = ".xz"

// Manifest is the document stored on disk.
type Manifest struct {
	Version    int           `json:"version"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Report     entity.Report `json:"report"`
}

// Write stores m at path, xz-compressed when path ends in ".xz".
// The file is replaced atomically.
func Write(path string, m Manifest) (err error) {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create manifest temp file: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	var w io.Writer = tmp

	var xzw *xz.Writer
	if strings.HasSuffix(path, compressedSuffix) {
		xzw, err = xz.NewWriter(tmp)
		if err != nil {
			return fmt.Errorf("create xz writer: %w", err)
		}

		w = xzw
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err = enc.Encode(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if xzw != nil {
		err = xzw.Close()
		if err != nil {
			return fmt.Errorf("close xz writer: %w", err)
		}
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return fmt.Errorf("rename manifest: %w", err)
	}

	return nil
}

// Read loads a manifest written by Write.
func Read(path string) (Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("open manifest: %w", err)
	}
	defer file.Close()

	var r io.Reader = file

	if strings.HasSuffix(path, compressedSuffix) {
		r, err = xz.NewReader(file)
		if err != nil {
			return Manifest{}, fmt.Errorf("create xz reader: %w", err)
		}
	}

	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}

	return m, nil
}
