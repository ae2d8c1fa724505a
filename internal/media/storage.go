// AngelaMos | 2026
// storage.go

package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const sniffLen = 512

// DiskStorage keeps content addressed files under one directory. A file
// named <sha256><ext> never changes once written.
type DiskStorage struct {
	dir        string
	publicBase string
}

func NewDiskStorage(dir, publicBase string) (*DiskStorage, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStorage{dir: dir, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

// spooled is an upload written to a temp file and hashed, not yet named.
type spooled struct {
	tmpPath string
	hash    string
	size    int64
	mime    string
	tooBig  bool
}

func (s *spooled) discard() {
	if s.tmpPath != "" {
		_ = os.Remove(s.tmpPath) //nolint:errcheck // best effort cleanup
		s.tmpPath = ""
	}
}

// spool copies at most limit+1 bytes of r to a temp file while hashing
// it. The content type is sniffed from the leading bytes.
func (d *DiskStorage) spool(r io.Reader, limit int64) (*spooled, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	tmp, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	sp := &spooled{tmpPath: tmp.Name(), mime: http.DetectContentType(head)}

	hasher := sha256.New()
	body := io.MultiReader(bytes.NewReader(head), r)
	written, err := io.Copy(io.MultiWriter(tmp, hasher), io.LimitReader(body, limit+1))
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		sp.discard()
		return nil, fmt.Errorf("spool upload: %w", err)
	}

	sp.size = written
	sp.tooBig = written > limit
	sp.hash = hex.EncodeToString(hasher.Sum(nil))
	return sp, nil
}

func (d *DiskStorage) fileName(hash, ext string) string {
	return hash + ext
}

// commit moves a spooled file to its content address. When the address
// already exists the temp copy is dropped.
func (d *DiskStorage) commit(sp *spooled, ext string) (localPath, url string, err error) {
	name := d.fileName(sp.hash, ext)
	localPath = filepath.Join(d.dir, name)

	if _, statErr := os.Stat(localPath); statErr == nil {
		sp.discard()
	} else {
		if err := os.Rename(sp.tmpPath, localPath); err != nil {
			return "", "", fmt.Errorf("store upload: %w", err)
		}
		sp.tmpPath = ""
	}

	return localPath, d.publicBase + "/" + name, nil
}

// Ping reports whether the upload directory is writable.
func (d *DiskStorage) Ping(_ context.Context) error {
	f, err := os.CreateTemp(d.dir, ".health-*")
	if err != nil {
		return fmt.Errorf("upload dir not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()       //nolint:errcheck // probe file
	_ = os.Remove(name) //nolint:errcheck // probe file
	return nil
}

// PublicBase is the URL prefix stored files are served under.
func (d *DiskStorage) PublicBase() string {
	return d.publicBase
}

// ServeHTTP serves committed files by content address. Temp and probe
// files never match a stored name and are not reachable.
func (d *DiskStorage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, d.publicBase+"/")
	if !isStoredName(name) {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeFile(w, r, filepath.Join(d.dir, name))
}

func isStoredName(name string) bool {
	hash, ext, ok := strings.Cut(name, ".")
	if !ok || len(hash) != sha256.Size*2 {
		return false
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return false
	}
	for _, f := range formats {
		if f.ext == "."+ext {
			return true
		}
	}
	return false
}
