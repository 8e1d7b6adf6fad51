// Package blobstore implements the content-addressed binary store (§4.1):
// raw bytes keyed by the hex SHA-256 of their content, sharded on disk by the
// first two hex characters, written atomically via a sibling temp file plus
// rename. Grounded on the original noema-core storage/blob.rs.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/o11y"
	"github.com/lookatitude/agentcore/schema"
)

// Store is a filesystem-backed BlobStore rooted at a directory.
type Store struct {
	root string
	log  *o11y.Logger
}

// New creates a Store rooted at root, creating the directory if absent.
func New(root string, log *o11y.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, core.NewError("blobstore.New", core.ErrIO, "create root", err)
	}
	if log == nil {
		log = o11y.NewLogger()
	}
	return &Store{root: root, log: log}, nil
}

// ComputeHash returns the hex-encoded SHA-256 of data.
func ComputeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *Store) shard(hash string) string {
	if len(hash) < 2 {
		return s.root
	}
	return filepath.Join(s.root, hash[:2])
}

// PathFor returns the on-disk path for a given hash, valid or not.
func (s *Store) PathFor(hash string) string {
	return filepath.Join(s.shard(hash), hash)
}

// Store writes data if it is not already present and returns its content
// address. Two concurrent Store calls for identical bytes are safe: one file
// create wins the atomic rename, the other observes the file already exists.
func (s *Store) Store(ctx context.Context, data []byte) (schema.Blob, error) {
	hash := ComputeHash(data)
	path := s.PathFor(hash)

	if fi, err := os.Stat(path); err == nil {
		return schema.Blob{Hash: hash, Size: fi.Size(), IsNew: false}, nil
	}

	dir := s.shard(hash)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return schema.Blob{}, core.NewError("blobstore.Store", core.ErrIO, "create shard dir", err)
	}

	tmp, err := os.CreateTemp(dir, hash+".*.tmp")
	if err != nil {
		return schema.Blob{}, core.NewError("blobstore.Store", core.ErrIO, "create temp file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return schema.Blob{}, core.NewError("blobstore.Store", core.ErrIO, "write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return schema.Blob{}, core.NewError("blobstore.Store", core.ErrIO, "fsync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return schema.Blob{}, core.NewError("blobstore.Store", core.ErrIO, "close temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		// Another writer may have won the race; treat an existing target as success.
		if fi, statErr := os.Stat(path); statErr == nil {
			s.log.Debug(ctx, "blob already present after rename race", "hash", hash)
			return schema.Blob{Hash: hash, Size: fi.Size(), IsNew: false}, nil
		}
		return schema.Blob{}, core.NewError("blobstore.Store", core.ErrIO, "rename temp file", err)
	}

	s.log.Debug(ctx, "stored blob", "hash", hash, "size", len(data))
	return schema.Blob{Hash: hash, Size: int64(len(data)), IsNew: true}, nil
}

// Get reads the full contents of the blob addressed by hash.
func (s *Store) Get(ctx context.Context, hash string) ([]byte, error) {
	data, err := os.ReadFile(s.PathFor(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewError("blobstore.Get", core.ErrNotFound, "blob "+hash, err)
		}
		return nil, core.NewError("blobstore.Get", core.ErrIO, "read blob", err)
	}
	return data, nil
}

// GetInto streams the blob's bytes into w without buffering the whole blob.
func (s *Store) GetInto(ctx context.Context, hash string, w io.Writer) error {
	f, err := os.Open(s.PathFor(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return core.NewError("blobstore.GetInto", core.ErrNotFound, "blob "+hash, err)
		}
		return core.NewError("blobstore.GetInto", core.ErrIO, "open blob", err)
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return core.NewError("blobstore.GetInto", core.ErrIO, "copy blob", err)
	}
	return nil
}

// Exists reports whether hash is present.
func (s *Store) Exists(ctx context.Context, hash string) (bool, error) {
	_, err := os.Stat(s.PathFor(hash))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, core.NewError("blobstore.Exists", core.ErrIO, "stat blob", err)
}

// Size returns the stored size of hash without reading its content.
func (s *Store) Size(ctx context.Context, hash string) (int64, error) {
	fi, err := os.Stat(s.PathFor(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, core.NewError("blobstore.Size", core.ErrNotFound, "blob "+hash, err)
		}
		return 0, core.NewError("blobstore.Size", core.ErrIO, "stat blob", err)
	}
	return fi.Size(), nil
}

// Delete removes hash if present and reports whether it existed.
func (s *Store) Delete(ctx context.Context, hash string) (bool, error) {
	err := os.Remove(s.PathFor(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, core.NewError("blobstore.Delete", core.ErrIO, "remove blob", err)
	}
	return true, nil
}

// Verify re-reads and re-hashes the blob, confirming the filename matches its
// content.
func (s *Store) Verify(ctx context.Context, hash string) (bool, error) {
	data, err := s.Get(ctx, hash)
	if err != nil {
		if code, ok := core.CodeOf(err); ok && code == core.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return ComputeHash(data) == hash, nil
}

// ListAll walks the shard tree and returns every stored hash, skipping
// in-flight temp files.
func (s *Store) ListAll(ctx context.Context) ([]string, error) {
	var hashes []string
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.Contains(name, ".tmp") {
			return nil
		}
		hashes = append(hashes, name)
		return nil
	})
	if err != nil {
		return nil, core.NewError("blobstore.ListAll", core.ErrIO, "walk root", err)
	}
	return hashes, nil
}

// TotalSize sums the size of every stored blob.
func (s *Store) TotalSize(ctx context.Context) (int64, error) {
	hashes, err := s.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, h := range hashes {
		sz, err := s.Size(ctx, h)
		if err != nil {
			continue
		}
		total += sz
	}
	return total, nil
}

// CleanupTempFiles removes orphaned *.tmp files left by interrupted writes
// and returns how many it removed.
func (s *Store) CleanupTempFiles(ctx context.Context) (int, error) {
	removed := 0
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.Contains(d.Name(), ".tmp") {
			return nil
		}
		if rmErr := os.Remove(path); rmErr == nil {
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, core.NewError("blobstore.CleanupTempFiles", core.ErrIO, "walk root", err)
	}
	return removed, nil
}
