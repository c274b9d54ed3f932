// Package repo implements the local object repository a push reads from.
//
// Storage layout (sharded by hash prefix, one file per object):
//
//	root/
//	  objects/
//	    ab/cd123....commit
//	    ab/cd456....dirtree
//	    ef/9a....dirmeta
//	    12/34....filez   (zstd-framed file content)
//	  refs/heads/<name>  (plain text commit hash)
//
// The repository serves payloads exactly as stored; the stored bytes
// are what the object hash addresses and what goes on the wire.
package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aweris/treepush/internal/push"
)

// Repository reads objects from a local repository directory.
type Repository struct {
	root  string
	cache *payloadCache
}

// Open opens an existing repository rooted at dir.
func Open(dir string) (*Repository, error) {
	info, err := os.Stat(filepath.Join(dir, "objects"))
	if err != nil {
		return nil, fmt.Errorf("repo: open %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repo: %s: objects is not a directory", dir)
	}
	return &Repository{root: dir, cache: newPayloadCache(defaultCacheSize)}, nil
}

// GetObject returns the stored payload of an object. Objects fetched
// for discovery are cached so the later upload does not re-read them.
func (r *Repository) GetObject(ctx context.Context, id push.ObjectID) ([]byte, error) {
	if data, ok := r.cache.Get(id); ok {
		return data, nil
	}
	data, err := os.ReadFile(r.objectPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", push.ErrObjectMissing, id)
		}
		return nil, fmt.Errorf("repo: read %s: %w", id, err)
	}
	r.cache.Add(id, data)
	return data, nil
}

// HasObject reports whether the repository holds an object.
func (r *Repository) HasObject(id push.ObjectID) bool {
	_, err := os.Stat(r.objectPath(id))
	return err == nil
}

// ReadRef resolves a local ref name to its commit hash.
func (r *Repository) ReadRef(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.root, "refs", "heads", name))
	if err != nil {
		return "", fmt.Errorf("repo: ref %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (r *Repository) objectPath(id push.ObjectID) string {
	return filepath.Join(r.root, filepath.FromSlash(id.Path()))
}
