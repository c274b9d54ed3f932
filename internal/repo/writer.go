package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aweris/treepush/internal/push"
)

// Writer builds repository content: it stores payloads under their
// content address and updates refs. Used by tooling and tests that
// assemble source repositories; the push engine itself only reads.
type Writer struct {
	root string
}

// NewWriter creates the repository skeleton at dir if needed.
func NewWriter(dir string) (*Writer, error) {
	for _, sub := range []string{"objects", filepath.Join("refs", "heads")} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("repo: create %s: %w", sub, err)
		}
	}
	return &Writer{root: dir}, nil
}

// PutFile stores file content as a filez object and returns its id.
func (w *Writer) PutFile(content []byte) (push.ObjectID, error) {
	return w.put(EncodeFilez(content), push.KindFile)
}

// PutMeta stores a metadata payload.
func (w *Writer) PutMeta(payload []byte) (push.ObjectID, error) {
	return w.put(payload, push.KindMeta)
}

// PutTree stores a tree referencing its metadata object and entries.
func (w *Writer) PutTree(meta push.ObjectID, entries []TreeEntry) (push.ObjectID, error) {
	return w.put(EncodeTree(meta, entries), push.KindTree)
}

// PutCommit stores a commit referencing its root tree.
func (w *Writer) PutCommit(tree push.ObjectID, subject string) (push.ObjectID, error) {
	return w.put(EncodeCommit(tree, subject), push.KindCommit)
}

// SetRef points a local ref at a commit.
func (w *Writer) SetRef(name string, commit push.ObjectID) error {
	path := filepath.Join(w.root, "refs", "heads", name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("repo: ref dir: %w", err)
	}
	return os.WriteFile(path, []byte(commit.Hash+"\n"), 0644)
}

func (w *Writer) put(payload []byte, kind push.Kind) (push.ObjectID, error) {
	id, err := push.NewObjectID(HashPayload(payload), kind)
	if err != nil {
		return push.ObjectID{}, err
	}

	path := filepath.Join(w.root, filepath.FromSlash(id.Path()))
	if _, err := os.Stat(path); err == nil {
		return id, nil // already stored
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return push.ObjectID{}, fmt.Errorf("repo: shard dir: %w", err)
	}
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return push.ObjectID{}, fmt.Errorf("repo: write %s: %w", id, err)
	}
	return id, nil
}
