package repo

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/aweris/treepush/internal/push"
)

// Object payload formats. Commit and tree objects are line-oriented
// text; file objects are zstd-framed content; metadata is opaque.
//
//	commit:  "tree <hex>\n" [metadata lines...] "\n" message
//	tree:    "meta <hex>\n" { ("file"|"tree") " <hex> <name>\n" }
//
// Entries in a tree are sorted by name so the encoding is canonical.

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// EncodeFilez frames file content as stored in the repository.
func EncodeFilez(content []byte) []byte {
	return zstdEncoder.EncodeAll(content, make([]byte, 0, len(content)))
}

// DecodeFilez recovers file content from its stored framing.
func DecodeFilez(stored []byte) ([]byte, error) {
	content, err := zstdDecoder.DecodeAll(stored, nil)
	if err != nil {
		return nil, fmt.Errorf("repo: decode filez: %w", err)
	}
	return content, nil
}

// TreeEntry is one named child of a tree object.
type TreeEntry struct {
	Name string
	ID   push.ObjectID
}

// EncodeTree builds a tree payload from its metadata object and entries.
func EncodeTree(meta push.ObjectID, entries []TreeEntry) []byte {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	fmt.Fprintf(&b, "meta %s\n", meta.Hash)
	for _, e := range sorted {
		tag := "file"
		if e.ID.Kind == push.KindTree {
			tag = "tree"
		}
		fmt.Fprintf(&b, "%s %s %s\n", tag, e.ID.Hash, e.Name)
	}
	return []byte(b.String())
}

// EncodeCommit builds a commit payload referencing its root tree.
func EncodeCommit(tree push.ObjectID, subject string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "tree %s\n", tree.Hash)
	if subject != "" {
		fmt.Fprintf(&b, "\n%s\n", subject)
	}
	return []byte(b.String())
}

// HashPayload computes the content address of a stored payload.
func HashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
