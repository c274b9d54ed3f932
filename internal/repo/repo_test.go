package repo

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/treepush/internal/push"
)

func buildFixture(t *testing.T) (string, push.ObjectID) {
	t.Helper()
	dir := t.TempDir()

	w, err := NewWriter(dir)
	require.NoError(t, err)

	f1, err := w.PutFile([]byte("hello world"))
	require.NoError(t, err)
	f2, err := w.PutFile([]byte("goodbye"))
	require.NoError(t, err)
	meta, err := w.PutMeta([]byte("mode=0755"))
	require.NoError(t, err)

	tree, err := w.PutTree(meta, []TreeEntry{
		{Name: "hello.txt", ID: f1},
		{Name: "bye.txt", ID: f2},
	})
	require.NoError(t, err)

	commit, err := w.PutCommit(tree, "initial import")
	require.NoError(t, err)
	require.NoError(t, w.SetRef("main", commit))

	return dir, commit
}

func TestRepositoryRoundTrip(t *testing.T) {
	dir, commit := buildFixture(t)
	ctx := context.Background()

	r, err := Open(dir)
	require.NoError(t, err)

	payload, err := r.GetObject(ctx, commit)
	require.NoError(t, err)
	assert.Equal(t, commit.Hash, HashPayload(payload), "payload must match its content address")

	assert.True(t, strings.HasPrefix(string(payload), "tree "))

	// Second read is served from the payload cache.
	again, err := r.GetObject(ctx, commit)
	require.NoError(t, err)
	assert.Equal(t, payload, again)

	ref, err := r.ReadRef("main")
	require.NoError(t, err)
	assert.Equal(t, commit.Hash, ref)

	assert.True(t, r.HasObject(commit))
}

func TestRepositoryMissingObject(t *testing.T) {
	dir, _ := buildFixture(t)

	r, err := Open(dir)
	require.NoError(t, err)

	absent, err := push.NewObjectID(HashPayload([]byte("never stored")), push.KindFile)
	require.NoError(t, err)

	_, err = r.GetObject(context.Background(), absent)
	assert.ErrorIs(t, err, push.ErrObjectMissing)
	assert.False(t, r.HasObject(absent))
}

func TestOpenRejectsNonRepo(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)
}

func TestFilezRoundTrip(t *testing.T) {
	content := []byte("some file content that compresses: aaaaaaaaaaaaaaaaaaaaaaaa")

	stored := EncodeFilez(content)
	back, err := DecodeFilez(stored)
	require.NoError(t, err)
	assert.Equal(t, content, back)

	_, err = DecodeFilez([]byte("not zstd at all"))
	assert.Error(t, err)
}

func TestEncodeTreeCanonical(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	meta, err := w.PutMeta([]byte("m"))
	require.NoError(t, err)
	a, err := w.PutFile([]byte("a"))
	require.NoError(t, err)
	b, err := w.PutFile([]byte("b"))
	require.NoError(t, err)

	t1 := EncodeTree(meta, []TreeEntry{{Name: "a", ID: a}, {Name: "b", ID: b}})
	t2 := EncodeTree(meta, []TreeEntry{{Name: "b", ID: b}, {Name: "a", ID: a}})
	assert.Equal(t, t1, t2, "entry order must not change the encoding")
}

func TestPutIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	id1, err := w.PutFile([]byte("same bytes"))
	require.NoError(t, err)
	id2, err := w.PutFile([]byte("same bytes"))
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}
