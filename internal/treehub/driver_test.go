package treehub

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/treepush/internal/push"
)

func testID(t *testing.T, seed string, kind push.Kind) push.ObjectID {
	t.Helper()
	id, err := push.NewObjectID(strings.Repeat(seed, 32), kind)
	require.NoError(t, err)
	return id
}

// objectStore is a minimal remote implementing the wire contract:
// HEAD answers found/not-found, POST stores the payload.
type objectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *objectStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch r.Method {
	case http.MethodHead:
		if _, ok := s.objects[r.URL.Path]; !ok {
			w.WriteHeader(http.StatusNotFound)
		}
	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		s.objects[r.URL.Path] = body
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func awaitCompletions(t *testing.T, d *Driver, n int) []push.Completion {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var out []push.Completion
	for len(out) < n {
		require.True(t, time.Now().Before(deadline), "timed out waiting for %d completions, got %d", n, len(out))
		out = append(out, d.Poll()...)
	}
	return out
}

func TestDriverCheckAndUpload(t *testing.T) {
	store := &objectStore{objects: make(map[string][]byte)}
	ts := httptest.NewServer(store)
	defer ts.Close()

	srv, err := Authenticate(Credentials{Server: ts.URL}, "")
	require.NoError(t, err)
	d := NewDriver(srv, 4, 0)
	defer d.Close()

	id := testID(t, "ab", push.KindFile)

	require.NoError(t, d.Submit(push.Request{ID: id, Op: push.OpCheck}))
	cs := awaitCompletions(t, d, 1)
	assert.Equal(t, http.StatusNotFound, cs[0].Status)
	assert.Equal(t, push.OpCheck, cs[0].Op)

	require.NoError(t, d.Submit(push.Request{ID: id, Op: push.OpUpload, Body: []byte("payload")}))
	cs = awaitCompletions(t, d, 1)
	assert.Equal(t, http.StatusOK, cs[0].Status)
	assert.Equal(t, []byte("payload"), store.objects["/"+id.Path()])

	require.NoError(t, d.Submit(push.Request{ID: id, Op: push.OpCheck}))
	cs = awaitCompletions(t, d, 1)
	assert.Equal(t, http.StatusOK, cs[0].Status)
}

func TestDriverTimeoutIsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer ts.Close()

	srv, err := Authenticate(Credentials{Server: ts.URL}, "")
	require.NoError(t, err)
	d := NewDriver(srv, 1, 50*time.Millisecond)
	defer d.Close()

	require.NoError(t, d.Submit(push.Request{ID: testID(t, "cd", push.KindFile), Op: push.OpCheck}))
	cs := awaitCompletions(t, d, 1)
	assert.Error(t, cs[0].Err)
}

func TestDriverCancelAll(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	srv, err := Authenticate(Credentials{Server: ts.URL}, "")
	require.NoError(t, err)
	d := NewDriver(srv, 1, time.Minute)

	require.NoError(t, d.Submit(push.Request{ID: testID(t, "ef", push.KindFile), Op: push.OpCheck}))
	d.CancelAll()

	assert.Empty(t, d.Poll(), "no completion may be delivered after CancelAll")
	assert.Error(t, d.Submit(push.Request{ID: testID(t, "ab", push.KindFile), Op: push.OpCheck}))
	d.Close()
}

func TestDriverConnectionErrorIsError(t *testing.T) {
	srv, err := Authenticate(Credentials{Server: "http://127.0.0.1:1"}, "")
	require.NoError(t, err)
	d := NewDriver(srv, 1, time.Second)
	defer d.Close()

	require.NoError(t, d.Submit(push.Request{ID: testID(t, "99", push.KindFile), Op: push.OpCheck}))
	cs := awaitCompletions(t, d, 1)
	assert.Error(t, cs[0].Err)
}
