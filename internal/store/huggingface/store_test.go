package huggingface

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/hn-dataset-sync/internal/dataset"
	"github.com/JakeFAU/hn-dataset-sync/internal/hash/sha256"
	"github.com/JakeFAU/hn-dataset-sync/internal/store"
)

const testToken = "hf_test"

// fakeHub implements the slice of the Hub API the store talks to.
type fakeHub struct {
	t          *testing.T
	mu         sync.Mutex
	server     *httptest.Server
	files      map[string][]byte
	lfs        map[string][]byte
	uploadMode string
	chunkSize  int
	repoExists bool
	commits    [][]commitLine
	verified   []string
	parts      map[int][]byte
	refs       []string
	// pageSize splits tree listings into pages when positive.
	pageSize int
}

func newFakeHub(t *testing.T) *fakeHub {
	t.Helper()
	h := &fakeHub{
		t:          t,
		files:      map[string][]byte{},
		lfs:        map[string][]byte{},
		parts:      map[int][]byte{},
		uploadMode: uploadModeRegular,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/whoami-v2", h.authed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"name": "artbred", "type": "user"})
	}))
	mux.HandleFunc("GET /datasets/{owner}/{name}/resolve/{rev}/{path...}", h.authed(h.resolve))
	mux.HandleFunc("GET /api/datasets/{owner}/{name}/tree/{rev}/{dir...}", h.authed(h.tree))
	mux.HandleFunc("POST /api/repos/create", h.authed(h.createRepo))
	mux.HandleFunc("POST /api/datasets/{owner}/{name}/preupload/{rev}", h.authed(h.preupload))
	mux.HandleFunc("POST /datasets/{owner}/{repo}/info/lfs/objects/batch", h.authed(h.batch))
	mux.HandleFunc("PUT /upload/{oid}", h.upload)
	mux.HandleFunc("PUT /part/{n}", h.uploadPart)
	mux.HandleFunc("POST /complete/{oid}", h.complete)
	mux.HandleFunc("POST /verify", h.authed(h.verify))
	mux.HandleFunc("POST /api/datasets/{owner}/{name}/commit/{rev}", h.authed(h.commit))
	h.server = httptest.NewServer(mux)
	t.Cleanup(h.server.Close)
	return h
}

func (h *fakeHub) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			writeJSON(w, map[string]string{"error": "Invalid credentials"})
			return
		}
		next(w, r)
	}
}

// locked runs fn while holding the hub's lock.
func (h *fakeHub) locked(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (h *fakeHub) resolve(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.repoExists {
		w.Header().Set(errorCodeKey, "RepoNotFound")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	data, ok := h.files[r.PathValue("path")]
	if !ok {
		w.Header().Set(errorCodeKey, "EntryNotFound")
		w.WriteHeader(http.StatusNotFound)
		return
	}
	_, _ = w.Write(data)
}

func (h *fakeHub) tree(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.repoExists {
		w.Header().Set(errorCodeKey, "RepoNotFound")
		w.WriteHeader(http.StatusNotFound)
		return
	}
	dir := r.PathValue("dir")
	var entries []treeEntry
	for p, data := range h.files {
		if path.Dir(p) == dir {
			entries = append(entries, treeEntry{Type: "file", Path: p, Size: int64(len(data))})
		}
	}
	if len(entries) == 0 {
		w.Header().Set(errorCodeKey, "EntryNotFound")
		w.WriteHeader(http.StatusNotFound)
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	if h.pageSize > 0 {
		start, _ := strconv.Atoi(r.URL.Query().Get("cursor"))
		end := min(start+h.pageSize, len(entries))
		if end < len(entries) {
			next := fmt.Sprintf("%s%s?cursor=%d", h.server.URL, r.URL.Path, end)
			w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next"`, next))
		}
		entries = entries[start:end]
	}
	writeJSON(w, entries)
}

func (h *fakeHub) createRepo(w http.ResponseWriter, r *http.Request) {
	var req createRepoRequest
	require.NoError(h.t, json.NewDecoder(r.Body).Decode(&req))
	assert.Equal(h.t, "dataset", req.Type)
	assert.Equal(h.t, "artbred", req.Organization)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.repoExists {
		w.WriteHeader(http.StatusConflict)
		writeJSON(w, map[string]string{"error": "You already created this dataset repo"})
		return
	}
	h.repoExists = true
	writeJSON(w, map[string]string{"url": h.server.URL + "/datasets/" + req.Organization + "/" + req.Name})
}

func (h *fakeHub) preupload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Files []preuploadFile `json:"files"`
	}
	require.NoError(h.t, json.NewDecoder(r.Body).Decode(&req))
	require.Len(h.t, req.Files, 1)
	_, err := base64.StdEncoding.DecodeString(req.Files[0].Sample)
	assert.NoError(h.t, err)
	var mode string
	h.locked(func() { mode = h.uploadMode })
	writeJSON(w, map[string]any{"files": []map[string]any{
		{"path": req.Files[0].Path, "uploadMode": mode, "shouldIgnore": false},
	}})
}

func (h *fakeHub) batch(w http.ResponseWriter, r *http.Request) {
	assert.Equal(h.t, lfsMediaType, r.Header.Get("Content-Type"))
	assert.Equal(h.t, "hn_stories.git", r.PathValue("repo"))
	var req lfsBatchRequest
	require.NoError(h.t, json.NewDecoder(r.Body).Decode(&req))
	require.Len(h.t, req.Objects, 1)
	obj := req.Objects[0]

	h.mu.Lock()
	h.refs = append(h.refs, req.Ref.Name)
	_, present := h.lfs[obj.OID]
	chunkSize := h.chunkSize
	h.mu.Unlock()

	actions := map[string]lfsAction{}
	if !present {
		upload := lfsAction{Href: h.server.URL + "/upload/" + obj.OID}
		if chunkSize > 0 {
			upload.Href = h.server.URL + "/complete/" + obj.OID
			upload.Header = map[string]string{"chunk_size": fmt.Sprint(chunkSize)}
			n := (int(obj.Size) + chunkSize - 1) / chunkSize
			for i := 1; i <= n; i++ {
				upload.Header[fmt.Sprintf("%05d", i)] = fmt.Sprintf("%s/part/%d", h.server.URL, i)
			}
		}
		actions["upload"] = upload
		actions["verify"] = lfsAction{Href: h.server.URL + "/verify"}
	}
	w.Header().Set("Content-Type", lfsMediaType)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"transfer": "basic",
		"objects":  []map[string]any{{"oid": obj.OID, "size": obj.Size, "actions": actions}},
	})
}

func (h *fakeHub) upload(w http.ResponseWriter, r *http.Request) {
	assert.Empty(h.t, r.Header.Get("Authorization"))
	data, err := io.ReadAll(r.Body)
	require.NoError(h.t, err)
	h.mu.Lock()
	h.lfs[r.PathValue("oid")] = data
	h.mu.Unlock()
}

func (h *fakeHub) uploadPart(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	require.NoError(h.t, err)
	var n int
	_, err = fmt.Sscan(r.PathValue("n"), &n)
	require.NoError(h.t, err)
	h.mu.Lock()
	h.parts[n] = data
	h.mu.Unlock()
	w.Header().Set("ETag", fmt.Sprintf(`"etag-%d"`, n))
}

func (h *fakeHub) complete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OID   string           `json:"oid"`
		Parts []completionPart `json:"parts"`
	}
	require.NoError(h.t, json.NewDecoder(r.Body).Decode(&req))
	h.mu.Lock()
	defer h.mu.Unlock()
	var joined []byte
	for i, p := range req.Parts {
		assert.Equal(h.t, i+1, p.PartNumber)
		assert.Equal(h.t, fmt.Sprintf(`"etag-%d"`, i+1), p.ETag)
		joined = append(joined, h.parts[p.PartNumber]...)
	}
	h.lfs[req.OID] = joined
}

func (h *fakeHub) verify(w http.ResponseWriter, r *http.Request) {
	var obj lfsObject
	require.NoError(h.t, json.NewDecoder(r.Body).Decode(&obj))
	h.mu.Lock()
	defer h.mu.Unlock()
	if int64(len(h.lfs[obj.OID])) != obj.Size {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}
	h.verified = append(h.verified, obj.OID)
}

func (h *fakeHub) commit(w http.ResponseWriter, r *http.Request) {
	assert.Equal(h.t, "application/x-ndjson", r.Header.Get("Content-Type"))
	var lines []commitLine
	scanner := bufio.NewScanner(r.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 16<<20)
	for scanner.Scan() {
		var raw struct {
			Key   string          `json:"key"`
			Value json.RawMessage `json:"value"`
		}
		require.NoError(h.t, json.Unmarshal(scanner.Bytes(), &raw))
		lines = append(lines, commitLine{Key: raw.Key, Value: raw.Value})

		h.mu.Lock()
		switch raw.Key {
		case "file":
			var f commitFile
			require.NoError(h.t, json.Unmarshal(raw.Value, &f))
			data, err := base64.StdEncoding.DecodeString(f.Content)
			require.NoError(h.t, err)
			h.files[f.Path] = data
		case "lfsFile":
			var f commitLFSFile
			require.NoError(h.t, json.Unmarshal(raw.Value, &f))
			h.files[f.Path] = h.lfs[f.OID]
		case "deletedFile":
			var f commitDeletedFile
			require.NoError(h.t, json.Unmarshal(raw.Value, &f))
			_, ok := h.files[f.Path]
			assert.True(h.t, ok, "deleting unknown file %s", f.Path)
			delete(h.files, f.Path)
		}
		h.mu.Unlock()
	}
	require.NoError(h.t, scanner.Err())
	h.mu.Lock()
	h.commits = append(h.commits, lines)
	h.mu.Unlock()
	writeJSON(w, commitResponse{CommitOID: "abc123", CommitURL: h.server.URL + "/commit/abc123"})
}

const trainShard = "data/train-00000-of-00001.parquet"

func newTestStore(t *testing.T, hub *fakeHub, token string) *Store {
	t.Helper()
	s, err := New(Config{
		Endpoint: hub.server.URL + "/",
		Repo:     "artbred/hn_stories",
		DataDir:  "data",
		Split:    "train",
		Token:    token,
	}, sha256.New(), WithHTTPClient(hub.server.Client()))
	require.NoError(t, err)
	return s
}

func testRecords(t *testing.T, ids ...int64) []dataset.Record {
	t.Helper()
	records := make([]dataset.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := dataset.NewRecord(id, map[string]any{"title": fmt.Sprintf("story %d", id), "score": 42})
		require.NoError(t, err)
		records = append(records, rec)
	}
	return records
}

func testSnapshot(t *testing.T) dataset.Snapshot {
	t.Helper()
	return dataset.Snapshot{Records: testRecords(t, 103, 102, 101)}
}

func encodeShard(t *testing.T, ids ...int64) []byte {
	t.Helper()
	data, err := dataset.EncodeParquet(testRecords(t, ids...))
	require.NoError(t, err)
	return data
}

func commitValue[T any](t *testing.T, line commitLine) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(line.Value.(json.RawMessage), &v))
	return v
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "bad repo", cfg: Config{Repo: "noslash", DataDir: "data", Split: "train", Token: testToken}},
		{name: "no token", cfg: Config{Repo: "a/b", DataDir: "data", Split: "train"}},
		{name: "no data dir", cfg: Config{Repo: "a/b", DataDir: "/", Split: "train", Token: testToken}},
		{name: "no split", cfg: Config{Repo: "a/b", DataDir: "data", Token: testToken}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.cfg, sha256.New())
			assert.Error(t, err)
		})
	}

	_, err := New(Config{Repo: "a/b", DataDir: "data", Split: "train", Token: testToken}, nil)
	assert.Error(t, err)

	s, err := New(Config{Repo: "a/b", DataDir: "/data/", Split: "train", Token: testToken}, sha256.New())
	require.NoError(t, err)
	assert.Equal(t, "hf://datasets/a/b@main/data/train-*.parquet", s.URI())
	assert.Equal(t, trainShard, s.shardPath())
	assert.NoError(t, s.Close())
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	hub := newFakeHub(t)
	name, err := newTestStore(t, hub, testToken).Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "artbred", name)

	_, err = newTestStore(t, hub, "hf_wrong").Authenticate(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
}

func TestLoadAbsentSplit(t *testing.T) {
	t.Parallel()

	hub := newFakeHub(t)
	s := newTestStore(t, hub, testToken)

	// No repository.
	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Repository without a data directory.
	hub.locked(func() { hub.repoExists = true })
	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Only another split is present.
	hub.locked(func() { hub.files["data/test-00000-of-00001.parquet"] = encodeShard(t, 1) })
	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoadUnauthorizedIsNotAbsent(t *testing.T) {
	t.Parallel()

	hub := newFakeHub(t)
	hub.locked(func() { hub.repoExists = true })
	_, err := newTestStore(t, hub, "hf_wrong").Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestLoadExistingShardsThenReplace(t *testing.T) {
	t.Parallel()

	hub := newFakeHub(t)
	oldShards := []string{"data/train-00000-of-00002.parquet", "data/train-00001-of-00002.parquet"}
	hub.locked(func() {
		hub.repoExists = true
		hub.pageSize = 2
		hub.files[oldShards[0]] = encodeShard(t, 300, 299)
		hub.files[oldShards[1]] = encodeShard(t, 120, 100)
		hub.files["data/test-00000-of-00001.parquet"] = encodeShard(t, 7)
		hub.files["data/README.md"] = []byte("# notes")
	})
	s := newTestStore(t, hub, testToken)

	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{300, 299, 120, 100}, loaded.IDs())
	title, ok := loaded.Records[0].StringField("title")
	require.True(t, ok)
	assert.Equal(t, "story 300", title)

	merged := dataset.Merge(loaded.Records, testRecords(t, 301))
	require.NoError(t, s.Publish(context.Background(), merged, "Add 1 story"))

	hub.locked(func() {
		require.Len(t, hub.commits, 1)
		lines := hub.commits[0]
		require.Len(t, lines, 4)
		assert.Equal(t, "file", lines[1].Key)
		assert.Equal(t, trainShard, commitValue[commitFile](t, lines[1]).Path)
		var deleted []string
		for _, line := range lines[2:] {
			assert.Equal(t, "deletedFile", line.Key)
			deleted = append(deleted, commitValue[commitDeletedFile](t, line).Path)
		}
		assert.Equal(t, oldShards, deleted)

		_, kept := hub.files["data/test-00000-of-00001.parquet"]
		assert.True(t, kept)
		_, kept = hub.files["data/README.md"]
		assert.True(t, kept)
	})

	reloaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{301, 300, 299, 120, 100}, reloaded.IDs())
}

func TestLoadRejectsNonParquetSplit(t *testing.T) {
	t.Parallel()

	hub := newFakeHub(t)
	hub.locked(func() {
		hub.repoExists = true
		hub.files["data/train.jsonl"] = []byte(`{"id": 1}` + "\n")
	})
	s := newTestStore(t, hub, testToken)

	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, err.Error(), "non-parquet")

	require.Error(t, s.Publish(context.Background(), testSnapshot(t), "sync"))
	hub.locked(func() { assert.Empty(t, hub.commits) })
}

func TestPublishRegularThenLoad(t *testing.T) {
	t.Parallel()

	hub := newFakeHub(t)
	s := newTestStore(t, hub, testToken)
	snap := testSnapshot(t)

	require.NoError(t, s.Publish(context.Background(), snap, "Add 3 stories"))
	hub.locked(func() {
		require.Len(t, hub.commits, 1)
		require.Len(t, hub.commits[0], 2)
		assert.Equal(t, "header", hub.commits[0][0].Key)
		assert.JSONEq(t, `{"summary":"Add 3 stories","description":""}`, string(hub.commits[0][0].Value.(json.RawMessage)))
		assert.Equal(t, "file", hub.commits[0][1].Key)
		assert.True(t, bytes.HasPrefix(hub.files[trainShard], []byte("PAR1")))
	})

	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{103, 102, 101}, loaded.IDs())

	// A second publish overwrites the same shard and deletes nothing.
	require.NoError(t, s.Publish(context.Background(), snap, ""))
	hub.locked(func() {
		require.Len(t, hub.commits, 2)
		assert.Len(t, hub.commits[1], 2)
		assert.Contains(t, string(hub.commits[1][0].Value.(json.RawMessage)), "Update "+trainShard)
	})
}

func TestPublishLFS(t *testing.T) {
	t.Parallel()

	hub := newFakeHub(t)
	hub.locked(func() { hub.uploadMode = uploadModeLFS })
	s := newTestStore(t, hub, testToken)
	snap := testSnapshot(t)

	require.NoError(t, s.Publish(context.Background(), snap, "sync"))

	var oid string
	hub.locked(func() {
		require.Len(t, hub.commits, 1)
		assert.Equal(t, "lfsFile", hub.commits[0][1].Key)
		file := commitValue[commitLFSFile](t, hub.commits[0][1])
		assert.Equal(t, trainShard, file.Path)
		oid = file.OID

		stored := hub.lfs[oid]
		assert.Equal(t, int64(len(stored)), file.Size)
		digest, err := sha256.New().Hash(stored)
		require.NoError(t, err)
		assert.Equal(t, oid, digest)
		assert.Equal(t, []string{oid}, hub.verified)
		assert.Equal(t, []string{"refs/heads/main"}, hub.refs)
	})

	// The object is already stored, so the second publish skips the upload.
	require.NoError(t, s.Publish(context.Background(), snap, "sync"))
	hub.locked(func() {
		assert.Len(t, hub.verified, 1)
		assert.Len(t, hub.commits, 2)
	})

	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap.IDs(), loaded.IDs())
}

func TestPublishLFSMultipart(t *testing.T) {
	t.Parallel()

	hub := newFakeHub(t)
	hub.locked(func() {
		hub.uploadMode = uploadModeLFS
		hub.chunkSize = 128
	})
	s := newTestStore(t, hub, testToken)
	snap := testSnapshot(t)

	require.NoError(t, s.Publish(context.Background(), snap, "sync"))
	hub.locked(func() {
		assert.Greater(t, len(hub.parts), 1)
		file := commitValue[commitLFSFile](t, hub.commits[0][1])
		assert.Equal(t, file.Size, int64(len(hub.lfs[file.OID])))
	})

	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap.IDs(), loaded.IDs())
}

func TestPublishCommitFailure(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/repos/create", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	mux.HandleFunc("POST /api/datasets/{owner}/{name}/preupload/{rev}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"files": []any{}})
	})
	mux.HandleFunc("POST /api/datasets/{owner}/{name}/commit/{rev}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(errorCodeKey, "GatedRepo")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("write access denied"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	s, err := New(Config{Endpoint: server.URL, Repo: "a/b", DataDir: "data", Split: "train", Token: testToken}, sha256.New())
	require.NoError(t, err)

	err = s.Publish(context.Background(), testSnapshot(t), "sync")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "GatedRepo", apiErr.Code)
	assert.True(t, strings.Contains(err.Error(), "write access denied"))
}

func TestSplitShards(t *testing.T) {
	t.Parallel()

	entries := []treeEntry{
		{Type: "file", Path: "data/train-00001-of-00002.parquet"},
		{Type: "file", Path: "data/train-00000-of-00002.parquet"},
		{Type: "file", Path: "data/training-00000.parquet"},
		{Type: "file", Path: "data/test.parquet"},
		{Type: "directory", Path: "data/train-extra"},
	}
	shards, err := splitShards(entries, "train")
	require.NoError(t, err)
	require.Len(t, shards, 2)
	assert.Equal(t, "data/train-00000-of-00002.parquet", shards[0].Path)

	shards, err = splitShards([]treeEntry{{Type: "file", Path: "data/train.parquet"}}, "train")
	require.NoError(t, err)
	assert.Len(t, shards, 1)

	_, err = splitShards([]treeEntry{{Type: "file", Path: "data/train-00000.arrow"}}, "train")
	assert.Error(t, err)
}

func TestNextLinkAndGitRef(t *testing.T) {
	t.Parallel()

	links := []struct {
		header string
		want   string
	}{
		{header: "", want: ""},
		{header: `<https://hub/api/tree?cursor=abc>; rel="next"`, want: "https://hub/api/tree?cursor=abc"},
		{header: `<https://hub/a>; rel="prev", <https://hub/b>; rel="next"`, want: "https://hub/b"},
		{header: `<https://hub/a>; rel="prev"`, want: ""},
	}
	for _, tt := range links {
		assert.Equal(t, tt.want, nextLink(tt.header), tt.header)
	}

	assert.Equal(t, "refs/heads/main", gitRef("main"))
	assert.Equal(t, "refs/pr/3", gitRef("refs/pr/3"))
}
