package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage-assistant/pkg"
)

var (
	chunks = []pkg.Chunk{
		{DocumentID: "d", ChunkID: "d:0", Text: "perda de interesse", Index: 0},
		{DocumentID: "d", ChunkID: "d:1", Text: "tensão muscular", Index: 1},
		{DocumentID: "d", ChunkID: "d:2", Text: "insônia", Index: 2},
	}
	vectors = [][]float64{{1, 0, 0}, {0, 1, 0}, {0.6, 0.8, 0}}
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float64{2, 0}, []float64{1, 0}), 1e-12)
	assert.Zero(t, Cosine([]float64{0, 0}, []float64{1, 0}))
	assert.Zero(t, Cosine([]float64{1}, []float64{1, 0}))
}

func TestFileStore_SearchOrder(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "index.gob"))
	require.NoError(t, s.Init(ctx, 3))
	require.NoError(t, s.Upsert(ctx, chunks, vectors))

	res, err := s.Search(ctx, []float64{1, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "d:0", res[0].Chunk.ChunkID)
	assert.Equal(t, "d:2", res[1].Chunk.ChunkID)

	res, err = s.Search(ctx, []float64{0, 0, 1}, 1)
	require.NoError(t, err)
	assert.Empty(t, res, "orthogonal query matches nothing")
}

func TestFileStore_UpsertReplacesByChunkID(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "index.gob"))
	require.NoError(t, s.Init(ctx, 3))
	require.NoError(t, s.Upsert(ctx, chunks, vectors))
	require.NoError(t, s.Upsert(ctx, chunks[:1], [][]float64{{0, 0, 1}}))
	assert.Equal(t, 3, s.Len())

	assert.Error(t, s.Upsert(ctx, chunks[:1], [][]float64{{1, 0}}))
	assert.Error(t, s.Upsert(ctx, chunks, vectors[:1]))
}

func TestFileStore_PersistAndOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "index.gob")
	s := NewFileStore(path)
	require.NoError(t, s.Init(ctx, 3))
	require.NoError(t, s.Upsert(ctx, chunks, vectors))
	s.SetEmbedder("tfidf", []byte{1, 2, 3})
	require.NoError(t, s.Persist())

	loaded, err := OpenFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Len())
	model, state := loaded.Embedder()
	assert.Equal(t, "tfidf", model)
	assert.Equal(t, []byte{1, 2, 3}, state)

	res, err := loaded.Search(ctx, []float64{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "tensão muscular", res[0].Chunk.Text)
}

func TestFileStore_EmptyPersist(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.gob")
	s := NewFileStore(path)
	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Persist())

	loaded, err := OpenFileStore(path)
	require.NoError(t, err)
	assert.Zero(t, loaded.Len())
	res, err := loaded.Search(ctx, []float64{1}, 1)
	require.NoError(t, err)
	assert.Empty(t, res)
}

// fakeQdrant keeps one collection in memory.
type fakeQdrant struct {
	mu     sync.Mutex
	exists bool
	points map[string]map[string]any
	apiKey string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKey = r.Header.Get("api-key")
	switch {
	case r.Method == http.MethodPut && r.URL.Path == "/collections/kb":
		f.exists = true
		f.points = map[string]map[string]any{}
	case r.Method == http.MethodDelete && r.URL.Path == "/collections/kb":
		if !f.exists {
			http.NotFound(w, r)
			return
		}
		f.exists = false
	case r.Method == http.MethodPut && r.URL.Path == "/collections/kb/points":
		var body struct {
			Points []map[string]any `json:"points"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		for _, p := range body.Points {
			f.points[p["id"].(string)] = p
		}
	case r.Method == http.MethodPost && r.URL.Path == "/collections/kb/points/search":
		if !f.exists {
			http.NotFound(w, r)
			return
		}
		var result []map[string]any
		for _, p := range f.points {
			if strings.Contains(p["payload"].(map[string]any)["text"].(string), "interesse") {
				result = append(result, map[string]any{"score": 0.9, "payload": p["payload"]})
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"result": result})
	default:
		http.Error(w, "unexpected", http.StatusBadRequest)
	}
}

func TestQdrant_RoundTrip(t *testing.T) {
	fake := &fakeQdrant{}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	ctx := context.Background()

	s := NewQdrant(QdrantConfig{URL: srv.URL, Collection: "kb", APIKey: "k"})
	require.NoError(t, s.Clear(ctx), "missing collection is fine")
	require.NoError(t, s.Init(ctx, 3))
	require.NoError(t, s.Upsert(ctx, chunks, vectors))
	assert.Len(t, fake.points, 3)
	assert.Equal(t, "k", fake.apiKey)

	res, err := s.Search(ctx, []float64{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "d:0", res[0].Chunk.ChunkID)
	assert.Equal(t, 0.9, res[0].Score)

	assert.Error(t, s.Init(ctx, 0))
}

func TestQdrant_SearchMissingCollectionHasNoResults(t *testing.T) {
	srv := httptest.NewServer(&fakeQdrant{})
	defer srv.Close()
	ctx := context.Background()

	s := NewQdrant(QdrantConfig{URL: srv.URL, Collection: "kb"})
	require.NoError(t, s.Clear(ctx))
	res, err := s.Search(ctx, []float64{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestQdrant_SearchOtherErrorsSurface(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewQdrant(QdrantConfig{URL: srv.URL, Collection: "kb"})
	_, err := s.Search(context.Background(), []float64{1}, 1)
	assert.Error(t, err)
}

func TestPointIDIsStableUUID(t *testing.T) {
	a := pointID(chunks[0])
	assert.Equal(t, a, pointID(chunks[0]))
	assert.NotEqual(t, a, pointID(chunks[1]))
	assert.Len(t, a, 36)
}
