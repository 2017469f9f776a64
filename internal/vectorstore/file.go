package vectorstore

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"triage-assistant/pkg"
)

// indexFile is the on-disk layout of a FileStore.
type indexFile struct {
	Dimension     int
	Model         string
	EmbedderState []byte
	Chunks        []pkg.Chunk
	Vectors       [][]float64
}

// FileStore is an in-memory brute-force cosine index persisted as a single
// gob file.
type FileStore struct {
	path string

	mu   sync.RWMutex
	data indexFile
}

// NewFileStore creates an empty store that persists to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// OpenFileStore loads the index persisted at path.
func OpenFileStore(path string) (*FileStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s := &FileStore{path: path}
	if err := gob.NewDecoder(f).Decode(&s.data); err != nil {
		return nil, fmt.Errorf("decoding index %s: %w", path, err)
	}
	if len(s.data.Chunks) != len(s.data.Vectors) {
		return nil, fmt.Errorf("index %s: chunks and vectors length mismatch", path)
	}
	return s, nil
}

// Path returns where the store persists.
func (s *FileStore) Path() string { return s.path }

// Len returns the number of indexed chunks.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.Chunks)
}

// SetEmbedder records which embedder produced the vectors, with any state
// needed to embed queries later.
func (s *FileStore) SetEmbedder(model string, state []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Model = model
	s.data.EmbedderState = state
}

// Embedder returns the values recorded by SetEmbedder.
func (s *FileStore) Embedder() (model string, state []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Model, s.data.EmbedderState
}

func (s *FileStore) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Dimension = dimension
	s.data.Chunks = nil
	s.data.Vectors = nil
	return nil
}

func (s *FileStore) Upsert(_ context.Context, chunks []pkg.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.data.Dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	pos := make(map[string]int, len(s.data.Chunks))
	for i, c := range s.data.Chunks {
		pos[c.ChunkID] = i
	}
	for i, c := range chunks {
		if j, ok := pos[c.ChunkID]; ok {
			s.data.Chunks[j] = c
			s.data.Vectors[j] = vectors[i]
			continue
		}
		pos[c.ChunkID] = len(s.data.Chunks)
		s.data.Chunks = append(s.data.Chunks, c)
		s.data.Vectors = append(s.data.Vectors, vectors[i])
	}
	return nil
}

// Search returns up to topK chunks by descending cosine similarity.  Chunks
// with no similarity to the query are not returned.
func (s *FileStore) Search(_ context.Context, vector []float64, topK int) ([]pkg.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	var results []pkg.SearchResult
	for i, v := range s.data.Vectors {
		score := Cosine(vector, v)
		if score <= 0 {
			continue
		}
		results = append(results, pkg.SearchResult{Chunk: s.data.Chunks[i], Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *FileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Chunks = nil
	s.data.Vectors = nil
	return nil
}

// Persist writes the index to a temporary file and renames it into place.
func (s *FileStore) Persist() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(&s.data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.path)
}
