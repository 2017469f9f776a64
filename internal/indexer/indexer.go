package indexer

import (
	"context"
	"encoding"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"triage-assistant/internal/chunker"
	"triage-assistant/internal/embedding"
	"triage-assistant/internal/vectorstore"
	"triage-assistant/pkg"
)

// SanityTopK is the number of chunks fetched by the post-build check.
const SanityTopK = 1

// NoResultsMessage is printed when a query matches nothing.
const NoResultsMessage = "Nenhum documento retornado."

// previewRunes bounds the excerpt printed for a match.
const previewRunes = 400

// Report summarises one build.
type Report struct {
	Documents int
	Chunks    int
	Dimension int
}

// Indexer loads the knowledge base, splits it, embeds the chunks and writes
// them to a vector store.
type Indexer struct {
	Chunker  *chunker.RecursiveChunker
	Embedder embedding.Embedder
	Store    vectorstore.Store
	Logger   *slog.Logger
}

func (ix *Indexer) logger() *slog.Logger {
	if ix.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return ix.Logger
}

// Build indexes every .txt file under dir, replacing the store's contents.
// An empty or missing dir produces an empty index.
func (ix *Indexer) Build(ctx context.Context, dir string) (Report, error) {
	log := ix.logger()

	docs, err := LoadDocuments(os.DirFS(dir), ".")
	if err != nil {
		return Report{}, fmt.Errorf("loading documents: %w", err)
	}
	log.InfoContext(ctx, "documents loaded", "dir", dir, "count", len(docs))

	var (
		chunks []pkg.Chunk
		texts  []string
	)
	for _, d := range docs {
		for _, c := range ix.Chunker.Chunk(d) {
			chunks = append(chunks, c)
			texts = append(texts, c.Text)
		}
	}
	log.InfoContext(ctx, "documents split", "chunks", len(chunks))
	rep := Report{Documents: len(docs), Chunks: len(chunks)}

	if err := ix.Store.Clear(ctx); err != nil {
		return Report{}, fmt.Errorf("clearing store: %w", err)
	}
	if len(chunks) == 0 {
		log.WarnContext(ctx, "no chunks to index", "dir", dir)
		return rep, ix.persist(ctx)
	}

	if err := ix.Embedder.Prepare(ctx, texts); err != nil {
		return Report{}, fmt.Errorf("preparing embedder: %w", err)
	}
	vectors, err := ix.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return Report{}, fmt.Errorf("embedding chunks: %w", err)
	}
	rep.Dimension = ix.Embedder.Dimension()
	if err := ix.Store.Init(ctx, rep.Dimension); err != nil {
		return Report{}, fmt.Errorf("initialising store: %w", err)
	}
	if err := ix.Store.Upsert(ctx, chunks, vectors); err != nil {
		return Report{}, fmt.Errorf("storing vectors: %w", err)
	}
	return rep, ix.persist(ctx)
}

// persist records the embedder with file-backed stores and flushes them.
func (ix *Indexer) persist(ctx context.Context) error {
	if fileStore, ok := ix.Store.(*vectorstore.FileStore); ok {
		var state []byte
		if m, ok := ix.Embedder.(encoding.BinaryMarshaler); ok {
			data, err := m.MarshalBinary()
			if err != nil && !errors.Is(err, embedding.ErrNotPrepared) {
				return fmt.Errorf("saving embedder state: %w", err)
			}
			state = data
		}
		fileStore.SetEmbedder(ix.Embedder.Name(), state)
	}
	p, ok := ix.Store.(vectorstore.Persister)
	if !ok {
		return nil
	}
	if err := p.Persist(); err != nil {
		return fmt.Errorf("persisting index: %w", err)
	}
	attrs := []any{}
	if fileStore, ok := ix.Store.(*vectorstore.FileStore); ok {
		attrs = append(attrs, "path", fileStore.Path())
	}
	ix.logger().InfoContext(ctx, "index persisted", attrs...)
	return nil
}

// Restore loads the embedder state saved with a file-backed index.
func Restore(store *vectorstore.FileStore, e embedding.Embedder) error {
	model, state := store.Embedder()
	if model != "" && model != e.Name() {
		return fmt.Errorf("index was built with embedder %q, not %q", model, e.Name())
	}
	u, ok := e.(encoding.BinaryUnmarshaler)
	if !ok || len(state) == 0 {
		return nil
	}
	return u.UnmarshalBinary(state)
}

// Query returns the k chunks nearest to text.  An index built from no
// documents answers with no results.
func (ix *Indexer) Query(ctx context.Context, text string, k int) ([]pkg.SearchResult, error) {
	vec, err := embedding.Embed(ctx, ix.Embedder, text)
	if errors.Is(err, embedding.ErrNotPrepared) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return ix.Store.Search(ctx, vec, k)
}

// Describe renders the leading excerpt of the best match, or
// NoResultsMessage.
func Describe(results []pkg.SearchResult) string {
	if len(results) == 0 {
		return NoResultsMessage
	}
	text := []rune(results[0].Chunk.Text)
	if len(text) > previewRunes {
		text = text[:previewRunes]
	}
	return "Encontrado: " + string(text)
}
