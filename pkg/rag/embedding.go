package rag

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/agentkit-dev/agentkit"
	"github.com/agentkit-dev/agentkit/pkg/provider"
)

// Embedder is the slice of the provider contract this retriever needs.
type Embedder interface {
	Embed(ctx context.Context, req provider.EmbeddingRequest) (*provider.EmbeddingResponse, error)
}

const (
	embedBatchSize   = 64
	embedConcurrency = 4
)

// EmbeddingRetriever indexes documents with vectors from a provider
// embedding endpoint and ranks by cosine similarity. Vectors returned
// by the service are used as-is, so similarity is computed as full
// cosine rather than assuming unit length.
type EmbeddingRetriever struct {
	mu        sync.RWMutex
	embedder  Embedder
	model     string
	chunkSize int
	overlap   int
	chunks    []indexedChunk
}

// EmbeddingOption configures an EmbeddingRetriever.
type EmbeddingOption func(*EmbeddingRetriever)

// WithEmbeddingChunking sets the character window size and overlap used
// when splitting documents.
func WithEmbeddingChunking(chunkSize, overlap int) EmbeddingOption {
	return func(r *EmbeddingRetriever) {
		if chunkSize > 0 {
			r.chunkSize = chunkSize
		}
		if overlap >= 0 && overlap < chunkSize {
			r.overlap = overlap
		}
	}
}

// NewEmbeddingRetriever creates a retriever that embeds with the given
// model through embedder.
func NewEmbeddingRetriever(embedder Embedder, model string, opts ...EmbeddingOption) *EmbeddingRetriever {
	r := &EmbeddingRetriever{
		embedder:  embedder,
		model:     model,
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddDocuments chunks the documents and embeds the chunks in bounded
// concurrent batches. On any embedding failure nothing is indexed.
func (r *EmbeddingRetriever) AddDocuments(ctx context.Context, docs []agentkit.Document) error {
	var pending []indexedChunk
	for _, doc := range docs {
		for _, chunk := range chunkText(doc.Text, r.chunkSize, r.overlap) {
			pending = append(pending, indexedChunk{
				documentID: doc.ID,
				text:       chunk,
				metadata:   doc.Metadata,
			})
		}
	}
	if len(pending) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(pending); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.text
			}
			resp, err := r.embedder.Embed(gctx, provider.EmbeddingRequest{
				Model: r.model,
				Texts: texts,
			})
			if err != nil {
				return fmt.Errorf("embedding batch: %w", err)
			}
			if len(resp.Vectors) != len(batch) {
				return fmt.Errorf("embedding batch: got %d vectors for %d texts", len(resp.Vectors), len(batch))
			}
			for i := range batch {
				batch[i].vector = resp.Vectors[i]
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	r.mu.Lock()
	r.chunks = append(r.chunks, pending...)
	r.mu.Unlock()
	return nil
}

// Retrieve embeds the query and returns the k most similar chunks in
// stable descending score order.
func (r *EmbeddingRetriever) Retrieve(ctx context.Context, query string, k int) ([]agentkit.RetrievedChunk, error) {
	r.mu.RLock()
	indexed := make([]indexedChunk, len(r.chunks))
	copy(indexed, r.chunks)
	r.mu.RUnlock()

	if len(indexed) == 0 || k <= 0 {
		return []agentkit.RetrievedChunk{}, nil
	}

	resp, err := r.embedder.Embed(ctx, provider.EmbeddingRequest{
		Model: r.model,
		Texts: []string{query},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(resp.Vectors) != 1 {
		return nil, fmt.Errorf("embedding query: got %d vectors for 1 text", len(resp.Vectors))
	}
	queryVec := resp.Vectors[0]

	scored := make([]agentkit.RetrievedChunk, 0, len(indexed))
	for _, c := range indexed {
		scored = append(scored, agentkit.RetrievedChunk{
			DocumentID: c.documentID,
			Text:       c.text,
			Score:      cosine(queryVec, c.vector),
			Metadata:   c.metadata,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

var (
	_ Retriever = (*HashRetriever)(nil)
	_ Retriever = (*EmbeddingRetriever)(nil)
)
