package rag

import (
	"context"
	"crypto/sha256"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/agentkit-dev/agentkit"
)

// Default tuning for the hashed retriever.
const (
	DefaultDimensions = 64
	DefaultChunkSize  = 500
	DefaultOverlap    = 50
)

// HashRetriever is a dependency-free in-memory retriever. Text is
// embedded by hashing whitespace tokens into a fixed number of buckets
// and L2-normalizing the resulting bag-of-words vector, so identical
// token distributions map to identical vectors without any model call.
// Suitable for tests and small corpora; not a substitute for learned
// embeddings.
type HashRetriever struct {
	mu         sync.RWMutex
	dimensions int
	chunkSize  int
	overlap    int
	chunks     []indexedChunk
}

type indexedChunk struct {
	documentID string
	text       string
	metadata   map[string]any
	vector     []float64
}

// HashOption configures a HashRetriever.
type HashOption func(*HashRetriever)

// WithDimensions sets the embedding vector size.
func WithDimensions(d int) HashOption {
	return func(r *HashRetriever) {
		if d > 0 {
			r.dimensions = d
		}
	}
}

// WithChunking sets the character window size and overlap used when
// splitting documents.
func WithChunking(chunkSize, overlap int) HashOption {
	return func(r *HashRetriever) {
		if chunkSize > 0 {
			r.chunkSize = chunkSize
		}
		if overlap >= 0 && overlap < chunkSize {
			r.overlap = overlap
		}
	}
}

// NewHashRetriever creates an empty hashed retriever with default
// dimensions and chunking.
func NewHashRetriever(opts ...HashOption) *HashRetriever {
	r := &HashRetriever{
		dimensions: DefaultDimensions,
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultOverlap,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddDocuments chunks and indexes the documents. Indexing is additive;
// re-adding a document id does not replace earlier chunks.
func (r *HashRetriever) AddDocuments(_ context.Context, docs []agentkit.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, doc := range docs {
		for _, chunk := range chunkText(doc.Text, r.chunkSize, r.overlap) {
			r.chunks = append(r.chunks, indexedChunk{
				documentID: doc.ID,
				text:       chunk,
				metadata:   doc.Metadata,
				vector:     r.embed(chunk),
			})
		}
	}
	return nil
}

// Retrieve embeds the query and returns the k most similar chunks in
// stable descending score order. An empty index yields an empty result.
func (r *HashRetriever) Retrieve(_ context.Context, query string, k int) ([]agentkit.RetrievedChunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.chunks) == 0 || k <= 0 {
		return []agentkit.RetrievedChunk{}, nil
	}

	queryVec := r.embed(query)

	scored := make([]agentkit.RetrievedChunk, 0, len(r.chunks))
	for _, c := range r.chunks {
		scored = append(scored, agentkit.RetrievedChunk{
			DocumentID: c.documentID,
			Text:       c.text,
			Score:      dot(queryVec, c.vector),
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

// embed maps text to an L2-normalized bag-of-words vector. Each
// lowercase whitespace token increments the bucket selected by the
// first byte of its SHA-256 digest modulo the dimension count. A text
// with no tokens embeds to the zero vector.
func (r *HashRetriever) embed(text string) []float64 {
	vec := make([]float64, r.dimensions)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		digest := sha256.Sum256([]byte(token))
		vec[int(digest[0])%r.dimensions]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
