// Package rag provides similarity retrieval over indexed text: the
// contract the agent runtime queries, a dependency-free hashed-embedding
// retriever, and a retriever backed by a provider embedding endpoint.
package rag

import (
	"context"
	"math"

	"github.com/agentkit-dev/agentkit"
)

// Retriever is the contract for pluggable retrieval backends.
type Retriever interface {
	// AddDocuments indexes documents for future retrieval.
	AddDocuments(ctx context.Context, docs []agentkit.Document) error

	// Retrieve returns at most k chunks ordered by descending similarity,
	// empty when the index is empty.
	Retrieve(ctx context.Context, query string, k int) ([]agentkit.RetrievedChunk, error)
}

// chunkText splits text into overlapping fixed-size character windows.
// Text no longer than chunkSize is returned whole; otherwise windows of
// chunkSize characters advance by chunkSize-overlap per step until the
// window start reaches the text end, so every position is covered and
// adjacent chunks share overlap characters of context.
func chunkText(text string, chunkSize, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	step := chunkSize - overlap
	if step < 1 {
		step = 1
	}

	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// dot returns the dot product of two vectors; mismatched dimensionality
// scores 0 rather than erroring. For L2-normalized inputs this equals
// cosine similarity.
func dot(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// cosine returns the cosine similarity of two arbitrary vectors.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
