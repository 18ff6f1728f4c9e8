// Package answer produces the downstream answer for an accepted query:
// document retrieval plus text generation over a prepared prompt.
package answer

import "context"

// Document is one retrieved knowledge-base snippet.
type Document struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Retriever finds documents relevant to a query.
type Retriever interface {
	Search(ctx context.Context, query string, maxResults int) ([]Document, error)
}

// Generator turns a prepared prompt into answer text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
